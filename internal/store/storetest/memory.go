// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/boothlead/backend/internal/store"
)

// Call records one operation issued against Memory.
type Call struct {
	Op     string
	Table  string
	Values store.Row
	Query  store.Query
}

// Memory is a map-backed store. Insert assigns sequential numeric ids and a
// created_at timestamp when the caller does not supply them.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]store.Row
	errs   map[string][]error
	nextID int
	clock  time.Time
	calls  []Call

	// Columns, when set for a table, restricts which columns writes may use.
	// Writes naming any other column fail like a schema-cache miss.
	Columns map[string]map[string]bool
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		tables:  map[string][]store.Row{},
		errs:    map[string][]error{},
		nextID:  1,
		clock:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		Columns: map[string]map[string]bool{},
	}
}

// Seed appends rows to table as-is.
func (m *Memory) Seed(table string, rows ...store.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[table] = append(m.tables[table], r.Clone())
	}
}

// Rows returns a copy of table's rows.
func (m *Memory) Rows(table string) []store.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Row, 0, len(m.tables[table]))
	for _, r := range m.tables[table] {
		out = append(out, r.Clone())
	}
	return out
}

// Restrict limits writes on table to the given columns.
func (m *Memory) Restrict(table string, columns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c] = true
	}
	m.Columns[table] = allowed
}

// FailNext queues errors returned by the next calls of op ("select",
// "insert", "update") on table, one per call.
func (m *Memory) FailNext(op, table string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + ":" + table
	m.errs[key] = append(m.errs[key], errs...)
}

// Calls returns the operations issued so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CountCalls returns how many times op ran against table.
func (m *Memory) CountCalls(op, table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op && c.Table == table {
			n++
		}
	}
	return n
}

func (m *Memory) record(c Call) error {
	m.calls = append(m.calls, c)
	key := c.Op + ":" + c.Table
	if queued := m.errs[key]; len(queued) > 0 {
		m.errs[key] = queued[1:]
		if queued[0] != nil {
			return queued[0]
		}
	}
	return nil
}

func (m *Memory) checkColumns(table string, values store.Row) error {
	allowed, ok := m.Columns[table]
	if !ok {
		return nil
	}
	cols := make([]string, 0, len(values))
	for k := range values {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	for _, k := range cols {
		if !allowed[k] {
			return &store.Error{
				Message: fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", k, table),
				Code:    "PGRST204",
				Status:  400,
			}
		}
	}
	return nil
}

// Select implements store.Store.
func (m *Memory) Select(_ context.Context, q store.Query) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "select", Table: q.Table, Query: q}); err != nil {
		return nil, err
	}
	var out []store.Row
	for _, r := range m.tables[q.Table] {
		if matches(r, q.Filters) {
			out = append(out, r.Clone())
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][q.OrderBy]), fmt.Sprint(out[j][q.OrderBy])
			if q.Descending {
				return a > b
			}
			return a < b
		})
	}
	if q.MaxRows > 0 && len(out) > q.MaxRows {
		out = out[:q.MaxRows]
	}
	if out == nil {
		out = []store.Row{}
	}
	return out, nil
}

// SelectOne implements store.Store.
func (m *Memory) SelectOne(ctx context.Context, q store.Query) (store.Row, error) {
	rows, err := m.Select(ctx, q.Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Insert implements store.Store.
func (m *Memory) Insert(_ context.Context, table string, values store.Row) (store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "insert", Table: table, Values: values.Clone()}); err != nil {
		return nil, err
	}
	if err := m.checkColumns(table, values); err != nil {
		return nil, err
	}
	row := values.Clone()
	if row == nil {
		row = store.Row{}
	}
	if _, ok := row["id"]; !ok {
		row["id"] = strconv.Itoa(m.nextID)
		m.nextID++
	}
	if _, ok := row["created_at"]; !ok {
		m.clock = m.clock.Add(time.Minute)
		row["created_at"] = m.clock.Format(time.RFC3339)
	}
	m.tables[table] = append(m.tables[table], row)
	return row.Clone(), nil
}

// Update implements store.Store.
func (m *Memory) Update(_ context.Context, q store.Query, values store.Row) (store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "update", Table: q.Table, Query: q, Values: values.Clone()}); err != nil {
		return nil, err
	}
	if err := m.checkColumns(q.Table, values); err != nil {
		return nil, err
	}
	var first store.Row
	for _, r := range m.tables[q.Table] {
		if !matches(r, q.Filters) {
			continue
		}
		for k, v := range values {
			r[k] = v
		}
		if first == nil {
			first = r.Clone()
		}
	}
	return first, nil
}

func matches(r store.Row, filters []store.Filter) bool {
	for _, f := range filters {
		v, ok := r[f.Column]
		if f.Value == nil {
			if ok && v != nil {
				return false
			}
			continue
		}
		if !ok || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}
