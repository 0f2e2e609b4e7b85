package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store directly against Postgres. It is used for
// local development and self-hosted deployments without the REST gateway.
type PostgresStore struct {
	pool    *pgxpool.Pool
	observe Observer
}

// NewPostgresStore creates a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool, observe Observer) *PostgresStore {
	return &PostgresStore{pool: pool, observe: observe}
}

// Select implements Store.
func (s *PostgresStore) Select(ctx context.Context, q Query) (rows []Row, err error) {
	defer s.track("select", q.Table, time.Now(), &err)
	sql, args := buildSelect(q)
	pgRows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		if isInvalidFilterValue(err) {
			return []Row{}, nil
		}
		return nil, mapPgError(err)
	}
	maps, err := pgx.CollectRows(pgRows, pgx.RowToMap)
	if err != nil {
		if isInvalidFilterValue(err) {
			return []Row{}, nil
		}
		return nil, mapPgError(err)
	}
	rows = make([]Row, 0, len(maps))
	for _, m := range maps {
		rows = append(rows, toRow(m))
	}
	return rows, nil
}

// SelectOne implements Store.
func (s *PostgresStore) SelectOne(ctx context.Context, q Query) (Row, error) {
	rows, err := s.Select(ctx, q.Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, table string, values Row) (row Row, err error) {
	defer s.track("insert", table, time.Now(), &err)
	sql, args := buildInsert(table, values)
	return s.returning(ctx, sql, args)
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, q Query, values Row) (row Row, err error) {
	defer s.track("update", q.Table, time.Now(), &err)
	if len(values) == 0 {
		return nil, &Error{Message: "update requires at least one column"}
	}
	sql, args := buildUpdate(q, values)
	return s.returning(ctx, sql, args)
}

func (s *PostgresStore) returning(ctx context.Context, sql string, args []any) (Row, error) {
	pgRows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	maps, err := pgx.CollectRows(pgRows, pgx.RowToMap)
	if err != nil {
		return nil, mapPgError(err)
	}
	if len(maps) == 0 {
		return nil, nil
	}
	return toRow(maps[0]), nil
}

func (s *PostgresStore) track(op, table string, start time.Time, err *error) {
	if s.observe != nil {
		s.observe(op, table, time.Since(start), *err)
	}
}

func buildSelect(q Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columnList(q.Columns))
	b.WriteString(" FROM ")
	b.WriteString(ident(q.Table))
	args := writeWhere(&b, q.Filters, nil)
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(ident(q.OrderBy))
		if q.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.MaxRows > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.MaxRows)
	}
	return b.String(), args
}

func buildInsert(table string, values Row) (string, []any) {
	keys := sortedKeys(values)
	if len(keys) == 0 {
		return "INSERT INTO " + ident(table) + " DEFAULT VALUES RETURNING *", nil
	}
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = ident(k)
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[k]
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table), strings.Join(cols, ", "), strings.Join(marks, ", ")), args
}

func buildUpdate(q Query, values Row) (string, []any) {
	keys := sortedKeys(values)
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(ident(q.Table))
	b.WriteString(" SET ")
	args := make([]any, 0, len(keys)+len(q.Filters))
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, values[k])
		fmt.Fprintf(&b, "%s = $%d", ident(k), len(args))
	}
	args = writeWhere(&b, q.Filters, args)
	b.WriteString(" RETURNING *")
	return b.String(), args
}

func writeWhere(b *strings.Builder, filters []Filter, args []any) []any {
	for i, f := range filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		if f.Value == nil {
			b.WriteString(ident(f.Column) + " IS NULL")
			continue
		}
		// Sent as text so the server parses it as the column's own type and
		// the column's indexes apply.
		args = append(args, fmt.Sprint(f.Value))
		fmt.Fprintf(b, "%s = $%d", ident(f.Column), len(args))
	}
	return args
}

func columnList(columns string) string {
	columns = strings.TrimSpace(columns)
	if columns == "" || columns == "*" {
		return "*"
	}
	parts := strings.Split(columns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, ident(p))
		}
	}
	return strings.Join(out, ", ")
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sortedKeys(values Row) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toRow converts driver values into the JSON-like shapes the REST backend
// returns, so projections behave the same on both backends.
func toRow(m map[string]any) Row {
	row := make(Row, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case [16]byte:
			row[k] = uuid.UUID(t).String()
		case pgtype.Numeric:
			if f, err := t.Float64Value(); err == nil && f.Valid {
				row[k] = f.Float64
			} else {
				row[k] = nil
			}
		case time.Time:
			if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
				row[k] = t.Format("2006-01-02")
			} else {
				row[k] = t.Format(time.RFC3339Nano)
			}
		default:
			row[k] = v
		}
	}
	return row
}

// isInvalidFilterValue reports whether a filter value could not be parsed as
// its column's type, such as a non-uuid id. Such a filter matches no row.
func isInvalidFilterValue(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "22P02", "22007", "22008", "22003":
		return true
	}
	return false
}

// mapPgError converts driver errors into *Error so callers can classify them
// the same way as REST responses.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{Message: pgErr.Message, Code: pgErr.Code, Details: pgErr.Detail, Hint: pgErr.Hint}
	}
	return &Error{Message: err.Error()}
}
