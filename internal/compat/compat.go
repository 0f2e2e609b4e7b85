// Package compat writes logical updates to tables whose column set differs
// between deployments. A write is expressed as an ordered list of physical
// payload candidates; candidates are tried one at a time until the store
// accepts one or rejects it for a reason other than an unknown column.
package compat

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/metrics"
)

// ErrNoCandidates is returned when Write is given nothing to try.
var ErrNoCandidates = errors.New("no write candidates")

// Candidate is one physical shape of a logical write.
type Candidate struct {
	Tag     string
	Payload store.Row
}

// WriteFunc performs a single write attempt.
type WriteFunc func(ctx context.Context, payload store.Row) (store.Row, error)

// Result describes the accepted candidate.
type Result struct {
	Row      store.Row
	Tag      string
	Attempts int
}

var schemaMarkers = []string{"column", "does not exist", "schema cache"}

// IsSchemaMessage reports whether msg describes an unknown column or a stale
// schema cache.
func IsSchemaMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range schemaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsSchemaError reports whether err is a schema-compatibility rejection.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	return IsSchemaMessage(store.Message(err))
}

// Writer runs candidate lists. The zero value is usable.
type Writer struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewWriter creates a writer that logs and counts fallbacks.
func NewWriter(logger *zap.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger, metrics: m}
}

// Write tries candidates strictly in order. It returns on the first success,
// stops on the first non-schema error, and returns the last schema error
// when every candidate is rejected.
func (w *Writer) Write(ctx context.Context, table string, candidates []Candidate, write WriteFunc) (Result, error) {
	logger := w.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	candidates = Dedupe(candidates)
	if len(candidates) == 0 {
		return Result{}, ErrNoCandidates
	}

	var lastErr error
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: i}, err
		}
		row, err := write(ctx, c.Payload)
		if err == nil {
			if i > 0 {
				logger.Info("write accepted after fallback",
					zap.String("table", table), zap.String("candidate", c.Tag), zap.Int("attempts", i+1))
			}
			return Result{Row: row, Tag: c.Tag, Attempts: i + 1}, nil
		}
		if !IsSchemaError(err) {
			logger.Error("write rejected",
				zap.String("table", table), zap.String("candidate", c.Tag), zap.Error(err))
			return Result{Attempts: i + 1}, err
		}
		logger.Warn("write candidate rejected by schema, trying next",
			zap.String("table", table), zap.String("candidate", c.Tag), zap.Error(err))
		w.metrics.CompatFallback(table, c.Tag)
		lastErr = err
	}
	return Result{Attempts: len(candidates)}, fmt.Errorf("%s: every write shape rejected: %w", table, lastErr)
}

// Dedupe drops empty payloads and payloads identical to an earlier one.
func Dedupe(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Payload) == 0 {
			continue
		}
		dup := false
		for _, prev := range out {
			if reflect.DeepEqual(prev.Payload, c.Payload) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// Alias maps a primary column to the legacy name used by older schemas.
type Alias struct {
	Primary string
	Legacy  string
}

// AliasCandidates builds the fallback list for a patch. Each aliased column
// may independently carry its primary or legacy name, so every combination of
// renames is produced: the patch as given, then every alias renamed, then the
// mixed shapes with fewer renames first. The same shapes without the optional
// columns follow.
func AliasCandidates(patch store.Row, aliases []Alias, optional []string) []Candidate {
	var present []Alias
	for _, a := range aliases {
		if _, ok := patch[a.Primary]; ok {
			present = append(present, a)
		}
	}
	masks := renameOrder(len(present))
	out := make([]Candidate, 0, 2*len(masks))
	for _, mask := range masks {
		tag, payload := renamed(patch, present, mask)
		out = append(out, Candidate{Tag: tag, Payload: payload})
	}
	for _, c := range out[:len(masks)] {
		out = append(out, Candidate{Tag: c.Tag + "-core", Payload: without(c.Payload, optional)})
	}
	return Dedupe(out)
}

// renameOrder lists rename bitmasks over n aliases: none, all, then the
// partial sets by ascending size.
func renameOrder(n int) []uint {
	all := uint(1)<<n - 1
	order := []uint{0}
	if n == 0 {
		return order
	}
	order = append(order, all)
	for size := 1; size < n; size++ {
		for mask := uint(1); mask < all; mask++ {
			if bits.OnesCount(mask) == size {
				order = append(order, mask)
			}
		}
	}
	return order
}

func renamed(patch store.Row, aliases []Alias, mask uint) (string, store.Row) {
	out := patch.Clone()
	if out == nil {
		out = store.Row{}
	}
	var names []string
	for i, a := range aliases {
		if mask&(1<<i) == 0 {
			continue
		}
		out[a.Legacy] = out[a.Primary]
		delete(out, a.Primary)
		names = append(names, a.Legacy)
	}
	switch {
	case mask == 0:
		return "primary", out
	case len(names) == len(aliases):
		return "legacy", out
	default:
		return "legacy:" + strings.Join(names, ","), out
	}
}

func without(row store.Row, columns []string) store.Row {
	out := row.Clone()
	for _, c := range columns {
		delete(out, c)
	}
	return out
}
