// Package store is the boundary with the hosted relational store. Rows are
// untyped key/value maps; every field read goes through a projection in the
// calling package.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Table names used by the lead capture backend.
const (
	TableLeads     = "leads"
	TableEvents    = "events"
	TableCompanies = "companies"
	TableUsers     = "users"
)

// Row is a single remote record.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Store reads and writes remote tables.
type Store interface {
	// Select returns every row matching q.
	Select(ctx context.Context, q Query) ([]Row, error)
	// SelectOne returns the first matching row, or nil when nothing matches.
	SelectOne(ctx context.Context, q Query) (Row, error)
	// Insert writes values into table and returns the stored row.
	Insert(ctx context.Context, table string, values Row) (Row, error)
	// Update applies values to the rows matched by q's filters and returns the first updated row.
	Update(ctx context.Context, q Query, values Row) (Row, error)
}

// Error is a failure reported by the remote store.
type Error struct {
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		if e.Code != "" {
			return "remote store error " + e.Code
		}
		return "remote store error"
	}
	return e.Message
}

// ErrNotConfigured is returned when the store has no endpoint or credentials.
var ErrNotConfigured = &Error{Message: "remote store is not configured"}

// Message extracts the most useful message from err for classification.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		parts := []string{se.Message}
		if se.Details != "" {
			parts = append(parts, se.Details)
		}
		return strings.Join(parts, ": ")
	}
	return err.Error()
}

// errorFromPayload normalizes a remote error body. Auth endpoints use msg or
// error_description; data endpoints use message.
func errorFromPayload(payload map[string]any, status int) *Error {
	e := &Error{Status: status}
	for _, key := range []string{"msg", "error_description", "message"} {
		if s, ok := payload[key].(string); ok && s != "" {
			e.Message = s
			break
		}
	}
	if s, ok := payload["code"].(string); ok {
		e.Code = s
	} else if n, ok := payload["code"].(float64); ok {
		e.Code = fmt.Sprintf("%d", int(n))
	}
	e.Details, _ = payload["details"].(string)
	e.Hint, _ = payload["hint"].(string)
	if e.Message == "" {
		if s, ok := payload["error"].(string); ok {
			e.Message = s
		}
	}
	return e
}

// ErrorFromPayload is errorFromPayload for other packages talking to the same backend.
func ErrorFromPayload(payload map[string]any, status int) *Error {
	return errorFromPayload(payload, status)
}
