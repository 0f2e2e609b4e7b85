// Package leads creates, reads and updates lead records under a company scope.
package leads

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/metrics"
	"github.com/boothlead/backend/pkg/normalize"
	"github.com/boothlead/backend/pkg/queue"
	"github.com/boothlead/backend/pkg/rating"
)

// Enqueuer schedules enrichment for a new lead.
type Enqueuer interface {
	EnqueueEnrichment(ctx context.Context, payload queue.EnrichmentPayload) error
}

// NameCache caches company display names.
type NameCache interface {
	Get(ctx context.Context, id string) (string, bool)
	Set(ctx context.Context, id, name string)
}

// Column aliases used by older lead schemas.
var leadAliases = []compat.Alias{
	{Primary: "full_name", Legacy: "name"},
	{Primary: "job_title", Legacy: "title"},
	{Primary: "stars", Legacy: "rating"},
	{Primary: "audio_uri", Legacy: "audio_url"},
}

// Columns that only exist in newer lead schemas.
var optionalLeadColumns = []string{"company_name", "quick_tags", "follow_up_date"}

// Columns a patch may never change.
var readOnlyColumns = []string{"id", "created_at", "owner_user_id"}

// Repository is the lead data access layer.
type Repository struct {
	store   store.Store
	writer  *compat.Writer
	logger  *zap.Logger
	metrics *metrics.Metrics
	names   NameCache
	jobs    Enqueuer
}

// Option configures a Repository.
type Option func(*Repository)

// WithMetrics records scan outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithNameCache caches company names between list requests.
func WithNameCache(c NameCache) Option {
	return func(r *Repository) { r.names = c }
}

// WithEnqueuer schedules enrichment after each capture.
func WithEnqueuer(e Enqueuer) Option {
	return func(r *Repository) { r.jobs = e }
}

// NewRepository creates a lead repository.
func NewRepository(st store.Store, writer *compat.Writer, logger *zap.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writer == nil {
		writer = compat.NewWriter(logger, nil)
	}
	r := &Repository{store: st, writer: writer, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchLeadsByScope returns every lead visible under s, newest first. A
// denied scope yields an empty list and no error.
func (r *Repository) FetchLeadsByScope(ctx context.Context, s scope.CompanyScope) ([]store.Row, error) {
	q, ok := scope.Apply(store.From(store.TableLeads).Order("created_at", true), s)
	if !ok {
		return []store.Row{}, nil
	}
	rows, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch leads: %w", err)
	}
	return rows, nil
}

// FetchLeadByScopeAndID returns one lead, or nil when it is not visible
// under s or does not exist.
func (r *Repository) FetchLeadByScopeAndID(ctx context.Context, s scope.CompanyScope, id string) (store.Row, error) {
	id = normalize.ID(id)
	if id == "" {
		return nil, nil
	}
	q, ok := scope.Apply(store.From(store.TableLeads).Eq("id", id), s)
	if !ok {
		return nil, nil
	}
	row, err := r.store.SelectOne(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch lead: %w", err)
	}
	return row, nil
}

// FetchActiveEventByCompanyID returns the company's active event, or nil.
func (r *Repository) FetchActiveEventByCompanyID(ctx context.Context, companyID string) (store.Row, error) {
	companyID = normalize.ID(companyID)
	if companyID == "" {
		return nil, nil
	}
	row, err := r.store.SelectOne(ctx, store.From(store.TableEvents).
		Eq("company_id", companyID).
		Eq("is_active", true))
	if err != nil {
		return nil, fmt.Errorf("fetch active event: %w", err)
	}
	return row, nil
}

// UpdateLeadByScope applies patch to the lead. The scope filter is applied
// first; the write then falls back through legacy column names and finally
// drops columns that older schemas lack. A denied scope or unknown lead
// yields nil and no error.
func (r *Repository) UpdateLeadByScope(ctx context.Context, s scope.CompanyScope, id string, patch store.Row) (store.Row, error) {
	id = normalize.ID(id)
	if id == "" {
		return nil, nil
	}
	q, ok := scope.Apply(store.From(store.TableLeads).Eq("id", id), s)
	if !ok {
		return nil, nil
	}
	clean := sanitizePatch(patch, s)
	if len(clean) == 0 {
		return nil, ErrEmptyPatch
	}
	return r.write(ctx, q, compat.AliasCandidates(clean, leadAliases, optionalLeadColumns))
}

// MarkLeadHotByScope flags the lead as hot. A lead rated below four stars is
// raised to four.
func (r *Repository) MarkLeadHotByScope(ctx context.Context, s scope.CompanyScope, id string) (store.Row, error) {
	current, err := r.FetchLeadByScopeAndID(ctx, s, id)
	if err != nil || current == nil {
		return nil, err
	}
	q, _ := scope.Apply(store.From(store.TableLeads).Eq("id", GetLeadID(current)), s)

	hot := store.Row{"is_hot": true, "status": HotStatus}
	withStars, withRating := hot.Clone(), hot.Clone()
	if GetStars(current) < 4 {
		withStars["stars"] = 4
		withRating["rating"] = 4
	}
	return r.write(ctx, q, []compat.Candidate{
		{Tag: "hot-stars", Payload: withStars},
		{Tag: "hot-rating", Payload: withRating},
		{Tag: "hot", Payload: hot},
		{Tag: "status", Payload: store.Row{"status": HotStatus}},
		{Tag: "flag", Payload: store.Row{"is_hot": true}},
	})
}

// UpdateQuickTags saves the lead's quick tags immediately, independent of
// any pending edit.
func (r *Repository) UpdateQuickTags(ctx context.Context, s scope.CompanyScope, id string, tags []string) (store.Row, error) {
	id = normalize.ID(id)
	if id == "" {
		return nil, nil
	}
	q, ok := scope.Apply(store.From(store.TableLeads).Eq("id", id), s)
	if !ok {
		return nil, nil
	}
	normalized := NormalizeTags(tags)
	values := make([]string, len(normalized))
	for i, t := range normalized {
		values[i] = string(t)
	}
	return r.write(ctx, q, []compat.Candidate{{Tag: "quick_tags", Payload: store.Row{"quick_tags": values}}})
}

func (r *Repository) write(ctx context.Context, q store.Query, candidates []compat.Candidate) (store.Row, error) {
	res, err := r.writer.Write(ctx, store.TableLeads, candidates, func(ctx context.Context, payload store.Row) (store.Row, error) {
		return r.store.Update(ctx, q, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return res.Row, nil
}

// sanitizePatch drops read-only columns, keeps non-admins inside their
// company and normalizes scores, ratings, dates and tags.
func sanitizePatch(patch store.Row, s scope.CompanyScope) store.Row {
	out := patch.Clone()
	if out == nil {
		return nil
	}
	for _, c := range readOnlyColumns {
		delete(out, c)
	}
	if !s.IsUnscoped() {
		delete(out, "company_id")
	}
	for _, k := range []string{"priority_score", "priority"} {
		if v, ok := out[k]; ok {
			if n, ok := normalize.Score(v, 0, 100); ok {
				out[k] = n
			} else {
				delete(out, k)
			}
		}
	}
	for _, k := range []string{"stars", "rating"} {
		if v, ok := out[k]; ok {
			if f, ok := normalize.Number(v); ok {
				out[k] = rating.ClampStars(f)
			} else if n, ok := normalize.Score(v, 0, 5); ok {
				out[k] = n
			} else {
				delete(out, k)
			}
		}
	}
	if v, ok := out["follow_up_date"]; ok {
		if d, ok := normalize.ISODate(v); ok {
			out["follow_up_date"] = d
		} else {
			out["follow_up_date"] = nil
		}
	}
	if v, ok := out["quick_tags"]; ok {
		tags := NormalizeTags(stringList(v))
		values := make([]string, len(tags))
		for i, t := range tags {
			values[i] = string(t)
		}
		out["quick_tags"] = values
	}
	for _, k := range []string{"full_name", "job_title", "company_name", "status"} {
		if v, ok := out[k].(string); ok {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
