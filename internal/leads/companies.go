package leads

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/normalize"
)

const maxNameLookups = 8

// ResolveCompanyNames looks up the display name of every company referenced
// by rows. Lookups run concurrently and independently; a failed or empty
// lookup leaves that company out of the result.
func (r *Repository) ResolveCompanyNames(ctx context.Context, rows []store.Row) map[string]string {
	ids := make([]string, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		id := GetCompanyID(row)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	names := make(map[string]string, len(ids))
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(maxNameLookups)
	for _, id := range ids {
		p.Go(func() {
			name := r.companyName(ctx, id)
			if name == "" {
				return
			}
			mu.Lock()
			names[id] = name
			mu.Unlock()
		})
	}
	p.Wait()
	return names
}

func (r *Repository) companyName(ctx context.Context, id string) string {
	if r.names != nil {
		if name, ok := r.names.Get(ctx, id); ok {
			return name
		}
	}
	row, err := r.store.SelectOne(ctx, store.From(store.TableCompanies).Select("name").Eq("id", id))
	if err != nil {
		r.logger.Debug("company name lookup failed", zap.String("company_id", id), zap.Error(err))
		return ""
	}
	name := normalize.TextOr(row["name"], "")
	if name != "" && r.names != nil {
		r.names.Set(ctx, id, name)
	}
	return name
}

// CompanyDisplay returns the resolved company name for row, falling back to
// the company text stored on the lead.
func CompanyDisplay(row store.Row, names map[string]string) string {
	if name := names[GetCompanyID(row)]; name != "" {
		return name
	}
	return GetLeadCompany(row)
}
