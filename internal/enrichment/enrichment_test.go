package enrichment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/leads"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/internal/store/storetest"
)

var exhibitor = scope.CompanyScope{Role: scope.RoleExhibitor, ActiveCompanyID: "c1"}

func newEnricher(mem *storetest.Memory) *Enricher {
	writer := compat.NewWriter(nil, nil)
	return NewEnricher(leads.NewRepository(mem, writer, nil), mem, writer, nil)
}

func TestInsights(t *testing.T) {
	e := newEnricher(storetest.NewMemory())

	got := e.Insights(store.Row{"quick_tags": []any{"Pricing Discussed", "Budget"}, "job_title": "VP Engineering"})
	assert.Equal(t, []string{"Budget confirmed", "Asked about pricing"}, got.BuyingSignals)
	assert.Equal(t, []string{"ROI justification", "Pricing and packaging", "Executive summary"}, got.KeyNeeds)
	assert.Equal(t, "Send a tailored quote with ROI figures.", got.NextBestAction)

	got = e.Insights(store.Row{"is_hot": true, "quick_tags": []string{"Product Demo"}})
	assert.Contains(t, got.BuyingSignals, "Marked hot at the booth")
	assert.Equal(t, "Call within 24 hours and book the demo while interest is high.", got.NextBestAction)

	got = e.Insights(store.Row{"priority_score": 92})
	assert.Equal(t, []string{"High priority score"}, got.BuyingSignals)
	assert.Equal(t, []string{}, got.KeyNeeds)

	assert.Equal(t, leads.DefaultInsights, e.Insights(store.Row{"job_title": "Engineer"}))
}

func TestApply_FlatColumns(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableLeads, store.Row{"id": "1", "company_id": "c1", "quick_tags": []string{"Timeline"}})

	got, err := newEnricher(mem).Apply(context.Background(), exhibitor, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Has a purchase timeline"}, got.BuyingSignals)

	stored := mem.Rows(store.TableLeads)[0]
	assert.Equal(t, got, leads.GetAIInsights(stored))
	assert.NotContains(t, stored, "ai_insights")
}

func TestApply_FallsBackToNestedColumn(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableLeads, store.Row{"id": "1", "company_id": "c1", "stars": 5, "priority_score": 95})
	mem.Restrict(store.TableLeads, "ai_insights")

	got, err := newEnricher(mem).Apply(context.Background(), exhibitor, "1")
	require.NoError(t, err)
	stored := mem.Rows(store.TableLeads)[0]
	require.Contains(t, stored, "ai_insights")
	assert.Equal(t, got.NextBestAction, leads.GetAIInsights(stored).NextBestAction)
	assert.Equal(t, 2, mem.CountCalls("update", store.TableLeads))
}

func TestApply_OutsideScope(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableLeads, store.Row{"id": "1", "company_id": "c2"})
	_, err := newEnricher(mem).Apply(context.Background(), exhibitor, "1")
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.Zero(t, mem.CountCalls("update", store.TableLeads))
}

func TestIsSenior(t *testing.T) {
	assert.True(t, isSenior("Chief Revenue Officer"))
	assert.True(t, isSenior("Head of Platform"))
	assert.True(t, isSenior("VP, Sales"))
	assert.False(t, isSenior("Event Coordinator"))
	assert.False(t, isSenior(""))
}
