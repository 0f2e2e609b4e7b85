// Package enrichment derives advisory insights for captured leads and writes
// them back onto the lead row.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/leads"
	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/internal/store"
)

// ErrLeadNotFound is returned when the lead is gone or outside the job's scope.
var ErrLeadNotFound = errors.New("lead not found")

// HighPriorityScore is the score from which a lead counts as a buying signal on its own.
const HighPriorityScore = 80

var tagSignals = map[models.LeadTag]string{
	models.TagBudget:              "Budget confirmed",
	models.TagDecisionMaker:       "Primary decision maker",
	models.TagPricingDiscussed:    "Asked about pricing",
	models.TagProductDemo:         "Requested a product demo",
	models.TagTimeline:            "Has a purchase timeline",
	models.TagUrgentTimeline:      "Urgent buying timeline",
	models.TagCompetitorMentioned: "Evaluating competitors",
}

var tagNeeds = map[models.LeadTag]string{
	models.TagBudget:              "ROI justification",
	models.TagCompetitorMentioned: "Differentiation from competitors",
	models.TagPricingDiscussed:    "Pricing and packaging",
	models.TagProductDemo:         "Hands-on product walkthrough",
	models.TagTimeline:            "Implementation plan",
	models.TagUrgentTimeline:      "Implementation plan",
}

var seniorTitles = []string{"chief", "ceo", "cto", "cfo", "coo", "cio", "vp", "vice president", "director", "head of", "founder", "owner"}

// LeadReader loads a lead under a scope.
type LeadReader interface {
	FetchLeadByScopeAndID(ctx context.Context, s scope.CompanyScope, id string) (store.Row, error)
}

// Enricher computes and stores lead insights.
type Enricher struct {
	leads  LeadReader
	store  store.Store
	writer *compat.Writer
	logger *zap.Logger
}

// NewEnricher creates an enricher.
func NewEnricher(reader LeadReader, st store.Store, writer *compat.Writer, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{leads: reader, store: st, writer: writer, logger: logger}
}

// Insights derives insights from the lead's quick tags, hot flag, score and
// title. A lead with nothing to go on gets the default insights.
func (e *Enricher) Insights(row store.Row) models.AIInsights {
	tags := leads.GetQuickTags(row)
	has := make(map[models.LeadTag]bool, len(tags))
	for _, t := range tags {
		has[t] = true
	}

	var signals, needs []string
	for _, t := range models.AllTags {
		if !has[t] {
			continue
		}
		if s, ok := tagSignals[t]; ok {
			signals = appendUnique(signals, s)
		}
		if n, ok := tagNeeds[t]; ok {
			needs = appendUnique(needs, n)
		}
	}
	hot := leads.IsLeadHot(row)
	if hot {
		signals = appendUnique(signals, "Marked hot at the booth")
	}
	if leads.GetPriorityScore(row) >= HighPriorityScore {
		signals = appendUnique(signals, "High priority score")
	}
	senior := isSenior(leads.GetLeadJobTitle(row))
	if senior {
		needs = appendUnique(needs, "Executive summary")
	}

	if len(signals) == 0 && len(needs) == 0 {
		return models.AIInsights{
			BuyingSignals:  append([]string(nil), leads.DefaultInsights.BuyingSignals...),
			KeyNeeds:       append([]string(nil), leads.DefaultInsights.KeyNeeds...),
			NextBestAction: leads.DefaultInsights.NextBestAction,
		}
	}
	if signals == nil {
		signals = []string{}
	}
	if needs == nil {
		needs = []string{}
	}
	return models.AIInsights{BuyingSignals: signals, KeyNeeds: needs, NextBestAction: nextAction(has, hot, senior)}
}

func nextAction(has map[models.LeadTag]bool, hot, senior bool) string {
	switch {
	case has[models.TagUrgentTimeline] || (hot && has[models.TagProductDemo]):
		return "Call within 24 hours and book the demo while interest is high."
	case has[models.TagProductDemo]:
		return "Schedule the product demo this week."
	case has[models.TagPricingDiscussed] || has[models.TagBudget]:
		return "Send a tailored quote with ROI figures."
	case senior:
		return "Book a short executive briefing."
	case has[models.TagCompetitorMentioned]:
		return "Share a comparison sheet against the competitor mentioned."
	case hot:
		return "Follow up by phone within two days."
	default:
		return "Send a follow-up email with product resources."
	}
}

// isSenior matches whole words so "coordinator" is not read as COO.
func isSenior(title string) bool {
	title = strings.ToLower(title)
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(title, func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[w] = true
	}
	for _, s := range seniorTitles {
		if strings.Contains(s, " ") {
			if strings.Contains(title, s) {
				return true
			}
		} else if words[s] {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Apply computes insights for the lead and stores them. Flat insight
// columns are tried first, then a single ai_insights JSON column.
func (e *Enricher) Apply(ctx context.Context, s scope.CompanyScope, leadID string) (models.AIInsights, error) {
	row, err := e.leads.FetchLeadByScopeAndID(ctx, s, leadID)
	if err != nil {
		return models.AIInsights{}, fmt.Errorf("load lead: %w", err)
	}
	if row == nil {
		return models.AIInsights{}, ErrLeadNotFound
	}
	insights := e.Insights(row)

	q, ok := scope.Apply(store.From(store.TableLeads).Eq("id", leads.GetLeadID(row)), s)
	if !ok {
		return models.AIInsights{}, ErrLeadNotFound
	}
	res, err := e.writer.Write(ctx, store.TableLeads, []compat.Candidate{
		{Tag: "flat", Payload: store.Row{
			"buying_signals":   insights.BuyingSignals,
			"key_needs":        insights.KeyNeeds,
			"next_best_action": insights.NextBestAction,
		}},
		{Tag: "nested", Payload: store.Row{"ai_insights": map[string]any{
			"buying_signals":   insights.BuyingSignals,
			"key_needs":        insights.KeyNeeds,
			"next_best_action": insights.NextBestAction,
		}}},
	}, func(ctx context.Context, payload store.Row) (store.Row, error) {
		return e.store.Update(ctx, q, payload)
	})
	if err != nil {
		return models.AIInsights{}, fmt.Errorf("store insights: %w", err)
	}
	if res.Row == nil {
		return models.AIInsights{}, ErrLeadNotFound
	}
	e.logger.Info("lead enriched",
		zap.String("lead_id", leads.GetLeadID(row)),
		zap.String("shape", res.Tag),
		zap.Int("signals", len(insights.BuyingSignals)))
	return insights, nil
}
