package leads

import (
	"strings"

	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/normalize"
	"github.com/boothlead/backend/pkg/rating"
)

// Display defaults.
const (
	DefaultLeadName    = "Unknown Lead"
	DefaultLeadTitle   = "No title"
	DefaultCompanyName = "Unknown Company"
	DefaultStatus      = "new"
	HotStatus          = "hot"
)

// DefaultInsights are shown until a lead has been enriched.
var DefaultInsights = models.AIInsights{
	BuyingSignals:  []string{"Budget approved for Q1", "Primary decision maker", "Requested follow-up meeting"},
	KeyNeeds:       []string{"Engineering stack upgrade"},
	NextBestAction: "Schedule technical deep-dive meeting next week. Emphasize enterprise features and ROI.",
}

func firstText(row store.Row, keys ...string) string {
	for _, k := range keys {
		if s, ok := normalize.Text(row[k]); ok {
			return s
		}
	}
	return ""
}

func textOr(fallback string, row store.Row, keys ...string) string {
	if s := firstText(row, keys...); s != "" {
		return s
	}
	return fallback
}

// GetLeadID returns the lead's id, or "".
func GetLeadID(row store.Row) string { return normalize.ID(row["id"]) }

// GetLeadName returns name, full_name, or a placeholder.
func GetLeadName(row store.Row) string {
	return textOr(DefaultLeadName, row, "name", "full_name")
}

// GetLeadTitle returns title, job_title, role, or a placeholder.
func GetLeadTitle(row store.Row) string {
	return textOr(DefaultLeadTitle, row, "title", "job_title", "role")
}

// GetLeadJobTitle returns the editable job title without a placeholder.
func GetLeadJobTitle(row store.Row) string {
	return firstText(row, "job_title", "title")
}

// GetLeadCompany returns the company text stored on the lead, or a placeholder.
func GetLeadCompany(row store.Row) string {
	return textOr(DefaultCompanyName, row, "company", "company_name")
}

// GetLeadCompanyName returns the editable company_name column.
func GetLeadCompanyName(row store.Row) string {
	return firstText(row, "company_name")
}

// GetCompanyID returns the owning company id, or "".
func GetCompanyID(row store.Row) string { return normalize.ID(row["company_id"]) }

// GetEventID returns the event id, or "".
func GetEventID(row store.Row) string { return normalize.ID(row["event_id"]) }

// GetOwnerUserID returns the capturing rep's id, or "".
func GetOwnerUserID(row store.Row) string { return normalize.ID(row["owner_user_id"]) }

// GetPriorityScore returns priority_score (or the legacy priority column)
// clamped to [0,100].
func GetPriorityScore(row store.Row) int {
	for _, k := range []string{"priority_score", "priority"} {
		if n, ok := normalize.Score(row[k], 0, 100); ok {
			return n
		}
	}
	return 0
}

// GetStars returns the stored star rating when it is positive, else the
// rating derived from the priority score.
func GetStars(row store.Row) int {
	for _, k := range []string{"stars", "rating"} {
		if f, ok := normalize.Number(row[k]); ok && f > 0 {
			return rating.ClampStars(f)
		}
	}
	return rating.StarsFromScore(float64(GetPriorityScore(row)))
}

// IsLeadHot reports whether the lead is flagged hot by is_hot or by status.
func IsLeadHot(row store.Row) bool {
	if b, ok := row["is_hot"].(bool); ok && b {
		return true
	}
	return strings.EqualFold(firstText(row, "status"), HotStatus)
}

// GetLeadStatus returns the lower-cased status, falling back to "hot" for
// flagged leads and "new" otherwise.
func GetLeadStatus(row store.Row) string {
	if s := firstText(row, "status"); s != "" {
		return strings.ToLower(s)
	}
	if IsLeadHot(row) {
		return HotStatus
	}
	return DefaultStatus
}

// GetBadgeLabel returns the card badge for the lead.
func GetBadgeLabel(row store.Row) string {
	if IsLeadHot(row) {
		return models.BadgeHot
	}
	return models.BadgeFollowUp
}

// GetLeadAudioURI returns the recorded voice note location, or "".
func GetLeadAudioURI(row store.Row) string {
	return firstText(row, "audio_uri", "audio_url")
}

// GetFollowUpDisplay renders follow_up_date as MM/DD/YYYY or "TBD".
func GetFollowUpDisplay(row store.Row) string {
	return normalize.DisplayDate(row["follow_up_date"])
}

// GetFollowUpInput returns follow_up_date as YYYY-MM-DD, or "".
func GetFollowUpInput(row store.Row) string {
	s, _ := normalize.ISODate(row["follow_up_date"])
	return s
}

// GetCreatedAt returns created_at as stored, or "".
func GetCreatedAt(row store.Row) string {
	return firstText(row, "created_at")
}

// GetQuickTags returns the known quick tags set on the lead, in stored order
// without duplicates.
func GetQuickTags(row store.Row) []models.LeadTag {
	return NormalizeTags(stringList(row["quick_tags"]))
}

// NormalizeTags trims tags, drops unknown ones and duplicates.
func NormalizeTags(tags []string) []models.LeadTag {
	out := []models.LeadTag{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if !models.IsLeadTag(t) || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, models.LeadTag(t))
	}
	return out
}

// GetHighlights returns up to three quick tags as free text, or the status
// when the lead has no tag list.
func GetHighlights(row store.Row) []string {
	if raw, ok := row["quick_tags"]; ok && isList(raw) {
		list := stringList(raw)
		if len(list) > 3 {
			list = list[:3]
		}
		return list
	}
	if s := firstText(row, "status"); s != "" {
		return []string{s}
	}
	return []string{}
}

// GetAIInsights returns the enrichment bag, read from flat columns first and
// then from a nested ai_insights object. Missing parts use DefaultInsights.
func GetAIInsights(row store.Row) models.AIInsights {
	nested, _ := row["ai_insights"].(map[string]any)
	pick := func(keys ...string) any {
		for _, k := range keys {
			if v, ok := row[k]; ok && v != nil {
				return v
			}
		}
		for _, k := range keys {
			if v, ok := nested[k]; ok && v != nil {
				return v
			}
		}
		return nil
	}
	out := models.AIInsights{
		BuyingSignals:  stringList(pick("buying_signals", "buyingSignals")),
		KeyNeeds:       stringList(pick("key_needs", "keyNeeds")),
		NextBestAction: normalize.TextOr(pick("next_best_action", "nextBestAction"), DefaultInsights.NextBestAction),
	}
	if len(out.BuyingSignals) == 0 {
		out.BuyingSignals = append([]string(nil), DefaultInsights.BuyingSignals...)
	}
	if len(out.KeyNeeds) == 0 {
		out.KeyNeeds = append([]string(nil), DefaultInsights.KeyNeeds...)
	}
	return out
}

// ToLead projects a lead row into its display form.
func ToLead(row store.Row) models.Lead {
	return models.Lead{
		ID:            GetLeadID(row),
		Name:          GetLeadName(row),
		Title:         GetLeadTitle(row),
		Company:       GetLeadCompany(row),
		CompanyID:     GetCompanyID(row),
		EventID:       GetEventID(row),
		OwnerUserID:   GetOwnerUserID(row),
		Status:        GetLeadStatus(row),
		IsHot:         IsLeadHot(row),
		BadgeLabel:    GetBadgeLabel(row),
		PriorityScore: GetPriorityScore(row),
		Stars:         GetStars(row),
		FollowUpDate:  GetFollowUpDisplay(row),
		FollowUpInput: GetFollowUpInput(row),
		AudioURI:      GetLeadAudioURI(row),
		QuickTags:     GetQuickTags(row),
		AIInsights:    GetAIInsights(row),
		CreatedAt:     GetCreatedAt(row),
	}
}

// GetEventName returns the event's display name under any of its aliases.
func GetEventName(row store.Row) string {
	return firstText(row, "name", "event_name", "title")
}

// GetEventDateRangeLabel renders "start - end", a single date when only one
// end is known or both are equal, or "".
func GetEventDateRangeLabel(row store.Row) string {
	start := eventDate(row, "start_date", "starts_at", "start_at")
	end := eventDate(row, "end_date", "ends_at", "end_at")
	switch {
	case start != "" && end != "" && start != end:
		return start + " - " + end
	case start != "":
		return start
	default:
		return end
	}
}

func eventDate(row store.Row, keys ...string) string {
	for _, k := range keys {
		if _, ok := normalize.ISODate(row[k]); ok {
			return normalize.DisplayDate(row[k])
		}
	}
	return ""
}

// GetEventLocationLabel returns venue or location, else city, state and
// country joined with commas, else "".
func GetEventLocationLabel(row store.Row) string {
	if s := firstText(row, "venue", "location"); s != "" {
		return s
	}
	var parts []string
	for _, k := range []string{"city", "state", "country"} {
		if s := firstText(row, k); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// ToEvent projects an event row into its display form.
func ToEvent(row store.Row) models.Event {
	active, _ := row["is_active"].(bool)
	return models.Event{
		ID:             normalize.ID(row["id"]),
		CompanyID:      GetCompanyID(row),
		Name:           GetEventName(row),
		DateRangeLabel: GetEventDateRangeLabel(row),
		LocationLabel:  GetEventLocationLabel(row),
		IsActive:       active,
	}
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	}
	return false
}

// stringList returns the trimmed non-empty strings of a JSON or text array.
func stringList(v any) []string {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []string:
		items = make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
	default:
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := normalize.Text(it); ok {
			out = append(out, s)
		}
	}
	return out
}
