package models

// LeadTag is one of the quick tags a rep can toggle on a lead.
type LeadTag string

const (
	TagBudget              LeadTag = "Budget"
	TagDecisionMaker       LeadTag = "Decision Maker"
	TagCompetitorMentioned LeadTag = "Competitor Mentioned"
	TagTimeline            LeadTag = "Timeline"
	TagProductDemo         LeadTag = "Product Demo"
	TagPricingDiscussed    LeadTag = "Pricing Discussed"
	TagUrgentTimeline      LeadTag = "Urgent timeline"
)

// AllTags lists the quick tags in display order.
var AllTags = []LeadTag{
	TagBudget,
	TagDecisionMaker,
	TagCompetitorMentioned,
	TagTimeline,
	TagProductDemo,
	TagPricingDiscussed,
	TagUrgentTimeline,
}

// IsLeadTag reports whether s names a known quick tag.
func IsLeadTag(s string) bool {
	for _, t := range AllTags {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Badge labels shown on lead cards.
const (
	BadgeHot      = "Hot"
	BadgeFollowUp = "Follow Up"
)

// AIInsights is advisory enrichment attached to a lead.
type AIInsights struct {
	BuyingSignals  []string `json:"buying_signals"`
	KeyNeeds       []string `json:"key_needs"`
	NextBestAction string   `json:"next_best_action"`
}

// Lead is the display-ready view of a lead row.
type Lead struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Title         string     `json:"title"`
	Company       string     `json:"company"`
	CompanyID     string     `json:"company_id"`
	EventID       string     `json:"event_id"`
	OwnerUserID   string     `json:"owner_user_id"`
	Status        string     `json:"status"`
	IsHot         bool       `json:"is_hot"`
	BadgeLabel    string     `json:"badge_label"`
	PriorityScore int        `json:"priority_score"`
	Stars         int        `json:"stars"`
	FollowUpDate  string     `json:"follow_up_date"`
	FollowUpInput string     `json:"follow_up_input"`
	AudioURI      string     `json:"audio_uri,omitempty"`
	QuickTags     []LeadTag  `json:"quick_tags"`
	AIInsights    AIInsights `json:"ai_insights"`
	CreatedAt     string     `json:"created_at,omitempty"`
}

// PriorityLead is a ranked lead on the priority board.
type PriorityLead struct {
	Lead
	Rank       int      `json:"rank"`
	Highlights []string `json:"highlights"`
}

// Event is the display-ready view of an event row.
type Event struct {
	ID             string `json:"id"`
	CompanyID      string `json:"company_id"`
	Name           string `json:"name"`
	DateRangeLabel string `json:"date_range_label"`
	LocationLabel  string `json:"location_label"`
	IsActive       bool   `json:"is_active"`
}
