package leads

import (
	"context"
	"sort"

	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/internal/store"
)

// Priority board limits and titles.
const (
	PriorityBoardSize     = 6
	TitleActiveEvent      = "Close These First"
	TitleWithoutEvent     = "Top Priority Leads"
	priorityHighlightSize = 3
)

// PriorityBoard is the ranked list of leads to follow up first.
type PriorityBoard struct {
	Title         string                `json:"title"`
	ActiveEventID string                `json:"active_event_id,omitempty"`
	Leads         []models.PriorityLead `json:"leads"`
}

// FetchPriorityLeads ranks the leads visible under s by priority score. When
// the company has an active event only that event's leads are ranked.
func (r *Repository) FetchPriorityLeads(ctx context.Context, s scope.CompanyScope) (PriorityBoard, error) {
	board := PriorityBoard{Title: TitleWithoutEvent, Leads: []models.PriorityLead{}}
	if !s.HasQueryPermission() {
		return board, nil
	}

	if companyID := s.CompanyID(); companyID != "" {
		event, err := r.FetchActiveEventByCompanyID(ctx, companyID)
		if err != nil {
			return board, err
		}
		if id := GetLeadID(event); id != "" {
			board.ActiveEventID = id
			board.Title = TitleActiveEvent
		}
	}

	rows, err := r.FetchLeadsByScope(ctx, s)
	if err != nil {
		return board, err
	}
	board.Leads = RankLeads(rows, board.ActiveEventID)
	return board, nil
}

// RankLeads keeps rows of eventID (all rows when eventID is empty) that
// have an id, orders them by priority score and returns the top of the board.
func RankLeads(rows []store.Row, eventID string) []models.PriorityLead {
	ranked := make([]models.PriorityLead, 0, len(rows))
	for _, row := range rows {
		if eventID != "" && GetEventID(row) != eventID {
			continue
		}
		lead := ToLead(row)
		if lead.ID == "" {
			continue
		}
		ranked = append(ranked, models.PriorityLead{Lead: lead, Highlights: GetHighlights(row)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})
	if len(ranked) > PriorityBoardSize {
		ranked = ranked[:PriorityBoardSize]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
		if len(ranked[i].Highlights) > priorityHighlightSize {
			ranked[i].Highlights = ranked[i].Highlights[:priorityHighlightSize]
		}
	}
	return ranked
}
