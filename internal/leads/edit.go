package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/rating"
)

// DefaultEditedName replaces a name cleared in the edit form.
const DefaultEditedName = "New Lead"

// ErrNotSaved is returned when an update matched no visible lead.
var ErrNotSaved = errors.New("lead could not be saved")

// EditState is the lifecycle state of an open lead editor.
type EditState int

const (
	EditClean EditState = iota
	EditDirty
	EditSaving
	EditFailed
)

func (s EditState) String() string {
	switch s {
	case EditClean:
		return "clean"
	case EditDirty:
		return "dirty"
	case EditSaving:
		return "saving"
	case EditFailed:
		return "error"
	default:
		return "unknown"
	}
}

// EditForm holds the editable fields as the rep typed them.
type EditForm struct {
	FullName            string `json:"full_name"`
	JobTitle            string `json:"job_title"`
	CompanyName         string `json:"company_name"`
	CompanyNameEditable bool   `json:"company_name_editable"`
	PriorityScore       ScoreInput `json:"priority_score"`
	Rating              int    `json:"rating"`
	IsHot               bool   `json:"is_hot"`
	FollowUpDate        string `json:"follow_up_date"`
}

// ScoreInput is the priority score as typed into the form. It decodes from a
// JSON string or number; fractional numbers are truncated.
type ScoreInput string

// UnmarshalJSON implements json.Unmarshaler.
func (s *ScoreInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = ScoreInput(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("priority_score: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*s = ScoreInput(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("priority_score: %w", err)
	}
	*s = ScoreInput(strconv.FormatInt(int64(f), 10))
	return nil
}

// FormFromRow fills a form from a stored lead.
func FormFromRow(row store.Row) EditForm {
	_, hasCompanyName := row["company_name"]
	isHot, _ := row["is_hot"].(bool)
	return EditForm{
		FullName:            GetLeadName(row),
		JobTitle:            GetLeadJobTitle(row),
		CompanyName:         GetLeadCompanyName(row),
		CompanyNameEditable: hasCompanyName,
		PriorityScore:       ScoreInput(strconv.Itoa(GetPriorityScore(row))),
		Rating:              GetStars(row),
		IsHot:               isHot,
		FollowUpDate:        GetFollowUpInput(row),
	}
}

// BuildEditPatch returns only the columns whose value in form differs from
// original. A rating changed by the rep overrides the typed priority score
// with the rating's canonical score.
func BuildEditPatch(original store.Row, form EditForm) store.Row {
	patch := store.Row{}

	name := strings.TrimSpace(form.FullName)
	if name == "" {
		name = DefaultEditedName
	}
	if name != GetLeadName(original) {
		patch["full_name"] = name
	}

	if title := strings.TrimSpace(form.JobTitle); title != GetLeadJobTitle(original) {
		patch["job_title"] = title
	}

	priority := 0
	if n, err := strconv.Atoi(strings.TrimSpace(string(form.PriorityScore))); err == nil && n >= 0 {
		priority = min(n, 100)
	}
	if form.Rating > 0 && form.Rating != GetStars(original) {
		priority = rating.ScoreFromStars(form.Rating)
	}
	if priority != GetPriorityScore(original) {
		patch["priority_score"] = priority
	}

	originalHot, _ := original["is_hot"].(bool)
	if form.IsHot != originalHot {
		patch["is_hot"] = form.IsHot
	}

	followUp := strings.TrimSpace(form.FollowUpDate)
	if followUp != GetFollowUpInput(original) {
		if followUp == "" {
			patch["follow_up_date"] = nil
		} else {
			patch["follow_up_date"] = followUp
		}
	}

	if form.CompanyNameEditable {
		if company := strings.TrimSpace(form.CompanyName); company != GetLeadCompanyName(original) {
			patch["company_name"] = company
		}
	}
	return patch
}

// LeadUpdater is the part of Repository an editor writes through.
type LeadUpdater interface {
	UpdateLeadByScope(ctx context.Context, s scope.CompanyScope, id string, patch store.Row) (store.Row, error)
	UpdateQuickTags(ctx context.Context, s scope.CompanyScope, id string, tags []string) (store.Row, error)
}

// EditSession tracks one open lead editor. Field edits accumulate until Save;
// quick tag toggles are saved immediately and never mark the session dirty.
type EditSession struct {
	mu       sync.Mutex
	updater  LeadUpdater
	scope    scope.CompanyScope
	id       string
	original store.Row
	form     EditForm
	state    EditState
	err      error
}

// NewEditSession opens an editor on row.
func NewEditSession(updater LeadUpdater, s scope.CompanyScope, row store.Row) *EditSession {
	if row == nil {
		row = store.Row{}
	}
	return &EditSession{
		updater:  updater,
		scope:    s,
		id:       GetLeadID(row),
		original: row.Clone(),
		form:     FormFromRow(row),
		state:    EditClean,
	}
}

// State returns the current lifecycle state.
func (e *EditSession) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error of the last failed save.
func (e *EditSession) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Form returns a copy of the current form.
func (e *EditSession) Form() EditForm {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// Row returns a copy of the last saved lead.
func (e *EditSession) Row() store.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.original.Clone()
}

// Edit applies fn to the form. Edits are ignored while a save is running.
func (e *EditSession) Edit(fn func(*EditForm)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EditSaving {
		return
	}
	fn(&e.form)
	if e.state == EditClean {
		e.state = EditDirty
	}
}

// Save writes the pending changes. On failure the session keeps its edits
// and moves to EditFailed; on success it becomes clean with the saved row.
func (e *EditSession) Save(ctx context.Context) (store.Row, error) {
	e.mu.Lock()
	if e.state == EditClean || e.state == EditSaving {
		row := e.original.Clone()
		e.mu.Unlock()
		return row, nil
	}
	patch := BuildEditPatch(e.original, e.form)
	if len(patch) == 0 {
		e.state = EditClean
		e.err = nil
		row := e.original.Clone()
		e.mu.Unlock()
		return row, nil
	}
	e.state = EditSaving
	e.mu.Unlock()

	saved, err := e.updater.UpdateLeadByScope(ctx, e.scope, e.id, patch)
	if err == nil && saved == nil {
		err = ErrNotSaved
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = EditFailed
		e.err = err
		return nil, err
	}
	merged := e.original.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	for k, v := range saved {
		merged[k] = v
	}
	e.original = merged
	e.form = FormFromRow(merged)
	e.state = EditClean
	e.err = nil
	return merged.Clone(), nil
}

// ToggleTag adds or removes tag and saves the tag list at once.
func (e *EditSession) ToggleTag(ctx context.Context, tag models.LeadTag) ([]models.LeadTag, error) {
	e.mu.Lock()
	current := GetQuickTags(e.original)
	e.mu.Unlock()

	next := make([]string, 0, len(current)+1)
	found := false
	for _, t := range current {
		if t == tag {
			found = true
			continue
		}
		next = append(next, string(t))
	}
	if !found {
		next = append(next, string(tag))
	}

	saved, err := e.updater.UpdateQuickTags(ctx, e.scope, e.id, next)
	if err == nil && saved == nil {
		err = ErrNotSaved
	}
	if err != nil {
		return current, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.original["quick_tags"] = next
	return GetQuickTags(e.original), nil
}
