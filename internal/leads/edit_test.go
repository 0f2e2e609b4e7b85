package leads

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/internal/store/storetest"
)

var original = store.Row{
	"id":             "1",
	"company_id":     "c1",
	"full_name":      "Jane Doe",
	"job_title":      "CTO",
	"company_name":   "Acme",
	"priority_score": 87,
	"is_hot":         false,
	"follow_up_date": "2026-02-14",
}

func TestScoreInput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want ScoreInput
	}{
		{`"87"`, "87"},
		{`87`, "87"},
		{`87.9`, "87"},
		{`null`, "keep"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s := ScoreInput("keep")
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &s))
			assert.Equal(t, tt.want, s)
		})
	}

	var s ScoreInput
	assert.Error(t, json.Unmarshal([]byte(`{}`), &s))
}

func TestBuildEditPatch_UnchangedFormIsEmpty(t *testing.T) {
	assert.Empty(t, BuildEditPatch(original, FormFromRow(original)))
}

func TestBuildEditPatch(t *testing.T) {
	tests := []struct {
		name string
		edit func(*EditForm)
		want store.Row
	}{
		{"name cleared", func(f *EditForm) { f.FullName = "  " }, store.Row{"full_name": DefaultEditedName}},
		{"title trimmed", func(f *EditForm) { f.JobTitle = " CEO " }, store.Row{"job_title": "CEO"}},
		{"typed score clamped", func(f *EditForm) { f.PriorityScore = "250"; f.Rating = 0 }, store.Row{"priority_score": 100}},
		{"bad score becomes zero", func(f *EditForm) { f.PriorityScore = "abc"; f.Rating = 0 }, store.Row{"priority_score": 0}},
		{"rating change maps to score", func(f *EditForm) { f.Rating = 5 }, store.Row{"priority_score": 95}},
		{"hot toggled", func(f *EditForm) { f.IsHot = true }, store.Row{"is_hot": true}},
		{"follow up cleared", func(f *EditForm) { f.FollowUpDate = "" }, store.Row{"follow_up_date": nil}},
		{"follow up moved", func(f *EditForm) { f.FollowUpDate = "2026-03-01" }, store.Row{"follow_up_date": "2026-03-01"}},
		{"company name", func(f *EditForm) { f.CompanyName = "Globex" }, store.Row{"company_name": "Globex"}},
		{"company name not editable", func(f *EditForm) { f.CompanyName = "Globex"; f.CompanyNameEditable = false }, store.Row{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := FormFromRow(original)
			tt.edit(&form)
			assert.Equal(t, tt.want, BuildEditPatch(original, form))
		})
	}
}

func TestEditSession_Lifecycle(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableLeads, original)
	repo := newRepo(mem)
	s := scope.CompanyScope{Role: scope.RoleExhibitor, ActiveCompanyID: "c1"}

	e := NewEditSession(repo, s, original)
	assert.Equal(t, EditClean, e.State())

	e.Edit(func(f *EditForm) { f.JobTitle = "CEO" })
	assert.Equal(t, EditDirty, e.State())

	mem.FailNext("update", store.TableLeads, &store.Error{Message: "network down"})
	_, err := e.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, EditFailed, e.State())
	assert.Equal(t, "CEO", e.Form().JobTitle, "edits survive a failed save")

	row, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EditClean, e.State())
	assert.NoError(t, e.Err())
	assert.Equal(t, "CEO", row["job_title"])
	assert.Equal(t, "CEO", mem.Rows(store.TableLeads)[0]["job_title"])
}

func TestEditSession_SaveWithoutChanges(t *testing.T) {
	mem := storetest.NewMemory()
	e := NewEditSession(newRepo(mem), exhibitor, original)

	e.Edit(func(f *EditForm) {})
	_, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EditClean, e.State())
	assert.Zero(t, mem.CountCalls("update", store.TableLeads))
}

func TestEditSession_DeniedSaveFails(t *testing.T) {
	e := NewEditSession(newRepo(storetest.NewMemory()), denied, original)
	e.Edit(func(f *EditForm) { f.JobTitle = "CEO" })
	_, err := e.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.Equal(t, EditFailed, e.State())
}

func TestEditSession_ToggleTagSavesImmediately(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableLeads, original)
	e := NewEditSession(newRepo(mem), exhibitor, original)

	e.Edit(func(f *EditForm) { f.FullName = "Janet" })
	tags, err := e.ToggleTag(context.Background(), models.TagBudget)
	require.NoError(t, err)
	assert.Equal(t, []models.LeadTag{models.TagBudget}, tags)
	assert.Equal(t, EditDirty, e.State(), "tag toggles do not touch the edit state")
	assert.Equal(t, []string{"Budget"}, mem.Rows(store.TableLeads)[0]["quick_tags"])
	assert.Equal(t, "Jane Doe", mem.Rows(store.TableLeads)[0]["full_name"])

	tags, err = e.ToggleTag(context.Background(), models.TagBudget)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

type failingUpdater struct{}

func (failingUpdater) UpdateLeadByScope(context.Context, scope.CompanyScope, string, store.Row) (store.Row, error) {
	return nil, errors.New("offline")
}

func (failingUpdater) UpdateQuickTags(context.Context, scope.CompanyScope, string, []string) (store.Row, error) {
	return nil, errors.New("offline")
}

func TestEditSession_ToggleTagFailureKeepsTags(t *testing.T) {
	row := original.Clone()
	row["quick_tags"] = []any{"Timeline"}
	e := NewEditSession(failingUpdater{}, exhibitor, row)
	tags, err := e.ToggleTag(context.Background(), models.TagBudget)
	require.Error(t, err)
	assert.Equal(t, []models.LeadTag{models.TagTimeline}, tags)
	assert.Equal(t, EditClean, e.State())
}
