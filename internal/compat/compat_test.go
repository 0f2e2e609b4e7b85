package compat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/metrics"
)

type scripted struct {
	errs  []error
	calls []store.Row
}

func (s *scripted) write(_ context.Context, payload store.Row) (store.Row, error) {
	s.calls = append(s.calls, payload)
	i := len(s.calls) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return store.Row{"id": "1", "accepted": i}, nil
}

func candidates(n int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{Tag: string(rune('a' + i)), Payload: store.Row{"n": i}}
	}
	return out
}

func TestIsSchemaMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{`column "foo" does not exist`, true},
		{"Could not find the 'qr_payload' column of 'leads' in the Schema Cache", true},
		{`relation "leads2" DOES NOT EXIST`, true},
		{"permission denied for table leads", false},
		{"JWT expired", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSchemaMessage(tt.msg), tt.msg)
	}
}

func TestIsSchemaError_UsesStoreDetails(t *testing.T) {
	assert.True(t, IsSchemaError(&store.Error{Message: "bad request", Details: "column x does not exist"}))
	assert.False(t, IsSchemaError(nil))
}

func TestWrite_FallsBackOnSchemaError(t *testing.T) {
	s := &scripted{errs: []error{&store.Error{Message: `column "foo" does not exist`}}}
	res, err := NewWriter(nil, metrics.New()).Write(context.Background(), "leads", candidates(3), s.write)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Tag)
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, s.calls, 2)
}

func TestWrite_StopsOnOtherError(t *testing.T) {
	s := &scripted{errs: []error{&store.Error{Message: "permission denied"}}}
	res, err := NewWriter(nil, nil).Write(context.Background(), "leads", candidates(3), s.write)
	require.Error(t, err)
	assert.Equal(t, "permission denied", err.Error())
	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, s.calls, 1)
}

func TestWrite_ExhaustionSurfacesLastError(t *testing.T) {
	last := &store.Error{Message: "Could not find the 'status' column of 'leads' in the schema cache"}
	s := &scripted{errs: []error{
		&store.Error{Message: `column "a" does not exist`},
		&store.Error{Message: `column "b" does not exist`},
		last,
	}}
	res, err := NewWriter(nil, nil).Write(context.Background(), "leads", candidates(3), s.write)
	require.Error(t, err)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 3, res.Attempts)
}

func TestWrite_NoCandidates(t *testing.T) {
	_, err := (&Writer{}).Write(context.Background(), "leads", []Candidate{{Tag: "empty"}}, (&scripted{}).write)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestWrite_CancelledContextStopsBeforeNextCandidate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scripted{errs: []error{&store.Error{Message: "column missing"}}}
	write := func(ctx context.Context, p store.Row) (store.Row, error) {
		defer cancel()
		return s.write(ctx, p)
	}
	_, err := (&Writer{}).Write(ctx, "leads", candidates(2), write)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, s.calls, 1)
}

func TestDedupe(t *testing.T) {
	out := Dedupe([]Candidate{
		{Tag: "a", Payload: store.Row{"x": 1}},
		{Tag: "b", Payload: store.Row{"x": 1}},
		{Tag: "c", Payload: store.Row{}},
		{Tag: "d", Payload: store.Row{"x": 2}},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Tag)
	assert.Equal(t, "d", out[1].Tag)
}

func TestAliasCandidates(t *testing.T) {
	patch := store.Row{"full_name": "Jane", "stars": 4, "quick_tags": []string{"Budget"}}
	out := AliasCandidates(patch,
		[]Alias{{Primary: "full_name", Legacy: "name"}, {Primary: "stars", Legacy: "rating"}},
		[]string{"quick_tags"})

	tags := make([]string, 0, len(out))
	for _, c := range out {
		tags = append(tags, c.Tag)
	}
	assert.Equal(t, []string{
		"primary", "legacy", "legacy:name", "legacy:rating",
		"primary-core", "legacy-core", "legacy:name-core", "legacy:rating-core",
	}, tags)
	assert.Equal(t, patch, out[0].Payload)
	assert.Equal(t, store.Row{"name": "Jane", "rating": 4, "quick_tags": []string{"Budget"}}, out[1].Payload)
	assert.Equal(t, store.Row{"name": "Jane", "stars": 4, "quick_tags": []string{"Budget"}}, out[2].Payload)
	assert.Equal(t, store.Row{"full_name": "Jane", "rating": 4, "quick_tags": []string{"Budget"}}, out[3].Payload)
	assert.Equal(t, store.Row{"full_name": "Jane", "stars": 4}, out[4].Payload)
	assert.Equal(t, store.Row{"full_name": "Jane", "rating": 4}, out[7].Payload)
}

func TestAliasCandidates_LeavesPatchUntouched(t *testing.T) {
	patch := store.Row{"full_name": "Jane", "stars": 4}
	AliasCandidates(patch, []Alias{{Primary: "full_name", Legacy: "name"}, {Primary: "stars", Legacy: "rating"}}, nil)
	assert.Equal(t, store.Row{"full_name": "Jane", "stars": 4}, patch)
}

func TestRenameOrder(t *testing.T) {
	assert.Equal(t, []uint{0}, renameOrder(0))
	assert.Equal(t, []uint{0, 1}, renameOrder(1))
	assert.Equal(t, []uint{0, 7, 1, 2, 4, 3, 5, 6}, renameOrder(3))
}

func TestAliasCandidates_NoAliasesCollapse(t *testing.T) {
	out := AliasCandidates(store.Row{"status": "hot"}, []Alias{{Primary: "full_name", Legacy: "name"}}, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "primary", out[0].Tag)
}
