package normalize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"trimmed string", "  c1 ", "c1"},
		{"whitespace", "   ", ""},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"whole float", float64(12), "12"},
		{"fractional float", 12.5, "12.5"},
		{"json number", json.Number("99"), "99"},
		{"nan", math.NaN(), ""},
		{"inf", math.Inf(1), ""},
		{"bool", true, ""},
		{"map", map[string]any{"id": 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ID(tt.in))
		})
	}
}

func TestText(t *testing.T) {
	s, ok := Text("  Jane Doe ")
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", s)

	_, ok = Text("  ")
	assert.False(t, ok)
	_, ok = Text(12)
	assert.False(t, ok)

	assert.Equal(t, "fallback", TextOr(nil, "fallback"))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int
		wantOK bool
	}{
		{"numeric string", "87", 87, true},
		{"padded string", " 42 ", 42, true},
		{"float rounds half up", 89.5, 90, true},
		{"clamped high", 250, 100, true},
		{"clamped low", -3, 0, true},
		{"clamped high string", "101", 100, true},
		{"empty string", "", 0, false},
		{"word", "high", 0, false},
		{"nan string", "NaN", 0, false},
		{"bool", false, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Score(tt.in, 0, 100)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestISODate(t *testing.T) {
	got, ok := ISODate("2026-02-14")
	assert.True(t, ok)
	assert.Equal(t, "2026-02-14", got)

	got, ok = ISODate("2026-02-14T23:30:00")
	assert.True(t, ok)
	assert.Equal(t, "2026-02-14", got, "zone-less timestamps keep their local calendar day")

	stamp := "2026-02-14T12:00:00Z"
	parsed, _ := time.Parse(time.RFC3339, stamp)
	got, ok = ISODate(stamp)
	assert.True(t, ok)
	assert.Equal(t, parsed.Local().Format("2006-01-02"), got)

	got, ok = ISODate("02/16/2026")
	assert.True(t, ok)
	assert.Equal(t, "2026-02-16", got)

	_, ok = ISODate("next tuesday")
	assert.False(t, ok)
	_, ok = ISODate(nil)
	assert.False(t, ok)
}

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, "TBD", DisplayDate(nil))
	assert.Equal(t, "TBD", DisplayDate("  "))
	assert.Equal(t, "02/14/2026", DisplayDate("2026-02-14"))
	assert.Equal(t, "soon", DisplayDate("soon"))
	assert.Equal(t, "03/01/2026", DisplayDate(time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)))
}
