// Package normalize coerces loosely-typed remote field values into canonical forms.
// None of the functions panic; unusable input yields the zero value and false.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// isoDateOnly matches a bare calendar date that is taken literally (no timezone shift).
var isoDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Layouts tried, in order, for values that are not bare calendar dates.
// Layouts without a zone are interpreted in the local timezone.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"01/02/2006",
	"1/2/2006",
}

// ID returns the canonical string form of an entity id: a trimmed non-empty
// string, or a finite number. Anything else yields "".
func ID(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	if n, ok := v.(json.Number); ok {
		if _, err := n.Int64(); err == nil {
			return n.String()
		}
	}
	if f, ok := number(v); ok {
		return formatNumber(f)
	}
	return ""
}

// Text returns the trimmed string when v is a string with visible content.
func Text(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// TextOr returns Text(v) or fallback.
func TextOr(v any, fallback string) string {
	if s, ok := Text(v); ok {
		return s
	}
	return fallback
}

// Score converts a number or numeric string to an integer rounded half up and
// clamped to [min, max].
func Score(v any, min, max int) (int, bool) {
	var f float64
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		parsed, err := cast.ToFloat64E(s)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		n, ok := number(v)
		if !ok {
			return 0, false
		}
		f = n
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return clamp(int(math.Floor(f+0.5)), min, max), true
}

// Number reports whether v is a finite number (strings excluded) and returns it.
func Number(v any) (float64, bool) {
	return number(v)
}

// ISODate returns v as a YYYY-MM-DD calendar date. Bare dates are returned as
// written; timestamps are converted to local time before the calendar fields
// are read.
func ISODate(v any) (string, bool) {
	t, ok := parseDate(v)
	if !ok {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// DisplayDate renders v as MM/DD/YYYY. Absent input renders as "TBD" and an
// unparsable string is returned unchanged.
func DisplayDate(v any) string {
	if tm, ok := v.(time.Time); ok {
		return tm.Local().Format("01/02/2006")
	}
	s, ok := Text(v)
	if !ok {
		return "TBD"
	}
	t, ok := parseDate(s)
	if !ok {
		return s
	}
	return t.Format("01/02/2006")
}

func parseDate(v any) (time.Time, bool) {
	if tm, ok := v.(time.Time); ok {
		if tm.IsZero() {
			return time.Time{}, false
		}
		return tm.Local(), true
	}
	s, ok := Text(v)
	if !ok {
		return time.Time{}, false
	}
	if isoDateOnly.MatchString(s) {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t.Local(), true
		}
	}
	return time.Time{}, false
}

func number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f = cast.ToFloat64(t)
	case float32:
		f = float64(t)
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return cast.ToString(int64(f))
	}
	return cast.ToString(f)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
