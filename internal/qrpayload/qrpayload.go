// Package qrpayload decodes the raw string read from a badge QR code.
package qrpayload

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/boothlead/backend/pkg/normalize"
)

// Descriptor is the structured content of a badge. Every field is
// independently optional.
type Descriptor struct {
	CompanyID     *string `json:"company_id"`
	EventID       *string `json:"event_id"`
	FullName      *string `json:"full_name"`
	JobTitle      *string `json:"job_title"`
	PriorityScore *int    `json:"priority_score"`
}

// IsEmpty reports whether no field was decoded, i.e. the badge carried an
// opaque identifier rather than structured data.
func (d Descriptor) IsEmpty() bool {
	return d.CompanyID == nil && d.EventID == nil && d.FullName == nil &&
		d.JobTitle == nil && d.PriorityScore == nil
}

var encodedJSON = regexp.MustCompile(`(?i)%(7B|7D|22|3A|2C)`)

// Decode parses raw. It never fails: anything that is not a JSON object
// yields an empty descriptor, and fields of the wrong type are left unset.
func Decode(raw string) Descriptor {
	text := raw
	if encodedJSON.MatchString(text) {
		if decoded, err := url.PathUnescape(text); err == nil {
			text = decoded
		}
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return Descriptor{}
	}

	var fields map[string]any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return Descriptor{}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Descriptor{}
	}

	var d Descriptor
	if v := normalize.ID(pick(fields, "company_id", "companyId")); v != "" {
		d.CompanyID = &v
	}
	if v := normalize.ID(pick(fields, "event_id", "eventId")); v != "" {
		d.EventID = &v
	}
	if v, ok := normalize.Text(pick(fields, "full_name", "fullName")); ok {
		d.FullName = &v
	}
	if v, ok := normalize.Text(pick(fields, "job_title", "jobTitle")); ok {
		d.JobTitle = &v
	}
	if v, ok := normalize.Score(pick(fields, "priority_score", "priorityScore"), 0, 100); ok {
		d.PriorityScore = &v
	}
	return d
}

func pick(fields map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
