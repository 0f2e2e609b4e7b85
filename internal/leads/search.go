package leads

import (
	"strings"

	"github.com/boothlead/backend/internal/store"
)

// FilterLeads returns the rows whose name, title or company contains query,
// ignoring case. An empty query returns rows unchanged.
func FilterLeads(rows []store.Row, query string, names map[string]string) []store.Row {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}
	out := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		haystack := strings.ToLower(strings.Join([]string{
			GetLeadName(row), GetLeadTitle(row), CompanyDisplay(row, names),
		}, "\n"))
		if strings.Contains(haystack, query) {
			out = append(out, row)
		}
	}
	return out
}

// CountHot returns how many rows are flagged hot.
func CountHot(rows []store.Row) int {
	n := 0
	for _, row := range rows {
		if IsLeadHot(row) {
			n++
		}
	}
	return n
}
