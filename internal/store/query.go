package store

// Filter is an equality predicate.
type Filter struct {
	Column string
	Value  any
}

// Query describes a read, or the row selection of an update. Builder methods
// return modified copies so a base query can be shared.
type Query struct {
	Table      string
	Columns    string
	Filters    []Filter
	OrderBy    string
	Descending bool
	MaxRows    int
}

// From starts a query on table selecting every column.
func From(table string) Query {
	return Query{Table: table, Columns: "*"}
}

// Select sets the column list.
func (q Query) Select(columns string) Query {
	q.Columns = columns
	return q
}

// Eq adds an equality filter.
func (q Query) Eq(column string, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Column: column, Value: value})
	return q
}

// Order sorts by column.
func (q Query) Order(column string, descending bool) Query {
	q.OrderBy = column
	q.Descending = descending
	return q
}

// Limit caps the number of returned rows. Zero means no limit.
func (q Query) Limit(n int) Query {
	q.MaxRows = n
	return q
}

// FilterValue returns the value of the first filter on column.
func (q Query) FilterValue(column string) (any, bool) {
	for _, f := range q.Filters {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}
