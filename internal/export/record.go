// Package export writes a query's result set to CSV or JSON.
package export

import (
	"slices"

	"datalink/internal/domain"
)

// ── Record ─────────────────────────────────────────────────
// Rows flow from the stored result set through the transform chain to a
// Destination as Records.

// Record is one result row.
type Record struct {
	Data domain.Row
}

// Schema is the ordered column list of an export.
type Schema struct {
	Columns []string
}

// Project returns a copy of s restricted to cols, in cols order. Unknown
// names are dropped.
func (s Schema) Project(cols []string) Schema {
	out := Schema{Columns: make([]string, 0, len(cols))}
	for _, c := range cols {
		if slices.Contains(s.Columns, c) {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// schemaOf returns the stored column order, or the sorted union of row keys
// when the record has none.
func schemaOf(q *domain.QueryRecord) Schema {
	if len(q.Columns) > 0 {
		return Schema{Columns: slices.Clone(q.Columns)}
	}
	seen := make(map[string]bool)
	var cols []string
	for _, r := range q.Rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	return Schema{Columns: cols}
}
