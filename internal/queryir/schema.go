package queryir

import "slices"

// Schema describes the tables a query may reference.
type Schema map[string]Table

// Table lists a table's readable columns and its stable order key.
// Key must be unique per row so ordering never depends on storage layout.
type Table struct {
	Columns []string
	Key     []OrderTerm
}

// OrderTerm is one column of an order key.
type OrderTerm struct {
	Column     string
	Descending bool
}

// HasColumn reports whether the table exposes column.
func (t Table) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}
