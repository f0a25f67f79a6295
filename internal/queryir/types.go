package queryir

import "github.com/roach88/opgraph/internal/ir"

// Query is a sealed interface for query nodes.
// Only Select and Join implement it.
type Query interface {
	queryNode() // Sealed
}

// Predicate is a sealed interface for filter nodes.
// Only Equals and And implement it.
type Predicate interface {
	predicateNode() // Sealed
}

// Select reads the rows of one table.
//
//	SELECT <columns of From> FROM <From> WHERE <Filter> ORDER BY <key> LIMIT <Limit>
//
// A nil Filter matches every row. Limit <= 0 is unbounded.
type Select struct {
	From   string
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Join is an inner equi-join that returns the Left table's rows.
//
//	SELECT <columns of Left> FROM Left JOIN Right ON Left.<On.Left> = Right.<On.Right>
//
// Filters on each side refer to that side's columns. Rows are ordered by the
// Right table's key first, then the Left's. Limit applies to the joined rows;
// the Limit fields of Left and Right are ignored.
type Join struct {
	Left  Select
	Right Select
	On    On
	Limit int
}

func (Join) queryNode() {}

// On names the join columns of each side.
type On struct {
	Left  string
	Right string
}

// Equals matches rows whose Field equals Value.
// Value must be a String, Integer, Float or Boolean.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Eq is shorthand for an Equals on a string value.
func Eq(field, value string) Equals {
	return Equals{Field: field, Value: ir.String(value)}
}

// All joins the non-nil predicates. It returns nil when none remain and the
// single predicate when only one does.
func All(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
