package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/opgraph/internal/ir"
)

// ErrInvalidQuery is wrapped by every validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks that every table and column the query names exists in
// schema and that every compared value is a scalar. All problems are
// reported together.
//
// Validate is a pure function with no side effects.
func Validate(schema Schema, query Query) error {
	v := &validator{schema: schema}
	v.validateQuery(query)
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(v.problems...))
}

// validator accumulates problems during traversal.
type validator struct {
	schema   Schema
	problems []error
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Join:
		v.validateJoin(query)
	case *Join:
		v.validateJoin(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

// validateSelect returns the table so joins can check their columns.
func (v *validator) validateSelect(sel Select) (Table, bool) {
	table, ok := v.schema[sel.From]
	if !ok {
		v.addProblem("unknown table %q", sel.From)
		return Table{}, false
	}
	v.validatePredicate(sel.From, table, sel.Filter)
	return table, true
}

func (v *validator) validateJoin(join Join) {
	if join.Left.From == join.Right.From {
		v.addProblem("self join on %q", join.Left.From)
	}
	if left, ok := v.validateSelect(join.Left); ok && !left.HasColumn(join.On.Left) {
		v.addProblem("unknown column %q in table %q", join.On.Left, join.Left.From)
	}
	if right, ok := v.validateSelect(join.Right); ok && !right.HasColumn(join.On.Right) {
		v.addProblem("unknown column %q in table %q", join.On.Right, join.Right.From)
	}
}

func (v *validator) validatePredicate(from string, table Table, p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.validateEquals(from, table, pred)
	case *Equals:
		v.validateEquals(from, table, *pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(from, table, sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(from, table, sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(from string, table Table, eq Equals) {
	if !table.HasColumn(eq.Field) {
		v.addProblem("unknown column %q in table %q", eq.Field, from)
	}
	switch eq.Value.(type) {
	case ir.String, ir.Integer, ir.Float, ir.Boolean:
	default:
		v.addProblem("column %q compared to non-scalar %T", eq.Field, eq.Value)
	}
}
