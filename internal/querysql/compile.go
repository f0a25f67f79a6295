// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/queryir"
)

// Compiler compiles queries against one schema.
//
// Every statement ends in the table's order key with COLLATE BINARY on text
// columns, and every value is bound as a parameter, never interpolated.
type Compiler struct {
	schema queryir.Schema
}

// NewCompiler returns a compiler for schema.
func NewCompiler(schema queryir.Schema) *Compiler {
	return &Compiler{schema: schema}
}

// Compile validates q and converts it to SQL plus its parameters.
func (c *Compiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(c.schema, q); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Join:
		return c.compileJoin(query)
	case *queryir.Join:
		return c.compileJoin(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *Compiler) compileSelect(q queryir.Select) (string, []any, error) {
	table := c.schema[q.From]

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(table.Columns, ", "), q.From)

	var params []any
	if q.Filter != nil {
		where, whereParams, err := compilePredicate("", q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = whereParams
	}

	b.WriteString(" ORDER BY " + orderKey("", table.Key))
	params = appendLimit(&b, params, q.Limit)
	return b.String(), params, nil
}

// compileJoin aliases the sides l and r so filters and keys stay unambiguous.
func (c *Compiler) compileJoin(j queryir.Join) (string, []any, error) {
	left := c.schema[j.Left.From]
	right := c.schema[j.Right.From]

	columns := make([]string, len(left.Columns))
	for i, col := range left.Columns {
		columns[i] = "l." + col
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s AS l JOIN %s AS r ON l.%s = r.%s",
		strings.Join(columns, ", "), j.Left.From, j.Right.From, j.On.Left, j.On.Right)

	var conds []string
	var params []any
	for _, side := range []struct {
		alias  string
		filter queryir.Predicate
	}{{"l.", j.Left.Filter}, {"r.", j.Right.Filter}} {
		if side.filter == nil {
			continue
		}
		sql, p, err := compilePredicate(side.alias, side.filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		conds = append(conds, sql)
		params = append(params, p...)
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	b.WriteString(" ORDER BY " + orderKey("r.", right.Key) + ", " + orderKey("l.", left.Key))
	params = appendLimit(&b, params, j.Limit)
	return b.String(), params, nil
}

func appendLimit(b *strings.Builder, params []any, limit int) []any {
	if limit <= 0 {
		return params
	}
	b.WriteString(" LIMIT ?")
	return append(params, limit)
}

func orderKey(alias string, key []queryir.OrderTerm) string {
	terms := make([]string, len(key))
	for i, term := range key {
		dir := "ASC"
		if term.Descending {
			dir = "DESC"
		}
		terms[i] = fmt.Sprintf("%s%s %s", alias, term.Column, dir)
	}
	return strings.Join(terms, ", ")
}

func compilePredicate(alias string, p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileEquals(alias, pred)
	case *queryir.Equals:
		return compileEquals(alias, *pred)
	case queryir.And:
		return compileAnd(alias, pred)
	case *queryir.And:
		return compileAnd(alias, *pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(alias string, eq queryir.Equals) (string, []any, error) {
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	if _, text := eq.Value.(ir.String); text {
		return fmt.Sprintf("%s%s = ? COLLATE BINARY", alias, eq.Field), []any{param}, nil
	}
	return fmt.Sprintf("%s%s = ?", alias, eq.Field), []any{param}, nil
}

func compileAnd(alias string, and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for i, sub := range and.Predicates {
		sql, p, err := compilePredicate(alias, sub)
		if err != nil {
			return "", nil, fmt.Errorf("predicate %d: %w", i, err)
		}
		if _, nested := sub.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Integer:
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.Boolean:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
