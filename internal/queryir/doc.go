// Package queryir is a small relational filter language over the build
// history tables.
//
// Callers describe which runs or operation records they want; the querysql
// package turns the description into parameterized SQL for the history store.
// Keeping the description separate from SQL lets the store validate column
// names against its schema before any text is assembled.
//
//	[history flags] -> [queryir.Query] -> [querysql] -> SQLite
//
// The language is deliberately narrow:
//   - Select(from, filter, limit) over one table
//   - Join(left, right, on) as an inner equi-join returning left's rows
//   - Predicates: Equals, And
//
// Query and Predicate are sealed with marker methods. Every compiled query
// carries the table's stable order key so results are deterministic.
package queryir
