// Package queryir describes reads over the evaluation log as data.
//
// A query is a Select over one log table with a predicate tree built from
// Equals, In and And. Queries are validated against the known table
// columns before a backend compiles them, so a typo in a field name fails
// at build time rather than as a SQL error.
//
//	[store filter] -> [Query IR] -> [querysql] -> SQLite
//
// Ordering is part of the contract: every backend orders by the query's
// OrderBy keys and then by id, so two reads of the same log always return
// rows in the same order.
package queryir
