// Package graph derives the directed labeled edge set of a board and
// resolves each node's named inputs.
//
// A Graph is an arena built from one immutable ir.Board snapshot: nodes and
// edges live in slices and are addressed by index, never by live reference.
// Callers build a fresh Graph whenever they need current inputs; nothing is
// cached across builds.
package graph
