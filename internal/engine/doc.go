// Package engine implements the propagation controller: it watches a host
// document, re-evaluates voting formulas when their inputs change and drives
// text generation for generator nodes.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Host change hooks, generate requests and stream updates are all turned into
// events on one FIFO queue. Engine.Run (or Drain/Settle) processes them one at
// a time, so every write of a computed field happens on a single goroutine.
//
// Event Processing Flow:
//  1. The change hook classifies nothing; it only enqueues the (prev, next) pair
//  2. processChange decides: formula edit, contribution change or upstream change
//  3. Voting nodes are evaluated from a point query of their incoming edges
//  4. The resulting patch is written back through Document.Update
//  5. In eager mode a changed value starts a wave over dependents in topological order
//
// The engine's own writes come back through the change hook. They are
// recognized by their expected snapshot and dropped.
//
// Propagation Modes:
// Lazy (default): an upstream change does not cascade. Downstream nodes see
// the new value the next time they are evaluated.
// Eager: every transitive dependent is re-evaluated in the same wave. A node
// runs at most once per wave and a wave stops after MaxSteps evaluations.
//
// Streams:
// Text generation runs in its own goroutine and never touches node state. It
// enqueues cumulative partials tagged with the generation they belong to;
// updates from an older generation are discarded.
package engine
