// Package eval evaluates voting formulas and resolves generator prompts.
//
// Evaluation is pure: it reads an immutable node snapshot and a resolved
// input map, and returns a Result describing the new state. Applying that
// state is the caller's job (see Result.Patch).
//
// The environment is fixed: the built-ins sum, average and countVotes in
// call position, VALUES (the node's contributions ordered by contributor
// id), and one binding per input label. Nothing else is reachable.
package eval
