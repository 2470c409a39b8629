// Package ir provides the value model and board types shared by every ggraph
// package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// value model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Value is sealed: only Null, Number, Bool, String, List and Object implement it
//   - Functions are never values; formulas cannot produce a callable
//   - Node snapshots are immutable; changes are expressed as a Patch
//   - All JSON tags use snake_case
package ir
