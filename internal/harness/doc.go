// Package harness runs board scenarios against the real engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: end_to_end
//	description: "A source feeds a scalar vote"
//	board: boards/e2e.cue      # or an inline cue: | block
//	board_name: E2E            # optional when the file declares one board
//	mode: eager                # lazy (default) or eager
//	contributor: alice
//	replies:                   # scripted text generation, played in order
//	  - chunks: ["Purr", " purr"]
//	steps:
//	  - op: evaluate_all
//	  - op: set_text
//	    node: a
//	    text: "10"
//	  - op: contribute
//	    node: b
//	    contributor: u2
//	    value: 1
//	assertions:
//	  - type: value
//	    node: b
//	    expect: 60
//
// Steps are decoded with mapstructure so each op only accepts the fields it
// uses. After every step the engine settles: queued changes are processed
// and running streams finish.
//
// # Assertion Types
//
//   - value: the value a node supplies downstream (null for none)
//   - syntax_error: whether the node's last evaluation failed
//   - value_type: the type declared by a voting formula
//   - output, pending, generation: generator state
//   - contributions: number of contributions on a node
//   - evaluation_count: evaluations recorded, optionally per node and trigger
//   - evaluation_order: nodes evaluated in this relative order
//   - prompts: the prompts sent to the generator
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite evaluation log, a deterministic
// clock (seq starts at 1) and numbered wave tokens (wave-1, wave-2, ...), so
// the trace of a scenario is byte-identical across runs and can be compared
// against a golden file.
package harness
