package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/OrionReed/ggraph/internal/ir"
)

// SaveBoard stores a board under name, replacing any board already stored
// there. Node and connector order is preserved.
func (s *Store) SaveBoard(ctx context.Context, name string, b ir.Board) error {
	hash, err := ir.BoardHash(b)
	if err != nil {
		return fmt.Errorf("save board %s: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save board %s: begin: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO boards (name, hash, schema_version, engine_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			hash = excluded.hash,
			schema_version = excluded.schema_version,
			engine_version = excluded.engine_version
	`, name, hash, ir.SchemaVersion, ir.EngineVersion); err != nil {
		return fmt.Errorf("save board %s: %w", name, err)
	}

	for _, table := range []string{"nodes", "connectors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE board = ?", name); err != nil {
			return fmt.Errorf("save board %s: clear %s: %w", name, table, err)
		}
	}

	for i, n := range b.Nodes {
		if err := insertNode(ctx, tx, name, i, n); err != nil {
			return fmt.Errorf("save board %s: %w", name, err)
		}
	}

	for i, c := range b.Connectors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO connectors (board, id, position, start_id, end_id, label, directional)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, name, c.ID, i, c.Start, c.End, c.Label, c.Directional); err != nil {
			return fmt.Errorf("save board %s: connector %s: %w", name, c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save board %s: commit: %w", name, err)
	}
	return nil
}

func insertNode(ctx context.Context, tx *sql.Tx, board string, pos int, n ir.Node) error {
	contribJSON, err := marshalContributions(n.Contributions)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	computed, err := marshalComputed(n.ComputedValue)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes
		(board, id, position, kind, text, value_type, selector, contributions,
		 computed_value, syntax_error, output, pending, generation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		board,
		n.ID,
		pos,
		string(n.Kind),
		n.Text,
		string(n.ValueType),
		n.Selector,
		contribJSON,
		computed,
		n.SyntaxError,
		n.Output,
		n.Pending,
		n.Generation,
	)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	return nil
}

// DeleteBoard removes a board with its nodes and connectors. Evaluation
// records are kept. Deleting a missing board returns ErrBoardNotFound.
func (s *Store) DeleteBoard(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM boards WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete board %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete board %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete board %s: %w", name, ErrBoardNotFound)
	}
	return nil
}

// AppendEvaluation inserts an evaluation record for a board.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) AppendEvaluation(ctx context.Context, board string, ev ir.Evaluation) error {
	inputsJSON, err := marshalInputs(ev.Inputs)
	if err != nil {
		return fmt.Errorf("append evaluation: %w", err)
	}
	valueJSON, err := marshalValue(ev.Value)
	if err != nil {
		return fmt.Errorf("append evaluation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, board, seq, wave, node_id, trigger, inputs, value, syntax_error, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		board,
		ev.Seq,
		ev.Wave,
		ev.NodeID,
		ev.Trigger,
		inputsJSON,
		valueJSON,
		ev.SyntaxError,
		ev.Error,
	)
	if err != nil {
		return fmt.Errorf("append evaluation: %w", err)
	}
	return nil
}

// BoardLog appends evaluations for one board. It satisfies the engine's
// evaluation log interface.
type BoardLog struct {
	store *Store
	board string
}

// Log returns an evaluation log scoped to board.
func (s *Store) Log(board string) *BoardLog {
	return &BoardLog{store: s, board: board}
}

// AppendEvaluation implements the engine's EvaluationLog.
func (l *BoardLog) AppendEvaluation(ctx context.Context, ev ir.Evaluation) error {
	return l.store.AppendEvaluation(ctx, l.board, ev)
}
