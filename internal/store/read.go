package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/queryir"
	"github.com/OrionReed/ggraph/internal/querysql"
)

// BoardInfo summarizes a stored board.
type BoardInfo struct {
	Name          string
	Hash          string
	SchemaVersion string
	EngineVersion string
	Nodes         int
	Connectors    int
}

// LoadBoard reads the board stored under name.
// Returns an error wrapping ErrBoardNotFound if there is none.
func (s *Store) LoadBoard(ctx context.Context, name string) (ir.Board, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM boards WHERE name = ?", name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Board{}, fmt.Errorf("load board %s: %w", name, ErrBoardNotFound)
	}
	if err != nil {
		return ir.Board{}, fmt.Errorf("load board %s: %w", name, err)
	}

	nodes, err := s.readNodes(ctx, name)
	if err != nil {
		return ir.Board{}, fmt.Errorf("load board %s: %w", name, err)
	}
	connectors, err := s.readConnectors(ctx, name)
	if err != nil {
		return ir.Board{}, fmt.Errorf("load board %s: %w", name, err)
	}
	return ir.Board{Nodes: nodes, Connectors: connectors}, nil
}

func (s *Store) readNodes(ctx context.Context, board string) ([]ir.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, text, value_type, selector, contributions,
		       computed_value, syntax_error, output, pending, generation
		FROM nodes
		WHERE board = ?
		ORDER BY position ASC
	`, board)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []ir.Node{}
	for rows.Next() {
		var (
			n           ir.Node
			kind        string
			valueType   string
			contribJSON string
			computed    sql.NullString
		)
		if err := rows.Scan(
			&n.ID, &kind, &n.Text, &valueType, &n.Selector, &contribJSON,
			&computed, &n.SyntaxError, &n.Output, &n.Pending, &n.Generation,
		); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Kind = ir.NodeKind(kind)
		n.ValueType = ir.ValueType(valueType)
		if n.Contributions, err = unmarshalContributions(contribJSON); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		if n.ComputedValue, err = unmarshalComputed(computed); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) readConnectors(ctx context.Context, board string) ([]ir.Connector, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_id, end_id, label, directional
		FROM connectors
		WHERE board = ?
		ORDER BY position ASC
	`, board)
	if err != nil {
		return nil, fmt.Errorf("query connectors: %w", err)
	}
	defer rows.Close()

	connectors := []ir.Connector{}
	for rows.Next() {
		var c ir.Connector
		if err := rows.Scan(&c.ID, &c.Start, &c.End, &c.Label, &c.Directional); err != nil {
			return nil, fmt.Errorf("scan connector: %w", err)
		}
		connectors = append(connectors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connectors: %w", err)
	}
	return connectors, nil
}

// ListBoards returns every stored board ordered by name.
func (s *Store) ListBoards(ctx context.Context) ([]BoardInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.name, b.hash, b.schema_version, b.engine_version,
		       (SELECT COUNT(*) FROM nodes n WHERE n.board = b.name),
		       (SELECT COUNT(*) FROM connectors c WHERE c.board = b.name)
		FROM boards b
		ORDER BY b.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := []BoardInfo{}
	for rows.Next() {
		var info BoardInfo
		if err := rows.Scan(&info.Name, &info.Hash, &info.SchemaVersion, &info.EngineVersion, &info.Nodes, &info.Connectors); err != nil {
			return nil, fmt.Errorf("list boards: scan: %w", err)
		}
		boards = append(boards, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

// EvaluationFilter narrows ReadEvaluations. Empty fields match everything.
type EvaluationFilter struct {
	NodeID   string
	Wave     string
	Triggers []ir.Trigger
}

var evaluationColumns = []string{
	"id", "seq", "wave", "node_id", "trigger", "inputs", "value", "syntax_error", "error",
}

// evaluationQuery builds the log read for a board and filter.
func evaluationQuery(board string, f EvaluationFilter) queryir.Select {
	var node, wave, trigger queryir.Predicate
	if f.NodeID != "" {
		node = queryir.Equals{Field: "node_id", Value: ir.String(f.NodeID)}
	}
	if f.Wave != "" {
		wave = queryir.Equals{Field: "wave", Value: ir.String(f.Wave)}
	}
	if len(f.Triggers) > 0 {
		values := make([]ir.Value, len(f.Triggers))
		for i, tr := range f.Triggers {
			values[i] = ir.String(tr)
		}
		trigger = queryir.In{Field: "trigger", Values: values}
	}
	return queryir.Select{
		From:    "evaluations",
		Columns: evaluationColumns,
		Filter: queryir.Conjoin(
			queryir.Equals{Field: "board", Value: ir.String(board)},
			node, wave, trigger,
		),
		OrderBy: []string{"seq"},
	}
}

// ReadEvaluations returns a board's evaluation records.
// Ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if none match.
func (s *Store) ReadEvaluations(ctx context.Context, board string, f EvaluationFilter) ([]ir.Evaluation, error) {
	query, args, err := querysql.Compile(evaluationQuery(board, f))
	if err != nil {
		return nil, fmt.Errorf("read evaluations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read evaluations: %w", err)
	}
	defer rows.Close()

	evals := []ir.Evaluation{}
	for rows.Next() {
		var (
			ev         ir.Evaluation
			inputsJSON string
			valueJSON  string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.Wave, &ev.NodeID, &ev.Trigger,
			&inputsJSON, &valueJSON, &ev.SyntaxError, &ev.Error); err != nil {
			return nil, fmt.Errorf("read evaluations: scan: %w", err)
		}
		if ev.Inputs, err = unmarshalInputs(inputsJSON); err != nil {
			return nil, fmt.Errorf("read evaluations: %s: %w", ev.ID, err)
		}
		if ev.Value, err = ir.UnmarshalValue([]byte(valueJSON)); err != nil {
			return nil, fmt.Errorf("read evaluations: %s: value: %w", ev.ID, err)
		}
		evals = append(evals, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read evaluations: %w", err)
	}
	return evals, nil
}
