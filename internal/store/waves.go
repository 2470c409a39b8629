package store

import (
	"context"
	"fmt"
)

// WaveSummary describes one propagation wave recorded in the log.
type WaveSummary struct {
	Wave        string
	FirstSeq    int64
	LastSeq     int64
	Evaluations int
}

// LastSeq returns the highest seq recorded across all boards, or 0 for an
// empty log. A resumed engine starts its clock here so seq stays monotonic.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM evaluations").Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// ListWaves returns the waves recorded for a board in the order they started.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListWaves(ctx context.Context, board string) ([]WaveSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wave, MIN(seq), MAX(seq), COUNT(*)
		FROM evaluations
		WHERE board = ?
		GROUP BY wave
		ORDER BY MIN(seq) ASC, wave COLLATE BINARY ASC
	`, board)
	if err != nil {
		return nil, fmt.Errorf("list waves: %w", err)
	}
	defer rows.Close()

	waves := []WaveSummary{}
	for rows.Next() {
		var w WaveSummary
		if err := rows.Scan(&w.Wave, &w.FirstSeq, &w.LastSeq, &w.Evaluations); err != nil {
			return nil, fmt.Errorf("list waves: scan: %w", err)
		}
		waves = append(waves, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list waves: %w", err)
	}
	return waves, nil
}
