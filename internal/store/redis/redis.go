// Package redis keeps board snapshots in Redis so several processes can share
// a live board. Evaluation history stays in the SQLite store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/store"
)

// DefaultPrefix is the key prefix used unless WithPrefix overrides it.
const DefaultPrefix = "ggraph:board:"

// Store saves boards as JSON documents keyed by board name.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for saved boards. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for boards.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis server at addr.
func New(addr, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot is the stored document.
type snapshot struct {
	Hash          string   `json:"hash"`
	SchemaVersion string   `json:"schema_version"`
	Board         ir.Board `json:"board"`
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// SaveBoard stores a board under name, replacing any previous snapshot.
func (s *Store) SaveBoard(ctx context.Context, name string, b ir.Board) error {
	hash, err := ir.BoardHash(b)
	if err != nil {
		return fmt.Errorf("save board %s: %w", name, err)
	}
	if b.Connectors == nil {
		b.Connectors = []ir.Connector{}
	}
	data, err := json.Marshal(snapshot{Hash: hash, SchemaVersion: ir.SchemaVersion, Board: b})
	if err != nil {
		return fmt.Errorf("save board %s: marshal: %w", name, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(name), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save board %s: %w", name, err)
	}
	return nil
}

// LoadBoard reads the board stored under name.
// Returns an error wrapping store.ErrBoardNotFound if there is none.
func (s *Store) LoadBoard(ctx context.Context, name string) (ir.Board, error) {
	snap, err := s.load(ctx, name)
	if err != nil {
		return ir.Board{}, err
	}
	return snap.Board, nil
}

// BoardHash returns the content hash recorded when the board was saved.
func (s *Store) BoardHash(ctx context.Context, name string) (string, error) {
	snap, err := s.load(ctx, name)
	if err != nil {
		return "", err
	}
	return snap.Hash, nil
}

func (s *Store) load(ctx context.Context, name string) (snapshot, error) {
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return snapshot{}, fmt.Errorf("load board %s: %w", name, store.ErrBoardNotFound)
		}
		return snapshot{}, fmt.Errorf("load board %s: %w", name, err)
	}

	var snap snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return snapshot{}, fmt.Errorf("load board %s: unmarshal: %w", name, err)
	}
	if snap.Board.Nodes == nil {
		snap.Board.Nodes = []ir.Node{}
	}
	if snap.Board.Connectors == nil {
		snap.Board.Connectors = []ir.Connector{}
	}
	return snap, nil
}

// DeleteBoard removes a board snapshot.
func (s *Store) DeleteBoard(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(name))
	pipe.SRem(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete board %s: %w", name, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("delete board %s: %w", name, store.ErrBoardNotFound)
	}
	return nil
}

// ListBoards returns the names of stored boards in byte order. Names whose
// snapshot expired are pruned from the index.
func (s *Store) ListBoards(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	live := make([]string, 0, len(names))
	for _, name := range names {
		n, err := s.client.Exists(ctx, s.key(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("list boards: %w", err)
		}
		if n == 0 {
			if err := s.client.SRem(ctx, s.indexKey(), name).Err(); err != nil {
				return nil, fmt.Errorf("list boards: prune %s: %w", name, err)
			}
			continue
		}
		live = append(live, name)
	}
	slices.Sort(live)
	return live, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
