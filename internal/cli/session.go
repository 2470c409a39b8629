package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/doc"
	"github.com/OrionReed/ggraph/internal/engine"
	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/metrics"
	"github.com/OrionReed/ggraph/internal/store"
	"github.com/OrionReed/ggraph/internal/store/redis"
)

// DefaultContributor is the identity commands act as unless --as is given.
const DefaultContributor = "cli"

// BoardOptions holds the flags of commands that work on a stored board.
type BoardOptions struct {
	*RootOptions
	Database    string
	Redis       string
	Board       string
	Mode        string
	MaxSteps    int
	Metrics     bool
	Contributor string
}

func (o *BoardOptions) bindStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&o.Board, "board", "", "board name (required)")
	_ = cmd.MarkFlagRequired("board")
	cmd.Flags().StringVar(&o.Redis, "redis", "", "Redis address sharing board snapshots (optional)")
}

func (o *BoardOptions) bindEngineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Mode, "mode", "lazy", "propagation mode (lazy|eager)")
	cmd.Flags().IntVar(&o.MaxSteps, "max-steps", engine.DefaultMaxSteps, "maximum evaluations per wave")
	cmd.Flags().BoolVar(&o.Metrics, "metrics", false, "print engine metrics to stderr when done")
	cmd.Flags().StringVar(&o.Contributor, "as", DefaultContributor, "contributor identity")
}

// boardStore is anything that keeps board snapshots.
type boardStore interface {
	SaveBoard(ctx context.Context, name string, b ir.Board) error
	LoadBoard(ctx context.Context, name string) (ir.Board, error)
}

// openStores opens the SQLite database and, with --redis, the shared
// snapshot store. The caller closes both through the returned function.
func openStores(o *BoardOptions) (*store.Store, *redis.Store, func(), error) {
	st, err := store.Open(o.Database)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	var shared *redis.Store
	if o.Redis != "" {
		shared = redis.New(o.Redis, "", 0)
	}
	closeAll := func() {
		if shared != nil {
			_ = shared.Close()
		}
		_ = st.Close()
	}
	return st, shared, closeAll, nil
}

// loadBoard reads a board from Redis when a shared store is configured and
// holds it, and from SQLite otherwise.
func loadBoard(ctx context.Context, st *store.Store, shared *redis.Store, name string) (ir.Board, error) {
	if shared != nil {
		b, err := shared.LoadBoard(ctx, name)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, store.ErrBoardNotFound) {
			return ir.Board{}, err
		}
	}
	return st.LoadBoard(ctx, name)
}

// saveBoard writes a board to SQLite and then to the shared store.
func saveBoard(ctx context.Context, st *store.Store, shared *redis.Store, name string, b ir.Board) error {
	targets := []boardStore{st}
	if shared != nil {
		targets = append(targets, shared)
	}
	for _, t := range targets {
		if err := t.SaveBoard(ctx, name, b); err != nil {
			return err
		}
	}
	return nil
}

// session is a board loaded into a document with an engine attached.
type session struct {
	opts     *BoardOptions
	store    *store.Store
	shared   *redis.Store
	doc      *doc.Document
	engine   *engine.Engine
	registry *prometheus.Registry
	logger   *slog.Logger
	closeFn  func()
}

// openSession loads the board named by --board and attaches an engine to
// it. The engine clock resumes after the last recorded seq so evaluation
// records stay totally ordered across runs.
func openSession(ctx context.Context, o *BoardOptions, cmd *cobra.Command, extra ...engine.EngineOption) (*session, error) {
	mode, err := engine.ParseMode(o.Mode)
	if err != nil {
		return nil, NewExitError(ExitCommandError, err.Error())
	}

	st, shared, closeAll, err := openStores(o)
	if err != nil {
		return nil, err
	}

	b, err := loadBoard(ctx, st, shared, o.Board)
	if err != nil {
		closeAll()
		if errors.Is(err, store.ErrBoardNotFound) {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("board %q not found", o.Board), err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to load board", err)
	}

	last, err := st.LastSeq(ctx)
	if err != nil {
		closeAll()
		return nil, WrapExitError(ExitCommandError, "failed to read evaluation log", err)
	}

	logger := o.logger(cmd.ErrOrStderr())
	registry, m := metrics.NewRegistry()
	d := doc.FromBoard(b, o.Contributor)

	opts := []engine.EngineOption{
		engine.WithMode(mode),
		engine.WithMaxSteps(o.MaxSteps),
		engine.WithLogger(logger),
		engine.WithMetrics(m),
		engine.WithClock(engine.NewClockAt(last)),
		engine.WithEvaluationLog(st.Log(o.Board)),
	}
	opts = append(opts, extra...)

	eng := engine.New(d, opts...)
	eng.Attach()

	logger.Debug("session opened", "board", o.Board, "mode", mode.String(), "seq", last)

	return &session{
		opts:     o,
		store:    st,
		shared:   shared,
		doc:      d,
		engine:   eng,
		registry: registry,
		logger:   logger,
		closeFn:  closeAll,
	}, nil
}

// commit waits for the engine to settle and saves the board.
func (s *session) commit(ctx context.Context) error {
	if err := s.engine.Settle(ctx); err != nil {
		return fmt.Errorf("settle engine: %w", err)
	}
	if err := saveBoard(ctx, s.store, s.shared, s.opts.Board, s.doc.Board()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save board", err)
	}
	return nil
}

// close stops the engine, dumps metrics when asked and closes the stores.
func (s *session) close(cmd *cobra.Command) {
	s.engine.Stop()
	if s.opts.Metrics {
		if err := metrics.Dump(cmd.ErrOrStderr(), s.registry); err != nil {
			s.logger.Warn("metrics dump failed", "error", err)
		}
	}
	s.closeFn()
}

// nodeResult is the JSON shape of one node in command output.
type nodeResult struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	ValueType   string `json:"value_type,omitempty"`
	Value       any    `json:"value"`
	SyntaxError bool   `json:"syntax_error,omitempty"`
	Output      string `json:"output,omitempty"`
	Pending     string `json:"pending,omitempty"`
}

func newNodeResult(n ir.Node) nodeResult {
	return nodeResult{
		ID:          n.ID,
		Kind:        string(n.Kind),
		ValueType:   string(n.ValueType),
		Value:       jsonValue(n),
		SyntaxError: n.SyntaxError,
		Output:      n.Output,
		Pending:     n.Pending,
	}
}

// writeNodes prints nodes as a table or a JSON list.
func writeNodes(f *OutputFormatter, title string, nodes []ir.Node) error {
	if f.JSON() {
		out := make([]nodeResult, len(nodes))
		for i, n := range nodes {
			out[i] = newNodeResult(n)
		}
		return f.Success(out)
	}
	return boardTable(title, ir.Board{Nodes: nodes}).render(f.Writer)
}
