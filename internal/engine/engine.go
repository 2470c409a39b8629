package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/llm"
	"github.com/OrionReed/ggraph/internal/metrics"
)

// Document is the host the engine reads nodes from and writes computed fields
// to. doc.Document is the in-memory implementation.
type Document interface {
	Node(id string) (ir.Node, bool)
	IncomingEdges(id string) []ir.Edge
	Board() ir.Board
	Update(id string, p ir.Patch) error
	OnChange(fn func(prev, next ir.Node)) (unregister func())
	CurrentContributor() string
}

// EvaluationLog receives a record of every evaluation. store.BoardLog
// implements it.
type EvaluationLog interface {
	AppendEvaluation(ctx context.Context, ev ir.Evaluation) error
}

// WaveTokenGenerator generates the correlation token of a wave.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type WaveTokenGenerator interface {
	Generate() string
}

// Mode selects whether upstream changes cascade.
type Mode int

const (
	// Lazy leaves dependents alone until they are next evaluated.
	Lazy Mode = iota
	// Eager re-evaluates transitive dependents in the same wave.
	Eager
)

func (m Mode) String() string {
	if m == Eager {
		return "eager"
	}
	return "lazy"
}

// ParseMode parses "lazy" or "eager".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lazy":
		return Lazy, nil
	case "eager":
		return Eager, nil
	}
	return Lazy, fmt.Errorf("unknown mode %q (want lazy or eager)", s)
}

// DefaultMaxSteps is the default maximum number of evaluations per wave.
const DefaultMaxSteps = 1000

// ErrStopped is returned when work is submitted after Stop.
var ErrStopped = errors.New("engine stopped")

// Engine is the single-writer propagation controller.
//
// Thread-safety model:
//   - Attach, Generate, Enqueue: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Drain, Settle, Evaluate, EvaluateAll: callers must not run them
//     concurrently with Run or with each other
type Engine struct {
	doc     Document
	logger  *slog.Logger
	metrics *metrics.Metrics
	gen     llm.Generator
	evalLog EvaluationLog
	clock   SeqClock
	waves   WaveTokenGenerator
	queue   *eventQueue
	cycles  *CycleDetector

	mode     Mode
	maxSteps int

	// own holds the snapshots the engine expects its writes to produce, so
	// that the change hook can tell them apart from host edits.
	ownMu sync.Mutex
	own   map[string][]ir.Node

	streams    sync.WaitGroup
	unregister func()
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMode selects lazy or eager propagation. Default: Lazy.
func WithMode(m Mode) EngineOption {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithMaxSteps sets the maximum evaluations per wave. Default: DefaultMaxSteps.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithGenerator sets the text generation backend. Without one, Generate fails.
func WithGenerator(g llm.Generator) EngineOption {
	return func(e *Engine) {
		e.gen = g
	}
}

// WithEvaluationLog records every evaluation in l.
func WithEvaluationLog(l EvaluationLog) EngineOption {
	return func(e *Engine) {
		e.evalLog = l
	}
}

// WithClock sets the logical clock, e.g. one resumed with NewClockAt.
func WithClock(c SeqClock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithWaveGenerator sets the wave token generator. Default: UUIDv7Generator.
func WithWaveGenerator(g WaveTokenGenerator) EngineOption {
	return func(e *Engine) {
		e.waves = g
	}
}

// New creates an Engine for d. Call Attach to start observing host changes.
func New(d Document, opts ...EngineOption) *Engine {
	e := &Engine{
		doc:      d,
		logger:   slog.Default(),
		clock:    NewClock(),
		waves:    UUIDv7Generator{},
		queue:    newEventQueue(),
		cycles:   NewCycleDetector(),
		maxSteps: DefaultMaxSteps,
		own:      make(map[string][]ir.Node),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Mode returns the propagation mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() SeqClock {
	return e.clock
}

// Attach registers the engine's change hook on the document. Calling it again
// is a no-op.
func (e *Engine) Attach() {
	if e.unregister != nil {
		return
	}
	e.unregister = e.doc.OnChange(e.onChange)
}

// Detach removes the change hook.
func (e *Engine) Detach() {
	if e.unregister != nil {
		e.unregister()
		e.unregister = nil
	}
}

// onChange runs on the host's goroutine. It never touches node state.
func (e *Engine) onChange(prev, next ir.Node) {
	if e.consumeOwn(next) {
		return
	}
	e.queue.Enqueue(Event{
		Type:   EventTypeChange,
		Change: &Change{Prev: prev, Next: next},
	})
}

// Enqueue submits an event for processing.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// QueueLen returns the number of events waiting.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the event loop. It blocks until ctx is cancelled or Stop is
// called. Streams started by the loop run under ctx.
//
// A failed event is logged and processing continues.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "mode", e.mode.String(), "max_steps", e.maxSteps)

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(ctx, event); err != nil {
				e.logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop detaches from the document and closes the queue, which makes Run
// return once the queue is empty.
func (e *Engine) Stop() {
	e.Detach()
	e.queue.Close()
}

// Drain processes queued events until the queue is empty. It does not wait
// for open streams.
func (e *Engine) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, ok := e.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := e.processEvent(ctx, event); err != nil {
			e.logEventError(event, err)
		}
	}
}

// Settle drains the queue and waits for every open stream, repeating until
// nothing is left to do.
func (e *Engine) Settle(ctx context.Context) error {
	for {
		if err := e.Drain(ctx); err != nil {
			return err
		}

		done := make(chan struct{})
		go func() {
			e.streams.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		if e.queue.Len() == 0 {
			return nil
		}
	}
}

// processEvent routes an event to its handler.
// Called only from the goroutine running Run, Drain or Settle.
func (e *Engine) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeChange:
		if event.Change == nil {
			return fmt.Errorf("change event missing change data")
		}
		return e.processChange(ctx, event.Change)

	case EventTypeGenerate:
		if event.Generate == nil {
			return fmt.Errorf("generate event missing request")
		}
		return e.processGenerate(ctx, event.Generate.NodeID)

	case EventTypeStream:
		if event.Stream == nil {
			return fmt.Errorf("stream event missing update")
		}
		return e.processStream(ctx, event.Stream)

	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

func (e *Engine) logEventError(event Event, err error) {
	attrs := []any{"event", event.Type.String(), "error", err}
	switch {
	case event.Change != nil:
		attrs = append(attrs, "node", event.Change.Next.ID)
	case event.Generate != nil:
		attrs = append(attrs, "node", event.Generate.NodeID)
	case event.Stream != nil:
		attrs = append(attrs, "node", event.Stream.NodeID, "generation", event.Stream.Generation)
	}
	e.logger.Error("event processing failed", attrs...)
}

// write applies a patch to the document and marks the resulting snapshot as
// the engine's own so the change hook ignores it.
func (e *Engine) write(id string, p ir.Patch) (ir.Node, error) {
	cur, ok := e.doc.Node(id)
	if !ok {
		return ir.Node{}, NewNodeNotFoundError(id)
	}
	expected := cur.Apply(p)

	e.ownMu.Lock()
	e.own[id] = append(e.own[id], expected)
	e.ownMu.Unlock()

	err := e.doc.Update(id, p)

	// A patch that changed nothing produces no hook call; drop the entry.
	e.ownMu.Lock()
	e.removeOwnLocked(id, expected)
	e.ownMu.Unlock()

	if err != nil {
		return ir.Node{}, fmt.Errorf("update node %s: %w", id, err)
	}
	return expected, nil
}

func (e *Engine) consumeOwn(next ir.Node) bool {
	e.ownMu.Lock()
	defer e.ownMu.Unlock()
	return e.removeOwnLocked(next.ID, next)
}

func (e *Engine) removeOwnLocked(id string, n ir.Node) bool {
	pending := e.own[id]
	for i, want := range pending {
		if want.Equal(n) {
			pending = append(pending[:i], pending[i+1:]...)
			if len(pending) == 0 {
				delete(e.own, id)
			} else {
				e.own[id] = pending
			}
			return true
		}
	}
	return false
}
