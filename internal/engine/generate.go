package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/OrionReed/ggraph/internal/eval"
	"github.com/OrionReed/ggraph/internal/graph"
	"github.com/OrionReed/ggraph/internal/ir"
)

// ErrNoGenerator is returned by Generate when no backend is configured.
var ErrNoGenerator = errors.New("no text generator configured")

// Generate requests a new generation for a generator node. The request is
// validated now and processed by the event loop; the output arrives as the
// stream progresses.
func (e *Engine) Generate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.gen == nil {
		return ErrNoGenerator
	}
	n, ok := e.doc.Node(id)
	if !ok {
		return NewNodeNotFoundError(id)
	}
	if n.Kind != ir.KindGenerator {
		return NewWrongKindError(id, n.Kind, ir.KindGenerator)
	}
	if !e.queue.Enqueue(Event{Type: EventTypeGenerate, Generate: &GenerateRequest{NodeID: id}}) {
		return ErrStopped
	}
	return nil
}

// Prompt returns the prompt a generator node would send now.
func (e *Engine) Prompt(id string) (string, error) {
	n, ok := e.doc.Node(id)
	if !ok {
		return "", NewNodeNotFoundError(id)
	}
	if n.Kind != ir.KindGenerator {
		return "", NewWrongKindError(id, n.Kind, ir.KindGenerator)
	}
	inputs := graph.ResolveEdges(e.doc.IncomingEdges(id), e.doc.Node)
	return eval.GeneratorPrompt(n.Text, inputs), nil
}

// processGenerate bumps the node's generation, marks it pending and starts
// the stream. Any older stream still running becomes stale.
func (e *Engine) processGenerate(ctx context.Context, id string) error {
	if e.gen == nil {
		return ErrNoGenerator
	}
	prompt, err := e.Prompt(id)
	if err != nil {
		return err
	}
	n, _ := e.doc.Node(id)

	generation := n.Generation + 1
	owner := e.doc.CurrentContributor()
	if _, err := e.write(id, ir.Patch{Generation: &generation, Pending: &owner}); err != nil {
		return err
	}

	e.logger.Debug("generation started", "node", id, "generation", generation, "owner", owner)
	e.startStream(ctx, id, generation, prompt)
	return nil
}

// startStream runs the generator in its own goroutine. Every callback and
// the final outcome become stream events for the loop.
func (e *Engine) startStream(ctx context.Context, id string, generation int64, prompt string) {
	e.streams.Add(1)
	e.metrics.StreamStarted()

	go func() {
		defer e.streams.Done()

		var (
			last string
			done bool
		)
		err := e.gen.Stream(ctx, prompt, func(text string, d bool) {
			if done {
				return
			}
			last = text
			done = d
			e.queue.Enqueue(Event{
				Type: EventTypeStream,
				Stream: &StreamUpdate{
					NodeID:     id,
					Generation: generation,
					Text:       text,
					Done:       d,
				},
			})
		})
		e.metrics.StreamFinished(err)

		if done {
			return
		}
		// The stream ended without a done callback: close it here with the
		// partial text received.
		if err == nil {
			err = fmt.Errorf("stream ended without completion")
		}
		e.queue.Enqueue(Event{
			Type: EventTypeStream,
			Stream: &StreamUpdate{
				NodeID:     id,
				Generation: generation,
				Text:       last,
				Done:       true,
				Err:        err,
			},
		})
	}()
}

// processStream applies a stream update if it belongs to the node's latest
// generation. The terminal update clears the pending marker.
func (e *Engine) processStream(ctx context.Context, u *StreamUpdate) error {
	n, ok := e.doc.Node(u.NodeID)
	if !ok {
		e.logger.Debug("stream update for removed node", "node", u.NodeID)
		return nil
	}
	if u.Generation != n.Generation {
		e.metrics.StreamUpdate("stale")
		e.logger.Debug("discarding stale stream update",
			"node", u.NodeID,
			"generation", u.Generation,
			"latest", n.Generation,
		)
		return nil
	}

	var p ir.Patch
	// A stream that failed before producing text keeps the previous output.
	if u.Err == nil || u.Text != "" {
		p.Output = ir.Ptr(u.Text)
	}
	if u.Done {
		p.Pending = ir.Ptr("")
	}
	if _, err := e.write(u.NodeID, p); err != nil {
		return err
	}
	e.metrics.StreamUpdate("applied")

	if u.Err != nil {
		e.logger.Warn("generation ended with error",
			"error", NewStreamError(u.NodeID, u.Generation, u.Err),
		)
	}
	if u.Done {
		e.logger.Debug("generation finished", "node", u.NodeID, "generation", u.Generation)
		// Partials do not cascade; dependents see the finished text.
		if e.mode == Eager {
			return e.cascade(ctx, u.NodeID, e.waves.Generate())
		}
	}
	return nil
}
