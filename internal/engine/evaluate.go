package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OrionReed/ggraph/internal/eval"
	"github.com/OrionReed/ggraph/internal/formula"
	"github.com/OrionReed/ggraph/internal/graph"
	"github.com/OrionReed/ggraph/internal/ir"
)

// processChange classifies an external write and reacts to it.
//
//   - voting formula text changed (or node added): reclassify and evaluate
//   - voting contributions changed: evaluate
//   - otherwise, a changed output value is an upstream change
func (e *Engine) processChange(ctx context.Context, c *Change) error {
	next := c.Next
	added := c.Prev.ID == ""

	var trigger ir.Trigger
	if next.Kind == ir.KindVoting {
		switch {
		case added || c.Prev.Text != next.Text:
			trigger = ir.TriggerFormula
		case !c.Prev.Contributions.Equal(next.Contributions):
			trigger = ir.TriggerContribution
		}
	}

	if trigger != "" {
		if _, ok := e.doc.Node(next.ID); !ok {
			e.logger.Debug("change for removed node", "node", next.ID)
			return nil
		}
		wave := e.waves.Generate()
		changed, err := e.evaluateNode(ctx, next.ID, trigger, wave)
		if err != nil {
			return err
		}
		if changed && e.mode == Eager {
			return e.cascade(ctx, next.ID, wave)
		}
		return nil
	}

	if !valueChanged(c.Prev, next) {
		return nil
	}
	return e.upstream(ctx, next.ID)
}

// upstream reacts to a node whose output value changed.
func (e *Engine) upstream(ctx context.Context, id string) error {
	if e.mode == Lazy {
		e.logger.Debug("upstream change; dependents refresh on next evaluation", "node", id)
		return nil
	}
	return e.cascade(ctx, id, e.waves.Generate())
}

func valueChanged(prev, next ir.Node) bool {
	pv, pok := prev.Value()
	nv, nok := next.Value()
	return pok != nok || !ir.Equal(pv, nv)
}

// reclassify derives the type and selector from the formula text. A type
// switch clears the contributions, since they were entered for the old type.
func (e *Engine) reclassify(n ir.Node) ir.Patch {
	h := formula.ParseHeader(n.Text)
	p := ir.Patch{ValueType: ir.Ptr(h.Type), Selector: ir.Ptr(h.Selector)}
	if n.ValueType != "" && n.ValueType != h.Type {
		p.Contributions = ir.Contributions{}
		e.metrics.TypeSwitch()
		e.logger.Info("value type changed; contributions cleared",
			"node", n.ID,
			"from", n.ValueType,
			"to", h.Type,
			"cleared", len(n.Contributions),
		)
	}
	return p
}

// evaluateNode evaluates one voting node and writes the result. It reports
// whether the value the node supplies downstream changed.
func (e *Engine) evaluateNode(ctx context.Context, id string, trigger ir.Trigger, wave string) (bool, error) {
	node, ok := e.doc.Node(id)
	if !ok {
		return false, NewNodeNotFoundError(id)
	}
	if node.Kind != ir.KindVoting {
		return false, NewWrongKindError(id, node.Kind, ir.KindVoting)
	}
	before, hadBefore := node.Value()

	var patch ir.Patch
	if trigger == ir.TriggerFormula || trigger == ir.TriggerExplicit {
		patch = e.reclassify(node)
		node = node.Apply(patch)
	}

	inputs := graph.ResolveEdges(e.doc.IncomingEdges(id), e.doc.Node)

	start := time.Now()
	res := eval.Evaluate(node, inputs)
	e.metrics.ObserveEvaluation(string(trigger), res.SyntaxError, time.Since(start))
	if res.SyntaxError {
		e.logger.Debug("evaluation failed",
			"node", id,
			"trigger", trigger,
			"wave", wave,
			"error", res.Err,
		)
	}

	written, err := e.write(id, patch.Merge(res.Patch()))
	if err != nil {
		return false, err
	}
	if err := e.record(ctx, wave, id, trigger, inputs, res); err != nil {
		return false, err
	}

	after, hasAfter := written.Value()
	return hadBefore != hasAfter || !ir.Equal(before, after), nil
}

// record stamps the evaluation with the next seq and appends it to the log.
func (e *Engine) record(ctx context.Context, wave, id string, trigger ir.Trigger, inputs ir.InputMap, res eval.Result) error {
	seq := e.clock.Next()
	if e.evalLog == nil {
		return nil
	}

	evID, err := ir.EvaluationID(id, wave, inputs, seq)
	if err != nil {
		return fmt.Errorf("evaluation id for %s: %w", id, err)
	}
	rec := ir.Evaluation{
		ID:          evID,
		Seq:         seq,
		Wave:        wave,
		NodeID:      id,
		Trigger:     trigger,
		Inputs:      inputs,
		Value:       res.Value,
		SyntaxError: res.SyntaxError,
	}
	if rec.Value == nil {
		rec.Value = ir.Null{}
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := e.evalLog.AppendEvaluation(ctx, rec); err != nil {
		return fmt.Errorf("append evaluation %s: %w", evID, err)
	}
	return nil
}

// cascade re-evaluates the transitive dependents of origin in topological
// order, so a node runs after every upstream it reads in the same wave. Each
// node runs at most once per wave; a changed node whose dependent already ran
// is a cycle break. The wave stops after maxSteps evaluations. Neither limit
// is reported as an error.
//
// The graph is rebuilt from the document before every step, so connectors
// added or removed while the wave runs are honored by the remaining steps.
func (e *Engine) cascade(ctx context.Context, origin, wave string) error {
	quota := NewQuotaEnforcer(e.maxSteps)

	e.cycles.Record(wave, origin)
	defer e.cycles.Clear(wave)

	steps := 0
	defer func() { e.metrics.ObserveWave(steps) }()

	g := graph.Build(e.doc.Board())
	pending := make(map[string]bool)
	e.markDependents(g, wave, origin, pending)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := nextPending(g, pending)
		if id == "" {
			// Every pending node was removed from the document.
			return nil
		}
		delete(pending, id)
		e.cycles.Record(wave, id)

		if n, ok := g.Node(id); !ok || n.Kind != ir.KindVoting {
			continue
		}
		if err := quota.Check(wave); err != nil {
			e.metrics.Quota()
			e.logger.Warn("wave stopped",
				"origin", origin,
				"error", NewQuotaError(wave, quota.Current(), quota.MaxSteps()),
			)
			return nil
		}

		steps++
		changed, err := e.evaluateNode(ctx, id, ir.TriggerUpstream, wave)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return err
		}
		g = graph.Build(e.doc.Board())
		if changed {
			e.markDependents(g, wave, id, pending)
		}
	}
	return nil
}

// markDependents adds the dependents of id to pending. Dependents that
// already ran in wave are cycle breaks.
func (e *Engine) markDependents(g *graph.Graph, wave, id string, pending map[string]bool) {
	for _, dep := range g.Dependents(id) {
		if e.cycles.WouldCycle(wave, dep) {
			e.metrics.CycleBreak()
			e.logger.Debug("skipping re-evaluation", "error", NewCycleError(wave, dep))
			continue
		}
		pending[dep] = true
	}
}

// nextPending returns the first pending node in topological order, or "" when
// no pending node is still on the board.
func nextPending(g *graph.Graph, pending map[string]bool) string {
	for _, id := range g.Order() {
		if pending[id] {
			return id
		}
	}
	return ""
}

// Evaluate evaluates one voting node now and returns its new snapshot. In
// eager mode a changed value cascades to its dependents.
func (e *Engine) Evaluate(ctx context.Context, id string) (ir.Node, error) {
	wave := e.waves.Generate()
	changed, err := e.evaluateNode(ctx, id, ir.TriggerExplicit, wave)
	if err != nil {
		return ir.Node{}, err
	}
	if changed && e.mode == Eager {
		if err := e.cascade(ctx, id, wave); err != nil {
			return ir.Node{}, err
		}
	}
	n, ok := e.doc.Node(id)
	if !ok {
		return ir.Node{}, NewNodeNotFoundError(id)
	}
	return n, nil
}

// EvaluateAll evaluates every voting node in one wave, upstream nodes first,
// and returns how many were evaluated.
func (e *Engine) EvaluateAll(ctx context.Context) (int, error) {
	g := graph.Build(e.doc.Board())
	wave := e.waves.Generate()

	count := 0
	var errs []error
	for _, id := range g.Order() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if n, _ := g.Node(id); n.Kind != ir.KindVoting {
			continue
		}
		if _, err := e.evaluateNode(ctx, id, ir.TriggerExplicit, wave); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}
