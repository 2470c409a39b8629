// Package doc is an in-memory host document: the shapes and connectors of one
// board plus the change hooks the engine subscribes to.
//
// Writes are serialized by a mutex. Hooks run after the lock is released, on
// the goroutine that made the write, in registration order.
package doc

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/OrionReed/ggraph/internal/graph"
	"github.com/OrionReed/ggraph/internal/ir"
)

var (
	// ErrNodeNotFound is returned when a node id is not on the board.
	ErrNodeNotFound = errors.New("node not found")
	// ErrConnectorNotFound is returned when a connector id is not on the board.
	ErrConnectorNotFound = errors.New("connector not found")
	// ErrDuplicateID is returned when an added shape reuses an existing id.
	ErrDuplicateID = errors.New("duplicate id")
)

type hook struct {
	id int
	fn func(prev, next ir.Node)
}

// Document holds one board.
type Document struct {
	mu          sync.Mutex
	nodes       []ir.Node
	index       map[string]int
	connectors  []ir.Connector
	hooks       []hook
	nextHook    int
	contributor string
}

// New creates an empty document acting on behalf of contributor.
func New(contributor string) *Document {
	return &Document{
		index:       make(map[string]int),
		contributor: contributor,
	}
}

// FromBoard creates a document holding a copy of b. Later duplicates of a
// node id are dropped.
func FromBoard(b ir.Board, contributor string) *Document {
	d := New(contributor)
	for _, n := range b.Nodes {
		if _, dup := d.index[n.ID]; dup {
			continue
		}
		d.index[n.ID] = len(d.nodes)
		d.nodes = append(d.nodes, n.Apply(ir.Patch{}))
	}
	d.connectors = slices.Clone(b.Connectors)
	return d
}

// Node returns a snapshot of the node with the given id.
func (d *Document) Node(id string) (ir.Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[id]
	if !ok {
		return ir.Node{}, false
	}
	return d.nodes[i].Apply(ir.Patch{}), true
}

// IncomingEdges returns the edges ending at id, in connector order.
func (d *Document) IncomingEdges(id string) []ir.Edge {
	var in []ir.Edge
	for _, e := range graph.DeriveEdges(d.Board()) {
		if e.To == id {
			in = append(in, e)
		}
	}
	return in
}

// Board returns a consistent snapshot of every node and connector.
func (d *Document) Board() ir.Board {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := ir.Board{
		Nodes:      make([]ir.Node, len(d.nodes)),
		Connectors: slices.Clone(d.connectors),
	}
	for i, n := range d.nodes {
		b.Nodes[i] = n.Apply(ir.Patch{})
	}
	if b.Connectors == nil {
		b.Connectors = []ir.Connector{}
	}
	return b
}

// Update applies a patch to a node's computed fields. Hooks are not called
// when the patch leaves the node unchanged.
func (d *Document) Update(id string, p ir.Patch) error {
	return d.mutate(id, func(n ir.Node) ir.Node { return n.Apply(p) })
}

// SetText replaces the raw text of a node: the formula of a voting node, the
// template of a generator and the value of a source.
func (d *Document) SetText(id, text string) error {
	return d.mutate(id, func(n ir.Node) ir.Node {
		n.Text = text
		return n
	})
}

// Contribute sets one contributor's value on a node.
func (d *Document) Contribute(id, contributor string, v ir.Value) error {
	return d.mutate(id, func(n ir.Node) ir.Node {
		c := n.Contributions.Clone()
		if c == nil {
			c = make(ir.Contributions)
		}
		c[contributor] = v
		return n.Apply(ir.Patch{Contributions: c})
	})
}

// Withdraw removes a contributor's value from a node.
func (d *Document) Withdraw(id, contributor string) error {
	return d.mutate(id, func(n ir.Node) ir.Node {
		c := n.Contributions.Clone()
		delete(c, contributor)
		if c == nil {
			c = ir.Contributions{}
		}
		return n.Apply(ir.Patch{Contributions: c})
	})
}

// SetOutput replaces a generator's output text.
func (d *Document) SetOutput(id, output string) error {
	return d.Update(id, ir.Patch{Output: &output})
}

func (d *Document) mutate(id string, fn func(ir.Node) ir.Node) error {
	d.mu.Lock()
	i, ok := d.index[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	prev := d.nodes[i]
	next := fn(prev.Apply(ir.Patch{}))
	next.ID = prev.ID
	next.Kind = prev.Kind
	if next.Equal(prev) {
		d.mu.Unlock()
		return nil
	}
	d.nodes[i] = next
	hooks := slices.Clone(d.hooks)
	d.mu.Unlock()

	notify(hooks, prev, next)
	return nil
}

// AddNode adds a node to the board and notifies hooks with a zero prev.
func (d *Document) AddNode(n ir.Node) error {
	if !ir.ValidNodeKinds[n.Kind] {
		return fmt.Errorf("node %s: invalid kind %q", n.ID, n.Kind)
	}
	d.mu.Lock()
	if _, dup := d.index[n.ID]; dup {
		d.mu.Unlock()
		return fmt.Errorf("%w: node %s", ErrDuplicateID, n.ID)
	}
	n = n.Apply(ir.Patch{})
	d.index[n.ID] = len(d.nodes)
	d.nodes = append(d.nodes, n)
	hooks := slices.Clone(d.hooks)
	d.mu.Unlock()

	notify(hooks, ir.Node{}, n)
	return nil
}

// RemoveNode deletes a node and unbinds every connector end attached to it.
func (d *Document) RemoveNode(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	d.nodes = slices.Delete(d.nodes, i, i+1)
	delete(d.index, id)
	for j := i; j < len(d.nodes); j++ {
		d.index[d.nodes[j].ID] = j
	}
	for j := range d.connectors {
		if d.connectors[j].Start == id {
			d.connectors[j].Start = ""
		}
		if d.connectors[j].End == id {
			d.connectors[j].End = ""
		}
	}
	return nil
}

// Connect adds a connector.
func (d *Document) Connect(c ir.Connector) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connectorIndex(c.ID) >= 0 {
		return fmt.Errorf("%w: connector %s", ErrDuplicateID, c.ID)
	}
	d.connectors = append(d.connectors, c)
	return nil
}

// Disconnect removes a connector.
func (d *Document) Disconnect(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.connectorIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrConnectorNotFound, id)
	}
	d.connectors = slices.Delete(d.connectors, i, i+1)
	return nil
}

// SetLabel changes a connector's label.
func (d *Document) SetLabel(id, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.connectorIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrConnectorNotFound, id)
	}
	d.connectors[i].Label = label
	return nil
}

func (d *Document) connectorIndex(id string) int {
	return slices.IndexFunc(d.connectors, func(c ir.Connector) bool { return c.ID == id })
}

// OnChange registers fn for every node write and returns a function that
// unregisters it. fn receives the snapshots before and after the write; prev
// is the zero Node when the node was just added.
func (d *Document) OnChange(fn func(prev, next ir.Node)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextHook
	d.nextHook++
	d.hooks = append(d.hooks, hook{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.hooks = slices.DeleteFunc(d.hooks, func(h hook) bool { return h.id == id })
	}
}

// CurrentContributor returns the identity this document acts for.
func (d *Document) CurrentContributor() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.contributor
}

// SetContributor changes the identity this document acts for.
func (d *Document) SetContributor(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contributor = id
}

func notify(hooks []hook, prev, next ir.Node) {
	for _, h := range hooks {
		h.fn(prev, next)
	}
}
