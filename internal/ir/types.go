package ir

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NodeKind identifies the role a shape plays in the computation graph.
type NodeKind string

const (
	// KindSource nodes only supply their raw text as a value.
	KindSource NodeKind = "source"
	// KindVoting nodes hold a formula and a per-contributor value map.
	KindVoting NodeKind = "voting"
	// KindGenerator nodes hold a prompt template and a streamed output.
	KindGenerator NodeKind = "generator"
)

// ValidNodeKinds defines allowed node kinds.
var ValidNodeKinds = map[NodeKind]bool{
	KindSource:    true,
	KindVoting:    true,
	KindGenerator: true,
}

// ValueType is the semantic kind declared by a voting formula.
type ValueType string

const (
	TypeScalar  ValueType = "SCALAR"
	TypeBoolean ValueType = "BOOLEAN"
	TypeString  ValueType = "STRING"
	TypeRank    ValueType = "RANK"
	TypeNone    ValueType = "NONE"
)

// ValueTypePriority is the order in which type keywords are checked.
var ValueTypePriority = []ValueType{TypeScalar, TypeBoolean, TypeString, TypeRank}

// ParseValueType returns the ValueType named by s, or TypeNone.
func ParseValueType(s string) ValueType {
	switch vt := ValueType(strings.ToUpper(strings.TrimSpace(s))); vt {
	case TypeScalar, TypeBoolean, TypeString, TypeRank:
		return vt
	}
	return TypeNone
}

// DefaultContribution is the value a fresh contributor widget starts with.
func DefaultContribution(vt ValueType) Value {
	switch vt {
	case TypeScalar:
		return Number(0)
	case TypeBoolean:
		return Bool(false)
	default:
		return Null{}
	}
}

// Contributions maps contributor identity to that contributor's raw value.
type Contributions map[string]Value

// Contributors returns contributor ids in byte order.
func (c Contributions) Contributors() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Ordered returns the contributed values ordered by contributor id.
func (c Contributions) Ordered() List {
	out := make(List, 0, len(c))
	for _, id := range c.Contributors() {
		v := c[id]
		if v == nil {
			v = Null{}
		}
		out = append(out, v)
	}
	return out
}

// Clone returns a shallow copy of the map. Values are immutable.
func (c Contributions) Clone() Contributions {
	if c == nil {
		return nil
	}
	out := make(Contributions, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Node is an immutable snapshot of a computation vertex.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`

	// Text is the raw text of a source, the formula of a voting node and
	// the prompt template of a generator.
	Text string `json:"text"`

	ValueType     ValueType     `json:"value_type,omitempty"`
	Selector      string        `json:"selector,omitempty"`
	Contributions Contributions `json:"contributions,omitempty"`

	// ComputedValue is nil until the first successful evaluation.
	ComputedValue Value `json:"computed_value,omitempty"`
	SyntaxError   bool  `json:"syntax_error,omitempty"`

	Output     string `json:"output,omitempty"`
	Pending    string `json:"pending,omitempty"`
	Generation int64  `json:"generation,omitempty"`
}

// Value returns the value this node supplies downstream, or false when it
// supplies none.
func (n Node) Value() (Value, bool) {
	switch n.Kind {
	case KindSource:
		return CoerceText(n.Text)
	case KindVoting:
		if n.SyntaxError || IsNull(n.ComputedValue) {
			return nil, false
		}
		return n.ComputedValue, true
	case KindGenerator:
		if n.Output == "" {
			return nil, false
		}
		return String(n.Output), true
	}
	return nil, false
}

// DisplayText returns the text used when this node fills a prompt placeholder.
func (n Node) DisplayText() string {
	switch n.Kind {
	case KindSource:
		return n.Text
	case KindGenerator:
		return n.Output
	default:
		return Display(n.ComputedValue)
	}
}

// CoerceText converts raw shape text into a value. Blank text supplies none.
func CoerceText(text string) (Value, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	return CoerceToken(trimmed), true
}

// CoerceToken applies the literal coercion used for formula arguments and
// source text: true/false become Bool, numeric tokens become Number, and
// anything else stays a String.
func CoerceToken(tok string) Value {
	switch tok {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, ok := ParseNumber(tok); ok {
		return Number(f)
	}
	return String(tok)
}

// Connector is a host connector shape. Start and End are the ids of the bound
// shapes, or "" when that end is unbound.
type Connector struct {
	ID          string `json:"id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Label       string `json:"label"`
	Directional bool   `json:"directional"`
}

// Edge is a directed labeled connection derived from a connector.
type Edge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Board is one consistent snapshot of the host document.
type Board struct {
	Nodes      []Node      `json:"nodes"`
	Connectors []Connector `json:"connectors"`
}

// Node returns the node with the given id.
func (b Board) Node(id string) (Node, bool) {
	for _, n := range b.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Input is one entry of a resolved input map.
type Input struct {
	Value    Value  `json:"value"`
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
}

// InputMap maps edge labels to resolved upstream values.
type InputMap map[string]Input

// Labels returns the labels in byte order.
func (m InputMap) Labels() []string {
	labels := make([]string, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// NormalizeLabel trims surrounding space and applies NFC normalization.
func NormalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// UnmarshalJSON implements json.Unmarshaler for Contributions.
func (c *Contributions) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case Null:
		*c = nil
	case Object:
		*c = Contributions(val)
	default:
		return fmt.Errorf("contributions: expected object, got %s", TypeName(v))
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Node so that the computed
// value decodes into the sealed Value interface.
func (n *Node) UnmarshalJSON(data []byte) error {
	type nodeAlias Node
	var raw struct {
		nodeAlias
		ComputedValue json.RawMessage `json:"computed_value,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node(raw.nodeAlias)
	n.ComputedValue = nil
	if len(raw.ComputedValue) == 0 {
		return nil
	}
	v, err := UnmarshalValue(raw.ComputedValue)
	if err != nil {
		return fmt.Errorf("node %s: computed_value: %w", n.ID, err)
	}
	if !IsNull(v) {
		n.ComputedValue = v
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Input.
func (in *Input) UnmarshalJSON(data []byte) error {
	type inputAlias Input
	var raw struct {
		inputAlias
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Input(raw.inputAlias)
	in.Value = Null{}
	if len(raw.Value) == 0 {
		return nil
	}
	v, err := UnmarshalValue(raw.Value)
	if err != nil {
		return fmt.Errorf("input from %s: %w", in.SourceID, err)
	}
	in.Value = v
	return nil
}
