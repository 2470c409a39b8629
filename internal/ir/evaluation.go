package ir

import (
	"encoding/json"
	"fmt"
)

// Trigger names why a node was evaluated.
type Trigger string

const (
	// TriggerFormula is an edit of the node's formula text.
	TriggerFormula Trigger = "formula"
	// TriggerContribution is a change to the node's contributions.
	TriggerContribution Trigger = "contribution"
	// TriggerUpstream is a value change in a node feeding this one.
	TriggerUpstream Trigger = "upstream"
	// TriggerExplicit is a direct request such as the eval command.
	TriggerExplicit Trigger = "explicit"
)

// Evaluation records one evaluation of a voting node.
type Evaluation struct {
	ID          string   `json:"id"`
	Seq         int64    `json:"seq"`
	Wave        string   `json:"wave"`
	NodeID      string   `json:"node_id"`
	Trigger     Trigger  `json:"trigger"`
	Inputs      InputMap `json:"inputs"`
	Value       Value    `json:"value"`
	SyntaxError bool     `json:"syntax_error"`
	Error       string   `json:"error,omitempty"`
}

// Equal reports whether two node snapshots hold the same state.
func (n Node) Equal(other Node) bool {
	if n.ID != other.ID ||
		n.Kind != other.Kind ||
		n.Text != other.Text ||
		n.ValueType != other.ValueType ||
		n.Selector != other.Selector ||
		n.SyntaxError != other.SyntaxError ||
		n.Output != other.Output ||
		n.Pending != other.Pending ||
		n.Generation != other.Generation {
		return false
	}
	if (n.ComputedValue == nil) != (other.ComputedValue == nil) {
		return false
	}
	if !Equal(n.ComputedValue, other.ComputedValue) {
		return false
	}
	return n.Contributions.Equal(other.Contributions)
}

// Equal reports whether both maps hold the same contributors and values.
// A nil map equals an empty one.
func (c Contributions) Equal(other Contributions) bool {
	if len(c) != len(other) {
		return false
	}
	for id, v := range c {
		ov, ok := other[id]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// UnmarshalJSON implements json.Unmarshaler for Evaluation.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	type evaluationAlias Evaluation
	var raw struct {
		evaluationAlias
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Evaluation(raw.evaluationAlias)
	e.Value = Null{}
	if len(raw.Value) == 0 {
		return nil
	}
	v, err := UnmarshalValue(raw.Value)
	if err != nil {
		return fmt.Errorf("evaluation %s: %w", e.ID, err)
	}
	e.Value = v
	return nil
}
