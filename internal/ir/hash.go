package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed ids. The version suffix allows
// migrating the algorithm later.
const (
	DomainEvaluation = "ggraph/evaluation/v1"
	DomainBoard      = "ggraph/board/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EvaluationID computes the content-addressed id of one evaluation record.
// The same node, wave, inputs and seq always give the same id.
func EvaluationID(nodeID, wave string, inputs InputMap, seq int64) (string, error) {
	in := make(Object, len(inputs))
	for label, input := range inputs {
		v := input.Value
		if v == nil {
			v = Null{}
		}
		in[label] = Object{
			"source_id": String(input.SourceID),
			"value":     v,
		}
	}

	obj := Object{
		"node_id": String(nodeID),
		"wave":    String(wave),
		"inputs":  in,
		"seq":     Number(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EvaluationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvaluation, canonical), nil
}

// BoardHash computes a digest of a board's structure and contents, used to
// detect whether a stored board changed.
func BoardHash(b Board) (string, error) {
	nodes := make(List, len(b.Nodes))
	for i, n := range b.Nodes {
		nodes[i] = nodeObject(n)
	}
	conns := make(List, len(b.Connectors))
	for i, c := range b.Connectors {
		conns[i] = Object{
			"id":          String(c.ID),
			"start":       String(c.Start),
			"end":         String(c.End),
			"label":       String(c.Label),
			"directional": Bool(c.Directional),
		}
	}

	canonical, err := MarshalCanonical(Object{"nodes": nodes, "connectors": conns})
	if err != nil {
		return "", fmt.Errorf("BoardHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBoard, canonical), nil
}

func nodeObject(n Node) Object {
	computed := n.ComputedValue
	if computed == nil {
		computed = Null{}
	}
	return Object{
		"id":             String(n.ID),
		"kind":           String(n.Kind),
		"text":           String(n.Text),
		"value_type":     String(n.ValueType),
		"selector":       String(n.Selector),
		"contributions":  Object(n.Contributions),
		"computed_value": computed,
		"syntax_error":   Bool(n.SyntaxError),
		"output":         String(n.Output),
		"pending":        String(n.Pending),
		"generation":     Number(n.Generation),
	}
}

// MustEvaluationID is like EvaluationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEvaluationID(nodeID, wave string, inputs InputMap, seq int64) string {
	id, err := EvaluationID(nodeID, wave, inputs, seq)
	if err != nil {
		panic(err)
	}
	return id
}
