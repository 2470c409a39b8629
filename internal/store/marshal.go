package store

import (
	"database/sql"
	"fmt"

	"github.com/OrionReed/ggraph/internal/ir"
)

// marshalValue converts a value to canonical JSON TEXT.
func marshalValue(v ir.Value) (string, error) {
	if v == nil {
		v = ir.Null{}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// marshalComputed stores a nil computed value as SQL NULL.
func marshalComputed(v ir.Value) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	s, err := marshalValue(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func unmarshalComputed(ns sql.NullString) (ir.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	v, err := ir.UnmarshalValue([]byte(ns.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal computed value: %w", err)
	}
	if ir.IsNull(v) {
		return nil, nil
	}
	return v, nil
}

func marshalContributions(c ir.Contributions) (string, error) {
	obj := ir.Object(c)
	if obj == nil {
		obj = ir.Object{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal contributions: %w", err)
	}
	return string(data), nil
}

func unmarshalContributions(data string) (ir.Contributions, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal contributions: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal contributions: expected object, got %s", ir.TypeName(v))
	}
	return ir.Contributions(obj), nil
}

// marshalInputs stores an input map as {label: {source_id, text, value}}.
func marshalInputs(inputs ir.InputMap) (string, error) {
	obj := make(ir.Object, len(inputs))
	for label, in := range inputs {
		v := in.Value
		if v == nil {
			v = ir.Null{}
		}
		obj[label] = ir.Object{
			"source_id": ir.String(in.SourceID),
			"text":      ir.String(in.Text),
			"value":     v,
		}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal inputs: %w", err)
	}
	return string(data), nil
}

func unmarshalInputs(data string) (ir.InputMap, error) {
	inputs := make(ir.InputMap)
	if data == "" || data == "{}" {
		return inputs, nil
	}
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal inputs: expected object, got %s", ir.TypeName(v))
	}
	for label, raw := range obj {
		entry, ok := raw.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("unmarshal inputs: %s: expected object", label)
		}
		src, _ := entry["source_id"].(ir.String)
		text, _ := entry["text"].(ir.String)
		inputs[label] = ir.Input{
			Value:    entry["value"],
			Text:     string(text),
			SourceID: string(src),
		}
	}
	return inputs, nil
}
