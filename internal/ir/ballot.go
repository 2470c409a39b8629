package ir

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Ballot is a rank contribution: items voted up and items voted down.
type Ballot struct {
	Up   []string `mapstructure:"up" json:"up"`
	Down []string `mapstructure:"down" json:"down"`
}

// Value encodes the ballot as Object{"up": List, "down": List}.
func (b Ballot) Value() Object {
	up := make(List, len(b.Up))
	for i, item := range b.Up {
		up[i] = String(item)
	}
	down := make(List, len(b.Down))
	for i, item := range b.Down {
		down[i] = String(item)
	}
	return Object{"up": up, "down": down}
}

// DecodeBallot decodes a ballot from a Value or from plain decoded data
// (map[string]any from JSON, YAML or CUE). Missing lists decode as empty.
func DecodeBallot(raw any) (Ballot, error) {
	if v, ok := raw.(Value); ok {
		raw = ToAny(v)
	}
	if raw == nil {
		return Ballot{}, fmt.Errorf("ballot is null")
	}

	var b Ballot
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &b,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Ballot{}, fmt.Errorf("create ballot decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Ballot{}, fmt.Errorf("decode ballot: %w", err)
	}
	return b, nil
}
