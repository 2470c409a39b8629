package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OrionReed/ggraph/internal/engine"
)

var _ engine.WaveTokenGenerator = (*WaveGenerator)(nil)

func TestWaveGeneratorNumbersTokens(t *testing.T) {
	g := NewWaveGenerator("scn")

	assert.Equal(t, "scn-1", g.Generate())
	assert.Equal(t, "scn-2", g.Generate())
	assert.Equal(t, 2, g.Issued())
}

func TestWaveGeneratorDefaultPrefix(t *testing.T) {
	g := NewWaveGenerator("")

	assert.Equal(t, "wave-1", g.Generate())
}
