package testutil

import (
	"strconv"
	"sync"
)

// DefaultWavePrefix is used when NewWaveGenerator gets an empty prefix.
const DefaultWavePrefix = "wave"

// WaveGenerator hands out numbered wave tokens: wave-1, wave-2, ...
//
// Unlike engine.FixedGenerator it never runs out, so scenarios do not have
// to predict how many waves they open. It satisfies
// engine.WaveTokenGenerator and is safe for concurrent use.
type WaveGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewWaveGenerator creates a generator whose tokens start with prefix.
func NewWaveGenerator(prefix string) *WaveGenerator {
	if prefix == "" {
		prefix = DefaultWavePrefix
	}
	return &WaveGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *WaveGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}

// Issued returns how many tokens have been generated.
func (g *WaveGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
