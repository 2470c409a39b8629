package engine

import "sync"

// CycleDetector remembers which nodes have been evaluated in each wave.
//
// A wave is the cascade started by one external change in eager mode. When
// node values feed back into each other (A reads B, B reads A), the cascade
// would never end; a node is therefore evaluated at most once per wave and a
// second visit is a cycle break.
//
// Cycle detection is per wave and in memory. The static check in
// graph.Cycles reports the same loops to the user ahead of time.
type CycleDetector struct {
	mu      sync.Mutex
	history map[string]map[string]bool // map[wave]map[node_id]bool
}

// NewCycleDetector creates a new cycle detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{
		history: make(map[string]map[string]bool),
	}
}

// WouldCycle reports whether nodeID was already evaluated in wave.
func (c *CycleDetector) WouldCycle(wave, nodeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.history[wave][nodeID]
}

// Record marks nodeID as evaluated in wave.
func (c *CycleDetector) Record(wave, nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[wave] == nil {
		c.history[wave] = make(map[string]bool)
	}
	c.history[wave][nodeID] = true
}

// Clear removes all history for a wave. Called when the wave finishes.
func (c *CycleDetector) Clear(wave string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.history, wave)
}

// HistorySize returns the number of waves with tracked history.
func (c *CycleDetector) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history)
}

// WaveHistorySize returns the number of nodes recorded for a wave.
func (c *CycleDetector) WaveHistorySize(wave string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history[wave])
}
