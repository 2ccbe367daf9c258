// Package testutil provides deterministic test doubles for the batch
// orchestrator's collaborators: a manually stepped wall clock, a fixed
// invocation token generator and an in-memory item store.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is a wall clock that only moves when a test advances it.
//
// The orchestrator enforces its time budget by reading the clock between
// chunks, so stepping the clock from a chunk-event callback simulates slow
// chunks and forced interruptions exactly.
//
// Thread-safety: all methods are safe for concurrent use via an internal
// mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at the given instant.
func NewManualClock(at time.Time) *ManualClock {
	return &ManualClock{now: at}
}

// Now returns the current frozen instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to an absolute instant.
func (c *ManualClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

// FixedTokens returns predetermined invocation tokens in order, enabling
// deterministic log and golden-file comparison.
//
// Panics when exhausted - a test consuming more tokens than it declared is
// a test bug, and failing fast beats a silently reused token.
type FixedTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokens creates a generator that returns tokens in order.
//
// Example:
//
//	gen := testutil.NewFixedTokens("inv-1", "inv-2")
//	gen.Generate() // "inv-1"
//	gen.Generate() // "inv-2"
//	gen.Generate() // panic
func NewFixedTokens(tokens ...string) *FixedTokens {
	return &FixedTokens{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("testutil: fixed tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
