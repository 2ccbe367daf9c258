package batch

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock reads so the orchestrator's time-budget
// accounting is testable. The orchestrator measures elapsed time itself and
// voluntarily stops before the next chunk; nothing preempts it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// TokenGenerator generates unique invocation tokens for log and event
// correlation. Each call to Start/Resume gets one token; a multi-invocation
// operation therefore carries one operation ID and several tokens.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 invocation tokens.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
