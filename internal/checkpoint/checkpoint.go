// Package checkpoint provides the expiring key-value storage used to
// persist batch operation state between invocations.
//
// Two logical keys exist per operation: a short-TTL progress snapshot for
// cheap polling and a long-TTL full resume state. The orchestrator keeps
// both consistent after every chunk. Implementations only need last-write-
// wins semantics per key; duplicate resumes are idempotent at the item
// level, so true mutual exclusion is not required.
package checkpoint

import (
	"context"
	"time"
)

// Store is durable key-value storage with per-key expiry.
//
// Get returns found=false both for keys never written and for keys whose
// TTL has elapsed; callers cannot and must not distinguish the two.
type Store interface {
	// Put stores value under key with the given TTL. A ttl of zero means
	// no expiry (implementation permitting).
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves the value for key. found is false when missing/expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key namespace for batch availability operations. Versioned so that a
// layout change cannot misread old checkpoints.
const keyPrefix = "bulkavail:v1:"

// StateKey returns the full-resume-state key for an operation.
func StateKey(operationID string) string {
	return keyPrefix + "op:" + operationID + ":state"
}

// ProgressKey returns the polling-snapshot key for an operation.
func ProgressKey(operationID string) string {
	return keyPrefix + "op:" + operationID + ":progress"
}
