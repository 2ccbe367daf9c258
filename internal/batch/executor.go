package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

// ItemStore is the orchestrator's view of the catalog item persistence.
//
// GetAvailability returns the lazily-created empty record when the item
// exists but has no availability rules yet, and an error wrapping
// availability.ErrItemNotFound when the item itself no longer exists (a
// distinct, non-retryable condition).
type ItemStore interface {
	GetAvailability(ctx context.Context, itemID string) (availability.Record, error)
	SaveAvailability(ctx context.Context, record availability.Record) error

	// InvalidateCache signals item-level cache invalidation after a write.
	InvalidateCache(itemID string)
}

// Executor applies one merged change to one item. It is a thin I/O wrapper
// around the rule-merge engine and the item store; classification of errors
// (per-item failure vs operation abort) is the orchestrator's job.
type Executor struct {
	items  ItemStore
	logger *slog.Logger
}

// NewExecutor creates an executor over the given item store.
// A nil logger defaults to slog.Default().
func NewExecutor(items ItemStore, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{items: items, logger: logger}
}

// Apply fetches the item's current record, merges the change into it and
// persists the result.
//
// Returns applied=false with a nil error when the merge produces no
// observable difference from the stored record - a no-op, not a failure.
// Skipping the write keeps audit trails quiet for items already in the
// target state and makes repeated applications idempotent.
//
// Every error is returned with the item ID attached.
func (e *Executor) Apply(ctx context.Context, itemID string, change availability.ChangeSet) (applied bool, conflicts []availability.Conflict, err error) {
	existing, err := e.items.GetAvailability(ctx, itemID)
	if err != nil {
		return false, nil, fmt.Errorf("item %s: fetch availability: %w", itemID, err)
	}

	merged, conflicts, err := availability.Merge(existing, change)
	if err != nil {
		return false, nil, fmt.Errorf("item %s: %w", itemID, err)
	}

	if merged.Equal(existing) {
		e.logger.Debug("no effective change, skipping write", "item_id", itemID)
		return false, conflicts, nil
	}

	if err := e.items.SaveAvailability(ctx, merged); err != nil {
		return false, nil, fmt.Errorf("item %s: save availability: %w", itemID, err)
	}
	e.items.InvalidateCache(itemID)
	e.logger.Debug("availability updated", "item_id", itemID)
	return true, conflicts, nil
}
