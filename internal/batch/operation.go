package batch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

// State is the lifecycle state of a batch operation.
type State string

const (
	StateCreated     State = "created"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateInterrupted State = "interrupted" // resumable
	StateCancelled   State = "cancelled"
	StateFailed      State = "failed" // non-resumable within this invocation
)

// ItemFailure records one item that could not be updated, with the reason.
type ItemFailure struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

// Operation is the resumable unit of work: the full item set, the immutable
// change set being applied, and monotonically accumulating progress. It is
// what gets checkpointed after every chunk.
//
// An item ID appears in at most one of ProcessedIDs and Failures. The
// remaining set is always recomputed from those, never stored redundantly.
type Operation struct {
	OperationID       string                 `json:"operation_id"`
	User              string                 `json:"user,omitempty"`
	AllItemIDs        []string               `json:"all_item_ids"`
	ProcessedIDs      []string               `json:"processed_ids,omitempty"`
	Failures          []ItemFailure          `json:"failures,omitempty"`
	UnchangedCount    int                    `json:"unchanged_count,omitempty"`
	Change            availability.ChangeSet `json:"change"`
	StartedAt         time.Time              `json:"started_at"`
	LastCheckpointAt  time.Time              `json:"last_checkpoint_at"`
	CurrentChunkIndex int                    `json:"current_chunk_index"`
}

// Remaining returns the item IDs not yet processed or failed, in the
// original submission order.
func (op *Operation) Remaining() []string {
	done := make(map[string]bool, len(op.ProcessedIDs)+len(op.Failures))
	for _, id := range op.ProcessedIDs {
		done[id] = true
	}
	for _, f := range op.Failures {
		done[f.ItemID] = true
	}
	var out []string
	for _, id := range op.AllItemIDs {
		if !done[id] {
			out = append(out, id)
		}
	}
	return out
}

// RecordSuccess marks an item as processed.
func (op *Operation) RecordSuccess(itemID string) {
	op.ProcessedIDs = append(op.ProcessedIDs, itemID)
}

// RecordFailure marks an item as failed with the given reason.
func (op *Operation) RecordFailure(itemID, message string) {
	op.Failures = append(op.Failures, ItemFailure{ItemID: itemID, Message: message})
}

// Expired reports whether the operation has aged out of the retention
// window and is no longer resumable.
func (op *Operation) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(op.StartedAt) > retention
}

// Encode serializes the operation for checkpoint storage.
func (op *Operation) Encode() ([]byte, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("encode operation %s: %w", op.OperationID, err)
	}
	return data, nil
}

// DecodeOperation deserializes checkpoint bytes and validates that the
// fields required for a safe resume are present. A checkpoint missing any
// of them is treated as not resumable by the caller.
func DecodeOperation(data []byte) (*Operation, error) {
	var op Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("decode operation checkpoint: %w", err)
	}
	if op.OperationID == "" {
		return nil, fmt.Errorf("decode operation checkpoint: missing operation_id")
	}
	if len(op.AllItemIDs) == 0 {
		return nil, fmt.Errorf("decode operation checkpoint: missing item ids")
	}
	if op.StartedAt.IsZero() {
		return nil, fmt.Errorf("decode operation checkpoint: missing started_at")
	}
	if op.Change.IsEmpty() {
		return nil, fmt.Errorf("decode operation checkpoint: missing change set")
	}
	return &op, nil
}

// Progress is the polling snapshot persisted to the short-TTL checkpoint
// key and returned by GetProgress. It is computed from checkpoint state
// without running any chunk.
type Progress struct {
	OperationID               string    `json:"operation_id"`
	Status                    State     `json:"status"`
	Total                     int       `json:"total"`
	Processed                 int       `json:"processed"`
	Failed                    int       `json:"failed"`
	Remaining                 int       `json:"remaining"`
	PercentComplete           float64   `json:"percent_complete"`
	ElapsedSeconds            float64   `json:"elapsed_seconds"`
	EstimatedSecondsRemaining float64   `json:"estimated_seconds_remaining"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// snapshotProgress derives a Progress from the operation state at a given
// instant. The remaining-time estimate extrapolates the observed per-item
// rate and is zero until at least one item has been processed.
func snapshotProgress(op *Operation, status State, asOf time.Time) Progress {
	total := len(op.AllItemIDs)
	processed := len(op.ProcessedIDs)
	failed := len(op.Failures)
	remaining := total - processed - failed

	p := Progress{
		OperationID: op.OperationID,
		Status:      status,
		Total:       total,
		Processed:   processed,
		Failed:      failed,
		Remaining:   remaining,
		UpdatedAt:   asOf,
	}
	if total > 0 {
		p.PercentComplete = float64(processed+failed) / float64(total) * 100
	}
	elapsed := asOf.Sub(op.StartedAt)
	if elapsed > 0 {
		p.ElapsedSeconds = elapsed.Seconds()
	}
	done := processed + failed
	if done > 0 && remaining > 0 && p.ElapsedSeconds > 0 {
		p.EstimatedSecondsRemaining = p.ElapsedSeconds / float64(done) * float64(remaining)
	}
	return p
}

func encodeProgress(p Progress) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode progress %s: %w", p.OperationID, err)
	}
	return data, nil
}

func decodeProgress(data []byte) (*Progress, error) {
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode progress snapshot: %w", err)
	}
	return &p, nil
}
