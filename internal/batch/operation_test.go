package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

func testOperation() *Operation {
	return &Operation{
		OperationID: "op-1",
		AllItemIDs:  []string{"a", "b", "c", "d"},
		Change:      availability.ChangeSet{Reset: true},
		StartedAt:   time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}
}

// TestOperation_Remaining tests order-preserving remainder computation.
func TestOperation_Remaining(t *testing.T) {
	op := testOperation()
	assert.Equal(t, []string{"a", "b", "c", "d"}, op.Remaining())

	op.RecordSuccess("b")
	op.RecordFailure("d", "boom")
	assert.Equal(t, []string{"a", "c"}, op.Remaining())

	op.RecordSuccess("a")
	op.RecordSuccess("c")
	assert.Empty(t, op.Remaining())
}

// TestOperation_EncodeDecodeRoundTrip tests checkpoint serialization.
func TestOperation_EncodeDecodeRoundTrip(t *testing.T) {
	op := testOperation()
	op.RecordSuccess("a")
	op.RecordFailure("b", "item not found")
	op.UnchangedCount = 1
	op.CurrentChunkIndex = 2
	op.LastCheckpointAt = op.StartedAt.Add(5 * time.Second)

	data, err := op.Encode()
	require.NoError(t, err)

	back, err := DecodeOperation(data)
	require.NoError(t, err)
	assert.Equal(t, op.OperationID, back.OperationID)
	assert.Equal(t, op.AllItemIDs, back.AllItemIDs)
	assert.Equal(t, op.ProcessedIDs, back.ProcessedIDs)
	assert.Equal(t, op.Failures, back.Failures)
	assert.Equal(t, op.UnchangedCount, back.UnchangedCount)
	assert.Equal(t, op.CurrentChunkIndex, back.CurrentChunkIndex)
	assert.True(t, op.StartedAt.Equal(back.StartedAt))
	assert.Equal(t, []string{"c", "d"}, back.Remaining())
}

// TestDecodeOperation_MissingFields tests that checkpoints lacking required
// fields are rejected rather than resumed blindly.
func TestDecodeOperation_MissingFields(t *testing.T) {
	cases := map[string]string{
		"not json":          `{`,
		"no operation id":   `{"all_item_ids":["a"],"started_at":"2026-08-23T12:00:00Z","change":{"reset":true}}`,
		"no item ids":       `{"operation_id":"op-1","started_at":"2026-08-23T12:00:00Z","change":{"reset":true}}`,
		"no started_at":     `{"operation_id":"op-1","all_item_ids":["a"],"change":{"reset":true}}`,
		"empty change set":  `{"operation_id":"op-1","all_item_ids":["a"],"started_at":"2026-08-23T12:00:00Z","change":{}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeOperation([]byte(raw))
			assert.Error(t, err)
		})
	}
}

// TestOperation_Expired tests the retention window check.
func TestOperation_Expired(t *testing.T) {
	op := testOperation()
	retention := 24 * time.Hour

	assert.False(t, op.Expired(op.StartedAt.Add(23*time.Hour), retention))
	assert.True(t, op.Expired(op.StartedAt.Add(25*time.Hour), retention))
}

// TestSnapshotProgress tests percent and remaining-time computation,
// including the undefined-until-first-item rule.
func TestSnapshotProgress(t *testing.T) {
	op := testOperation()

	// Nothing processed yet: estimate stays zero.
	p := snapshotProgress(op, StateRunning, op.StartedAt.Add(2*time.Second))
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 4, p.Remaining)
	assert.Zero(t, p.EstimatedSecondsRemaining)

	op.RecordSuccess("a")
	op.RecordFailure("b", "boom")
	p = snapshotProgress(op, StateRunning, op.StartedAt.Add(4*time.Second))
	assert.Equal(t, 1, p.Processed)
	assert.Equal(t, 1, p.Failed)
	assert.Equal(t, 2, p.Remaining)
	assert.InDelta(t, 50.0, p.PercentComplete, 0.001)
	// 4s elapsed for 2 done -> 2s/item -> 4s for the remaining 2.
	assert.InDelta(t, 4.0, p.EstimatedSecondsRemaining, 0.001)

	op.RecordSuccess("c")
	op.RecordSuccess("d")
	p = snapshotProgress(op, StateCompleted, op.StartedAt.Add(8*time.Second))
	assert.Equal(t, StateCompleted, p.Status)
	assert.Zero(t, p.Remaining)
	assert.Zero(t, p.EstimatedSecondsRemaining)
	assert.InDelta(t, 100.0, p.PercentComplete, 0.001)
}

// TestErrorHelpers tests code extraction through wrapping.
func TestErrorHelpers(t *testing.T) {
	err := newError(ErrCodeCannotResume, "gone")
	assert.True(t, IsCannotResume(err))
	assert.False(t, IsStorageFailure(err))
	assert.Equal(t, ErrCodeCannotResume, CodeOf(err))

	wrapped := wrapStorageError("op-1", 7, assert.AnError)
	assert.True(t, IsStorageFailure(wrapped))
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Contains(t, wrapped.Error(), "op-1")
	assert.Equal(t, 7, wrapped.Processed)

	assert.Equal(t, ErrorCode(""), CodeOf(assert.AnError))
	assert.True(t, IsValidation(newError(ErrCodeEmptyChangeSet, "")))
	assert.True(t, IsValidation(newError(ErrCodeTooManyItems, "")))
	assert.False(t, IsValidation(wrapped))
}
