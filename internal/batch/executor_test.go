package batch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
	"github.com/smartdev1/tours-bulk-editor/internal/batch"
	"github.com/smartdev1/tours-bulk-editor/internal/testutil"
)

func weekdayChange(days ...time.Weekday) availability.ChangeSet {
	return availability.ChangeSet{Weekdays: days}
}

// TestExecutor_AppliesChange tests the fetch-merge-persist path including
// cache invalidation.
func TestExecutor_AppliesChange(t *testing.T) {
	ctx := context.Background()
	items := testutil.NewItemStore()
	exec := batch.NewExecutor(items, nil)

	applied, conflicts, err := exec.Apply(ctx, "tour-1", weekdayChange(time.Monday))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Empty(t, conflicts)

	record, ok := items.Record("tour-1")
	require.True(t, ok)
	assert.Equal(t, []time.Weekday{time.Monday}, record.Weekdays)
	assert.Equal(t, []string{"tour-1"}, items.Invalidations())
}

// TestExecutor_NoOpSkipsWrite tests that an item already in the target
// state is not rewritten: applied=false, nil error, no save, no cache
// invalidation.
func TestExecutor_NoOpSkipsWrite(t *testing.T) {
	ctx := context.Background()
	items := testutil.NewItemStore()
	exec := batch.NewExecutor(items, nil)

	_, _, err := exec.Apply(ctx, "tour-1", weekdayChange(time.Monday))
	require.NoError(t, err)
	savesAfterFirst := items.SaveCount()

	applied, _, err := exec.Apply(ctx, "tour-1", weekdayChange(time.Monday))
	require.NoError(t, err)
	assert.False(t, applied, "second application is a no-op")
	assert.Equal(t, savesAfterFirst, items.SaveCount())
	assert.Equal(t, []string{"tour-1"}, items.Invalidations(), "no second invalidation")
}

// TestExecutor_MissingItem tests that a deleted catalog item surfaces the
// non-retryable sentinel with the item ID attached.
func TestExecutor_MissingItem(t *testing.T) {
	ctx := context.Background()
	items := testutil.NewItemStore()
	items.MarkMissing("tour-gone")
	exec := batch.NewExecutor(items, nil)

	_, _, err := exec.Apply(ctx, "tour-gone", weekdayChange(time.Monday))
	require.Error(t, err)
	assert.True(t, errors.Is(err, availability.ErrItemNotFound))
	assert.Contains(t, err.Error(), "tour-gone")
}

// TestExecutor_MergeValidationFailure tests that a per-item merge rejection
// carries the item ID and the violated rule.
func TestExecutor_MergeValidationFailure(t *testing.T) {
	ctx := context.Background()
	items := testutil.NewItemStore()
	start := availability.MustParseDate("2026-03-01")
	end := availability.MustParseDate("2026-08-31")
	items.Seed(availability.Record{ItemID: "tour-1", StartDate: &start, EndDate: &end})
	exec := batch.NewExecutor(items, nil)

	_, _, err := exec.Apply(ctx, "tour-1", availability.ChangeSet{
		ExclusionDates: []availability.Date{availability.MustParseDate("2027-01-01")},
	})
	require.Error(t, err)

	var verr *availability.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, availability.RuleDateOutOfRange, verr.Rule)
	assert.Contains(t, err.Error(), "tour-1")
}

// TestExecutor_SaveFailure tests persist error propagation.
func TestExecutor_SaveFailure(t *testing.T) {
	ctx := context.Background()
	items := testutil.NewItemStore()
	items.FailSave("tour-1", errors.New("disk full"))
	exec := batch.NewExecutor(items, nil)

	_, _, err := exec.Apply(ctx, "tour-1", weekdayChange(time.Monday))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, items.Invalidations(), "no invalidation on failed save")
}

// TestExecutor_SurfacesConflicts tests that merge conflicts reach the
// caller on a successful apply.
func TestExecutor_SurfacesConflicts(t *testing.T) {
	ctx := context.Background()
	items := testutil.NewItemStore()
	items.Seed(availability.Record{
		ItemID:        "tour-1",
		SpecificDates: []availability.Date{availability.MustParseDate("2026-06-15")},
	})
	exec := batch.NewExecutor(items, nil)

	applied, conflicts, err := exec.Apply(ctx, "tour-1", availability.ChangeSet{
		ExclusionDates: []availability.Date{availability.MustParseDate("2026-06-15")},
	})
	require.NoError(t, err)
	assert.True(t, applied)
	require.Len(t, conflicts, 1)
	assert.Equal(t, availability.ConflictExcludedWins, conflicts[0].Kind)
}
