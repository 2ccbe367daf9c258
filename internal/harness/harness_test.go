package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// TestRun_CompletesSimpleScenario tests the runner end to end without
// golden files.
func TestRun_CompletesSimpleScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "inline",
		Description: "bounds applied to two fresh items",
		Targets:     []string{"tour-1", "tour-2"},
		Change: ChangeSpec{
			StartDate: "2026-03-01",
			EndDate:   "2026-08-31",
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Invocations, 1)

	inv := result.Invocations[0]
	assert.Equal(t, batch.StateCompleted, inv.State)
	assert.Equal(t, 2, inv.SuccessCount)

	record := result.Final["tour-1"]
	require.NotNil(t, record.StartDate)
	assert.Equal(t, "2026-03-01", record.StartDate.String())
	require.NotNil(t, record.EndDate)
	assert.Equal(t, "2026-08-31", record.EndDate.String())
}

// TestRun_InterruptionAndResume tests that slow chunks trigger the budget
// and the resume loop finishes the operation.
func TestRun_InterruptionAndResume(t *testing.T) {
	scenario := &Scenario{
		Name:          "inline-interrupt",
		Description:   "budget forces a second invocation",
		Targets:       []string{"a", "b", "c", "d", "e", "f"},
		Change:        ChangeSpec{Weekdays: []string{"mon"}},
		ChunkSize:     2,
		BudgetSeconds: 10,
		ChunkSeconds:  6,
		Resume:        true,
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Invocations, 2)
	assert.Equal(t, batch.StateInterrupted, result.Invocations[0].State)
	assert.Equal(t, batch.StateCompleted, result.Invocations[1].State)
	assert.True(t, result.Invocations[1].IsResume)
	assert.Len(t, result.Final, 6)
}

// TestRun_WithoutResumeStopsInterrupted tests that resume: false leaves the
// operation interrupted.
func TestRun_WithoutResumeStopsInterrupted(t *testing.T) {
	scenario := &Scenario{
		Name:          "inline-no-resume",
		Description:   "interruption without auto resume",
		Targets:       []string{"a", "b", "c", "d"},
		Change:        ChangeSpec{Weekdays: []string{"mon"}},
		ChunkSize:     1,
		BudgetSeconds: 5,
		ChunkSeconds:  10,
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Invocations, 1)
	assert.Equal(t, batch.StateInterrupted, result.Invocations[0].State)
}

// TestRun_InvalidChangeSurfacesError tests that pre-flight rejections reach
// the caller as errors rather than snapshots.
func TestRun_InvalidChangeSurfacesError(t *testing.T) {
	scenario := &Scenario{
		Name:        "inline-invalid",
		Description: "reset combined with weekdays",
		Targets:     []string{"a"},
		Change:      ChangeSpec{Reset: true, Weekdays: []string{"mon"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Equal(t, batch.ErrCodeValidationFailed, batch.CodeOf(err))
}

// TestScenarioEpochIsFixed guards the determinism anchor golden files
// depend on.
func TestScenarioEpochIsFixed(t *testing.T) {
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), scenarioEpoch)
}
