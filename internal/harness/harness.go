package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
	"github.com/smartdev1/tours-bulk-editor/internal/batch"
	"github.com/smartdev1/tours-bulk-editor/internal/checkpoint"
	"github.com/smartdev1/tours-bulk-editor/internal/testutil"
)

// scenarioEpoch is the frozen wall clock every scenario starts at. Fixing
// it keeps derived operation IDs and elapsed times identical across runs.
var scenarioEpoch = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

// maxInvocations bounds the resume loop; a scenario needing more
// invocations than this is a scenario bug.
const maxInvocations = 10

// Result captures everything a scenario produced.
type Result struct {
	// Invocations holds one entry per orchestrator invocation, in order:
	// the initial start plus each resume.
	Invocations []*batch.Result

	// Final maps each non-missing target ID to its record after the run.
	Final map[string]availability.Record
}

// Run executes a scenario against the real orchestrator with deterministic
// collaborators: an in-memory catalog, in-memory checkpoints and a manual
// clock stepped by the configured per-chunk cost.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	change, err := scenario.Change.toChangeSet()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	items := testutil.NewItemStore()
	for _, seed := range scenario.Items {
		record, err := seed.toRecord()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		items.Seed(record)
	}
	for _, id := range scenario.Missing {
		items.MarkMissing(id)
	}

	clock := testutil.NewManualClock(scenarioEpoch)
	checkpoints := checkpoint.NewMemoryAt(clock.Now)

	orch := batch.New(items, checkpoints,
		batch.WithConfig(batch.Config{
			ChunkSize:  scenario.ChunkSize,
			TimeBudget: time.Duration(scenario.BudgetSeconds) * time.Second,
		}),
		batch.WithClock(clock),
		batch.WithEventSink(&clockStepSink{
			clock: clock,
			step:  time.Duration(scenario.ChunkSeconds) * time.Second,
		}),
		batch.WithLogger(slog.New(slog.DiscardHandler)),
	)

	operationID := scenario.OperationID
	if operationID == "" {
		operationID = scenario.Name
	}

	result, err := orch.Start(ctx, batch.StartRequest{
		ItemIDs:     scenario.Targets,
		Change:      change,
		OperationID: operationID,
		User:        scenario.User,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: start: %w", scenario.Name, err)
	}
	out := &Result{Invocations: []*batch.Result{result}}

	for scenario.Resume && !result.IsComplete {
		if len(out.Invocations) >= maxInvocations {
			return nil, fmt.Errorf("scenario %s: no completion after %d invocations", scenario.Name, maxInvocations)
		}
		result, err = orch.Resume(ctx, operationID)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: resume: %w", scenario.Name, err)
		}
		out.Invocations = append(out.Invocations, result)
	}

	out.Final = make(map[string]availability.Record)
	for _, id := range scenario.Targets {
		record, err := items.GetAvailability(ctx, id)
		if err != nil {
			// Missing items have no final record.
			continue
		}
		out.Final[id] = record
	}
	return out, nil
}

// clockStepSink advances the manual clock after every chunk, simulating
// chunks that take wall-clock time.
type clockStepSink struct {
	clock *testutil.ManualClock
	step  time.Duration
}

func (s *clockStepSink) ChunkCompleted(batch.ChunkEvent) {
	s.clock.Advance(s.step)
}
