package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// RunWithGolden executes a scenario and compares its snapshot against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot, err := availability.MarshalCanonical(snapshotMap(scenario.Name, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
	return nil
}

// snapshotMap flattens a scenario result into canonical-marshalable values.
// Elapsed times are whole seconds; the manual clock guarantees exactness.
func snapshotMap(name string, result *Result) map[string]any {
	invocations := make([]any, len(result.Invocations))
	for i, inv := range result.Invocations {
		invocations[i] = invocationMap(inv)
	}

	final := make(map[string]any, len(result.Final))
	for id, record := range result.Final {
		final[id] = recordMap(record)
	}

	return map[string]any{
		"scenario":    name,
		"invocations": invocations,
		"final":       final,
	}
}

func invocationMap(r *batch.Result) map[string]any {
	m := map[string]any{
		"state":           string(r.State),
		"processed":       r.SuccessCount,
		"unchanged":       r.UnchangedCount,
		"failed":          r.FailedCount,
		"chunks":          r.ChunkCount,
		"is_resume":       r.IsResume,
		"elapsed_seconds": int(r.ProcessingTime),
	}
	if len(r.Errors) > 0 {
		errors := make([]any, len(r.Errors))
		for i, failure := range r.Errors {
			errors[i] = map[string]any{
				"item_id": failure.ItemID,
				"message": failure.Message,
			}
		}
		m["errors"] = errors
	}
	if len(r.Warnings) > 0 {
		m["warnings"] = stringsToAny(r.Warnings)
	}
	return m
}

func recordMap(record availability.Record) map[string]any {
	m := map[string]any{}
	if record.StartDate != nil {
		m["start_date"] = record.StartDate.String()
	}
	if record.EndDate != nil {
		m["end_date"] = record.EndDate.String()
	}
	if len(record.Weekdays) > 0 {
		m["weekdays"] = stringsToAny(availability.WeekdayTokens(record.Weekdays))
	}
	if len(record.SpecificDates) > 0 {
		m["specific_dates"] = datesToAny(record.SpecificDates)
	}
	if len(record.ExclusionDates) > 0 {
		m["exclusion_dates"] = datesToAny(record.ExclusionDates)
	}
	return m
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func datesToAny(in []availability.Date) []any {
	out := make([]any, len(in))
	for i, d := range in {
		out[i] = d.String()
	}
	return out
}
