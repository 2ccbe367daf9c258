package availability

import "fmt"

// Diff is the result of previewing a change against an existing record over
// a bounded window of concrete dates.
type Diff struct {
	Added     []Date `json:"added"`     // newly available after the change
	Removed   []Date `json:"removed"`   // available before, not after
	Unchanged []Date `json:"unchanged"` // available both before and after
}

// Expand lists the concrete dates in [windowStart, windowEnd] on which the
// record makes the item available.
//
// Precedence, highest first: exclusion dates block unconditionally, specific
// dates allow unconditionally, then the bound range and weekday pattern
// apply. An empty rule set means available every day (the state of a
// lazily-created record).
//
// This is the single date-expansion path - Preview and production apply
// both go through it, so preview output cannot drift from applied behavior.
func Expand(r Record, windowStart, windowEnd Date) []Date {
	var out []Date
	for d := windowStart; !d.After(windowEnd); d = d.AddDays(1) {
		if ContainsDate(r.ExclusionDates, d) {
			continue
		}
		if ContainsDate(r.SpecificDates, d) {
			out = append(out, d)
			continue
		}
		if !r.InBounds(d) {
			continue
		}
		if len(r.Weekdays) > 0 && !ContainsWeekday(r.Weekdays, d.Weekday()) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Preview merges change into existing without persisting anything and diffs
// the concrete available dates over [windowStart, windowEnd].
//
// Merge validation applies exactly as it would on apply: a change that would
// be rejected in production is rejected in preview.
func Preview(existing Record, change ChangeSet, windowStart, windowEnd Date) (Diff, error) {
	if windowStart.IsZero() || windowEnd.IsZero() {
		return Diff{}, fmt.Errorf("preview window bounds must be set")
	}
	if windowEnd.Before(windowStart) {
		return Diff{}, fmt.Errorf("preview window end %s is before start %s", windowEnd, windowStart)
	}

	merged, _, err := Merge(existing, change)
	if err != nil {
		return Diff{}, err
	}

	before := Expand(existing, windowStart, windowEnd)
	after := Expand(merged, windowStart, windowEnd)

	var diff Diff
	for _, d := range after {
		if ContainsDate(before, d) {
			diff.Unchanged = append(diff.Unchanged, d)
		} else {
			diff.Added = append(diff.Added, d)
		}
	}
	for _, d := range before {
		if !ContainsDate(after, d) {
			diff.Removed = append(diff.Removed, d)
		}
	}
	return diff, nil
}
