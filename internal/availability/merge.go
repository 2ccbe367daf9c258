package availability

import "fmt"

// Validation rule identifiers. A ValidationError always names the specific
// rule it violated so callers can surface it verbatim instead of a generic
// "invalid input".
const (
	RuleResetExclusive  = "reset_exclusive"
	RuleBoundsOrder     = "bounds_order"
	RuleDateOutOfRange  = "date_out_of_range"
	RuleDateOverlap     = "date_overlap"
	RuleNoAvailableDays = "no_available_days"
)

// ValidationError reports a change-set or merge-rule violation. The merge
// that produced it was not applied: validation never partially applies.
type ValidationError struct {
	Rule    string // one of the Rule* constants
	Message string
	Date    Date // offending date, when the rule concerns one
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

// Conflict kinds for soft warnings surfaced alongside a successful merge.
const (
	ConflictExcludedWins = "excluded_wins"
)

// Conflict is a non-fatal warning produced by Merge. The merge succeeded,
// but the operator should know how an ambiguity was resolved.
type Conflict struct {
	Kind    string `json:"kind"`
	Date    Date   `json:"date"`
	Message string `json:"message"`
}

// Merge combines a partial change set with an item's existing record.
//
// Per-field semantics:
//   - bounds are replaced only when present in the change, otherwise kept;
//   - a non-empty weekday set replaces the existing one entirely;
//   - specific and exclusion dates are unioned in, deduplicated and sorted;
//   - Reset short-circuits everything and returns the all-empty record.
//
// A date the change would leave in both the specific and exclusion sets is
// resolved exclusions-win and reported as a Conflict - the policy is
// explicit, never silent. After resolution the result is validated against
// the cross-field invariants; any violation returns a *ValidationError and
// the existing record is untouched.
func Merge(existing Record, change ChangeSet) (Record, []Conflict, error) {
	if err := change.Validate(); err != nil {
		return Record{}, nil, err
	}
	if change.Reset {
		return EmptyRecord(existing.ItemID), nil, nil
	}

	merged := existing.Clone()
	if change.StartDate != nil {
		d := *change.StartDate
		merged.StartDate = &d
	}
	if change.EndDate != nil {
		d := *change.EndDate
		merged.EndDate = &d
	}
	if len(change.Weekdays) > 0 {
		merged.Weekdays = NormalizeWeekdays(change.Weekdays)
	}
	if len(change.SpecificDates) > 0 {
		merged.SpecificDates = DedupeDates(append(merged.SpecificDates, change.SpecificDates...))
	}
	if len(change.ExclusionDates) > 0 {
		merged.ExclusionDates = DedupeDates(append(merged.ExclusionDates, change.ExclusionDates...))
	}

	var conflicts []Conflict
	if overlap := IntersectDates(merged.SpecificDates, merged.ExclusionDates); len(overlap) > 0 {
		kept := merged.SpecificDates[:0]
		for _, d := range merged.SpecificDates {
			if ContainsDate(overlap, d) {
				conflicts = append(conflicts, Conflict{
					Kind:    ConflictExcludedWins,
					Date:    d,
					Message: fmt.Sprintf("date %s is both whitelisted and blacklisted; the exclusion wins", d),
				})
				continue
			}
			kept = append(kept, d)
		}
		if len(kept) == 0 {
			merged.SpecificDates = nil
		} else {
			merged.SpecificDates = kept
		}
	}

	if err := validateMerged(merged); err != nil {
		return Record{}, nil, err
	}
	return merged, conflicts, nil
}

// validateMerged enforces the post-merge invariants on the full result.
func validateMerged(r Record) error {
	// Rule 1: no date both whitelisted and blacklisted. Merge resolves
	// change-introduced overlaps above, so a hit here means corrupted
	// stored state.
	if overlap := IntersectDates(r.SpecificDates, r.ExclusionDates); len(overlap) > 0 {
		return &ValidationError{
			Rule:    RuleDateOverlap,
			Message: "date " + overlap[0].String() + " is both whitelisted and blacklisted",
			Date:    overlap[0],
		}
	}

	// Rule 2: ordered bounds.
	if r.Bounded() && r.StartDate.After(*r.EndDate) {
		return &ValidationError{
			Rule:    RuleBoundsOrder,
			Message: "start date " + r.StartDate.String() + " is after end date " + r.EndDate.String(),
		}
	}

	// Rule 3: listed dates inside the bounds.
	if r.Bounded() {
		for _, d := range r.SpecificDates {
			if !r.InBounds(d) {
				return &ValidationError{
					Rule:    RuleDateOutOfRange,
					Message: "specific date " + d.String() + " is outside the availability range",
					Date:    d,
				}
			}
		}
		for _, d := range r.ExclusionDates {
			if !r.InBounds(d) {
				return &ValidationError{
					Rule:    RuleDateOutOfRange,
					Message: "exclusion date " + d.String() + " is outside the availability range",
					Date:    d,
				}
			}
		}
	}

	// Rule 4: at least one selected weekday occurs inside the bounds.
	// A rule set producing zero available days is a configuration error,
	// rejected rather than silently accepted. Any range of 7+ days contains
	// every weekday, so only short ranges need a scan.
	if r.Bounded() && len(r.Weekdays) > 0 {
		span := r.StartDate.DaysUntil(*r.EndDate)
		if span < 6 {
			hit := false
			for d := *r.StartDate; !d.After(*r.EndDate); d = d.AddDays(1) {
				if ContainsWeekday(r.Weekdays, d.Weekday()) {
					hit = true
					break
				}
			}
			if !hit {
				return &ValidationError{
					Rule:    RuleNoAvailableDays,
					Message: "no selected weekday falls within the availability range",
				}
			}
		}
	}
	return nil
}
