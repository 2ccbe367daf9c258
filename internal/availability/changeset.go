package availability

import "time"

// ChangeSet is an operator's partial availability update, shared by every
// item in a batch operation.
//
// Field absence is semantically "leave unchanged", not "clear":
//   - StartDate/EndDate: nil means keep the existing bound.
//   - Weekdays: empty means keep; non-empty REPLACES the existing set
//     entirely (deliberate asymmetry from the date lists).
//   - SpecificDates/ExclusionDates: empty means keep; non-empty is UNIONED
//     into the existing set, never replacing.
//   - Reset: mutually exclusive with all other fields; when true the merge
//     result is the all-empty record regardless of current state.
//
// A ChangeSet must have passed field-level normalization before reaching
// Merge: dates parsed to Date, weekday tokens resolved to time.Weekday.
// The cli loader performs that normalization.
type ChangeSet struct {
	StartDate      *Date          `json:"start_date,omitempty"`
	EndDate        *Date          `json:"end_date,omitempty"`
	Weekdays       []time.Weekday `json:"weekdays,omitempty"`
	SpecificDates  []Date         `json:"specific_dates,omitempty"`
	ExclusionDates []Date         `json:"exclusion_dates,omitempty"`
	Reset          bool           `json:"reset,omitempty"`
}

// IsEmpty reports whether the change set would leave every record unchanged:
// all fields absent and Reset false. Batch operations reject empty change
// sets up front.
func (c ChangeSet) IsEmpty() bool {
	return !c.Reset && !c.hasFields()
}

func (c ChangeSet) hasFields() bool {
	return c.StartDate != nil || c.EndDate != nil ||
		len(c.Weekdays) > 0 || len(c.SpecificDates) > 0 || len(c.ExclusionDates) > 0
}

// Validate checks the rules that can be decided from the change set alone,
// before any item is touched:
//
//  1. Reset is mutually exclusive with every other field.
//  2. If the change carries both bounds, StartDate <= EndDate.
//  3. If the change carries both bounds, every date it adds lies inside them.
//  4. The change's own specific and exclusion dates must not overlap.
//
// Rules that depend on the existing record (e.g. a new exclusion date
// against existing bounds) are enforced per item by Merge.
func (c ChangeSet) Validate() error {
	if c.Reset && c.hasFields() {
		return &ValidationError{
			Rule:    RuleResetExclusive,
			Message: "reset cannot be combined with other change fields",
		}
	}
	if c.StartDate != nil && c.EndDate != nil {
		if c.StartDate.After(*c.EndDate) {
			return &ValidationError{
				Rule:    RuleBoundsOrder,
				Message: "start date " + c.StartDate.String() + " is after end date " + c.EndDate.String(),
			}
		}
		for _, d := range append(append([]Date(nil), c.SpecificDates...), c.ExclusionDates...) {
			if d.Before(*c.StartDate) || d.After(*c.EndDate) {
				return &ValidationError{
					Rule:    RuleDateOutOfRange,
					Message: "date " + d.String() + " is outside the requested range",
					Date:    d,
				}
			}
		}
	}
	if overlap := IntersectDates(c.SpecificDates, c.ExclusionDates); len(overlap) > 0 {
		return &ValidationError{
			Rule:    RuleDateOverlap,
			Message: "date " + overlap[0].String() + " is both whitelisted and blacklisted in the change set",
			Date:    overlap[0],
		}
	}
	return nil
}

// Normalize returns a copy with sorted, deduplicated date lists and
// weekdays. Loader output is already normalized; this exists for callers
// constructing change sets programmatically.
func (c ChangeSet) Normalize() ChangeSet {
	out := c
	out.Weekdays = NormalizeWeekdays(c.Weekdays)
	out.SpecificDates = DedupeDates(c.SpecificDates)
	out.ExclusionDates = DedupeDates(c.ExclusionDates)
	return out
}
