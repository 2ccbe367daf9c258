package availability

import (
	"errors"
	"time"
)

// ErrItemNotFound is returned by item stores when the catalog item itself no
// longer exists. It is non-retryable: callers downgrade it to a per-item
// failure rather than aborting a batch.
var ErrItemNotFound = errors.New("item not found")

// Record is the persisted availability snapshot for one catalog item.
//
// Both bounds absent means the item is unbounded. Weekdays restrict the
// normally-available days inside the bounds. SpecificDates whitelist days
// regardless of the weekday rule; ExclusionDates blacklist days regardless
// of everything else.
//
// Records are mutated only through Merge, never by direct field assignment
// from external input. Date slices are kept sorted and deduplicated.
type Record struct {
	ItemID         string         `json:"item_id"`
	StartDate      *Date          `json:"start_date,omitempty"`
	EndDate        *Date          `json:"end_date,omitempty"`
	Weekdays       []time.Weekday `json:"weekdays,omitempty"`
	SpecificDates  []Date         `json:"specific_dates,omitempty"`
	ExclusionDates []Date         `json:"exclusion_dates,omitempty"`
}

// EmptyRecord returns the all-empty record for an item, the lazily-created
// state for items that have never had availability rules applied.
func EmptyRecord(itemID string) Record {
	return Record{ItemID: itemID}
}

// IsZero reports whether the record carries no rules at all.
// The ItemID is ignored: a freshly created empty record is zero.
func (r Record) IsZero() bool {
	return r.StartDate == nil && r.EndDate == nil &&
		len(r.Weekdays) == 0 && len(r.SpecificDates) == 0 && len(r.ExclusionDates) == 0
}

// Bounded reports whether both date bounds are set.
func (r Record) Bounded() bool {
	return r.StartDate != nil && r.EndDate != nil
}

// InBounds reports whether d falls inside [StartDate, EndDate], treating a
// missing bound as open on that side.
func (r Record) InBounds(d Date) bool {
	if r.StartDate != nil && d.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && d.After(*r.EndDate) {
		return false
	}
	return true
}

// Clone returns a deep copy of the record. Mutating the copy never aliases
// the original's slices or bound pointers.
func (r Record) Clone() Record {
	out := Record{ItemID: r.ItemID}
	if r.StartDate != nil {
		d := *r.StartDate
		out.StartDate = &d
	}
	if r.EndDate != nil {
		d := *r.EndDate
		out.EndDate = &d
	}
	if len(r.Weekdays) > 0 {
		out.Weekdays = append([]time.Weekday(nil), r.Weekdays...)
	}
	if len(r.SpecificDates) > 0 {
		out.SpecificDates = append([]Date(nil), r.SpecificDates...)
	}
	if len(r.ExclusionDates) > 0 {
		out.ExclusionDates = append([]Date(nil), r.ExclusionDates...)
	}
	return out
}

// Equal reports whether two records describe the same rules for the same
// item. Used by the chunk executor for no-op detection: an apply that would
// not change the stored record is skipped entirely.
func (r Record) Equal(other Record) bool {
	if r.ItemID != other.ItemID {
		return false
	}
	if !datePtrEqual(r.StartDate, other.StartDate) || !datePtrEqual(r.EndDate, other.EndDate) {
		return false
	}
	if len(r.Weekdays) != len(other.Weekdays) {
		return false
	}
	for i, wd := range r.Weekdays {
		if other.Weekdays[i] != wd {
			return false
		}
	}
	return dateSliceEqual(r.SpecificDates, other.SpecificDates) &&
		dateSliceEqual(r.ExclusionDates, other.ExclusionDates)
}

func datePtrEqual(a, b *Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func dateSliceEqual(a, b []Date) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
