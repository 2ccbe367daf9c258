package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the canonical wire form for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day and no timezone.
//
// Internally it is stored as midnight UTC so that comparisons and arithmetic
// are exact regardless of the host timezone. The zero Date is "no date" and
// reports IsZero() == true.
type Date struct {
	t time.Time
}

// NewDate constructs a Date from year, month and day.
// Out-of-range components are normalized the same way time.Date normalizes
// them (e.g. Feb 30 becomes Mar 1 or 2).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date, interpreted in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate parses a "YYYY-MM-DD" string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is like ParseDate but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero Date ("no date").
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of whole days from d to other.
// Negative when other is earlier than d.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t) / (24 * time.Hour))
}

// Weekday returns the day of the week for d.
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// String returns the canonical "YYYY-MM-DD" form, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON encodes the date as a "YYYY-MM-DD" JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" JSON string. An empty string decodes
// to the zero Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes the date as a "YYYY-MM-DD" scalar.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML decodes a "YYYY-MM-DD" scalar. Empty decodes to zero.
func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SortDates sorts dates chronologically in place.
func SortDates(dates []Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

// DedupeDates returns a chronologically sorted copy of dates with exact
// duplicates removed. A nil or empty input returns nil.
func DedupeDates(dates []Date) []Date {
	if len(dates) == 0 {
		return nil
	}
	out := make([]Date, len(dates))
	copy(out, dates)
	SortDates(out)
	deduped := out[:1]
	for _, d := range out[1:] {
		if !d.Equal(deduped[len(deduped)-1]) {
			deduped = append(deduped, d)
		}
	}
	return deduped
}

// ContainsDate reports whether dates contains target.
// Assumes nothing about ordering (linear scan).
func ContainsDate(dates []Date, target Date) bool {
	for _, d := range dates {
		if d.Equal(target) {
			return true
		}
	}
	return false
}

// IntersectDates returns the sorted intersection of a and b.
func IntersectDates(a, b []Date) []Date {
	var out []Date
	for _, d := range a {
		if ContainsDate(b, d) && !ContainsDate(out, d) {
			out = append(out, d)
		}
	}
	SortDates(out)
	return out
}

// weekdayTokens maps accepted weekday spellings to time.Weekday.
// Both three-letter and full names are accepted, case-insensitive.
var weekdayTokens = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday resolves a weekday token ("mon", "Monday", ...) to
// time.Weekday.
func ParseWeekday(token string) (time.Weekday, error) {
	wd, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday token %q", token)
	}
	return wd, nil
}

// ParseWeekdays resolves a list of weekday tokens, deduplicating and sorting
// Sunday-first. Returns nil for an empty input.
func ParseWeekdays(tokens []string) ([]time.Weekday, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	seen := make(map[time.Weekday]bool, len(tokens))
	for _, tok := range tokens {
		wd, err := ParseWeekday(tok)
		if err != nil {
			return nil, err
		}
		seen[wd] = true
	}
	return normalizeWeekdays(seen), nil
}

// NormalizeWeekdays returns a sorted, deduplicated copy of days.
// Returns nil for an empty input.
func NormalizeWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	seen := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		seen[d] = true
	}
	return normalizeWeekdays(seen)
}

func normalizeWeekdays(seen map[time.Weekday]bool) []time.Weekday {
	out := make([]time.Weekday, 0, len(seen))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if seen[wd] {
			out = append(out, wd)
		}
	}
	return out
}

// ContainsWeekday reports whether days contains target.
func ContainsWeekday(days []time.Weekday, target time.Weekday) bool {
	for _, d := range days {
		if d == target {
			return true
		}
	}
	return false
}

// WeekdayToken returns the canonical three-letter token for wd.
func WeekdayToken(wd time.Weekday) string {
	return strings.ToLower(wd.String()[:3])
}

// WeekdayTokens returns canonical tokens for days, preserving order.
func WeekdayTokens(days []time.Weekday) []string {
	if len(days) == 0 {
		return nil
	}
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = WeekdayToken(d)
	}
	return out
}
