// Package availability implements the rule-merge engine for catalog item
// availability: calendar-date bounds, weekday patterns, whitelisted specific
// dates and blacklisted exclusion dates.
//
// The package is pure - it performs no I/O. Persistence and batching live in
// internal/store and internal/batch respectively.
//
// Core contract: a ChangeSet is a partial request where an absent field means
// "leave unchanged", never "clear". Merge combines a ChangeSet with an
// existing Record under that contract and enforces the cross-field
// invariants (no date both whitelisted and blacklisted, bounds ordered,
// listed dates inside the bounds, at least one selected weekday reachable
// inside the bounds).
package availability
