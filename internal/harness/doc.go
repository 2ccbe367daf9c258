// Package harness runs declarative batch-edit scenarios for conformance
// testing.
//
// A scenario YAML file seeds an in-memory catalog, applies one change set
// through the real orchestrator with a manually stepped clock, and captures
// every invocation outcome plus the final records. Snapshots serialize to
// canonical JSON and compare against golden files, so any behavioral drift
// in merging, chunking or resume handling shows up as a golden diff.
package harness
