// Package orchestrator composes ownership loading, reverse lookups, the record
// cache and edit reconciliation into one engine with an observable state.
//
// Consumers drive it through ChangeAccount, ReloadOwnership, RequestDetail and
// the edit entry points, and observe it through immutable Snapshots, either by
// polling Snapshot or through Subscribe. Sub-operation failures never escape
// as errors; they show up in the snapshot as progress flags or failed edits.
// Only synchronous input validation is reported to the caller.
package orchestrator
