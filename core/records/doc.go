// Package records holds the last-known record values of every name the engine
// has looked at.
//
// Entries are keyed by entity id and record key. Reads never block: while a
// fetch is in flight the previous (possibly stale) values are returned and
// IsLoading reports the staleness.
//
// # Tickets
//
// Invalidate marks an entry as loading and returns a Ticket. A fetch result is
// applied with Complete only if no newer Invalidate happened in between, so a
// slow, older fetch can never overwrite a fresher one.
package records
