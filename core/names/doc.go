// Package names defines the shared vocabulary of the synchronization engine.
//
// It holds the identifiers for registered names (EntityID) and their owners
// (Address), the fixed catalog of record keys a name can carry, the Record and
// Domain value types, and the error taxonomy every other package reports with.
//
// # Addresses
//
// Owner addresses are compared case-insensitively. NormalizeAddress produces the
// canonical lowercase form used as a map key everywhere in the engine.
//
// # Record Catalog
//
// Catalog lists the record keys in display order. Address-type records (evm, btc)
// come first, followed by text records (text.avatar, text.email, ...).
//
// # Errors
//
// Error carries a Kind (invalid_account, network_failure, timeout, remote_rejected,
// stale_generation, invalid_input). KindOf and IsRetryable classify arbitrary
// errors, treating context deadlines as timeouts.
package names
