// Package ledger defines the contract between the synchronization engine and the
// remote ledger that owns registered names.
//
// The engine never talks to a chain directly. It consumes the Client interface,
// which the subpackages implement:
//   - rpc: JSON-RPC over HTTP against a ledger gateway.
//   - sqlstore: a database mirror of the ledger, used for indexers and local setups.
//   - memory: an in-memory ledger for tests and offline development.
//
// WithTimeout decorates any Client so that every call has a bounded wait and
// failures carry a names.Kind.
package ledger
