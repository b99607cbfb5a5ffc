// Package reconcile turns local record edit intents into ledger writes.
//
// Every (name, record key) pair carries at most one visible edit, which moves
// through Pending, Committing and then Committed or Failed. Submitting a new
// intent for the same key supersedes the old one: a superseded edit that is
// still in flight completes silently and never touches the record cache.
//
// # Batching
//
// Writes are serialized per name. While a batch for a name is in flight, new
// intents queue as Pending and are flushed together once it settles. When the
// ledger implements ledger.BatchWriter a batch is a single transaction,
// otherwise the writes are sent one at a time in key order.
//
// After a successful batch the record cache is refreshed from the ledger, so
// the authoritative value always wins over the submitted one.
//
//	r := reconcile.New(client, cache, reconcile.WithLogger(log))
//	edit, err := r.Submit(ctx, reconcile.Intent{
//	    Entity: "alice", Key: names.KeyAvatar, Action: reconcile.ActionSet, Value: "ipfs://...",
//	})
package reconcile
