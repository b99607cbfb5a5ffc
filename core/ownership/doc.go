// Package ownership enumerates the names owned by an account.
//
// The ledger only offers a count and an offset/limit listing, so a load walks
// every page and reports progress as it goes. Each call to Load starts a new
// generation; when a newer load for the same account starts, the older one
// stops emitting, so consumers never see its snapshots after the newer ones.
//
// # Snapshots
//
// A load emits an initial snapshot once the count is known, an intermediate
// snapshot every EmitEvery newly seen ids, and exactly one terminal snapshot
// (Complete with the full id list, or Failed with the error). Loaded never
// decreases and never exceeds Total.
package ownership
