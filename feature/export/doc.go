// Package export archives engine snapshots in object storage.
//
// Every export writes two objects into the configured bucket:
//
//	<account>/<timestamp>-v<version>.json
//	<account>/latest.json
//
// Timestamps are UTC and sort lexically, so listing an account prefix
// returns exports oldest first. Pruning keeps the newest N.
package export
