// Package domains exposes the synchronization engine over HTTP.
//
// Routes:
//   - GET    /domains                           current snapshot
//   - GET    /domains/stream                    snapshots as server-sent events
//   - GET    /domains/catalog                   supported record keys
//   - PUT    /domains/account                   switch account {"account": "0x..."}
//   - POST   /domains/reload                    reload ownership of the current account
//   - GET    /domains/:id                       metadata, records and edits of one name
//   - PUT    /domains/:id/records/:key          set a record {"value": "..."}
//   - DELETE /domains/:id/records/:key          delete a record
//   - POST   /domains/:id/records/:key/retry    retry a failed edit
//   - DELETE /domains/:id/edits/:key            dismiss a settled edit
//
// Entry points return 202 Accepted: their effects show up in later snapshots.
package domains
