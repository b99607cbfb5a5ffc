// Package integrity provides health checks of the infrastructure the engine
// depends on.
//
// # Checks Provided
//
//   - Ledger: Checks the ledger with a count and a reverse lookup. Transport failures and timeouts mark it unreachable.
//   - Schema: Validates that a SQL ledger mirror has every column the models need. Skipped for other drivers.
//   - Storage: Checks that the snapshot export bucket exists and counts its objects.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks, 503 when any fails.
//   - GET /integrity/ledger : Runs the ledger check.
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/storage : Runs the storage check (supports ?fix=true).
package integrity
