// Package config loads the application configuration.
//
// Values come from struct tag defaults, an optional .env file and environment
// variables, in increasing priority. Nested keys map to upper-case variables
// joined by underscores, so ledger.endpoint is read from LEDGER_ENDPOINT.
//
// # Sections
//
//   - Server: HTTP port and API key
//   - Log: level and encoding
//   - Database: SQL ledger mirror connection
//   - Storage: MinIO/S3 bucket for snapshot exports
//   - Ledger: adapter driver, endpoint, timeout and retries
//   - Sync: ownership page size and progress granularity
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Ledger.Endpoint)
package config
