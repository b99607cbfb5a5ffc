// Package database handles database connections and schema inspection.
//
// It wraps GORM to open either MySQL or SQLite from the application's
// configuration. The SQL ledger mirror is the main consumer.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table for both dialects, which the
// ledger mirror uses to verify that an existing schema matches its models
// before serving reads.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "domain_records")
package database
