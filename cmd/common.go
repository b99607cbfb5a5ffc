package cmd

import (
	"fmt"
	"os"

	"domain-manager/core/config"
	"domain-manager/core/database"
	"domain-manager/core/ledger"
	"domain-manager/core/ledger/memory"
	"domain-manager/core/ledger/rpc"
	"domain-manager/core/ledger/sqlstore"
	"domain-manager/core/logger"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setup loads the configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logg, nil
}

// buildLedger creates the configured ledger adapter. Every call is bounded
// by the configured timeout and classified into the engine's error kinds.
// The SQL store is returned as well for schema checks; it is nil for other
// drivers.
func buildLedger(cfg *config.Config, logg *zap.Logger) (ledger.Client, *sqlstore.Store, error) {
	if !cfg.Ledger.IsValidDriver() {
		return nil, nil, fmt.Errorf("unsupported ledger driver: %s", cfg.Ledger.Driver)
	}

	var (
		client ledger.Client
		mirror *sqlstore.Store
	)
	switch cfg.Ledger.Driver {
	case ledger.DriverRPC:
		client = rpc.NewClient(cfg.Ledger.Endpoint,
			rpc.WithTimeout(cfg.LedgerTimeout()),
			rpc.WithRetries(cfg.Ledger.Retries),
			rpc.WithUserAgent(cfg.Ledger.UserAgent),
			rpc.WithLogger(logg.Named("rpc")),
		)
		logg.Info("Using JSON-RPC ledger", zap.String("endpoint", cfg.Ledger.Endpoint))

	case ledger.DriverSQL:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger database connection failed: %w", err)
		}
		store := sqlstore.New(db)
		if cfg.Database.Driver == database.DriverSQLite {
			if err := store.Migrate(); err != nil {
				return nil, nil, err
			}
		}
		report, err := store.Verify()
		if err != nil {
			for table, r := range report {
				if r.Status != "ok" {
					logg.Error("Ledger table is incomplete", zap.String("table", table), zap.Strings("missing", r.MissingColumns))
				}
			}
			return nil, nil, err
		}
		client, mirror = store, store
		logg.Info("Using SQL ledger mirror", zap.String("driver", cfg.Database.Driver), zap.String("database", cfg.Database.Name))

	case ledger.DriverMemory:
		client = memory.New()
		logg.Warn("Using in-memory ledger, nothing is persisted")
	}

	return ledger.WithTimeout(client, cfg.LedgerTimeout()), mirror, nil
}

// printJSON writes v to stdout when --json is set and reports whether it did.
func printJSON(cmd *cobra.Command, v any) (bool, error) {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		return false, nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
