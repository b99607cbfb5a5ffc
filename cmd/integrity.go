package cmd

import (
	"fmt"

	"domain-manager/core/ledger/sqlstore"
	"domain-manager/core/storage"
	"domain-manager/feature/integrity"
	"domain-manager/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the ledger, its SQL mirror and the export bucket",
	Long:  `Checks the configured ledger, verifies the SQL mirror schema when the sql driver is used and inspects the snapshot export bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logg, err := setup()
		if err != nil {
			return err
		}
		defer logg.Sync()

		client, mirror, err := buildLedger(cfg, logg)
		if err != nil {
			return err
		}

		var store storage.Client
		if c, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Snapshot storage unavailable, skipping storage check", zap.Error(err))
		} else {
			store = c
		}

		svc := integrity.NewFeature(store, cfg.Storage, client, schemaVerifier(mirror), logg).Service()
		if fixFlag && store != nil {
			if err := svc.FixStorage(ctx); err != nil {
				return err
			}
		}

		report := svc.CheckAll(ctx)
		if ok, err := printJSON(cmd, report); ok || err != nil {
			if err == nil && !report.Healthy() {
				return fmt.Errorf("integrity check failed")
			}
			return err
		}

		logg.Info("Ledger",
			zap.String("status", report.Ledger.Status),
			zap.Duration("latency", report.Ledger.Latency),
			zap.String("error", report.Ledger.Error),
		)
		logg.Info("Schema", zap.String("status", report.Schema.Status))
		for table, t := range report.Schema.Tables {
			if len(t.MissingColumns) > 0 {
				logg.Warn("Missing columns", zap.String("table", table), zap.Strings("columns", t.MissingColumns))
			}
		}
		if report.Storage != nil {
			logg.Info("Storage",
				zap.String("bucket", report.Storage.Bucket),
				zap.Bool("exists", report.Storage.Exists),
				zap.Int("objects", report.Storage.Objects),
			)
		}
		for check, msg := range report.Errors {
			logg.Error("Check failed", zap.String("check", check), zap.String("error", msg))
		}

		if !report.Healthy() {
			return fmt.Errorf("integrity check failed")
		}
		return nil
	},
}

// schemaVerifier keeps a nil store from becoming a non-nil interface.
func schemaVerifier(store *sqlstore.Store) checks.SchemaVerifier {
	if store == nil {
		return nil
	}
	return store
}

func init() {
	integrityCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the export bucket if it is missing")
	RootCmd.AddCommand(integrityCmd)
}
