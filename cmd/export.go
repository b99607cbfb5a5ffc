package cmd

import (
	"fmt"

	"domain-manager/core/orchestrator"
	"domain-manager/core/storage"
	"domain-manager/feature/export"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <account>",
	Short: "Export a snapshot of an account to object storage",
	Long:  `Loads the ownership of the account, stores the resulting snapshot in the configured bucket and optionally prunes older exports.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logg, err := setup()
		if err != nil {
			return err
		}
		defer logg.Sync()

		client, _, err := buildLedger(cfg, logg)
		if err != nil {
			return err
		}
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}

		engine := orchestrator.New(client,
			orchestrator.WithLogger(logg),
			orchestrator.WithLoaderOptions(cfg.Sync.Options()...),
		)
		defer engine.Close()

		if _, err := syncAccount(ctx, engine, args[0], logg); err != nil {
			return err
		}

		svc := export.NewFeature(store, cfg.Storage, engine, logg).Service()
		obj, err := svc.Export(ctx)
		if err != nil {
			return err
		}

		keep, _ := cmd.Flags().GetInt("keep")
		if keep > 0 {
			removed, err := svc.Prune(ctx, args[0], keep)
			if err != nil {
				return err
			}
			logg.Info("Old exports removed", zap.Int("removed", removed))
		}

		if ok, err := printJSON(cmd, obj); ok || err != nil {
			return err
		}
		fmt.Printf("s3://%s/%s\n", cfg.Storage.Bucket, obj.Key)
		return nil
	},
}

func init() {
	exportCmd.Flags().Int("keep", 0, "Keep only the newest N exports of the account (0 keeps all)")
	RootCmd.AddCommand(exportCmd)
}
