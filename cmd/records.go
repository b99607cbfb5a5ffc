package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"domain-manager/core/ledger"
	"domain-manager/core/names"
	"domain-manager/core/reconcile"
	"domain-manager/core/records"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// recordsCmd represents the records command
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Read and edit the records of a name",
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the records of a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup()
		if err != nil {
			return err
		}
		defer logg.Sync()

		client, _, err := buildLedger(cfg, logg)
		if err != nil {
			return err
		}
		recs, err := client.GetRecords(cmd.Context(), names.EntityID(args[0]))
		if err != nil {
			return fmt.Errorf("failed to read records: %w", err)
		}

		if ok, err := printJSON(cmd, recs); ok || err != nil {
			return err
		}
		for _, r := range recs {
			fmt.Printf("%-18s %s\n", r.Key.Label(), r.Value)
		}
		return nil
	},
}

var recordsSetCmd = &cobra.Command{
	Use:   "set <id> <key> <value>",
	Short: "Write one record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecordEdit(cmd, reconcile.Intent{
			Entity: names.EntityID(args[0]),
			Key:    names.RecordKey(args[1]),
			Action: reconcile.ActionSet,
			Value:  args[2],
		})
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id> <key>",
	Short: "Delete one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecordEdit(cmd, reconcile.Intent{
			Entity: names.EntityID(args[0]),
			Key:    names.RecordKey(args[1]),
			Action: reconcile.ActionDelete,
		})
	},
}

func runRecordEdit(cmd *cobra.Command, in reconcile.Intent) error {
	cfg, logg, err := setup()
	if err != nil {
		return err
	}
	defer logg.Sync()

	client, _, err := buildLedger(cfg, logg)
	if err != nil {
		return err
	}
	edit, err := applyEdit(cmd.Context(), client, in, logg, cfg.LedgerTimeout())
	if err != nil {
		return err
	}

	if ok, err := printJSON(cmd, edit); ok || err != nil {
		return err
	}
	logg.Info("Record committed",
		zap.String("entity", string(edit.Entity)),
		zap.String("key", string(edit.Key)),
		zap.String("action", string(edit.Action)),
	)
	return nil
}

// applyEdit submits one intent through a reconciler and waits until it settles.
func applyEdit(ctx context.Context, client ledger.Client, in reconcile.Intent, logg *zap.Logger, timeout time.Duration) (reconcile.Edit, error) {
	r := reconcile.New(client, records.NewCache(nil), reconcile.WithLogger(logg.Named("reconcile")))
	if _, err := r.Submit(ctx, in); err != nil {
		return reconcile.Edit{}, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*timeout)
		defer cancel()
	}
	if err := r.Wait(ctx); err != nil {
		return reconcile.Edit{}, fmt.Errorf("edit did not settle: %w", err)
	}

	edit, ok := r.Get(in.Entity, in.Key)
	if !ok {
		return reconcile.Edit{}, errors.New("edit disappeared")
	}
	if edit.State == reconcile.StateFailed {
		return edit, fmt.Errorf("record write failed (%s): %s", edit.Kind, edit.Error)
	}
	return edit, nil
}

func init() {
	recordsCmd.AddCommand(recordsGetCmd, recordsSetCmd, recordsDeleteCmd)
	RootCmd.AddCommand(recordsCmd)
}
