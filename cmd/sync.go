package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"domain-manager/core/names"
	"domain-manager/core/orchestrator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync <account>",
	Short: "Load the names owned by an account",
	Long:  `Runs one ownership load for the account, logging progress, and prints the owned names.`,
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
		engine := orchestrator.New(client,
			orchestrator.WithLogger(logg),
			orchestrator.WithLoaderOptions(cfg.Sync.Options()...),
		)
		defer engine.Close()

		startTime := time.Now()
		snap, err := syncAccount(cmd.Context(), engine, args[0], logg)
		if err != nil {
			return err
		}

		if ok, err := printJSON(cmd, snap); ok || err != nil {
			return err
		}
		primary := ""
		if e, ok := snap.PrimaryName(); ok && e.Found {
			primary = string(e.Name)
		}
		logg.Info("Ownership loaded",
			zap.String("account", string(snap.Account)),
			zap.String("primary_name", primary),
			zap.Int("owned", len(snap.Ownership)),
			zap.Duration("duration", time.Since(startTime)),
		)
		for _, id := range snap.Ownership {
			fmt.Println(id)
		}
		return nil
	},
}

// syncAccount switches engine to account and blocks until the ownership load
// is terminal. A failed load is returned as an error.
func syncAccount(ctx context.Context, engine *orchestrator.Orchestrator, account string, logg *zap.Logger) (orchestrator.Snapshot, error) {
	if err := engine.ChangeAccount(ctx, account); err != nil {
		return orchestrator.Snapshot{}, err
	}
	addr := names.NormalizeAddress(account)

	done := make(chan orchestrator.Snapshot, 1)
	var lastLoaded = -1
	unsubscribe := engine.Subscribe(func(s orchestrator.Snapshot) {
		if s.Account != addr {
			return
		}
		if s.Progress.Loaded != lastLoaded {
			lastLoaded = s.Progress.Loaded
			fields := []zap.Field{zap.Int("loaded", s.Progress.Loaded)}
			if s.Progress.Total != nil {
				fields = append(fields, zap.Int("total", *s.Progress.Total))
			}
			logg.Info("Loading ownership", fields...)
		}
		if !s.Progress.Loading {
			select {
			case done <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	select {
	case <-ctx.Done():
		return orchestrator.Snapshot{}, ctx.Err()
	case s := <-done:
		if s.Progress.Failed {
			return s, errors.New(s.Progress.Error)
		}
		// The primary name lookup runs alongside the load
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		for {
			if _, ok := s.PrimaryName(); ok {
				return s, nil
			}
			select {
			case <-waitCtx.Done():
				return engine.Snapshot(), nil
			case <-time.After(20 * time.Millisecond):
				s = engine.Snapshot()
			}
		}
	}
}

func init() {
	RootCmd.AddCommand(syncCmd)
}
