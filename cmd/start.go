package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"domain-manager/core/loader"
	"domain-manager/core/logger"
	"domain-manager/core/metrics"
	"domain-manager/core/middleware/auth"
	"domain-manager/core/middleware/rayid"
	"domain-manager/core/orchestrator"
	"domain-manager/core/server"
	"domain-manager/core/storage"

	"domain-manager/feature/domains"
	"domain-manager/feature/export"
	"domain-manager/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the domain manager server",
	Long:  `Starts the synchronization engine and the HTTP server with all enabled features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup()
		if err != nil {
			return err
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)

		client, mirror, err := buildLedger(cfg, logg)
		if err != nil {
			return err
		}

		engine := orchestrator.New(client,
			orchestrator.WithLogger(logg),
			orchestrator.WithMetrics(m),
			orchestrator.WithLoaderOptions(cfg.Sync.Options()...),
		)
		defer engine.Close()

		// Storage is optional; without it the export feature stays disabled
		var store storage.Client
		if c, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Snapshot storage unavailable, exports disabled", zap.Error(err))
		} else {
			store = c
		}

		app := server.NewApp()

		mgr := loader.NewManager()
		domainsFeature := domains.NewFeature(engine, logg)
		mgr.Register(domainsFeature)
		mgr.Register(export.NewFeature(store, cfg.Storage, engine, logg))
		mgr.Register(integrity.NewFeature(store, cfg.Storage, client, schemaVerifier(mirror), logg))

		// RayID first so every log line carries it
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Public: cfg.Server.Public()}))

		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

		if err := mgr.LoadAll(app); err != nil {
			return fmt.Errorf("failed to load features: %w", err)
		}

		if account, _ := cmd.Flags().GetString("account"); account != "" {
			if err := engine.ChangeAccount(context.Background(), account); err != nil {
				return fmt.Errorf("failed to select account: %w", err)
			}
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		domainsFeature.Close()
		return app.Shutdown()
	},
}

func init() {
	startCmd.Flags().String("account", "", "Account to synchronize on startup")
	RootCmd.AddCommand(startCmd)
}
