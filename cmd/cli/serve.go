package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mjelva/netwarden/internal/api"
	"github.com/mjelva/netwarden/internal/engine"
	"github.com/mjelva/netwarden/internal/events"
	"github.com/mjelva/netwarden/internal/history"
	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/metrics"
	"github.com/mjelva/netwarden/internal/scheduler"
	"github.com/mjelva/netwarden/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scan daemon with the HTTP API",
	Long: `Start netwarden as a long-running daemon. Scans are triggered over the
HTTP API or by the built-in scheduler, and progress is streamed to
websocket clients.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Daemon.PIDFile != "" {
		if err := writePIDFile(cfg.Daemon.PIDFile); err != nil {
			logger.Warn("Failed to write PID file", "path", cfg.Daemon.PIDFile, "error", err)
		} else {
			defer os.Remove(cfg.Daemon.PIDFile)
		}
	}

	m := metrics.New()
	bus := events.NewBus()
	defer bus.Close()

	orch := session.NewOrchestrator(
		engine.NewNmapEngine(cfg.Engine, bus, logger),
		session.NewState(),
		bus,
		logger,
	)
	orch.SetMetrics(m)

	apiOpts := []api.Option{
		api.WithMetrics(m),
		api.WithVersion(version),
		api.WithShutdownTimeout(cfg.Daemon.ShutdownTimeout),
	}

	if cfg.HistoryEnabled() {
		store, connectErr := history.Connect(ctx, cfg.Database)
		if connectErr != nil {
			return connectErr
		}
		defer store.Close()
		if migrateErr := store.Migrate(ctx); migrateErr != nil {
			return migrateErr
		}
		orch.SetRecorder(store)
		apiOpts = append(apiOpts, api.WithHistory(store))
		logger.Info("Scan history enabled", "database", cfg.Database.Addr())
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(cfg.Scheduler, orch, logger)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if !cfg.API.Enabled {
		logger.Info("API disabled, waiting for scheduled scans")
		<-ctx.Done()
		return nil
	}

	server := api.New(cfg.API, orch, logger, apiOpts...)
	logger.Info("netwarden daemon starting",
		"version", version,
		"network", cfg.Engine.Network,
		"api", cfg.API.Addr())

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o600)
}
