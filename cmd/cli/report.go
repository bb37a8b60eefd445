package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mjelva/netwarden/internal/device"
	"github.com/mjelva/netwarden/internal/engine"
	"github.com/mjelva/netwarden/internal/events"
	"github.com/mjelva/netwarden/internal/history"
	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/report"
	"github.com/mjelva/netwarden/internal/session"
)

var (
	reportFormat string
	reportFile   string
	reportFrom   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a security report",
	Long: `Generate a security report for the network. By default a fresh scan is
run; with --from the report is built from a stored scan instead.`,
	Example: `  netwarden report
  netwarden report --format html --file report.html
  netwarden report --from 2f9c9a6e-... --format json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "report format: text, markdown, html, json")
	reportCmd.Flags().StringVar(&reportFile, "file", "", "write the report to a file instead of stdout")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "build the report from a stored scan ID")
}

func runReport(cmd *cobra.Command, _ []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var devices []device.Device
	if reportFrom != "" {
		if !cfg.HistoryEnabled() {
			return fmt.Errorf("--from requires a configured database")
		}
		store, connectErr := history.Connect(cmd.Context(), cfg.Database)
		if connectErr != nil {
			return connectErr
		}
		defer store.Close()

		devices, err = store.ScanDevices(cmd.Context(), reportFrom)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			return fmt.Errorf("no devices stored for scan %s", reportFrom)
		}
	} else {
		devices, err = scanForReport(cmd, cfg.Engine)
		if err != nil {
			return err
		}
	}

	out, err := report.Generate(devices, format)
	if err != nil {
		return err
	}

	if reportFile != "" {
		if err := os.WriteFile(reportFile, []byte(out), 0o600); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", reportFile)
		return nil
	}
	fmt.Print(out)
	return nil
}

func scanForReport(cmd *cobra.Command, engCfg engine.Config) ([]device.Device, error) {
	logger := logging.Default()
	bus := events.NewBus()
	defer bus.Close()

	orch := session.NewOrchestrator(
		engine.NewNmapEngine(engCfg, bus, logger),
		session.NewState(),
		bus,
		logger,
	)

	sub := bus.Subscribe(func(p events.Progress) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", p.Percent, p.Phase)
	})
	defer sub.Unsubscribe()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.StartScan(ctx); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return orch.State().Devices(), nil
}
