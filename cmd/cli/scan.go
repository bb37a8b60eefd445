package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mjelva/netwarden/internal/device"
	"github.com/mjelva/netwarden/internal/engine"
	"github.com/mjelva/netwarden/internal/events"
	"github.com/mjelva/netwarden/internal/history"
	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/session"
)

var (
	scanNetwork string
	scanPorts   string
	scanPassive bool
	scanTimeout time.Duration
	scanOutput  string
	scanSave    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot network scan",
	Long: `Scan the configured network once, print the discovered devices with
their security assessment, and exit.`,
	Example: `  netwarden scan
  netwarden scan --network 10.0.0.0/24
  netwarden scan --passive
  netwarden scan --output json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanNetwork, "network", "", "CIDR range to scan (overrides config)")
	scanCmd.Flags().StringVar(&scanPorts, "ports", "", "port specification for active scans (overrides config)")
	scanCmd.Flags().BoolVar(&scanPassive, "passive", false, "discover devices without probing ports")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "scan timeout (overrides config)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "output format: table, json")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "store the result in scan history (requires database config)")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engCfg := cfg.Engine
	if scanNetwork != "" {
		engCfg.Network = scanNetwork
	}
	if scanPorts != "" {
		engCfg.Ports = scanPorts
	}
	if scanTimeout > 0 {
		engCfg.Timeout = scanTimeout
	}

	logger := logging.Default()
	bus := events.NewBus()
	defer bus.Close()

	orch := session.NewOrchestrator(
		engine.NewNmapEngine(engCfg, bus, logger),
		session.NewState(),
		bus,
		logger,
	)

	if scanSave {
		if !cfg.HistoryEnabled() {
			return fmt.Errorf("--save requires a configured database")
		}
		store, connectErr := history.Connect(cmd.Context(), cfg.Database)
		if connectErr != nil {
			return connectErr
		}
		defer store.Close()
		if migrateErr := store.Migrate(cmd.Context()); migrateErr != nil {
			return migrateErr
		}
		orch.SetRecorder(store)
	}

	if scanOutput == "table" {
		sub := bus.Subscribe(func(p events.Progress) {
			fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", p.Percent, p.Phase)
		})
		defer sub.Unsubscribe()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	intensity := engine.IntensityActive
	if scanPassive {
		intensity = engine.IntensityPassive
	}
	if err := orch.StartScanWithIntensity(ctx, intensity); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	devices := orch.State().Devices()
	score := orch.State().HealthScore()

	switch scanOutput {
	case "json":
		return printDevicesJSON(devices, score)
	default:
		printDevicesTable(devices, score)
		return nil
	}
}

func printDevicesTable(devices []device.Device, score int) {
	fmt.Printf("\nDevices found: %d    Health score: %d/100\n\n", len(devices), score)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "IP", "Type", "Vendor", "Status", "Score", "Issues")
	for i := range devices {
		d := &devices[i]
		_ = table.Append([]string{
			d.Name,
			d.IP,
			string(d.Type),
			d.Vendor,
			string(d.SecurityLevel),
			strconv.Itoa(d.SecurityScore),
			strconv.Itoa(len(d.Issues)),
		})
	}
	_ = table.Render()

	for i := range devices {
		d := &devices[i]
		for _, issue := range d.Issues {
			fmt.Printf("  ! %s (%s): %s\n", d.Name, issue.Severity, issue.Title)
		}
	}
}

func printDevicesJSON(devices []device.Device, score int) error {
	out := struct {
		Devices     []device.Device `json:"devices"`
		HealthScore int             `json:"health_score"`
	}{Devices: devices, HealthScore: score}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
