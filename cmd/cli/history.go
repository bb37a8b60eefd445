package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mjelva/netwarden/internal/history"
)

var (
	historyLimit  int
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored scan results",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of scans to list")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "output format: table, json")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.HistoryEnabled() {
		return fmt.Errorf("scan history requires a configured database")
	}

	store, err := history.Connect(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.History(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if historyOutput == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Scan ID", "Time", "Devices", "Avg Score", "Issues")
	for _, rec := range records {
		_ = table.Append([]string{
			rec.ID,
			rec.Timestamp.Format("2006-01-02 15:04"),
			strconv.Itoa(rec.DeviceCount),
			strconv.Itoa(rec.AverageScore),
			strconv.Itoa(rec.IssuesFound),
		})
	}
	return table.Render()
}
