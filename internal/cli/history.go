package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macroscope-data/macroscope/internal/model"
	"github.com/macroscope-data/macroscope/internal/store/sqlite"
)

var (
	histDBPath  string
	histCountry string
	histMetric  string
	histLimit   int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored triangulation results",
	Long: `History reads back results persisted by earlier pipeline runs.

Example:
  macroscope history --db macroscope.db
  macroscope history --db macroscope.db --country USA --metric inflation`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&histDBPath, "db", "", "sqlite path (required)")
	historyCmd.Flags().StringVar(&histCountry, "country", "", "filter by ISO3 country code")
	historyCmd.Flags().StringVar(&histMetric, "metric", "", "filter by metric")
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "max rows")

	_ = historyCmd.MarkFlagRequired("db")
}

func runHistory(cmd *cobra.Command, args []string) error {
	var metric model.Metric
	if histMetric != "" {
		parsed, err := model.ParseMetric(histMetric)
		if err != nil {
			return err
		}
		metric = parsed
	}

	country := strings.ToUpper(strings.TrimSpace(histCountry))

	st, err := sqlite.New(histDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	records, err := st.ListResults(context.Background(), country, metric, histLimit)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No stored results match.")
		return nil
	}

	fmt.Printf("%-4s %-14s %-12s %-13s %10s %8s  %s\n",
		"ISO3", "METRIC", "PERIOD", "CONFIDENCE", "CONSENSUS", "SPREAD", "SOURCES")
	for _, rec := range records {
		consensus := "-"
		if rec.Consensus != nil {
			consensus = fmt.Sprintf("%.2f%%", *rec.Consensus)
		}
		fmt.Printf("%-4s %-14s %-12s %-13s %10s %7.2f  %s\n",
			rec.CountryCode,
			rec.Metric,
			rec.Period,
			rec.Confidence,
			consensus,
			rec.Spread,
			strings.Join(rec.Sources, ","))
	}

	return nil
}
