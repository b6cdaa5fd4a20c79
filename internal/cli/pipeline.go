package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/macroscope-data/macroscope/internal/dataset"
	"github.com/macroscope-data/macroscope/internal/model"
)

var (
	pipeCountries   []string
	pipeMetrics     []string
	pipeSources     []string
	pipeOutput      string
	pipeOutputJSON  string
	pipeTolerance   float64
	pipeVariants    int
	pipeNoMultiTurn bool
	pipeConcurrency int
	pipeDBPath      string
	pipeNoCache     bool
	pipeCacheDir    string
	pipeFREDKey     string
	pipeTimeout     time.Duration
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Triangulate all country/metric pairs and export training data",
	Long: `Pipeline fetches every requested metric for every requested country
from the enabled sources, cross-checks the values, and writes the
triangulated results as conversation samples in JSONL format.

Example:
  macroscope pipeline
  macroscope pipeline --countries USA,IND --metrics inflation --output infl.jsonl
  macroscope pipeline --sources worldbank,oecd --db macroscope.db`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().StringSliceVar(&pipeCountries, "countries", []string{"USA", "IND", "EUU", "CHN"}, "ISO3 country codes")
	pipelineCmd.Flags().StringSliceVar(&pipeMetrics, "metrics", []string{"gdp_growth", "inflation"}, "metrics (gdp_growth, inflation, unemployment, interest_rate)")
	pipelineCmd.Flags().StringSliceVar(&pipeSources, "sources", []string{"fred", "worldbank", "oecd"}, "data sources to query")

	pipelineCmd.Flags().StringVar(&pipeOutput, "output", "training_data.jsonl", "output JSONL path")
	pipelineCmd.Flags().StringVar(&pipeOutputJSON, "output-json", "", "optional pretty JSON output path")

	pipelineCmd.Flags().Float64Var(&pipeTolerance, "tolerance", 0.5, "agreement tolerance in percentage points")
	pipelineCmd.Flags().IntVar(&pipeVariants, "question-variants", 2, "question phrasings per result")
	pipelineCmd.Flags().BoolVar(&pipeNoMultiTurn, "no-multi-turn", false, "skip multi-turn conversation samples")

	pipelineCmd.Flags().IntVar(&pipeConcurrency, "concurrency", 4, "concurrent triangulations")
	pipelineCmd.Flags().DurationVar(&pipeTimeout, "timeout", 5*time.Minute, "overall pipeline timeout")

	pipelineCmd.Flags().StringVar(&pipeDBPath, "db", "", "sqlite path for result history (optional)")
	pipelineCmd.Flags().BoolVar(&pipeNoCache, "no-cache", false, "disable the reading cache")
	pipelineCmd.Flags().StringVar(&pipeCacheDir, "cache-dir", "", "disk cache directory (default: memory only)")
	pipelineCmd.Flags().StringVar(&pipeFREDKey, "fred-api-key", "", "FRED API key (default: FRED_API_KEY env)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	countries, err := parseCountries(pipeCountries)
	if err != nil {
		return err
	}
	metrics, err := parseMetrics(pipeMetrics)
	if err != nil {
		return err
	}

	cfg := model.DefaultConfig()
	cfg.Sources.Enabled = pipeSources
	cfg.Triangulate.Tolerance = pipeTolerance
	cfg.Concurrency.Workers = pipeConcurrency
	cfg.Cache.Enabled = !pipeNoCache
	cfg.Cache.Dir = pipeCacheDir
	cfg.Dataset.QuestionVariants = pipeVariants
	cfg.Dataset.MultiTurn = !pipeNoMultiTurn
	cfg.Dataset.StorePath = pipeDBPath
	cfg.Output.Verbose = verbose

	if err := resolveFREDKey(cfg, pipeFREDKey); err != nil {
		return err
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Dataset.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), pipeTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Countries: %v\n", countries)
		fmt.Fprintf(os.Stderr, "Metrics: %v\n", metrics)
		fmt.Fprintf(os.Stderr, "Sources: %v\n", cfg.Sources.Enabled)
		fmt.Fprintf(os.Stderr, "Tolerance: %.2f pp\n", cfg.Triangulate.Tolerance)
		fmt.Fprintln(os.Stderr)
	}

	generator := dataset.New(engine, st, cfg.Concurrency.Workers, logger)
	samples, results, err := generator.Generate(ctx, countries, metrics, cfg.Dataset.QuestionVariants, cfg.Dataset.MultiTurn)
	if err != nil {
		return fmt.Errorf("generate dataset: %w", err)
	}

	if err := dataset.WriteJSONL(pipeOutput, samples); err != nil {
		return err
	}
	if pipeOutputJSON != "" {
		if err := dataset.WriteJSON(pipeOutputJSON, samples); err != nil {
			return err
		}
	}

	// Summary report
	counts := dataset.Summary(results)
	fmt.Fprintf(os.Stderr, "Triangulated %d country/metric pairs:\n", len(results))
	for _, grade := range dataset.GradeOrder() {
		if counts[grade] > 0 {
			fmt.Fprintf(os.Stderr, "  %-14s %d\n", grade, counts[grade])
		}
	}
	fmt.Fprintf(os.Stderr, "Wrote %d samples to %s\n", len(samples), pipeOutput)
	if pipeOutputJSON != "" {
		fmt.Fprintf(os.Stderr, "Wrote JSON copy to %s\n", pipeOutputJSON)
	}

	return nil
}
