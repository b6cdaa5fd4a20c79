package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/macroscope-data/macroscope/internal/format"
	"github.com/macroscope-data/macroscope/internal/llm"
	"github.com/macroscope-data/macroscope/internal/model"
	"github.com/macroscope-data/macroscope/internal/source"
)

var (
	checkSources   []string
	checkTolerance float64
	checkNoCache   bool
	checkFREDKey   string
	checkJSON      bool
	checkLLM       bool
	checkLLMModel  string
	checkTimeout   time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <ISO3> <metric>",
	Short: "Triangulate a single country/metric pair",
	Long: `Check fetches one metric for one country from the enabled sources and
prints the triangulated result.

Example:
  macroscope check USA inflation
  macroscope check IND gdp_growth --json
  macroscope check EUU unemployment --llm`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSliceVar(&checkSources, "sources", []string{"fred", "worldbank", "oecd"}, "data sources to query")
	checkCmd.Flags().Float64Var(&checkTolerance, "tolerance", 0.5, "agreement tolerance in percentage points")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "disable the reading cache")
	checkCmd.Flags().StringVar(&checkFREDKey, "fred-api-key", "", "FRED API key (default: FRED_API_KEY env)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", time.Minute, "check timeout")

	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the raw result as JSON")
	checkCmd.Flags().BoolVar(&checkLLM, "llm", false, "add an LLM narrative (needs OPENAI_API_KEY)")
	checkCmd.Flags().StringVar(&checkLLMModel, "llm-model", "", "LLM model name")
}

func runCheck(cmd *cobra.Command, args []string) error {
	countries, err := parseCountries(args[:1])
	if err != nil {
		return err
	}
	metric, err := model.ParseMetric(args[1])
	if err != nil {
		return err
	}

	cfg := model.DefaultConfig()
	cfg.Sources.Enabled = checkSources
	cfg.Triangulate.Tolerance = checkTolerance
	cfg.Cache.Enabled = !checkNoCache
	cfg.Output.Verbose = verbose

	if err := resolveFREDKey(cfg, checkFREDKey); err != nil {
		return err
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	result := engine.Triangulate(ctx, countries[0], metric, source.Period{})

	if checkJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(format.New().Text(result))

	if checkLLM {
		narrative, err := narrate(ctx, cfg, result)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Narrative:")
		fmt.Println(narrative)
	}

	return nil
}

// narrate runs the optional LLM pass over a finished result
func narrate(ctx context.Context, cfg *model.Config, result model.Result) (string, error) {
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = checkLLMModel
	cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.LLM.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return "", err
	}

	resp, err := provider.Narrate(ctx, llm.NarrateRequest{Result: result})
	if err != nil {
		return "", fmt.Errorf("narrate: %w", err)
	}
	return resp.Narrative, nil
}
