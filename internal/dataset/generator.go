package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/macroscope-data/macroscope/internal/format"
	"github.com/macroscope-data/macroscope/internal/model"
	"github.com/macroscope-data/macroscope/internal/source"
	"github.com/macroscope-data/macroscope/internal/store"
	"github.com/macroscope-data/macroscope/internal/worker"
)

// Triangulator produces one consensus result per (country, metric) pair.
type Triangulator interface {
	Triangulate(ctx context.Context, country string, metric model.Metric, period source.Period) model.Result
}

// Generator fans triangulation out across country/metric pairs and turns
// the results into conversation samples.
type Generator struct {
	engine    Triangulator
	formatter *format.Formatter
	store     store.Store
	workers   int
	logger    *zap.Logger
}

// New creates a generator. A nil store disables persistence.
func New(engine Triangulator, st store.Store, workers int, logger *zap.Logger) *Generator {
	if st == nil {
		st = &store.NopStore{}
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		engine:    engine,
		formatter: format.New(),
		store:     st,
		workers:   workers,
		logger:    logger,
	}
}

type triangulationJob struct {
	index   int
	country string
	metric  model.Metric
	period  source.Period
	engine  Triangulator
}

type triangulationOutcome struct {
	index  int
	result model.Result
}

// GetError always returns nil: source failures live inside the result's
// readings, they are never job failures.
func (r *triangulationOutcome) GetError() error {
	return nil
}

func (j *triangulationJob) Execute(ctx context.Context) worker.Result {
	return &triangulationOutcome{
		index:  j.index,
		result: j.engine.Triangulate(ctx, j.country, j.metric, j.period),
	}
}

// Generate triangulates every (country, metric) pair and builds the sample
// set: variants single-turn samples per result, plus one multi-turn
// conversation per country that has at least two results. Results are
// returned in input order and saved to the store.
func (g *Generator) Generate(ctx context.Context, countries []string, metrics []model.Metric, variants int, multiTurn bool) ([]model.Sample, []model.Result, error) {
	if variants <= 0 {
		variants = 1
	}

	results := g.triangulateAll(ctx, countries, metrics)

	if err := g.store.SaveResults(ctx, results); err != nil {
		g.logger.Warn("persist results", zap.Error(err))
	}

	var samples []model.Sample
	for _, result := range results {
		for v := 0; v < variants; v++ {
			samples = append(samples, g.formatter.Sample(result, v))
		}
	}

	if multiTurn {
		samples = append(samples, g.multiTurnSamples(countries, results)...)
	}

	g.logger.Info("dataset generated",
		zap.Int("results", len(results)),
		zap.Int("samples", len(samples)))

	return samples, results, nil
}

// triangulateAll fans the pairs out over the worker pool and restores
// input order afterwards.
func (g *Generator) triangulateAll(ctx context.Context, countries []string, metrics []model.Metric) []model.Result {
	total := len(countries) * len(metrics)
	if total == 0 {
		return nil
	}

	pool := worker.NewPool(g.workers, total)
	pool.Start()

	index := 0
	for _, country := range countries {
		for _, metric := range metrics {
			pool.Submit(&triangulationJob{
				index:   index,
				country: country,
				metric:  metric,
				engine:  g.engine,
			})
			index++
		}
	}

	outcomes := pool.Wait()

	results := make([]model.Result, total)
	for _, out := range outcomes {
		o := out.(*triangulationOutcome)
		results[o.index] = o.result
	}
	return results
}

// multiTurnSamples builds one conversation per country covering all of
// that country's metrics. Countries with fewer than two results are
// skipped: a single-metric conversation adds nothing over its
// single-turn samples.
func (g *Generator) multiTurnSamples(countries []string, results []model.Result) []model.Sample {
	byCountry := make(map[string][]model.Result)
	for _, r := range results {
		byCountry[r.CountryCode] = append(byCountry[r.CountryCode], r)
	}

	var samples []model.Sample
	for _, country := range countries {
		group := byCountry[country]
		if len(group) < 2 {
			continue
		}
		samples = append(samples, g.formatter.MultiTurn(group))
	}
	return samples
}

// WriteJSONL writes one sample per line.
func WriteJSONL(path string, samples []model.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	for _, sample := range samples {
		if err := enc.Encode(sample); err != nil {
			return fmt.Errorf("encode sample: %w", err)
		}
	}
	return f.Close()
}

// WriteJSON writes the samples as one indented JSON array.
func WriteJSON(path string, samples []model.Sample) error {
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("encode samples: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Summary tallies results per confidence grade for the CLI report.
func Summary(results []model.Result) map[model.Confidence]int {
	counts := make(map[model.Confidence]int)
	for _, r := range results {
		counts[r.Confidence]++
	}
	return counts
}

// GradeOrder lists confidence grades from strongest to weakest for
// deterministic summary printing.
func GradeOrder() []model.Confidence {
	return []model.Confidence{
		model.ConfidenceHigh,
		model.ConfidenceMedium,
		model.ConfidenceLow,
		model.ConfidenceSingleSource,
		model.ConfidenceNoData,
	}
}
