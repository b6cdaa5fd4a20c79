package triangulate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/macroscope-data/macroscope/internal/model"
	"github.com/macroscope-data/macroscope/internal/source"
)

// Engine cross-references one indicator across all configured sources and
// reduces the readings to a consensus value with a confidence grade.
//
// Confidence logic:
//   - HIGH: all available sources agree within tolerance
//   - MEDIUM: two sources agree (third differs, or only two available)
//   - LOW: available sources disagree beyond tolerance
//   - SINGLE_SOURCE: only one source returned valid data
//   - NO_DATA: no source returned valid data
type Engine struct {
	clients       []source.Client
	tolerance     float64
	maxConcurrent int
	logger        *zap.Logger
}

// New creates an engine over the given source clients. Tolerance is the
// maximum percentage-point difference for two readings to agree.
func New(clients []source.Client, cfg *model.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxConcurrent := cfg.Concurrency.SourceFetches
	if maxConcurrent <= 0 {
		maxConcurrent = len(clients)
	}
	return &Engine{
		clients:       clients,
		tolerance:     cfg.Triangulate.Tolerance,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// Triangulate fans out to every source concurrently, waits for all of them,
// and reduces the readings. Individual source failures degrade the
// confidence grade; they never fail the call.
func (e *Engine) Triangulate(ctx context.Context, country string, metric model.Metric, period source.Period) model.Result {
	readings := e.fanOut(ctx, country, metric, period)

	for _, r := range readings {
		if r.OK() {
			e.logger.Debug("source reading",
				zap.String("source", r.Source),
				zap.Float64("value", *r.Value),
				zap.String("period", r.Period))
		} else {
			e.logger.Debug("source failed",
				zap.String("source", r.Source),
				zap.String("error", r.Err))
		}
	}

	successful := successfulReadings(readings)
	confidence, explanation := e.grade(successful)

	result := model.Result{
		Metric:         metric,
		Country:        source.CountryName(country),
		CountryCode:    country,
		Period:         latestPeriod(successful),
		Confidence:     confidence,
		Spread:         maxSpread(successful),
		Readings:       readings,
		Explanation:    explanation,
		TriangulatedAt: time.Now().UTC(),
	}

	if len(successful) > 0 {
		result.Consensus = model.Float64(mean(successful))
	}
	for _, r := range successful {
		result.SourcesUsed = append(result.SourcesUsed, r.Source)
	}

	return result
}

// fanOut dispatches all source fetches concurrently, bounded by a semaphore,
// and waits for every one to complete or time out. Results keep client order
// regardless of completion order.
func (e *Engine) fanOut(ctx context.Context, country string, metric model.Metric, period source.Period) []model.Reading {
	readings := make([]model.Reading, len(e.clients))
	semaphore := make(chan struct{}, e.maxConcurrent)
	var wg sync.WaitGroup

	for i, client := range e.clients {
		wg.Add(1)
		go func(idx int, c source.Client) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				r := model.Reading{
					Source:      c.Name(),
					Metric:      metric,
					Country:     source.CountryName(country),
					CountryCode: country,
					Unit:        "percent",
					Period:      "N/A",
					RetrievedAt: time.Now().UTC(),
					Err:         "context cancelled",
				}
				readings[idx] = r
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			readings[idx] = c.Fetch(ctx, country, metric, period)
		}(i, client)
	}

	wg.Wait()
	return readings
}

// agree reports whether two values are within tolerance of each other, in
// percentage points
func (e *Engine) agree(a, b float64) bool {
	return math.Abs(a-b) <= e.tolerance
}

// grade applies the confidence decision table to the successful readings
func (e *Engine) grade(successful []model.Reading) (model.Confidence, string) {
	switch len(successful) {
	case 0:
		return model.ConfidenceNoData, "No data available from any source."

	case 1:
		r := successful[0]
		return model.ConfidenceSingleSource,
			fmt.Sprintf("Only %s provided data (%.2f%%).", r.Source, *r.Value)

	case 2:
		a, b := successful[0], successful[1]
		if e.agree(*a.Value, *b.Value) {
			return model.ConfidenceMedium, fmt.Sprintf(
				"%s (%.2f%%) and %s (%.2f%%) agree within tolerance. Third source unavailable for full triangulation.",
				a.Source, *a.Value, b.Source, *b.Value)
		}
		return model.ConfidenceLow, fmt.Sprintf(
			"%s (%.2f%%) and %s (%.2f%%) disagree. Third source unavailable for tie-breaker.",
			a.Source, *a.Value, b.Source, *b.Value)
	}

	// Three or more readings: grade on pairwise agreement
	allAgree := true
	var pairA, pairB *model.Reading
	for i := range successful {
		for j := i + 1; j < len(successful); j++ {
			if e.agree(*successful[i].Value, *successful[j].Value) {
				if pairA == nil {
					pairA, pairB = &successful[i], &successful[j]
				}
			} else {
				allAgree = false
			}
		}
	}

	if allAgree {
		return model.ConfidenceHigh,
			fmt.Sprintf("All sources agree: %s.", describeReadings(successful))
	}
	if pairA != nil {
		outliers := outlierNames(successful, pairA.Source, pairB.Source)
		return model.ConfidenceMedium, fmt.Sprintf(
			"%s (%.2f%%) and %s (%.2f%%) agree. %s differs but serves as validation.",
			pairA.Source, *pairA.Value, pairB.Source, *pairB.Value, strings.Join(outliers, ", "))
	}
	return model.ConfidenceLow, fmt.Sprintf(
		"All sources disagree significantly: %s. Exercise caution with this data.",
		describeReadings(successful))
}

func describeReadings(readings []model.Reading) string {
	parts := make([]string, 0, len(readings))
	for _, r := range readings {
		parts = append(parts, fmt.Sprintf("%s (%.2f%%)", r.Source, *r.Value))
	}
	return strings.Join(parts, ", ")
}

func outlierNames(readings []model.Reading, agreeingA, agreeingB string) []string {
	var names []string
	for _, r := range readings {
		if r.Source != agreeingA && r.Source != agreeingB {
			names = append(names, r.Source)
		}
	}
	return names
}

func successfulReadings(readings []model.Reading) []model.Reading {
	var ok []model.Reading
	for _, r := range readings {
		if r.OK() {
			ok = append(ok, r)
		}
	}
	return ok
}

// mean is the consensus policy: all successful readings weighted equally,
// invariant to input order
func mean(readings []model.Reading) float64 {
	var sum float64
	for _, r := range readings {
		sum += *r.Value
	}
	return sum / float64(len(readings))
}

// maxSpread is the largest pairwise absolute difference between readings
func maxSpread(readings []model.Reading) float64 {
	var spread float64
	for i := range readings {
		for j := i + 1; j < len(readings); j++ {
			if d := math.Abs(*readings[i].Value - *readings[j].Value); d > spread {
				spread = d
			}
		}
	}
	return spread
}

// latestPeriod picks the most recent period label among the readings
func latestPeriod(readings []model.Reading) string {
	period := "N/A"
	for _, r := range readings {
		if r.Period != "N/A" && (period == "N/A" || r.Period > period) {
			period = r.Period
		}
	}
	return period
}
