package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/macroscope-data/macroscope/internal/model"
	"github.com/macroscope-data/macroscope/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveResults upserts results and their per-source readings, keyed on
// (country, metric, period). Re-running a pipeline for the same period
// refreshes the stored row instead of duplicating it.
func (s *Store) SaveResults(ctx context.Context, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	resultStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triangulation_results (
			country_code, country, metric, period, confidence,
			consensus, spread, sources, explanation, triangulated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(country_code, metric, period)
		DO UPDATE SET
			confidence = excluded.confidence,
			consensus = excluded.consensus,
			spread = excluded.spread,
			sources = excluded.sources,
			explanation = excluded.explanation,
			triangulated_at = excluded.triangulated_at
	`)
	if err != nil {
		return err
	}
	defer resultStmt.Close()

	readingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO source_readings (
			source, country_code, metric, period, value, unit, error, retrieved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, country_code, metric, period)
		DO UPDATE SET
			value = excluded.value,
			unit = excluded.unit,
			error = excluded.error,
			retrieved_at = excluded.retrieved_at
	`)
	if err != nil {
		return err
	}
	defer readingStmt.Close()

	now := time.Now().UTC()
	for i := range results {
		result := results[i]
		triangulatedAt := result.TriangulatedAt
		if triangulatedAt.IsZero() {
			triangulatedAt = now
		}
		var consensus any
		if result.Consensus != nil {
			consensus = *result.Consensus
		}
		_, err = resultStmt.ExecContext(
			ctx,
			result.CountryCode,
			result.Country,
			string(result.Metric),
			result.Period,
			string(result.Confidence),
			consensus,
			result.Spread,
			strings.Join(result.SourcesUsed, ","),
			result.Explanation,
			triangulatedAt,
		)
		if err != nil {
			return err
		}

		for _, reading := range result.Readings {
			var value any
			if reading.Value != nil {
				value = *reading.Value
			}
			retrievedAt := reading.RetrievedAt
			if retrievedAt.IsZero() {
				retrievedAt = now
			}
			_, err = readingStmt.ExecContext(
				ctx,
				reading.Source,
				result.CountryCode,
				string(reading.Metric),
				reading.Period,
				value,
				reading.Unit,
				reading.Err,
				retrievedAt.UTC(),
			)
			if err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// ListResults returns stored results, newest first. Empty countryCode
// or metric matches everything.
func (s *Store) ListResults(ctx context.Context, countryCode string, metric model.Metric, limit int) ([]store.ResultRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT country_code, country, metric, period, confidence,
		       consensus, spread, sources, triangulated_at
		FROM triangulation_results
	`
	var conds []string
	var args []any
	if countryCode != "" {
		conds = append(conds, "country_code = ?")
		args = append(args, countryCode)
	}
	if metric != "" {
		conds = append(conds, "metric = ?")
		args = append(args, string(metric))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY triangulated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.ResultRecord
	for rows.Next() {
		var rec store.ResultRecord
		var metricText, confidenceText, sources string
		var consensus sql.NullFloat64
		if err := rows.Scan(
			&rec.CountryCode,
			&rec.Country,
			&metricText,
			&rec.Period,
			&confidenceText,
			&consensus,
			&rec.Spread,
			&sources,
			&rec.TriangulatedAt,
		); err != nil {
			return nil, err
		}
		rec.Metric = model.Metric(metricText)
		rec.Confidence = model.Confidence(confidenceText)
		if consensus.Valid {
			v := consensus.Float64
			rec.Consensus = &v
		}
		if sources != "" {
			rec.Sources = strings.Split(sources, ",")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS triangulation_results (
			country_code TEXT NOT NULL,
			country TEXT NOT NULL,
			metric TEXT NOT NULL,
			period TEXT NOT NULL,
			confidence TEXT NOT NULL,
			consensus REAL,
			spread REAL NOT NULL,
			sources TEXT NOT NULL,
			explanation TEXT NOT NULL,
			triangulated_at TEXT NOT NULL,
			PRIMARY KEY (country_code, metric, period)
		);`,
		`CREATE TABLE IF NOT EXISTS source_readings (
			source TEXT NOT NULL,
			country_code TEXT NOT NULL,
			metric TEXT NOT NULL,
			period TEXT NOT NULL,
			value REAL,
			unit TEXT,
			error TEXT,
			retrieved_at TEXT NOT NULL,
			PRIMARY KEY (source, country_code, metric, period)
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
