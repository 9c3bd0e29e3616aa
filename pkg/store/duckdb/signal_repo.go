package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tunogya/footprint/pkg/model"
)

// SignalRepo stores classified records grouped by scan run
type SignalRepo struct {
	client *Client
}

// NewSignalRepo creates a new signal repository
func NewSignalRepo(client *Client) *SignalRepo {
	return &SignalRepo{client: client}
}

// InsertBatch stores records under runID in a transaction
func (r *SignalRepo) InsertBatch(ctx context.Context, runID string, records []model.Record) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (run_id, symbol, date, close, volume, signals, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, symbol, date) DO UPDATE SET
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			signals = EXCLUDED.signals
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		date, err := time.Parse(model.DateLayout, rec.Date)
		if err != nil {
			return fmt.Errorf("record %s %q: %w", rec.Symbol, rec.Date, model.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx, runID, rec.Symbol, date, rec.Close, rec.Volume, rec.Signals, now); err != nil {
			return fmt.Errorf("failed to insert signal: %w", err)
		}
	}

	return tx.Commit()
}

// GetByRun retrieves the records of one run ordered by symbol and date
func (r *SignalRepo) GetByRun(ctx context.Context, runID string) ([]model.Record, error) {
	rows, err := r.client.Query(ctx, `
		SELECT symbol, date, close, volume, signals
		FROM signals
		WHERE run_id = ?
		ORDER BY symbol ASC, date ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			rec  model.Record
			date time.Time
		)
		if err := rows.Scan(&rec.Symbol, &date, &rec.Close, &rec.Volume, &rec.Signals); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		rec.Date = date.UTC().Format(model.DateLayout)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestRun returns the most recently written run ID, or "" if none
func (r *SignalRepo) LatestRun(ctx context.Context) (string, error) {
	var runID string
	row := r.client.QueryRow(ctx, `
		SELECT run_id FROM signals
		GROUP BY run_id
		ORDER BY MAX(created_at) DESC
		LIMIT 1
	`)
	if err := row.Scan(&runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return runID, nil
}
