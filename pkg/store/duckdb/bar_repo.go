package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tunogya/footprint/pkg/model"
)

const upsertBar = `
	INSERT INTO bars (symbol, date, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume
`

// BarRepo handles bar persistence. It also satisfies data.BarProvider.
type BarRepo struct {
	client *Client
}

// NewBarRepo creates a new bar repository
func NewBarRepo(client *Client) *BarRepo {
	return &BarRepo{client: client}
}

// Insert upserts a single bar
func (r *BarRepo) Insert(ctx context.Context, b *model.Bar) error {
	return r.client.Exec(ctx, upsertBar,
		strings.ToUpper(b.Symbol), b.Date, b.Open, b.High, b.Low, b.Close, b.Volume,
	)
}

// InsertBatch upserts multiple bars in a transaction
func (r *BarRepo) InsertBatch(ctx context.Context, bars []model.Bar) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertBar)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			strings.ToUpper(b.Symbol), b.Date, b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	return tx.Commit()
}

// Symbols lists every stored symbol
func (r *BarRepo) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.client.Query(ctx, "SELECT DISTINCT symbol FROM bars ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// FetchBars retrieves all bars for a symbol in date order
func (r *BarRepo) FetchBars(ctx context.Context, symbol string) ([]model.Bar, error) {
	rows, err := r.client.Query(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ?
		ORDER BY date ASC
	`, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// FetchLatestBars retrieves the most recent N bars in date order
func (r *BarRepo) FetchLatestBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error) {
	if limit <= 0 {
		return r.FetchBars(ctx, symbol)
	}

	rows, err := r.client.Query(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// Count returns the number of bars stored for a symbol
func (r *BarRepo) Count(ctx context.Context, symbol string) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM bars WHERE symbol = ?", strings.ToUpper(symbol))
	err := row.Scan(&count)
	return count, err
}

func scanBars(rows *sql.Rows) ([]model.Bar, error) {
	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
