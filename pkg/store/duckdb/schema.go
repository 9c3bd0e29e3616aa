package duckdb

import (
	"context"
	"fmt"
)

// CreateBarsTable creates the daily bars fact table
const CreateBarsTable = `
CREATE TABLE IF NOT EXISTS bars (
    symbol VARCHAR NOT NULL,
    date DATE NOT NULL,
    open DOUBLE,
    high DOUBLE,
    low DOUBLE,
    close DOUBLE,
    volume BIGINT,
    PRIMARY KEY (symbol, date)
);
`

// CreateSignalsTable creates the classified records table, one row per
// bar per scan run
const CreateSignalsTable = `
CREATE TABLE IF NOT EXISTS signals (
    run_id VARCHAR NOT NULL,
    symbol VARCHAR NOT NULL,
    date DATE NOT NULL,
    close DOUBLE,
    volume BIGINT,
    signals VARCHAR NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (run_id, symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
`

// InitializeSchema creates all required tables
func InitializeSchema(ctx context.Context, c *Client) error {
	for _, schema := range []string{CreateBarsTable, CreateSignalsTable} {
		if err := c.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// DropAllTables drops all tables (use with caution)
func DropAllTables(ctx context.Context, c *Client) error {
	for _, table := range []string{"signals", "bars"} {
		if err := c.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
