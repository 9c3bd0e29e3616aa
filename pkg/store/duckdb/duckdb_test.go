package duckdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/footprint/pkg/model"
)

func openTest(t *testing.T) *Client {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "test.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testBars(symbol string, n int) []model.Bar {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 50 + float64(i)
		bars[i] = model.Bar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   c - 1,
			High:   c + 1,
			Low:    c - 2,
			Close:  c,
			Volume: int64(100 * (i + 1)),
		}
	}
	return bars
}

func TestBarRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewBarRepo(openTest(t))

	require.NoError(t, repo.InsertBatch(ctx, testBars("msft", 5)))
	require.NoError(t, repo.InsertBatch(ctx, testBars("AAPL", 30)))

	symbols, err := repo.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	count, err := repo.Count(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, int64(30), count)

	all, err := repo.FetchBars(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, testBars("MSFT", 5), all)

	latest, err := repo.FetchLatestBars(ctx, "AAPL", 3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, 77.0, latest[0].Close)
	assert.Equal(t, 79.0, latest[2].Close)
}

func TestBarRepoUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewBarRepo(openTest(t))

	bars := testBars("AAPL", 3)
	require.NoError(t, repo.InsertBatch(ctx, bars))

	fixed := bars[1]
	fixed.Close = 99
	require.NoError(t, repo.Insert(ctx, &fixed))

	got, err := repo.FetchBars(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 99.0, got[1].Close)
}

func TestSignalRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewSignalRepo(openTest(t))

	run, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Empty(t, run)

	records := []model.Record{
		{Symbol: "MSFT", Date: "2024-02-02", Close: 10, Volume: 5, Signals: ""},
		{Symbol: "AAPL", Date: "2024-02-03", Close: 11, Volume: 6, Signals: "Near POI"},
		{Symbol: "AAPL", Date: "2024-02-02", Close: 12, Volume: 7, Signals: "Aggressive Buyer, Near POI"},
	}
	require.NoError(t, repo.InsertBatch(ctx, "run-1", records))

	got, err := repo.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, records[2], got[0])
	assert.Equal(t, records[1], got[1])
	assert.Equal(t, records[0], got[2])

	run, err = repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run)
}

func TestSignalRepoRejectsBadDate(t *testing.T) {
	repo := NewSignalRepo(openTest(t))
	err := repo.InsertBatch(context.Background(), "run", []model.Record{{Symbol: "A", Date: "yesterday"}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
