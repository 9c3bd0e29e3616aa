package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tunogya/footprint/pkg/metrics"
	"github.com/tunogya/footprint/pkg/model"
)

// Scanner evaluates many symbols concurrently. Each symbol is processed
// on its own bar slice; only the result collection is shared.
type Scanner struct {
	engine      *Engine
	concurrency int
}

// NewScanner creates a scanner; concurrency <= 0 means one worker
func NewScanner(engine *Engine, concurrency int) *Scanner {
	if engine == nil {
		engine = defaultEngine
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scanner{engine: engine, concurrency: concurrency}
}

// ScanLatest runs latest-only mode on every symbol group and returns the
// records that carry at least one signal, sorted by symbol. Symbols with
// too little history are skipped silently.
func (s *Scanner) ScanLatest(ctx context.Context, groups map[string][]model.Bar) ([]model.Record, error) {
	start := time.Now()
	defer func() { metrics.ScanDuration.WithLabelValues("latest").Observe(time.Since(start).Seconds()) }()

	var (
		mu      sync.Mutex
		results []model.Record
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for symbol, bars := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := s.engine.Latest(bars)
			if err != nil {
				return fmt.Errorf("symbol %s: %w", symbol, err)
			}
			if n := min(len(bars), model.LatestTailBars); n >= s.engine.preparer.MinBars {
				metrics.BarsPrepared.Add(float64(n))
			}
			if rec == nil || !rec.HasSignals() {
				return nil
			}
			countLabels(rec)

			mu.Lock()
			results = append(results, *rec)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Symbol < results[j].Symbol
	})
	return results, nil
}

// ScanHistory runs full-history mode on every symbol group. Symbols with
// too little history map to an empty slice.
func (s *Scanner) ScanHistory(ctx context.Context, groups map[string][]model.Bar) (map[string][]model.Record, error) {
	start := time.Now()
	defer func() { metrics.ScanDuration.WithLabelValues("history").Observe(time.Since(start).Seconds()) }()

	var mu sync.Mutex
	out := make(map[string][]model.Record, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for symbol, bars := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := s.engine.History(bars)
			if err != nil {
				return fmt.Errorf("symbol %s: %w", symbol, err)
			}
			if len(bars) >= s.engine.preparer.MinBars {
				metrics.BarsPrepared.Add(float64(len(bars)))
			}
			for i := range records {
				records[i].Symbol = symbol
				countLabels(&records[i])
			}

			mu.Lock()
			out[symbol] = records
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func countLabels(rec *model.Record) {
	for _, l := range model.ParseLabels(rec.Signals).Labels() {
		metrics.SignalsTotal.WithLabelValues(string(l)).Inc()
	}
}
