package data

import (
	"context"
	"sort"
	"strings"

	"github.com/tunogya/footprint/pkg/model"
)

// BarProvider defines the interface for fetching daily bar sequences
type BarProvider interface {
	// Symbols lists every symbol the provider knows, sorted
	Symbols(ctx context.Context) ([]string, error)

	// FetchBars retrieves all bars for a symbol, oldest first.
	// An unknown symbol returns an empty slice and no error.
	FetchBars(ctx context.Context, symbol string) ([]model.Bar, error)

	// FetchLatestBars retrieves the most recent N bars, oldest first
	FetchLatestBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error)
}

// GroupLoader is implemented by providers that can return every symbol's
// bars from a single read
type GroupLoader interface {
	// Groups returns per-symbol sequences; limit > 0 keeps only the last limit bars
	Groups(ctx context.Context, limit int) (map[string][]model.Bar, error)
}

// LoadGroups returns the bars of every symbol, using a single read when the
// provider supports it
func LoadGroups(ctx context.Context, p BarProvider, limit int) (map[string][]model.Bar, error) {
	if gl, ok := p.(GroupLoader); ok {
		return gl.Groups(ctx, limit)
	}

	symbols, err := p.Symbols(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]model.Bar, len(symbols))
	for _, s := range symbols {
		var bars []model.Bar
		if limit > 0 {
			bars, err = p.FetchLatestBars(ctx, s, limit)
		} else {
			bars, err = p.FetchBars(ctx, s)
		}
		if err != nil {
			return nil, err
		}
		groups[s] = bars
	}
	return groups, nil
}

// NormalizeSymbol trims and upper-cases a ticker
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// GroupBySymbol partitions a flat bar table into per-symbol sequences sorted
// by date. Duplicate dates within a symbol keep the last occurrence.
func GroupBySymbol(bars []model.Bar) map[string][]model.Bar {
	groups := make(map[string][]model.Bar)
	for _, b := range bars {
		b.Symbol = NormalizeSymbol(b.Symbol)
		groups[b.Symbol] = append(groups[b.Symbol], b)
	}

	for symbol, seq := range groups {
		sort.SliceStable(seq, func(i, j int) bool {
			return seq[i].Date.Before(seq[j].Date)
		})

		deduped := seq[:0]
		for _, b := range seq {
			if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(b.Date) {
				deduped[n-1] = b
				continue
			}
			deduped = append(deduped, b)
		}
		groups[symbol] = deduped
	}
	return groups
}

// sortedKeys returns the symbols of a group map in order
func sortedKeys(groups map[string][]model.Bar) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// tail returns the last limit bars; limit <= 0 returns all
func tail(bars []model.Bar, limit int) []model.Bar {
	if limit <= 0 || len(bars) <= limit {
		return bars
	}
	return bars[len(bars)-limit:]
}
