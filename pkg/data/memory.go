package data

import (
	"context"
	"sync"

	"github.com/tunogya/footprint/pkg/model"
)

// MemoryProvider implements BarProvider with in-memory storage
type MemoryProvider struct {
	mu     sync.RWMutex
	groups map[string][]model.Bar
}

// NewMemoryProvider creates a provider over a flat bar table
func NewMemoryProvider(bars []model.Bar) *MemoryProvider {
	return &MemoryProvider{groups: GroupBySymbol(bars)}
}

// AddBars merges bars into the provider
func (p *MemoryProvider) AddBars(bars []model.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var all []model.Bar
	for _, seq := range p.groups {
		all = append(all, seq...)
	}
	all = append(all, bars...)
	p.groups = GroupBySymbol(all)
}

// Symbols lists known symbols
func (p *MemoryProvider) Symbols(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.groups), nil
}

// FetchBars retrieves all bars for a symbol
func (p *MemoryProvider) FetchBars(ctx context.Context, symbol string) ([]model.Bar, error) {
	return p.FetchLatestBars(ctx, symbol, 0)
}

// FetchLatestBars retrieves the most recent N bars
func (p *MemoryProvider) FetchLatestBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seq := tail(p.groups[NormalizeSymbol(symbol)], limit)
	out := make([]model.Bar, len(seq))
	copy(out, seq)
	return out, nil
}

// Groups returns copies of every symbol's bars
func (p *MemoryProvider) Groups(ctx context.Context, limit int) (map[string][]model.Bar, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string][]model.Bar, len(p.groups))
	for symbol, seq := range p.groups {
		seq = tail(seq, limit)
		cp := make([]model.Bar, len(seq))
		copy(cp, seq)
		out[symbol] = cp
	}
	return out, nil
}
