package data

import (
	"context"
	"fmt"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/tunogya/footprint/pkg/model"
)

// ParquetProvider implements BarProvider over a parquet file of bars.
// The file is read once on first use.
type ParquetProvider struct {
	path string

	once sync.Once
	mem  *MemoryProvider
	err  error
}

// NewParquetProvider creates a provider reading the given file
func NewParquetProvider(path string) *ParquetProvider {
	return &ParquetProvider{path: path}
}

func (p *ParquetProvider) load() (*MemoryProvider, error) {
	p.once.Do(func() {
		bars, err := parquet.ReadFile[model.Bar](p.path)
		if err != nil {
			p.err = fmt.Errorf("failed to read parquet file: %w", err)
			return
		}
		p.mem = NewMemoryProvider(bars)
	})
	return p.mem, p.err
}

// Symbols lists known symbols
func (p *ParquetProvider) Symbols(ctx context.Context) ([]string, error) {
	mem, err := p.load()
	if err != nil {
		return nil, err
	}
	return mem.Symbols(ctx)
}

// FetchBars retrieves all bars for a symbol
func (p *ParquetProvider) FetchBars(ctx context.Context, symbol string) ([]model.Bar, error) {
	mem, err := p.load()
	if err != nil {
		return nil, err
	}
	return mem.FetchBars(ctx, symbol)
}

// FetchLatestBars retrieves the most recent N bars
func (p *ParquetProvider) FetchLatestBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error) {
	mem, err := p.load()
	if err != nil {
		return nil, err
	}
	return mem.FetchLatestBars(ctx, symbol, limit)
}

// Groups returns every symbol's bars
func (p *ParquetProvider) Groups(ctx context.Context, limit int) (map[string][]model.Bar, error) {
	mem, err := p.load()
	if err != nil {
		return nil, err
	}
	return mem.Groups(ctx, limit)
}

// WriteParquet saves bars to a parquet file readable by ParquetProvider
func WriteParquet(path string, bars []model.Bar) error {
	return parquet.WriteFile(path, bars)
}
