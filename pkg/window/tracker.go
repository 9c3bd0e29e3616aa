// Package window keeps a bounded tail of recent bars per symbol and runs
// latest-only evaluation as new bars arrive.
package window

import (
	"fmt"
	"sync"

	"github.com/tunogya/footprint/pkg/analysis"
	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/feature"
	"github.com/tunogya/footprint/pkg/model"
)

// Tracker holds one ring buffer per symbol
type Tracker struct {
	capacity int
	engine   *analysis.Engine

	mu      sync.Mutex
	buffers map[string]*RingBuffer
}

// NewTracker creates a tracker keeping capacity bars per symbol.
// capacity below LatestTailBars is raised to it.
func NewTracker(capacity int, engine *analysis.Engine) *Tracker {
	if capacity < model.LatestTailBars {
		capacity = model.LatestTailBars
	}
	if engine == nil {
		engine = analysis.NewEngine()
	}
	return &Tracker{
		capacity: capacity,
		engine:   engine,
		buffers:  make(map[string]*RingBuffer),
	}
}

func (t *Tracker) buffer(symbol string) *RingBuffer {
	t.mu.Lock()
	defer t.mu.Unlock()

	rb, ok := t.buffers[symbol]
	if !ok {
		rb = NewRingBuffer(t.capacity)
		t.buffers[symbol] = rb
	}
	return rb
}

// Seed loads history for a symbol without evaluating it. Bars must be
// ascending; older bars than the buffered tail are ignored.
func (t *Tracker) Seed(bars []model.Bar) {
	for _, b := range bars {
		b.Symbol = data.NormalizeSymbol(b.Symbol)
		t.buffer(b.Symbol).Append(b)
	}
}

// Push appends a bar and evaluates the symbol's latest bar. It returns nil
// while the symbol has too little history. A bar with the same date as the
// last one replaces it, so a replayed or corrected bar is evaluated again.
// A bar older than the last one is rejected with ErrInvalidInput.
func (t *Tracker) Push(b model.Bar) (*model.Record, error) {
	b.Symbol = data.NormalizeSymbol(b.Symbol)
	if b.Symbol == "" {
		return nil, fmt.Errorf("bar without symbol: %w", model.ErrInvalidInput)
	}
	if err := feature.Validate([]model.Bar{b}); err != nil {
		return nil, err
	}

	bars, ok := t.buffer(b.Symbol).Append(b)
	if !ok {
		return nil, fmt.Errorf("%s %s: older than last bar: %w", b.Symbol, b.DateString(), model.ErrInvalidInput)
	}
	return t.engine.Latest(bars)
}

// Size returns the number of bars buffered for a symbol
func (t *Tracker) Size(symbol string) int {
	t.mu.Lock()
	rb, ok := t.buffers[data.NormalizeSymbol(symbol)]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return rb.Size()
}

// Reset drops the buffered bars of a symbol
func (t *Tracker) Reset(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.buffers, data.NormalizeSymbol(symbol))
}

// Snapshot holds copies of some symbols' buffers. A nil entry marks a
// symbol that had no buffer.
type Snapshot map[string][]model.Bar

// Snapshot copies the buffers of the given symbols
func (t *Tracker) Snapshot(symbols ...string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := make(Snapshot, len(symbols))
	for _, s := range symbols {
		s = data.NormalizeSymbol(s)
		if rb, ok := t.buffers[s]; ok {
			snap[s] = rb.ToSlice()
		} else {
			snap[s] = nil
		}
	}
	return snap
}

// Restore puts the buffers back to the state captured by Snapshot
func (t *Tracker) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for s, bars := range snap {
		if bars == nil {
			delete(t.buffers, s)
			continue
		}
		rb := NewRingBuffer(t.capacity)
		for _, b := range bars {
			rb.Push(b)
		}
		t.buffers[s] = rb
	}
}
