package feature

import (
	"fmt"
	"math"

	"github.com/tunogya/footprint/pkg/model"
)

// Preparer derives per-bar features from an ascending bar sequence
type Preparer struct {
	AvgWindow         int // window for AvgBody and AvgVolume
	RangeStdWindow    int // window for RangeStd
	AvgRangeStdWindow int // window for AvgRangeStd
	MinBars           int // sequences shorter than this are skipped
}

// NewPreparer creates a preparer with the standard window sizes
func NewPreparer() *Preparer {
	return &Preparer{
		AvgWindow:         model.AvgWindow,
		RangeStdWindow:    model.RangeStdWindow,
		AvgRangeStdWindow: model.AvgRangeStdWindow,
		MinBars:           model.MinBars,
	}
}

var defaultPreparer = NewPreparer()

// Prepare derives features using the standard window sizes
func Prepare(bars []model.Bar) ([]model.PreparedBar, error) {
	return defaultPreparer.Prepare(bars)
}

// Prepare returns one PreparedBar per input bar, in input order.
// A sequence shorter than MinBars returns nil with no error: the caller
// should skip the symbol.
func (p *Preparer) Prepare(bars []model.Bar) ([]model.PreparedBar, error) {
	if p.AvgWindow < 1 || p.RangeStdWindow < 2 || p.AvgRangeStdWindow < 2 {
		return nil, fmt.Errorf("window sizes avg=%d range=%d avgRange=%d: %w",
			p.AvgWindow, p.RangeStdWindow, p.AvgRangeStdWindow, model.ErrInvalidInput)
	}
	if len(bars) < p.MinBars {
		return nil, nil
	}
	if err := Validate(bars); err != nil {
		return nil, err
	}

	n := len(bars)
	absBodies := make([]float64, n)
	volumes := make([]float64, n)
	closes := make([]float64, n)

	prepared := make([]model.PreparedBar, n)
	for i := range bars {
		b := &bars[i]
		body := b.Change()

		prepared[i] = model.PreparedBar{
			Bar:         *b,
			Body:        body,
			AbsBody:     math.Abs(body),
			LowerShadow: b.LowerWick(),
			UpperShadow: b.UpperWick(),
		}

		absBodies[i] = prepared[i].AbsBody
		volumes[i] = float64(b.Volume)
		closes[i] = b.Close
	}

	avgBody := rollingMean(absBodies, p.AvgWindow)
	avgVolume := rollingMean(volumes, p.AvgWindow)
	rangeStd := rollingStd(closes, p.RangeStdWindow)
	avgRangeStd := rollingStd(closes, p.AvgRangeStdWindow)

	for i := range prepared {
		prepared[i].AvgBody = avgBody[i]
		prepared[i].AvgVolume = avgVolume[i]
		prepared[i].RangeStd = rangeStd[i]
		prepared[i].AvgRangeStd = avgRangeStd[i]
	}

	return prepared, nil
}

// Validate checks the provider contract for one symbol's sequence
func Validate(bars []model.Bar) error {
	for i := range bars {
		b := &bars[i]
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d (%s): non-finite price: %w", i, b.DateString(), model.ErrInvalidInput)
			}
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d (%s): high %.4f below low %.4f: %w", i, b.DateString(), b.High, b.Low, model.ErrInvalidInput)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d (%s): negative volume: %w", i, b.DateString(), model.ErrInvalidInput)
		}
		if i == 0 {
			continue
		}
		prev := &bars[i-1]
		if b.Symbol != prev.Symbol {
			return fmt.Errorf("bar %d: mixed symbols %q and %q: %w", i, prev.Symbol, b.Symbol, model.ErrInvalidInput)
		}
		if !b.Date.After(prev.Date) {
			return fmt.Errorf("bar %d (%s): dates not strictly ascending: %w", i, b.DateString(), model.ErrInvalidInput)
		}
	}
	return nil
}
