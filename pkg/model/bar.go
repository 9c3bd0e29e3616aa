package model

import (
	"errors"
	"time"
)

// DateLayout is the calendar date format used on the wire
const DateLayout = "2006-01-02"

// ErrInvalidInput marks a bar sequence that breaks the provider contract
// (unordered dates, mixed symbols, non-finite prices, negative volume)
var ErrInvalidInput = errors.New("invalid input")

// Bar represents a single daily OHLCV observation for one symbol
type Bar struct {
	Symbol string    `json:"symbol" parquet:"symbol"`
	Date   time.Time `json:"date" parquet:"date,timestamp(millisecond)"`
	Open   float64   `json:"open" parquet:"open"`
	High   float64   `json:"high" parquet:"high"`
	Low    float64   `json:"low" parquet:"low"`
	Close  float64   `json:"close" parquet:"close"`
	Volume int64     `json:"volume" parquet:"volume"`
}

// Change returns close minus open
func (b *Bar) Change() float64 {
	return b.Close - b.Open
}

// LowerWick returns the wick below the body
func (b *Bar) LowerWick() float64 {
	bottom := b.Open
	if b.Close < b.Open {
		bottom = b.Close
	}
	return bottom - b.Low
}

// UpperWick returns the wick above the body
func (b *Bar) UpperWick() float64 {
	top := b.Close
	if b.Open > b.Close {
		top = b.Open
	}
	return b.High - top
}

// IsBullish returns true if close > open
func (b *Bar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish returns true if close < open
func (b *Bar) IsBearish() bool {
	return b.Close < b.Open
}

// DateString formats the bar date as YYYY-MM-DD
func (b *Bar) DateString() string {
	return b.Date.Format(DateLayout)
}
