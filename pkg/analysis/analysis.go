// Package analysis runs the preparer and classifier over bar sequences in
// full-history and latest-only modes.
package analysis

import (
	"github.com/tunogya/footprint/pkg/feature"
	"github.com/tunogya/footprint/pkg/model"
	"github.com/tunogya/footprint/pkg/signal"
)

// Engine pairs a preparer with a classifier
type Engine struct {
	preparer   *feature.Preparer
	classifier *signal.Classifier
}

// NewEngine creates an engine with the standard preparer and rule table
func NewEngine() *Engine {
	return &Engine{
		preparer:   feature.NewPreparer(),
		classifier: signal.NewClassifier(),
	}
}

var defaultEngine = NewEngine()

// History classifies every bar of one symbol with the default engine
func History(bars []model.Bar) ([]model.Record, error) {
	return defaultEngine.History(bars)
}

// Latest classifies the most recent bar of one symbol with the default engine
func Latest(bars []model.Bar) (*model.Record, error) {
	return defaultEngine.Latest(bars)
}

// History prepares the whole sequence once and emits one record per bar
// from index MinBars onward. Records carry no symbol.
func (e *Engine) History(bars []model.Bar) ([]model.Record, error) {
	prepared, err := e.preparer.Prepare(bars)
	if err != nil {
		return nil, err
	}
	if len(prepared) <= e.preparer.MinBars {
		return nil, nil
	}

	records := make([]model.Record, 0, len(prepared)-e.preparer.MinBars)
	for i := e.preparer.MinBars; i < len(prepared); i++ {
		labels := e.classifier.ClassifyAt(prepared, i)
		records = append(records, model.NewRecord(&prepared[i], labels))
	}
	return records, nil
}

// Latest prepares only the trailing LatestTailBars bars and classifies the
// last one. The result equals the last History record over the same bars.
// Returns nil when the symbol has too little history.
func (e *Engine) Latest(bars []model.Bar) (*model.Record, error) {
	tail := bars
	if len(tail) > model.LatestTailBars {
		tail = tail[len(tail)-model.LatestTailBars:]
	}

	prepared, err := e.preparer.Prepare(tail)
	if err != nil {
		return nil, err
	}
	last := len(prepared) - 1
	if last < e.preparer.MinBars {
		return nil, nil
	}

	labels := e.classifier.ClassifyAt(prepared, last)
	rec := model.NewRecord(&prepared[last], labels)
	rec.Symbol = prepared[last].Symbol
	return &rec, nil
}
