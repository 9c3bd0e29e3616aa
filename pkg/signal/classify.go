// Package signal labels prepared bars with order-flow signals.
package signal

import "github.com/tunogya/footprint/pkg/model"

// Classifier applies a rule table to prepared bars
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier; with no rules it uses DefaultRules
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

var defaultClassifier = NewClassifier()

// Classify labels a bar using DefaultRules
func Classify(bar model.PreparedBar, lookback model.Lookback) model.LabelSet {
	return defaultClassifier.Classify(bar, lookback)
}

// Classify returns the union of labels from every rule. The lookback is
// only read.
func (c *Classifier) Classify(bar model.PreparedBar, lookback model.Lookback) model.LabelSet {
	labels := model.NewLabelSet()
	for _, r := range c.rules {
		for _, l := range r.Eval(&bar, lookback) {
			labels.Add(l)
		}
	}
	return labels
}

// ClassifyAt labels prepared[i] with its standard lookback window
func (c *Classifier) ClassifyAt(prepared []model.PreparedBar, i int) model.LabelSet {
	return c.Classify(prepared[i], model.LookbackFor(prepared, i))
}
