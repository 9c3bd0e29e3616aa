package model

import (
	"slices"
	"strings"
)

// Label names a market-microstructure signal fired on a bar
type Label string

// Signal labels
const (
	AggressiveBuyer   Label = "Aggressive Buyer"
	AggressiveSeller  Label = "Aggressive Seller"
	NearPOI           Label = "Near POI"
	PointOfRelease    Label = "Point of Release"
	SellersAbsorption Label = "Sellers Absorption"
	BuyersAbsorption  Label = "Buyers Absorption"
	LowerShadowAbsorb Label = "Absorption (L-Shadow)"
	UpperShadowAbsorb Label = "Absorption (U-Shadow)"
)

// AllLabels lists every label in rule order
var AllLabels = []Label{
	AggressiveBuyer,
	AggressiveSeller,
	NearPOI,
	PointOfRelease,
	SellersAbsorption,
	BuyersAbsorption,
	LowerShadowAbsorb,
	UpperShadowAbsorb,
}

// LabelSeparator joins labels in the rendered signal string
const LabelSeparator = ", "

// LabelSet is an unordered set of labels
type LabelSet map[Label]struct{}

// NewLabelSet builds a set from the given labels, collapsing duplicates
func NewLabelSet(labels ...Label) LabelSet {
	s := make(LabelSet, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Add inserts a label
func (s LabelSet) Add(l Label) {
	s[l] = struct{}{}
}

// Has reports whether the label is present
func (s LabelSet) Has(l Label) bool {
	_, ok := s[l]
	return ok
}

// Len returns the number of labels
func (s LabelSet) Len() int {
	return len(s)
}

// Labels returns the known labels in rule order, followed by any unknown
// labels sorted by name
func (s LabelSet) Labels() []Label {
	out := make([]Label, 0, len(s))
	known := make(map[Label]bool, len(AllLabels))
	for _, l := range AllLabels {
		known[l] = true
		if s.Has(l) {
			out = append(out, l)
		}
	}

	var unknown []Label
	for l := range s {
		if !known[l] {
			unknown = append(unknown, l)
		}
	}
	slices.Sort(unknown)
	return append(out, unknown...)
}

// String renders the set as a comma-joined string, empty if no labels
func (s LabelSet) String() string {
	labels := s.Labels()
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, LabelSeparator)
}

// ParseLabels splits a rendered signal string back into a set.
// Unknown names are kept as-is.
func ParseLabels(s string) LabelSet {
	set := NewLabelSet()
	if strings.TrimSpace(s) == "" {
		return set
	}
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			set.Add(Label(name))
		}
	}
	return set
}

// Record is one classified bar as returned to callers.
// Signals is never omitted; no signals renders as "".
type Record struct {
	Symbol  string  `json:"Symbol,omitempty"`
	Date    string  `json:"Date"`
	Close   float64 `json:"Close"`
	Volume  int64   `json:"Volume"`
	Signals string  `json:"Signals"`
}

// NewRecord builds a record from a prepared bar and its labels
func NewRecord(b *PreparedBar, labels LabelSet) Record {
	return Record{
		Date:    b.DateString(),
		Close:   b.Close,
		Volume:  b.Volume,
		Signals: labels.String(),
	}
}

// HasSignals returns true if at least one label fired
func (r *Record) HasSignals() bool {
	return r.Signals != ""
}
