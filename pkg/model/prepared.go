package model

// Window sizes used by the feature preparer and the classifier
const (
	AvgWindow         = 20 // trailing bars for AvgBody and AvgVolume
	RangeStdWindow    = 10 // trailing bars for RangeStd
	AvgRangeStdWindow = 50 // trailing bars for AvgRangeStd
	LookbackBars      = 50 // preceding bars searched for the POI
	MinBars           = 20 // shorter sequences produce no prepared bars
	LatestTailBars    = 60 // tail length for latest-only evaluation
)

// Stat is a rolling statistic. Valid is false when the window reaches
// before the start of the sequence; Value is then zero.
type Stat struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// NewStat returns a valid statistic
func NewStat(v float64) Stat {
	return Stat{Value: v, Valid: true}
}

// Float returns the zero-filled value consumed by the classifier
func (s Stat) Float() float64 {
	if !s.Valid {
		return 0
	}
	return s.Value
}

// PreparedBar is a Bar plus the derived features the classifier reads
type PreparedBar struct {
	Bar

	Body        float64 `json:"body"`
	AbsBody     float64 `json:"abs_body"`
	LowerShadow float64 `json:"lower_shadow"`
	UpperShadow float64 `json:"upper_shadow"`

	AvgBody     Stat `json:"avg_body"`      // mean |body|, 20 bars
	AvgVolume   Stat `json:"avg_volume"`    // mean volume, 20 bars
	RangeStd    Stat `json:"range_std"`     // close stddev, 10 bars
	AvgRangeStd Stat `json:"avg_range_std"` // close stddev, 50 bars
}

// Lookback is a read-only view of the prepared bars immediately
// preceding the bar under evaluation, oldest first
type Lookback []PreparedBar

// LookbackFor returns the context for prepared[i]: up to LookbackBars
// bars ending just before i. The result aliases prepared.
func LookbackFor(prepared []PreparedBar, i int) Lookback {
	start := i - LookbackBars
	if start < 0 {
		start = 0
	}
	return Lookback(prepared[start:i:i])
}

// MaxVolume returns the earliest bar with the highest volume
func (l Lookback) MaxVolume() (PreparedBar, bool) {
	if len(l) == 0 {
		return PreparedBar{}, false
	}
	best := 0
	for i := 1; i < len(l); i++ {
		if l[i].Volume > l[best].Volume {
			best = i
		}
	}
	return l[best], true
}
