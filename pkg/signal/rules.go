package signal

import (
	"math"

	"github.com/tunogya/footprint/pkg/model"
)

// Rule thresholds. These are fixed calibration constants.
const (
	aggressiveBodyMult   = 1.5
	aggressiveVolumeMult = 1.2
	poiProximity         = 0.01
	releaseBodyMult      = 2.0
	releaseCompression   = 0.5
	absorbVolumeMult     = 1.5
	absorbBodyMult       = 0.3
	shadowVolumeMult     = 1.2
	shadowBodyMult       = 2.0
)

// Rule evaluates one firing condition against a prepared bar
type Rule interface {
	Name() string
	Eval(bar *model.PreparedBar, lookback model.Lookback) []model.Label
}

// RuleFunc adapts a plain function to the Rule interface
type RuleFunc struct {
	name string
	fn   func(bar *model.PreparedBar, lookback model.Lookback) []model.Label
}

// Name returns the rule identifier
func (r RuleFunc) Name() string { return r.name }

// Eval runs the rule
func (r RuleFunc) Eval(bar *model.PreparedBar, lookback model.Lookback) []model.Label {
	return r.fn(bar, lookback)
}

// DefaultRules is the rule table applied by Classify
var DefaultRules = []Rule{
	RuleFunc{"aggressive", aggressive},
	RuleFunc{"near_poi", nearPOI},
	RuleFunc{"point_of_release", pointOfRelease},
	RuleFunc{"body_absorption", bodyAbsorption},
	RuleFunc{"shadow_absorption", shadowAbsorption},
}

// aggressive: large body on elevated volume, labelled by body direction
func aggressive(b *model.PreparedBar, _ model.Lookback) []model.Label {
	if b.AbsBody <= aggressiveBodyMult*b.AvgBody.Float() {
		return nil
	}
	if float64(b.Volume) <= aggressiveVolumeMult*b.AvgVolume.Float() {
		return nil
	}
	switch {
	case b.Body > 0:
		return []model.Label{model.AggressiveBuyer}
	case b.Body < 0:
		return []model.Label{model.AggressiveSeller}
	}
	return nil
}

// nearPOI: close within 1% of the close of the highest-volume bar in the lookback
func nearPOI(b *model.PreparedBar, lookback model.Lookback) []model.Label {
	poi, ok := lookback.MaxVolume()
	if !ok {
		return nil
	}
	denom := poi.Close
	if denom == 0 {
		denom = 1
	}
	if math.Abs(b.Close-poi.Close)/denom < poiProximity {
		return []model.Label{model.NearPOI}
	}
	return nil
}

// pointOfRelease: body large against short-term volatility while that
// volatility is compressed against the longer window
func pointOfRelease(b *model.PreparedBar, _ model.Lookback) []model.Label {
	rangeStd := b.RangeStd.Float()
	if b.AbsBody > releaseBodyMult*rangeStd && rangeStd < releaseCompression*b.AvgRangeStd.Float() {
		return []model.Label{model.PointOfRelease}
	}
	return nil
}

// bodyAbsorption: heavy volume with almost no net displacement
func bodyAbsorption(b *model.PreparedBar, _ model.Lookback) []model.Label {
	if float64(b.Volume) <= absorbVolumeMult*b.AvgVolume.Float() {
		return nil
	}
	if b.AbsBody >= absorbBodyMult*b.AvgBody.Float() {
		return nil
	}
	if b.Body > 0 {
		return []model.Label{model.SellersAbsorption}
	}
	return []model.Label{model.BuyersAbsorption}
}

// shadowAbsorption: elevated volume with a wick more than twice the body.
// Both sides may fire on the same bar.
func shadowAbsorption(b *model.PreparedBar, _ model.Lookback) []model.Label {
	if float64(b.Volume) <= shadowVolumeMult*b.AvgVolume.Float() {
		return nil
	}
	var labels []model.Label
	if b.LowerShadow > shadowBodyMult*b.AbsBody {
		labels = append(labels, model.LowerShadowAbsorb)
	}
	if b.UpperShadow > shadowBodyMult*b.AbsBody {
		labels = append(labels, model.UpperShadowAbsorb)
	}
	return labels
}
