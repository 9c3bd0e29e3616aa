package signal

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tunogya/footprint/pkg/model"
)

// bar builds a prepared bar with its bar-level features filled in
func bar(open, high, low, close float64, volume int64) model.PreparedBar {
	b := model.Bar{Symbol: "TEST", Open: open, High: high, Low: low, Close: close, Volume: volume}
	body := b.Change()
	abs := body
	if abs < 0 {
		abs = -abs
	}
	return model.PreparedBar{
		Bar:         b,
		Body:        body,
		AbsBody:     abs,
		LowerShadow: b.LowerWick(),
		UpperShadow: b.UpperWick(),
	}
}

func withAverages(pb model.PreparedBar, avgBody, avgVolume float64) model.PreparedBar {
	pb.AvgBody = model.NewStat(avgBody)
	pb.AvgVolume = model.NewStat(avgVolume)
	return pb
}

func lookback(closes []float64, volumes []int64) model.Lookback {
	lb := make(model.Lookback, len(closes))
	for i := range closes {
		lb[i] = bar(closes[i], closes[i], closes[i], closes[i], volumes[i])
	}
	return lb
}

func TestAggressiveBuyer(t *testing.T) {
	pb := withAverages(bar(10, 12, 10, 12, 130), 1, 100)
	assert.Equal(t, model.NewLabelSet(model.AggressiveBuyer), Classify(pb, nil))
}

func TestAggressiveSeller(t *testing.T) {
	pb := withAverages(bar(12, 12, 10, 10, 130), 1, 100)
	assert.Equal(t, model.NewLabelSet(model.AggressiveSeller), Classify(pb, nil))
}

func TestAggressiveThresholdsAreStrict(t *testing.T) {
	// absBody exactly 1.5 x avgBody
	pb := withAverages(bar(10, 11.5, 10, 11.5, 130), 1, 100)
	assert.False(t, Classify(pb, nil).Has(model.AggressiveBuyer))

	// volume exactly 1.2 x avgVolume
	pb = withAverages(bar(10, 12, 10, 12, 120), 1, 100)
	assert.False(t, Classify(pb, nil).Has(model.AggressiveBuyer))
}

func TestNearPOI(t *testing.T) {
	lb := lookback([]float64{5, 10, 20}, []int64{100, 300, 200})

	pb := bar(10.05, 10.05, 10.05, 10.05, 50)
	assert.True(t, Classify(pb, lb).Has(model.NearPOI))

	pb = bar(10.2, 10.2, 10.2, 10.2, 50)
	assert.False(t, Classify(pb, lb).Has(model.NearPOI))
}

func TestNearPOITieUsesEarliestBar(t *testing.T) {
	lb := lookback([]float64{10, 20}, []int64{300, 300})

	assert.True(t, Classify(bar(10, 10, 10, 10, 1), lb).Has(model.NearPOI))
	assert.False(t, Classify(bar(20, 20, 20, 20, 1), lb).Has(model.NearPOI))
}

func TestNearPOIEmptyContext(t *testing.T) {
	assert.False(t, Classify(bar(10, 10, 10, 10, 1), nil).Has(model.NearPOI))
}

func TestNearPOIZeroReferencePrice(t *testing.T) {
	lb := lookback([]float64{0}, []int64{10})

	assert.True(t, Classify(bar(0, 0, 0, 0, 1), lb).Has(model.NearPOI))
	assert.True(t, Classify(bar(0.005, 0.005, 0.005, 0.005, 1), lb).Has(model.NearPOI))
	assert.False(t, Classify(bar(0.02, 0.02, 0.02, 0.02, 1), lb).Has(model.NearPOI))
}

func TestPointOfRelease(t *testing.T) {
	pb := bar(10, 13, 10, 13, 1)
	pb.RangeStd = model.NewStat(1)
	pb.AvgRangeStd = model.NewStat(3)
	assert.True(t, Classify(pb, nil).Has(model.PointOfRelease))

	// volatility not compressed enough
	pb.RangeStd = model.NewStat(1.5)
	assert.False(t, Classify(pb, nil).Has(model.PointOfRelease))
}

func TestBodyAbsorption(t *testing.T) {
	up := withAverages(bar(10, 10.1, 10, 10.1, 200), 1, 100)
	assert.Equal(t, model.NewLabelSet(model.SellersAbsorption), Classify(up, nil))

	down := withAverages(bar(10.1, 10.1, 10, 10, 200), 1, 100)
	assert.Equal(t, model.NewLabelSet(model.BuyersAbsorption), Classify(down, nil))

	flat := withAverages(bar(10, 10, 10, 10, 200), 1, 100)
	assert.Equal(t, model.NewLabelSet(model.BuyersAbsorption), Classify(flat, nil))
}

func TestShadowAbsorptionBothSides(t *testing.T) {
	pb := withAverages(bar(10, 11, 9, 10.1, 130), 1, 100)
	assert.Equal(t,
		model.NewLabelSet(model.LowerShadowAbsorb, model.UpperShadowAbsorb),
		Classify(pb, nil))
}

// Zero-filled averages make the multiplicative thresholds zero. The eager
// firing near the start of a series is intended.
func TestZeroFilledAveragesFireEagerly(t *testing.T) {
	pb := bar(10, 11, 10, 11, 1)
	assert.False(t, pb.AvgBody.Valid)
	assert.False(t, pb.AvgVolume.Valid)

	labels := Classify(pb, nil)
	assert.True(t, labels.Has(model.AggressiveBuyer))
	// absBody < 0.3 x 0 can never hold
	assert.False(t, labels.Has(model.SellersAbsorption))

	pb = bar(10, 10, 9, 10, 1)
	assert.True(t, Classify(pb, nil).Has(model.LowerShadowAbsorb))

	// zero volume never clears a zero threshold
	pb = bar(10, 11, 10, 11, 0)
	assert.Equal(t, 0, Classify(pb, nil).Len())
}

func TestMutuallyExclusiveLabels(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		o := 50 + rng.Float64()*10
		c := 50 + rng.Float64()*10
		hi := max(o, c) + rng.Float64()*3
		lo := min(o, c) - rng.Float64()*3
		pb := withAverages(bar(o, hi, lo, c, rng.Int63n(400)), rng.Float64()*5, rng.Float64()*200)

		labels := Classify(pb, nil)
		assert.False(t, labels.Has(model.AggressiveBuyer) && labels.Has(model.AggressiveSeller))
		assert.False(t, labels.Has(model.SellersAbsorption) && labels.Has(model.BuyersAbsorption))
	}
}

func TestClassifyLeavesLookbackUntouched(t *testing.T) {
	lb := lookback([]float64{10, 11, 12}, []int64{5, 9, 7})
	before := append(model.Lookback(nil), lb...)

	Classify(bar(11, 11, 11, 11, 3), lb)
	assert.Equal(t, before, lb)
}

func TestCustomRuleTable(t *testing.T) {
	always := RuleFunc{"always", func(*model.PreparedBar, model.Lookback) []model.Label {
		return []model.Label{model.NearPOI, model.NearPOI}
	}}
	c := NewClassifier(always)

	labels := c.Classify(bar(1, 1, 1, 1, 1), nil)
	assert.Equal(t, model.NewLabelSet(model.NearPOI), labels)
	assert.Equal(t, "always", always.Name())
}

func TestClassifyAtUsesPrecedingBars(t *testing.T) {
	prepared := []model.PreparedBar{
		bar(10, 10, 10, 10, 1000),
		bar(20, 20, 20, 20, 10),
		bar(10, 10, 10, 10, 10),
	}
	c := NewClassifier()

	assert.True(t, c.ClassifyAt(prepared, 2).Has(model.NearPOI))
	// bar 0 has no context
	assert.False(t, c.ClassifyAt(prepared, 0).Has(model.NearPOI))
}
