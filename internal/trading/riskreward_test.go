package trading

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"conviction-trader/internal/models"
)

func TestComputeRiskRewardLong(t *testing.T) {
	// Entry 100, target 120, stop 90, deployed 1000.
	rr := ComputeRiskReward(models.DirectionLong, 100, 120, 90, 1000)
	if !almostEqual(rr.PotentialProfit, 200) {
		t.Errorf("PotentialProfit = %v, want 200", rr.PotentialProfit)
	}
	if !almostEqual(rr.PotentialLoss, 100) {
		t.Errorf("PotentialLoss = %v, want 100", rr.PotentialLoss)
	}
	if !almostEqual(rr.Ratio, 2) {
		t.Errorf("Ratio = %v, want 2", rr.Ratio)
	}
}

func TestComputeRiskRewardShort(t *testing.T) {
	// Short: profit from falling to target, loss from rising to stop.
	rr := ComputeRiskReward(models.DirectionShort, 100, 80, 110, 1000)
	if !almostEqual(rr.PotentialProfit, 200) {
		t.Errorf("PotentialProfit = %v, want 200", rr.PotentialProfit)
	}
	if !almostEqual(rr.PotentialLoss, 100) {
		t.Errorf("PotentialLoss = %v, want 100", rr.PotentialLoss)
	}
	if !almostEqual(rr.Ratio, 2) {
		t.Errorf("Ratio = %v, want 2", rr.Ratio)
	}
}

func TestComputeRiskRewardZeroInputs(t *testing.T) {
	cases := []struct {
		name                        string
		entry, target, stop, deploy float64
	}{
		{"no entry", 0, 120, 90, 1000},
		{"no target", 100, 0, 90, 1000},
		{"no stop", 100, 120, 0, 1000},
		{"no capital", 100, 120, 90, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := ComputeRiskReward(models.DirectionLong, tc.entry, tc.target, tc.stop, tc.deploy)
			if rr != (RiskReward{}) {
				t.Errorf("got %+v, want zeros", rr)
			}
		})
	}
}

func TestComputeRiskRewardWrongSideStop(t *testing.T) {
	// Long with stop above entry: loss goes negative and the ratio stays 0
	// so the misconfiguration is visible rather than masked.
	rr := ComputeRiskReward(models.DirectionLong, 100, 120, 110, 1000)
	if rr.PotentialLoss >= 0 {
		t.Errorf("PotentialLoss = %v, want negative", rr.PotentialLoss)
	}
	if rr.Ratio != 0 {
		t.Errorf("Ratio = %v, want 0 when loss is not positive", rr.Ratio)
	}
}

// Property: mirroring a long thesis around its entry yields the same
// projection as the equivalent short thesis.
func TestProperty_LongShortSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	closeEnough := func(a, b float64) bool {
		scale := math.Max(math.Abs(a), math.Abs(b))
		if scale < 1 {
			scale = 1
		}
		return math.Abs(a-b) < 1e-6*scale
	}

	properties.Property("long and mirrored short agree", prop.ForAll(
		func(entry, targetDelta, stopDelta, deployed float64) bool {
			long := ComputeRiskReward(models.DirectionLong,
				entry, entry+targetDelta, entry-stopDelta, deployed)
			short := ComputeRiskReward(models.DirectionShort,
				entry, entry-targetDelta, entry+stopDelta, deployed)
			return closeEnough(long.PotentialProfit, short.PotentialProfit) &&
				closeEnough(long.PotentialLoss, short.PotentialLoss) &&
				closeEnough(long.Ratio, short.Ratio)
		},
		gen.Float64Range(10, 100000),
		gen.Float64Range(0.01, 9),
		gen.Float64Range(0.01, 9),
		gen.Float64Range(1, 100000),
	))

	properties.TestingRun(t)
}
