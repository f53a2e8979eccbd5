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

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeDeploymentWeightedAverage(t *testing.T) {
	entries := []models.DCAEntry{
		{Price: 100, Amount: 50, Status: models.TrancheExecuted},
		{Price: 90, Amount: 50, Status: models.TrancheExecuted},
		{Price: 80, Amount: 100, Status: models.TranchePlanned},
	}
	d := ComputeDeployment(entries)
	if !almostEqual(d.TotalDeployed, 100) {
		t.Errorf("TotalDeployed = %v, want 100", d.TotalDeployed)
	}
	if !almostEqual(d.AverageEntry, 95) {
		t.Errorf("AverageEntry = %v, want 95", d.AverageEntry)
	}
	if !almostEqual(d.RemainingAllocation, 100) {
		t.Errorf("RemainingAllocation = %v, want 100", d.RemainingAllocation)
	}
}

func TestComputeDeploymentIgnoresInertEntries(t *testing.T) {
	entries := []models.DCAEntry{
		{Price: 100, Amount: 50, Status: models.TrancheExecuted},
		{Price: 0, Amount: 50, Status: models.TrancheExecuted},  // no price
		{Price: 90, Amount: 0, Status: models.TrancheExecuted},  // no amount
		{Price: 80, Amount: 40, Status: models.TranchePlanned},  // not executed
		{},
	}
	d := ComputeDeployment(entries)
	if !almostEqual(d.TotalDeployed, 50) {
		t.Errorf("TotalDeployed = %v, want 50", d.TotalDeployed)
	}
	if !almostEqual(d.AverageEntry, 100) {
		t.Errorf("AverageEntry = %v, want 100", d.AverageEntry)
	}
}

func TestComputeDeploymentEmpty(t *testing.T) {
	d := ComputeDeployment(nil)
	if d.TotalDeployed != 0 || d.AverageEntry != 0 || d.RemainingAllocation != 0 {
		t.Errorf("empty plan deployment = %+v, want zeros", d)
	}
}

func TestComputeDeploymentFirstScenario(t *testing.T) {
	entries := []models.DCAEntry{
		{Price: 100, Amount: 50, Status: models.TrancheExecuted},
		{Price: 90, Amount: 50, Status: models.TrancheExecuted},
		{Price: 80, Amount: 100, Status: models.TrancheExecuted},
	}

	first := ComputeDeploymentFirst(entries, 1)
	if !almostEqual(first.AverageEntry, 100) || !almostEqual(first.TotalDeployed, 50) {
		t.Errorf("first 1: %+v", first)
	}

	two := ComputeDeploymentFirst(entries, 2)
	if !almostEqual(two.AverageEntry, 95) || !almostEqual(two.TotalDeployed, 100) {
		t.Errorf("first 2: %+v", two)
	}

	// n past the end is clamped to the full plan.
	over := ComputeDeploymentFirst(entries, 10)
	full := ComputeDeployment(entries)
	if over != full {
		t.Errorf("clamped = %+v, full = %+v", over, full)
	}

	if neg := ComputeDeploymentFirst(entries, -1); neg != (Deployment{}) {
		t.Errorf("negative n = %+v, want zero", neg)
	}

	// What-if never mutates the plan.
	if entries[2].Status != models.TrancheExecuted {
		t.Error("input entries mutated")
	}
}

func TestComputeExits(t *testing.T) {
	exits := []models.DCAExit{
		{Price: 120, Percentage: 50, Status: models.TrancheExecuted},
		{Price: 130, Percentage: 30, Status: models.TranchePlanned},
		{Price: 140, Percentage: 20, Status: models.TranchePlanned},
	}
	s := ComputeExits(exits)
	if !almostEqual(s.PlannedPercent, 100) {
		t.Errorf("PlannedPercent = %v, want 100", s.PlannedPercent)
	}
	if s.ExecutedCount != 1 {
		t.Errorf("ExecutedCount = %d, want 1", s.ExecutedCount)
	}
	if !almostEqual(s.RemainingPercent, 50) {
		t.Errorf("RemainingPercent = %v, want 50", s.RemainingPercent)
	}
}

func TestComputeExitsOverHundredGoesNegative(t *testing.T) {
	// Percentages are not validated; an over-committed plan shows a
	// negative remaining share.
	exits := []models.DCAExit{
		{Price: 120, Percentage: 80, Status: models.TrancheExecuted},
		{Price: 130, Percentage: 40, Status: models.TrancheExecuted},
	}
	s := ComputeExits(exits)
	if !almostEqual(s.RemainingPercent, -20) {
		t.Errorf("RemainingPercent = %v, want -20", s.RemainingPercent)
	}
}

func TestEntryShare(t *testing.T) {
	e := models.DCAEntry{Price: 100, Amount: 1476.6}
	if got := EntryShare(e, 14766); !almostEqual(got, 10) {
		t.Errorf("EntryShare = %v, want 10", got)
	}
	if got := EntryShare(e, 0); got != 0 {
		t.Errorf("EntryShare with zero portfolio = %v, want 0", got)
	}
}

// Property: average entry of any plan lies between the minimum and maximum
// executed prices, and deployed capital equals the sum of executed amounts.
func TestProperty_AverageEntryBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	entryGen := gopter.CombineGens(
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0.01, 50000),
		gen.Bool(),
	).Map(func(vals []interface{}) models.DCAEntry {
		status := models.TranchePlanned
		if vals[2].(bool) {
			status = models.TrancheExecuted
		}
		return models.DCAEntry{
			Price:  vals[0].(float64),
			Amount: vals[1].(float64),
			Status: status,
		}
	})

	properties.Property("average entry within executed price bounds", prop.ForAll(
		func(entries []models.DCAEntry) bool {
			d := ComputeDeployment(entries)

			var sum, min, max float64
			min = math.Inf(1)
			max = math.Inf(-1)
			any := false
			for _, e := range entries {
				if e.Status == models.TrancheExecuted && e.Price > 0 && e.Amount > 0 {
					sum += e.Amount
					any = true
					if e.Price < min {
						min = e.Price
					}
					if e.Price > max {
						max = e.Price
					}
				}
			}

			if !any {
				return d.TotalDeployed == 0 && d.AverageEntry == 0
			}
			if math.Abs(d.TotalDeployed-sum) > 1e-6 {
				return false
			}
			return d.AverageEntry >= min-1e-6 && d.AverageEntry <= max+1e-6
		},
		gen.SliceOf(entryGen),
	))

	properties.TestingRun(t)
}
