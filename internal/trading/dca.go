package trading

import (
	"conviction-trader/internal/models"
)

// Deployment is the capital picture of a DCA entry plan.
type Deployment struct {
	// TotalDeployed is the sum of executed entry amounts.
	TotalDeployed float64
	// AverageEntry is the size-weighted average price of executed entries,
	// or 0 when nothing is deployed.
	AverageEntry float64
	// RemainingAllocation is the sum of all entry amounts, planned and
	// executed, minus TotalDeployed.
	RemainingAllocation float64
}

// deployable reports whether an entry participates in deployment math.
// Planned tranches and empty slots are inert.
func deployable(e models.DCAEntry) bool {
	return e.Status == models.TrancheExecuted && e.Price > 0 && e.Amount > 0
}

// ComputeDeployment computes the deployment picture over the full entry
// sequence.
func ComputeDeployment(entries []models.DCAEntry) Deployment {
	return ComputeDeploymentFirst(entries, len(entries))
}

// ComputeDeploymentFirst computes the same deployment picture restricted to
// the first n entries, for what-if scenario comparison. It never mutates the
// plan. n is clamped to the sequence length.
func ComputeDeploymentFirst(entries []models.DCAEntry, n int) Deployment {
	if n > len(entries) {
		n = len(entries)
	}
	if n < 0 {
		n = 0
	}

	var d Deployment
	var weightedSum float64
	for _, e := range entries[:n] {
		d.RemainingAllocation += e.Amount
		if deployable(e) {
			d.TotalDeployed += e.Amount
			weightedSum += e.Price * e.Amount
		}
	}
	if d.TotalDeployed > 0 {
		d.AverageEntry = weightedSum / d.TotalDeployed
	}
	d.RemainingAllocation -= d.TotalDeployed
	return d
}

// ExitSummary is the exit-side picture of a DCA plan. Exit percentages are
// not validated to sum to 100 or less; the remaining share simply goes
// negative when they do.
type ExitSummary struct {
	// PlannedPercent is the total percentage across all exit tranches.
	PlannedPercent float64
	// ExecutedCount is the number of executed exit tranches.
	ExecutedCount int
	// RemainingPercent is 100 minus the executed exit percentages.
	RemainingPercent float64
}

// ComputeExits summarizes the exit tranches of a plan.
func ComputeExits(exits []models.DCAExit) ExitSummary {
	s := ExitSummary{RemainingPercent: 100}
	for _, e := range exits {
		s.PlannedPercent += e.Percentage
		if e.Status == models.TrancheExecuted {
			s.ExecutedCount++
			s.RemainingPercent -= e.Percentage
		}
	}
	return s
}

// EntryShare returns one entry's share of the portfolio as a percentage, for
// display next to the tranche. Zero when the portfolio value is not positive.
func EntryShare(entry models.DCAEntry, portfolioValue float64) float64 {
	if portfolioValue <= 0 || entry.Amount <= 0 {
		return 0
	}
	return entry.Amount / portfolioValue * 100
}
