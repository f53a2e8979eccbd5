package trading

import (
	"conviction-trader/internal/models"
)

// Calculation is the live snapshot of the scoring, planning and risk/reward
// outputs for the setup under edit. It is ephemeral: recomputed eagerly on
// every input change and never persisted.
type Calculation struct {
	Probability     int     `json:"probability"`
	TotalFactors    int     `json:"totalFactors"`
	AverageEntry    float64 `json:"averageEntry"`
	TotalDeployed   float64 `json:"totalDeployed"`
	PotentialProfit float64 `json:"potentialProfit"`
	PotentialLoss   float64 `json:"potentialLoss"`
	RiskReward      float64 `json:"riskReward"`
}

// Calculate runs the factor scoring model, the DCA planner and the
// risk/reward calculator over a setup's current inputs and returns the
// combined snapshot.
func Calculate(s *models.Setup) Calculation {
	score := ScoreFactors(s.Factors)
	dep := ComputeDeployment(s.DCAEntries)
	rr := ComputeRiskReward(s.Direction, dep.AverageEntry, s.TargetPrice, s.StopPrice, dep.TotalDeployed)

	return Calculation{
		Probability:     score.Probability,
		TotalFactors:    score.TotalFactors,
		AverageEntry:    dep.AverageEntry,
		TotalDeployed:   dep.TotalDeployed,
		PotentialProfit: rr.PotentialProfit,
		PotentialLoss:   rr.PotentialLoss,
		RiskReward:      rr.Ratio,
	}
}

// MonthlyGoalImpact returns the share of the monthly profit goal this
// calculation's potential profit represents, as a percentage.
func (c Calculation) MonthlyGoalImpact() float64 {
	return c.PotentialProfit / models.MonthlyGoal * 100
}
