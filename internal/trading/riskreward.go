package trading

import (
	"conviction-trader/internal/models"
)

// RiskReward is the profit/loss projection for a thesis at its current
// deployment. Values are signed: a stop on the wrong side of the entry shows
// up as a negative loss rather than being clamped, so the caller can see the
// misconfiguration.
type RiskReward struct {
	PotentialProfit float64
	PotentialLoss   float64
	// Ratio is PotentialProfit / PotentialLoss when the loss is positive,
	// otherwise 0.
	Ratio float64
}

// ComputeRiskReward projects profit and loss from the average entry to the
// target and stop over the deployed capital. If any of averageEntry, target,
// stop or deployed is not positive the projection is all zeros; the engine
// favors total-function semantics over errors for live recomputation.
func ComputeRiskReward(direction models.Direction, averageEntry, targetPrice, stopPrice, totalDeployed float64) RiskReward {
	var rr RiskReward
	if averageEntry <= 0 || targetPrice <= 0 || stopPrice <= 0 || totalDeployed <= 0 {
		return rr
	}

	if direction == models.DirectionLong {
		rr.PotentialProfit = (targetPrice - averageEntry) / averageEntry * totalDeployed
		rr.PotentialLoss = (averageEntry - stopPrice) / averageEntry * totalDeployed
	} else {
		rr.PotentialProfit = (averageEntry - targetPrice) / averageEntry * totalDeployed
		rr.PotentialLoss = (stopPrice - averageEntry) / averageEntry * totalDeployed
	}

	if rr.PotentialLoss > 0 {
		rr.Ratio = rr.PotentialProfit / rr.PotentialLoss
	}
	return rr
}
