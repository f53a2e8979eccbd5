package trading

import (
	"strings"
	"time"

	"conviction-trader/internal/models"
)

// Default thesis placeholders for broker positions imported without one:
// a 10% target and a 5% stop off the current mark price.
const (
	defaultTargetPercent = 0.10
	defaultStopPercent   = 0.05
)

// Reconcile merges broker-reported positions into the ledger without
// creating duplicates. It returns only the net-new positions to import:
// candidates whose (symbol, direction) pair already exists among the current
// ledger positions are dropped, which makes a repeated import against an
// unchanged broker list a no-op.
//
// Broker positions carry no trade thesis, so a default target and stop are
// synthesized from the mark price. Imported positions have no setup
// back-reference and are tagged with the exchange source so the caller can
// distinguish them from thesis-backed positions.
func Reconcile(brokerPositions []models.BrokerPosition, existing []models.Position) []models.Position {
	now := time.Now()
	var imported []models.Position

	for _, bp := range brokerPositions {
		if bp.Size <= 0 {
			continue
		}

		direction := bp.Side.Direction()
		if hasPosition(existing, bp.Symbol, direction) || hasPosition(imported, bp.Symbol, direction) {
			continue
		}

		target := bp.MarkPrice * (1 + defaultTargetPercent)
		stop := bp.MarkPrice * (1 - defaultStopPercent)
		if direction == models.DirectionShort {
			target = bp.MarkPrice * (1 - defaultTargetPercent)
			stop = bp.MarkPrice * (1 + defaultStopPercent)
		}

		imported = append(imported, models.Position{
			ID:              "phemex-" + strings.ToUpper(bp.Symbol),
			Symbol:          strings.ToUpper(bp.Symbol),
			Direction:       direction,
			Source:          models.SourceExchange,
			EntryPrice:      bp.EntryPrice,
			CurrentPrice:    bp.MarkPrice,
			TargetPrice:     target,
			StopPrice:       stop,
			Size:            bp.Value,
			Status:          models.PositionOpen,
			OpenDate:        now,
			LastUpdated:     now,
			MarketPrice:     bp.MarkPrice,
			LastPriceUpdate: now,
		})
	}

	return imported
}

// hasPosition reports whether the ledger already holds a position for the
// (symbol, direction) pair, case-insensitively on the symbol.
func hasPosition(positions []models.Position, symbol string, direction models.Direction) bool {
	for i := range positions {
		if strings.EqualFold(positions[i].Symbol, symbol) && positions[i].Direction == direction {
			return true
		}
	}
	return false
}
