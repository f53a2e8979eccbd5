package trading

import (
	"strings"
	"time"

	"conviction-trader/internal/models"
)

// PositionPnL computes the unrealized (or, for a closed position priced at
// its exit, realized) profit and loss of a position. Pure read; the position
// is never mutated.
func PositionPnL(p *models.Position) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	percentChange := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
	pnl := p.Size * percentChange
	if p.Direction == models.DirectionShort {
		pnl = -pnl
	}
	return pnl
}

// PositionPnLPercent returns the P&L as a percentage of position size.
func PositionPnLPercent(p *models.Position) float64 {
	if p.Size == 0 {
		return 0
	}
	return PositionPnL(p) / p.Size * 100
}

// TotalOpenPnL sums P&L across the open positions of a ledger.
func TotalOpenPnL(positions []models.Position) float64 {
	var total float64
	for i := range positions {
		if positions[i].IsOpen() {
			total += PositionPnL(&positions[i])
		}
	}
	return total
}

// OpenPositions filters a ledger down to its open positions.
func OpenPositions(positions []models.Position) []models.Position {
	open := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}

// upsertBySetup replaces the position holding the same setup id, or appends.
// At most one position per setup exists in the ledger.
func upsertBySetup(positions []models.Position, pos models.Position) []models.Position {
	for i := range positions {
		if positions[i].SetupID != "" && positions[i].SetupID == pos.SetupID {
			positions[i] = pos
			return positions
		}
	}
	return append(positions, pos)
}

// applySnapshotToPosition applies one symbol's market data to an open
// position. Closed positions are untouched.
func applySnapshotToPosition(p *models.Position, pd models.PriceData, now time.Time) {
	if !p.IsOpen() {
		return
	}
	p.CurrentPrice = pd.Price
	p.MarketPrice = pd.Price
	p.PriceChange24h = pd.Change24h
	p.LastPriceUpdate = now
}

// applySnapshotToSetup applies one symbol's market data to a setup for
// display alongside the thesis.
func applySnapshotToSetup(s *models.Setup, pd models.PriceData, now time.Time) {
	s.MarketPrice = pd.Price
	s.PriceChange24h = pd.Change24h
	s.LastPriceUpdate = now
}

// lookupPrice finds the price entry for a symbol, case-insensitively.
func lookupPrice(prices map[string]models.PriceData, symbol string) (models.PriceData, bool) {
	if pd, ok := prices[strings.ToUpper(symbol)]; ok {
		return pd, true
	}
	for k, pd := range prices {
		if strings.EqualFold(k, symbol) {
			return pd, true
		}
	}
	return models.PriceData{}, false
}
