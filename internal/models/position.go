package models

import (
	"time"
)

// Position is a ledger record of capital actually deployed, open or closed.
type Position struct {
	ID        string         `json:"id"`
	SetupID   string         `json:"setupId,omitempty"`
	Symbol    string         `json:"symbol"`
	Direction Direction      `json:"direction"`
	Source    PositionSource `json:"source"`

	EntryPrice   float64 `json:"entryPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	TargetPrice  float64 `json:"targetPrice"`
	StopPrice    float64 `json:"stopPrice"`
	Size         float64 `json:"size"`

	Status    PositionStatus `json:"status"`
	OpenDate  time.Time      `json:"openDate"`
	CloseDate time.Time      `json:"closeDate,omitempty"`
	ExitPrice float64        `json:"exitPrice,omitempty"`

	LastUpdated time.Time `json:"lastUpdated,omitempty"`

	// Market snapshot fields, populated by price refresh.
	MarketPrice     float64   `json:"marketPrice,omitempty"`
	PriceChange24h  float64   `json:"priceChange24h,omitempty"`
	LastPriceUpdate time.Time `json:"lastPriceUpdate,omitempty"`
}

// IsOpen reports whether the position is still open.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// PositionCSV is the flattened row shape used for CSV export of the ledger.
type PositionCSV struct {
	ID           string  `csv:"id"`
	SetupID      string  `csv:"setup_id"`
	Symbol       string  `csv:"symbol"`
	Direction    string  `csv:"direction"`
	Source       string  `csv:"source"`
	EntryPrice   float64 `csv:"entry_price"`
	CurrentPrice float64 `csv:"current_price"`
	TargetPrice  float64 `csv:"target_price"`
	StopPrice    float64 `csv:"stop_price"`
	Size         float64 `csv:"size"`
	Status       string  `csv:"status"`
	OpenDate     string  `csv:"open_date"`
	CloseDate    string  `csv:"close_date"`
	ExitPrice    float64 `csv:"exit_price"`
	PnL          float64 `csv:"pnl"`
}
