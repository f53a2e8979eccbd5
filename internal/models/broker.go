package models

// BrokerSide represents the side of a broker-reported position.
type BrokerSide string

const (
	BrokerSideBuy  BrokerSide = "Buy"
	BrokerSideSell BrokerSide = "Sell"
)

// Direction maps a broker side to a ledger direction.
func (s BrokerSide) Direction() Direction {
	if s == BrokerSideBuy {
		return DirectionLong
	}
	return DirectionShort
}

// BrokerPosition is a position as reported by the exchange gateway, already
// normalized to canonical decimal values. The core never sees raw
// exchange-native scaled integers.
type BrokerPosition struct {
	Symbol     string     `json:"symbol"`
	Side       BrokerSide `json:"side"`
	Size       float64    `json:"size"`
	Value      float64    `json:"value"`
	EntryPrice float64    `json:"entryPrice"`
	MarkPrice  float64    `json:"markPrice"`

	UnrealisedPnL        float64 `json:"unrealisedPnl"`
	UnrealisedPnLPercent float64 `json:"unrealisedPnlPcnt"`
}

// Account is the exchange account summary.
type Account struct {
	AccountID        int64   `json:"accountId"`
	Currency         string  `json:"currency"`
	TotalEquity      float64 `json:"totalEquity"`
	AvailableBalance float64 `json:"availableBalance"`
	UnrealisedPnL    float64 `json:"unrealisedPnl"`
}
