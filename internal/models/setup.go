package models

import (
	"strings"
	"time"
)

// DefaultTranches is the number of DCA entry and exit slots a new setup gets.
// Empty slots (zero price and amount) are inert.
const DefaultTranches = 4

// DCAEntry is one planned or executed buy tranche.
type DCAEntry struct {
	Price  float64       `json:"price"`
	Amount float64       `json:"amount"`
	Status TrancheStatus `json:"status"`
}

// DCAExit is one planned or executed sell tranche. Percentage is the share of
// the position (0-100) to exit at Price.
type DCAExit struct {
	Price      float64       `json:"price"`
	Percentage float64       `json:"percentage"`
	Status     TrancheStatus `json:"status"`
}

// Setup is a recorded, scorable trade thesis prior to (or independent of)
// capital deployment.
type Setup struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Symbol          string      `json:"symbol"`
	Direction       Direction   `json:"direction"`
	TargetPrice     float64     `json:"targetPrice"`
	StopPrice       float64     `json:"stopPrice"`
	TotalAllocation float64     `json:"totalAllocation"`
	Probability     int         `json:"probability"`
	TotalFactors    int         `json:"totalFactors"`
	Priority        Priority    `json:"priority"`
	Status          SetupStatus `json:"status"`
	Tags            []string    `json:"tags"`
	CreatedDate     time.Time   `json:"createdDate"`
	LastUpdated     time.Time   `json:"lastUpdated"`
	Factors         []string    `json:"factors"`
	DCAEntries      []DCAEntry  `json:"dcaEntries"`
	DCAExits        []DCAExit   `json:"dcaExits"`

	// Market snapshot fields, populated by price refresh.
	MarketPrice     float64   `json:"marketPrice,omitempty"`
	PriceChange24h  float64   `json:"priceChange24h,omitempty"`
	LastPriceUpdate time.Time `json:"lastPriceUpdate,omitempty"`
}

// NewSetup creates a setup with defaulted tranche sequences so callers never
// have to treat absent entries or exits as a special case.
func NewSetup(id, symbol string, direction Direction) *Setup {
	now := time.Now()
	return &Setup{
		ID:          id,
		Symbol:      strings.ToUpper(symbol),
		Direction:   direction,
		Priority:    PriorityMedium,
		Status:      SetupMonitoring,
		Tags:        []string{},
		Factors:     []string{},
		DCAEntries:  make([]DCAEntry, DefaultTranches),
		DCAExits:    make([]DCAExit, DefaultTranches),
		CreatedDate: now,
		LastUpdated: now,
	}
}

// Normalize fills defaults a setup loaded from persistence or built by a
// caller may be missing: tranche slots, tranche statuses, name and symbol.
func (s *Setup) Normalize() {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if s.Name == "" {
		s.Name = s.Symbol + " " + string(s.Direction)
	}
	if s.Priority == "" {
		s.Priority = PriorityMedium
	}
	if s.Status == "" {
		s.Status = SetupMonitoring
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Factors == nil {
		s.Factors = []string{}
	}
	for len(s.DCAEntries) < DefaultTranches {
		s.DCAEntries = append(s.DCAEntries, DCAEntry{})
	}
	for len(s.DCAExits) < DefaultTranches {
		s.DCAExits = append(s.DCAExits, DCAExit{})
	}
	for i := range s.DCAEntries {
		if s.DCAEntries[i].Status == "" {
			s.DCAEntries[i].Status = TranchePlanned
		}
	}
	for i := range s.DCAExits {
		if s.DCAExits[i].Status == "" {
			s.DCAExits[i].Status = TranchePlanned
		}
	}
}

// ParseTags splits a comma-separated tag string, trimming whitespace and
// dropping empty items.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
