// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// Direction represents the direction of a trade thesis or position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Priority represents the priority of a setup.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// SetupStatus represents the lifecycle status of a setup.
type SetupStatus string

const (
	SetupMonitoring SetupStatus = "monitoring"
	SetupActive     SetupStatus = "active"
	SetupExecuted   SetupStatus = "executed"
	SetupCancelled  SetupStatus = "cancelled"
)

// PositionStatus represents the status of a ledger position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// TrancheStatus represents the status of a DCA entry or exit tranche.
type TrancheStatus string

const (
	TranchePlanned  TrancheStatus = "planned"
	TrancheExecuted TrancheStatus = "executed"
)

// PositionSource records where a ledger position came from.
type PositionSource string

const (
	// SourceSetup marks positions created by saving an executed setup.
	SourceSetup PositionSource = "setup"
	// SourceExchange marks positions imported from the exchange gateway.
	SourceExchange PositionSource = "exchange"
)

// PriceData represents a market price snapshot for one symbol.
type PriceData struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Change24h   float64   `json:"change24h"`
	LastUpdated time.Time `json:"lastUpdated"`
}
