// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"conviction-trader/internal/models"
)

// Store defines the persistence contract: a full-state snapshot keyed by a
// single logical namespace. There are no partial writes; Save always replaces
// the whole snapshot.
type Store interface {
	// Load returns the last saved state, or a fresh default state when
	// nothing has been saved yet.
	Load(ctx context.Context) (*models.State, error)

	// Save replaces the persisted snapshot with the given state.
	Save(ctx context.Context, state *models.State) error

	// Lifecycle
	Close() error
}
