// Package broker provides the exchange gateway interface and implementations.
//
// The gateway is responsible for producing canonical decimal values: all
// exchange-native scaled integers are normalized here and never reach the
// reconciliation core.
package broker

import (
	"context"

	"conviction-trader/internal/models"
)

// Gateway defines the exchange operations the engine consumes. Failure or
// empty-permission responses degrade to empty results at the call site, so
// "no broker positions" and "broker unreachable" reconcile identically.
type Gateway interface {
	// GetPositions returns the account's current positions in canonical
	// decimal values.
	GetPositions(ctx context.Context) ([]models.BrokerPosition, error)

	// GetAccount returns the account equity and balance summary.
	GetAccount(ctx context.Context) (*models.Account, error)

	// TestConnection verifies credentials against the exchange.
	TestConnection(ctx context.Context) error
}
