package broker

import (
	"context"
	"sync"

	"conviction-trader/internal/models"
)

// PaperGateway implements Gateway with simulated state for paper trading.
// It never talks to an exchange.
type PaperGateway struct {
	mu        sync.RWMutex
	positions []models.BrokerPosition
	account   models.Account
}

// NewPaperGateway creates a paper gateway with the given starting balance.
func NewPaperGateway(initialBalance float64) *PaperGateway {
	if initialBalance == 0 {
		initialBalance = models.DefaultPortfolioValue
	}
	return &PaperGateway{
		account: models.Account{
			Currency:         "USD",
			TotalEquity:      initialBalance,
			AvailableBalance: initialBalance,
		},
	}
}

// SetPositions replaces the simulated position list.
func (p *PaperGateway) SetPositions(positions []models.BrokerPosition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = positions
}

// GetPositions returns the simulated positions.
func (p *PaperGateway) GetPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.BrokerPosition, len(p.positions))
	copy(out, p.positions)
	return out, nil
}

// GetAccount returns the simulated account summary.
func (p *PaperGateway) GetAccount(ctx context.Context) (*models.Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc := p.account
	return &acc, nil
}

// TestConnection always succeeds for paper trading.
func (p *PaperGateway) TestConnection(ctx context.Context) error {
	return nil
}
