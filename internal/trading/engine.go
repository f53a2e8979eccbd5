package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"conviction-trader/internal/logging"
	"conviction-trader/internal/models"
	"conviction-trader/internal/store"
)

// ErrCannotSave is returned when a setup fails the save gate.
var ErrCannotSave = errors.New("setup cannot be saved: symbol, target price and stop price are required")

// ErrNotFound is returned when a setup or position id does not exist.
var ErrNotFound = errors.New("not found")

// ErrPositionClosed is returned when closing an already-closed position.
var ErrPositionClosed = errors.New("position already closed")

// Engine owns the application state tree and is the only writer to it. All
// mutation goes through commands; after every mutating command the full state
// is snapshotted to the store. A failed snapshot is logged and the in-memory
// state stays authoritative.
type Engine struct {
	mu     sync.RWMutex
	state  *models.State
	store  store.Store
	logger zerolog.Logger
}

// NewEngine creates an engine, loading the last persisted state. Corrupt or
// missing persisted state degrades to an empty default state rather than
// failing startup.
func NewEngine(ctx context.Context, st store.Store, logger zerolog.Logger) *Engine {
	e := &Engine{
		state:  models.NewState(),
		store:  st,
		logger: logger,
	}

	if st != nil {
		loaded, err := st.Load(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Could not load saved state, starting fresh")
		} else if loaded != nil {
			e.state = loaded
		}
	}

	return e
}

// persist snapshots the whole state. Fire and forget: errors are logged, the
// mutation that triggered the save is never rolled back.
func (e *Engine) persist(ctx context.Context) {
	if e.store == nil {
		return
	}
	e.state.LastSaved = time.Now()
	if err := e.store.Save(ctx, e.state); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist state snapshot")
	}
}

// CanSave reports whether a setup passes the save gate: non-empty symbol and
// positive target and stop prices. Factor count is deliberately not part of
// the gate; a low factor count is a warning surfaced through the conviction
// band, never a block.
func (e *Engine) CanSave(s *models.Setup) bool {
	return strings.TrimSpace(s.Symbol) != "" && s.TargetPrice > 0 && s.StopPrice > 0
}

// SaveSetup creates or updates a setup. Saving with an id matching an
// existing setup replaces it in place, preserving the created date.
// Probability and factor count are always recomputed from the current factor
// selection, never taken from the caller.
//
// If the setup has at least one executed DCA entry, a position sized by the
// deployed capital is upserted into the ledger, keyed by the setup id.
func (e *Engine) SaveSetup(ctx context.Context, s *models.Setup) (Calculation, error) {
	if !e.CanSave(s) {
		return Calculation{}, ErrCannotSave
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.Normalize()
	calc := Calculate(s)
	s.Probability = calc.Probability
	s.TotalFactors = calc.TotalFactors

	now := time.Now()
	s.LastUpdated = now

	replaced := false
	for i := range e.state.Setups {
		if e.state.Setups[i].ID == s.ID {
			s.CreatedDate = e.state.Setups[i].CreatedDate
			e.state.Setups[i] = *s
			replaced = true
			break
		}
	}
	if !replaced {
		if s.CreatedDate.IsZero() {
			s.CreatedDate = now
		}
		e.state.Setups = append(e.state.Setups, *s)
	}

	if calc.TotalDeployed > 0 {
		pos := models.Position{
			ID:           "pos_" + s.ID,
			SetupID:      s.ID,
			Symbol:       s.Symbol,
			Direction:    s.Direction,
			Source:       models.SourceSetup,
			EntryPrice:   calc.AverageEntry,
			CurrentPrice: calc.AverageEntry,
			TargetPrice:  s.TargetPrice,
			StopPrice:    s.StopPrice,
			Size:         calc.TotalDeployed,
			Status:       models.PositionOpen,
			OpenDate:     now,
			LastUpdated:  now,
		}
		e.state.Portfolio = upsertBySetup(e.state.Portfolio, pos)
		e.logger.Info().
			Str("setup_id", s.ID).
			Str("symbol", s.Symbol).
			Float64("entry", calc.AverageEntry).
			Float64("size", calc.TotalDeployed).
			Msg("Position opened from executed entries")
	}

	logging.LogSetupSaved(e.logger, s.ID, s.Symbol, s.Probability, s.TotalFactors)

	e.persist(ctx)
	return calc, nil
}

// DeleteSetup removes a setup and cascades to any position that references
// it. Unrelated positions are unaffected.
func (e *Engine) DeleteSetup(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	found := false
	setups := e.state.Setups[:0]
	for _, s := range e.state.Setups {
		if s.ID == id {
			found = true
			continue
		}
		setups = append(setups, s)
	}
	if !found {
		return fmt.Errorf("setup %s: %w", id, ErrNotFound)
	}
	e.state.Setups = setups

	positions := e.state.Portfolio[:0]
	for _, p := range e.state.Portfolio {
		if p.SetupID == id {
			continue
		}
		positions = append(positions, p)
	}
	e.state.Portfolio = positions

	e.logger.Info().Str("setup_id", id).Msg("Setup deleted")
	e.persist(ctx)
	return nil
}

// UpdatePositionPrice sets the current price of an open position. Updating a
// closed position is a no-op.
func (e *Engine) UpdatePositionPrice(ctx context.Context, id string, price float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.state.Portfolio {
		if e.state.Portfolio[i].ID != id {
			continue
		}
		if !e.state.Portfolio[i].IsOpen() {
			return nil
		}
		e.state.Portfolio[i].CurrentPrice = price
		e.state.Portfolio[i].LastUpdated = time.Now()
		e.persist(ctx)
		return nil
	}
	return fmt.Errorf("position %s: %w", id, ErrNotFound)
}

// ClosePosition closes a position at the given exit price. Closing is
// irreversible; a closed position is never resurrected.
func (e *Engine) ClosePosition(ctx context.Context, id string, exitPrice float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.state.Portfolio {
		if e.state.Portfolio[i].ID != id {
			continue
		}
		if !e.state.Portfolio[i].IsOpen() {
			return fmt.Errorf("position %s: %w", id, ErrPositionClosed)
		}
		e.state.Portfolio[i].Status = models.PositionClosed
		e.state.Portfolio[i].ExitPrice = exitPrice
		// The exit price becomes the final mark so realized P&L reads
		// from the price the position actually closed at.
		e.state.Portfolio[i].CurrentPrice = exitPrice
		e.state.Portfolio[i].CloseDate = time.Now()
		e.state.Portfolio[i].LastUpdated = time.Now()

		logging.LogPositionClosed(e.logger, id, e.state.Portfolio[i].Symbol,
			exitPrice, PositionPnL(&e.state.Portfolio[i]))

		e.persist(ctx)
		return nil
	}
	return fmt.Errorf("position %s: %w", id, ErrNotFound)
}

// ApplyMarketSnapshot applies a price map to every setup and every open
// position whose symbol matches, case-insensitively. Symbols with no entry in
// the map are untouched; the whole snapshot is applied atomically.
func (e *Engine) ApplyMarketSnapshot(ctx context.Context, prices map[string]models.PriceData) {
	if len(prices) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	updated := 0

	for i := range e.state.Setups {
		if pd, ok := lookupPrice(prices, e.state.Setups[i].Symbol); ok {
			applySnapshotToSetup(&e.state.Setups[i], pd, now)
			updated++
		}
	}
	for i := range e.state.Portfolio {
		if pd, ok := lookupPrice(prices, e.state.Portfolio[i].Symbol); ok {
			applySnapshotToPosition(&e.state.Portfolio[i], pd, now)
		}
	}

	logging.LogPriceRefresh(e.logger, len(prices), updated, nil)
	e.persist(ctx)
}

// ImportBrokerPositions reconciles broker-reported positions into the ledger
// and returns the imported net-new positions. Re-importing an unchanged
// broker list imports nothing.
func (e *Engine) ImportBrokerPositions(ctx context.Context, brokerPositions []models.BrokerPosition) []models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	imported := Reconcile(brokerPositions, e.state.Portfolio)
	logging.LogSync(e.logger, len(brokerPositions), len(imported))
	if len(imported) == 0 {
		return nil
	}

	e.state.Portfolio = append(e.state.Portfolio, imported...)
	e.persist(ctx)
	return imported
}

// SetPortfolioValue updates the total portfolio value.
func (e *Engine) SetPortfolioValue(ctx context.Context, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.PortfolioValue = value
	e.persist(ctx)
}

// PortfolioValue returns the current portfolio value.
func (e *Engine) PortfolioValue() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.PortfolioValue
}

// Setups returns a copy of all setups.
func (e *Engine) Setups() []models.Setup {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Setup, len(e.state.Setups))
	copy(out, e.state.Setups)
	return out
}

// SetupByID returns a copy of the setup with the given id.
func (e *Engine) SetupByID(id string) (models.Setup, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.state.Setups {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Setup{}, fmt.Errorf("setup %s: %w", id, ErrNotFound)
}

// Positions returns a copy of the full ledger, open and closed.
func (e *Engine) Positions() []models.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Position, len(e.state.Portfolio))
	copy(out, e.state.Portfolio)
	return out
}

// PositionByID returns a copy of the position with the given id.
func (e *Engine) PositionByID(id string) (models.Position, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, p := range e.state.Portfolio {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Position{}, fmt.Errorf("position %s: %w", id, ErrNotFound)
}

// TotalPnL returns the summed P&L of all open positions.
func (e *Engine) TotalPnL() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return TotalOpenPnL(e.state.Portfolio)
}

// Symbols returns the distinct symbols across setups and open positions,
// upper-cased, for price refresh.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]bool)
	var symbols []string
	add := func(symbol string) {
		u := strings.ToUpper(symbol)
		if u != "" && !seen[u] {
			seen[u] = true
			symbols = append(symbols, u)
		}
	}
	for i := range e.state.Setups {
		add(e.state.Setups[i].Symbol)
	}
	for i := range e.state.Portfolio {
		if e.state.Portfolio[i].IsOpen() {
			add(e.state.Portfolio[i].Symbol)
		}
	}
	return symbols
}
