package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"conviction-trader/internal/models"
)

// SQLiteStore implements Store using SQLite. Each Save rewrites the setups
// and positions tables inside one transaction, so the database always holds
// exactly one consistent snapshot.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLite-backed snapshot store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates all required tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Setups table: trade theses with their factor selection and DCA plan
	CREATE TABLE IF NOT EXISTS setups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		target_price REAL NOT NULL,
		stop_price REAL NOT NULL,
		total_allocation REAL NOT NULL,
		probability INTEGER NOT NULL,
		total_factors INTEGER NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		tags TEXT,
		factors TEXT,
		dca_entries TEXT,
		dca_exits TEXT,
		market_price REAL,
		price_change_24h REAL,
		last_price_update DATETIME,
		created_date DATETIME NOT NULL,
		last_updated DATETIME NOT NULL
	);

	-- Positions table: the portfolio ledger, open and closed
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		setup_id TEXT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		source TEXT NOT NULL,
		entry_price REAL NOT NULL,
		current_price REAL NOT NULL,
		target_price REAL NOT NULL,
		stop_price REAL NOT NULL,
		size REAL NOT NULL,
		status TEXT NOT NULL,
		open_date DATETIME NOT NULL,
		close_date DATETIME,
		exit_price REAL,
		last_updated DATETIME,
		market_price REAL,
		price_change_24h REAL,
		last_price_update DATETIME
	);

	-- Meta table: scalar state (portfolio value, last saved)
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_positions_setup ON positions(setup_id);
	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the persisted snapshot with the given state.
func (s *SQLiteStore) Save(ctx context.Context, state *models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM setups"); err != nil {
		return fmt.Errorf("clearing setups: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM positions"); err != nil {
		return fmt.Errorf("clearing positions: %w", err)
	}

	for i := range state.Setups {
		if err := insertSetup(ctx, tx, &state.Setups[i]); err != nil {
			return fmt.Errorf("saving setup %s: %w", state.Setups[i].ID, err)
		}
	}
	for i := range state.Portfolio {
		if err := insertPosition(ctx, tx, &state.Portfolio[i]); err != nil {
			return fmt.Errorf("saving position %s: %w", state.Portfolio[i].ID, err)
		}
	}

	metaStmt := `INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.ExecContext(ctx, metaStmt, "portfolio_value",
		strconv.FormatFloat(state.PortfolioValue, 'f', -1, 64)); err != nil {
		return fmt.Errorf("saving portfolio value: %w", err)
	}
	if _, err := tx.ExecContext(ctx, metaStmt, "last_saved",
		time.Now().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("saving timestamp: %w", err)
	}

	return tx.Commit()
}

func insertSetup(ctx context.Context, tx *sql.Tx, setup *models.Setup) error {
	tags, err := json.Marshal(setup.Tags)
	if err != nil {
		return err
	}
	factors, err := json.Marshal(setup.Factors)
	if err != nil {
		return err
	}
	entries, err := json.Marshal(setup.DCAEntries)
	if err != nil {
		return err
	}
	exits, err := json.Marshal(setup.DCAExits)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO setups (
			id, name, symbol, direction, target_price, stop_price,
			total_allocation, probability, total_factors, priority, status,
			tags, factors, dca_entries, dca_exits,
			market_price, price_change_24h, last_price_update,
			created_date, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		setup.ID, setup.Name, setup.Symbol, string(setup.Direction),
		setup.TargetPrice, setup.StopPrice, setup.TotalAllocation,
		setup.Probability, setup.TotalFactors, string(setup.Priority),
		string(setup.Status), string(tags), string(factors), string(entries),
		string(exits), setup.MarketPrice, setup.PriceChange24h,
		nullableTime(setup.LastPriceUpdate), setup.CreatedDate, setup.LastUpdated,
	)
	return err
}

func insertPosition(ctx context.Context, tx *sql.Tx, pos *models.Position) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO positions (
			id, setup_id, symbol, direction, source,
			entry_price, current_price, target_price, stop_price, size,
			status, open_date, close_date, exit_price, last_updated,
			market_price, price_change_24h, last_price_update
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.SetupID, pos.Symbol, string(pos.Direction), string(pos.Source),
		pos.EntryPrice, pos.CurrentPrice, pos.TargetPrice, pos.StopPrice, pos.Size,
		string(pos.Status), pos.OpenDate, nullableTime(pos.CloseDate), pos.ExitPrice,
		nullableTime(pos.LastUpdated), pos.MarketPrice, pos.PriceChange24h,
		nullableTime(pos.LastPriceUpdate),
	)
	return err
}

// Load returns the last saved state. An empty database yields a fresh default
// state. Rows that cannot be decoded are skipped so a partially corrupt
// snapshot degrades instead of failing startup.
func (s *SQLiteStore) Load(ctx context.Context) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := models.NewState()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", "portfolio_value").Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// Fresh database, keep defaults.
	case err != nil:
		return nil, fmt.Errorf("loading portfolio value: %w", err)
	default:
		if v, perr := strconv.ParseFloat(raw, 64); perr == nil {
			state.PortfolioValue = v
		}
	}

	setups, err := s.loadSetups(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading setups: %w", err)
	}
	state.Setups = setups

	positions, err := s.loadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading positions: %w", err)
	}
	state.Portfolio = positions

	return state, nil
}

func (s *SQLiteStore) loadSetups(ctx context.Context) ([]models.Setup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, symbol, direction, target_price, stop_price,
			total_allocation, probability, total_factors, priority, status,
			tags, factors, dca_entries, dca_exits,
			market_price, price_change_24h, last_price_update,
			created_date, last_updated
		FROM setups ORDER BY created_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	setups := []models.Setup{}
	for rows.Next() {
		var setup models.Setup
		var direction, priority, status string
		var tags, factors, entries, exits sql.NullString
		var marketPrice, change sql.NullFloat64
		var priceUpdate sql.NullTime

		if err := rows.Scan(
			&setup.ID, &setup.Name, &setup.Symbol, &direction,
			&setup.TargetPrice, &setup.StopPrice, &setup.TotalAllocation,
			&setup.Probability, &setup.TotalFactors, &priority, &status,
			&tags, &factors, &entries, &exits,
			&marketPrice, &change, &priceUpdate,
			&setup.CreatedDate, &setup.LastUpdated,
		); err != nil {
			continue
		}

		setup.Direction = models.Direction(direction)
		setup.Priority = models.Priority(priority)
		setup.Status = models.SetupStatus(status)
		setup.MarketPrice = marketPrice.Float64
		setup.PriceChange24h = change.Float64
		if priceUpdate.Valid {
			setup.LastPriceUpdate = priceUpdate.Time
		}

		decodeJSON(tags, &setup.Tags)
		decodeJSON(factors, &setup.Factors)
		decodeJSON(entries, &setup.DCAEntries)
		decodeJSON(exits, &setup.DCAExits)

		setup.Normalize()
		setups = append(setups, setup)
	}
	return setups, rows.Err()
}

func (s *SQLiteStore) loadPositions(ctx context.Context) ([]models.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, setup_id, symbol, direction, source,
			entry_price, current_price, target_price, stop_price, size,
			status, open_date, close_date, exit_price, last_updated,
			market_price, price_change_24h, last_price_update
		FROM positions ORDER BY open_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := []models.Position{}
	for rows.Next() {
		var pos models.Position
		var setupID, direction, source, status sql.NullString
		var closeDate, lastUpdated, priceUpdate sql.NullTime
		var exitPrice, marketPrice, change sql.NullFloat64

		if err := rows.Scan(
			&pos.ID, &setupID, &pos.Symbol, &direction, &source,
			&pos.EntryPrice, &pos.CurrentPrice, &pos.TargetPrice, &pos.StopPrice,
			&pos.Size, &status, &pos.OpenDate, &closeDate, &exitPrice,
			&lastUpdated, &marketPrice, &change, &priceUpdate,
		); err != nil {
			continue
		}

		pos.SetupID = setupID.String
		pos.Direction = models.Direction(direction.String)
		pos.Source = models.PositionSource(source.String)
		pos.Status = models.PositionStatus(status.String)
		pos.ExitPrice = exitPrice.Float64
		pos.MarketPrice = marketPrice.Float64
		pos.PriceChange24h = change.Float64
		if closeDate.Valid {
			pos.CloseDate = closeDate.Time
		}
		if lastUpdated.Valid {
			pos.LastUpdated = lastUpdated.Time
		}
		if priceUpdate.Valid {
			pos.LastPriceUpdate = priceUpdate.Time
		}

		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeJSON(src sql.NullString, dst interface{}) {
	if !src.Valid || src.String == "" {
		return
	}
	// Undecodable columns are left at their zero value; Normalize fills
	// defaults afterwards.
	_ = json.Unmarshal([]byte(src.String), dst)
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
