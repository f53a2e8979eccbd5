package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"conviction-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "trader.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadFreshDatabaseYieldsDefaults(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.PortfolioValue != models.DefaultPortfolioValue {
		t.Errorf("PortfolioValue = %v, want %v", state.PortfolioValue, models.DefaultPortfolioValue)
	}
	if len(state.Setups) != 0 || len(state.Portfolio) != 0 {
		t.Errorf("fresh state not empty: %d setups, %d positions",
			len(state.Setups), len(state.Portfolio))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	setup := models.NewSetup("s1", "BTC", models.DirectionLong)
	setup.TargetPrice = 75000
	setup.StopPrice = 58000
	setup.TotalAllocation = 2000
	setup.Probability = 70
	setup.TotalFactors = 3
	setup.Tags = []string{"swing", "weekly"}
	setup.Factors = []string{"head-shoulders", "major-level", "rsi-divergence"}
	setup.DCAEntries = []models.DCAEntry{
		{Price: 62000, Amount: 500, Status: models.TrancheExecuted},
		{Price: 60000, Amount: 500, Status: models.TranchePlanned},
	}
	setup.DCAExits = []models.DCAExit{
		{Price: 70000, Percentage: 50, Status: models.TranchePlanned},
	}
	setup.Normalize()

	now := time.Now()
	position := models.Position{
		ID:           "pos_s1",
		SetupID:      "s1",
		Symbol:       "BTC",
		Direction:    models.DirectionLong,
		Source:       models.SourceSetup,
		EntryPrice:   62000,
		CurrentPrice: 64000,
		TargetPrice:  75000,
		StopPrice:    58000,
		Size:         500,
		Status:       models.PositionOpen,
		OpenDate:     now,
		LastUpdated:  now,
	}
	closed := models.Position{
		ID:           "phemex-ETHUSD",
		Symbol:       "ETHUSD",
		Direction:    models.DirectionShort,
		Source:       models.SourceExchange,
		EntryPrice:   3200,
		CurrentPrice: 3000,
		TargetPrice:  2700,
		StopPrice:    3360,
		Size:         800,
		Status:       models.PositionClosed,
		OpenDate:     now.Add(-24 * time.Hour),
		CloseDate:    now,
		ExitPrice:    3000,
	}

	state := models.NewState()
	state.PortfolioValue = 20000
	state.Setups = []models.Setup{*setup}
	state.Portfolio = []models.Position{position, closed}

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.PortfolioValue != 20000 {
		t.Errorf("PortfolioValue = %v, want 20000", loaded.PortfolioValue)
	}

	if len(loaded.Setups) != 1 {
		t.Fatalf("loaded %d setups, want 1", len(loaded.Setups))
	}
	got := loaded.Setups[0]
	if got.ID != "s1" || got.Symbol != "BTC" || got.Direction != models.DirectionLong {
		t.Errorf("setup identity mismatch: %+v", got)
	}
	if got.TargetPrice != 75000 || got.StopPrice != 58000 {
		t.Errorf("setup prices = %v/%v", got.TargetPrice, got.StopPrice)
	}
	if len(got.Factors) != 3 || len(got.Tags) != 2 {
		t.Errorf("setup factors/tags = %d/%d, want 3/2", len(got.Factors), len(got.Tags))
	}
	// Normalize pads the entry plan to the default tranche count.
	if len(got.DCAEntries) != models.DefaultTranches {
		t.Errorf("entry slots = %d, want %d", len(got.DCAEntries), models.DefaultTranches)
	}
	if got.DCAEntries[0].Price != 62000 || got.DCAEntries[0].Status != models.TrancheExecuted {
		t.Errorf("first entry = %+v", got.DCAEntries[0])
	}

	if len(loaded.Portfolio) != 2 {
		t.Fatalf("loaded %d positions, want 2", len(loaded.Portfolio))
	}
	var gotOpen, gotClosed *models.Position
	for i := range loaded.Portfolio {
		if loaded.Portfolio[i].ID == "pos_s1" {
			gotOpen = &loaded.Portfolio[i]
		} else {
			gotClosed = &loaded.Portfolio[i]
		}
	}
	if gotOpen == nil || gotClosed == nil {
		t.Fatalf("positions missing: %+v", loaded.Portfolio)
	}
	if !gotOpen.IsOpen() || gotOpen.CurrentPrice != 64000 || gotOpen.SetupID != "s1" {
		t.Errorf("open position = %+v", gotOpen)
	}
	if gotClosed.IsOpen() || gotClosed.ExitPrice != 3000 || gotClosed.CloseDate.IsZero() {
		t.Errorf("closed position = %+v", gotClosed)
	}
	if gotClosed.Source != models.SourceExchange {
		t.Errorf("closed source = %v, want exchange", gotClosed.Source)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := models.NewState()
	s1 := models.NewSetup("s1", "BTC", models.DirectionLong)
	s1.TargetPrice, s1.StopPrice = 75000, 58000
	first.Setups = []models.Setup{*s1}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := models.NewState()
	s2 := models.NewSetup("s2", "ETH", models.DirectionShort)
	s2.TargetPrice, s2.StopPrice = 2800, 3600
	second.Setups = []models.Setup{*s2}
	second.PortfolioValue = 17500
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Setups) != 1 || loaded.Setups[0].ID != "s2" {
		t.Errorf("snapshot not replaced: %+v", loaded.Setups)
	}
	if loaded.PortfolioValue != 17500 {
		t.Errorf("PortfolioValue = %v, want 17500", loaded.PortfolioValue)
	}
}

func TestLoadSkipsCorruptJSONColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := models.NewState()
	s := models.NewSetup("s1", "BTC", models.DirectionLong)
	s.TargetPrice, s.StopPrice = 75000, 58000
	state.Setups = []models.Setup{*s}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Corrupt the serialized entry plan in place.
	if _, err := store.db.Exec(
		"UPDATE setups SET dca_entries = 'not json' WHERE id = 's1'"); err != nil {
		t.Fatalf("corrupting row: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Setups) != 1 {
		t.Fatalf("corrupt column dropped the whole setup")
	}
	// The undecodable plan degrades to a fresh default-sized plan.
	if len(loaded.Setups[0].DCAEntries) != models.DefaultTranches {
		t.Errorf("entry slots = %d, want %d", len(loaded.Setups[0].DCAEntries), models.DefaultTranches)
	}
}
