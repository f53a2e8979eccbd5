package models

import (
	"testing"
)

func TestNewSetupDefaults(t *testing.T) {
	s := NewSetup("s1", "btc", DirectionLong)

	if s.Symbol != "BTC" {
		t.Errorf("Symbol = %q, want upper-cased", s.Symbol)
	}
	if s.Priority != PriorityMedium || s.Status != SetupMonitoring {
		t.Errorf("defaults = %s/%s", s.Priority, s.Status)
	}
	if len(s.DCAEntries) != DefaultTranches || len(s.DCAExits) != DefaultTranches {
		t.Errorf("tranche slots = %d/%d, want %d each",
			len(s.DCAEntries), len(s.DCAExits), DefaultTranches)
	}
	if s.CreatedDate.IsZero() {
		t.Error("CreatedDate not set")
	}
}

func TestNormalizeFillsGaps(t *testing.T) {
	s := &Setup{
		ID:        "s1",
		Symbol:    "  eth ",
		Direction: DirectionShort,
		DCAEntries: []DCAEntry{
			{Price: 3400, Amount: 500, Status: TrancheExecuted},
			{Price: 3300, Amount: 500},
		},
	}
	s.Normalize()

	if s.Symbol != "ETH" {
		t.Errorf("Symbol = %q", s.Symbol)
	}
	if s.Name != "ETH SHORT" {
		t.Errorf("Name = %q, want derived", s.Name)
	}
	if len(s.DCAEntries) != DefaultTranches {
		t.Errorf("entries padded to %d, want %d", len(s.DCAEntries), DefaultTranches)
	}
	if s.DCAEntries[0].Status != TrancheExecuted {
		t.Error("executed status overwritten")
	}
	for i := 1; i < len(s.DCAEntries); i++ {
		if s.DCAEntries[i].Status != TranchePlanned {
			t.Errorf("entry %d status = %q, want planned", i, s.DCAEntries[i].Status)
		}
	}
	if s.Tags == nil || s.Factors == nil {
		t.Error("nil slices not initialized")
	}
}

func TestNormalizeKeepsExplicitName(t *testing.T) {
	s := &Setup{ID: "s1", Symbol: "BTC", Direction: DirectionLong, Name: "Weekly breakout"}
	s.Normalize()
	if s.Name != "Weekly breakout" {
		t.Errorf("Name = %q, explicit name must survive", s.Name)
	}
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"swing, weekly ,  breakout", []string{"swing", "weekly", "breakout"}},
		{"", nil},
		{" , ,", nil},
		{"solo", []string{"solo"}},
	}
	for _, tc := range cases {
		got := ParseTags(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("ParseTags(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestBrokerSideDirection(t *testing.T) {
	if BrokerSideBuy.Direction() != DirectionLong {
		t.Error("Buy must map to LONG")
	}
	if BrokerSideSell.Direction() != DirectionShort {
		t.Error("Sell must map to SHORT")
	}
}

func TestStateSerializeRoundTrip(t *testing.T) {
	state := NewState()
	state.PortfolioValue = 20000
	s := NewSetup("s1", "BTC", DirectionLong)
	s.TargetPrice, s.StopPrice = 75000, 58000
	state.Setups = []Setup{*s}

	data, err := state.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored, err := DeserializeState(data)
	if err != nil {
		t.Fatalf("DeserializeState failed: %v", err)
	}
	if restored.PortfolioValue != 20000 {
		t.Errorf("PortfolioValue = %v", restored.PortfolioValue)
	}
	if len(restored.Setups) != 1 || restored.Setups[0].ID != "s1" {
		t.Errorf("Setups = %+v", restored.Setups)
	}
}

func TestDeserializeStateCorrupt(t *testing.T) {
	if _, err := DeserializeState([]byte("not json")); err == nil {
		t.Error("expected error for corrupt payload")
	}

	// A minimal payload fills remaining fields with defaults.
	restored, err := DeserializeState([]byte(`{}`))
	if err != nil {
		t.Fatalf("minimal payload failed: %v", err)
	}
	if restored.Setups == nil || restored.Portfolio == nil {
		t.Error("nil collections after deserialize")
	}
	if restored.PortfolioValue != DefaultPortfolioValue {
		t.Errorf("PortfolioValue = %v, want default", restored.PortfolioValue)
	}
}
