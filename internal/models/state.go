package models

import (
	"encoding/json"
	"time"
)

// DefaultPortfolioValue is the portfolio value a fresh state starts with.
const DefaultPortfolioValue = 14766

// MonthlyGoal is the monthly profit target used for goal-progress readouts.
const MonthlyGoal = 2000

// State is the full application state: everything the engine owns and the
// persistence store snapshots. Persistence is whole-state, never a partial
// write.
type State struct {
	PortfolioValue float64    `json:"portfolioValue"`
	Setups         []Setup    `json:"setups"`
	Portfolio      []Position `json:"portfolio"`
	LastSaved      time.Time  `json:"lastSaved"`
}

// NewState returns an empty state with the default portfolio value.
func NewState() *State {
	return &State{
		PortfolioValue: DefaultPortfolioValue,
		Setups:         []Setup{},
		Portfolio:      []Position{},
	}
}

// Serialize encodes the state as a single JSON snapshot.
func (s *State) Serialize() ([]byte, error) {
	s.LastSaved = time.Now()
	return json.Marshal(s)
}

// DeserializeState decodes a snapshot produced by Serialize. Corrupt input
// yields an error; callers fall back to NewState rather than failing startup.
func DeserializeState(data []byte) (*State, error) {
	st := NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}
	if st.Setups == nil {
		st.Setups = []Setup{}
	}
	if st.Portfolio == nil {
		st.Portfolio = []Position{}
	}
	for i := range st.Setups {
		st.Setups[i].Normalize()
	}
	return st, nil
}
