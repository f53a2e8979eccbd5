// Package trading implements the trading decision and portfolio ledger
// engine: factor scoring, DCA planning, risk/reward analysis, the setup
// lifecycle and the position ledger.
package trading

// FactorCategory groups qualitative factors of the same kind.
type FactorCategory string

const (
	CategoryPattern    FactorCategory = "pattern"
	CategorySupport    FactorCategory = "support"
	CategoryConfluence FactorCategory = "confluence"
)

// Factor is one qualitative signal a trader can check off for a setup.
type Factor struct {
	ID       string
	Label    string
	Category FactorCategory
}

// The factor catalog is fixed: three categories of six signals each.
var (
	PatternFactors = []Factor{
		{"head-shoulders", "Head & Shoulders", CategoryPattern},
		{"double-top-bottom", "Double Top/Bottom", CategoryPattern},
		{"triple-top-bottom", "Triple Top/Bottom", CategoryPattern},
		{"overextension", "Overextension Pattern", CategoryPattern},
		{"bull-bear-flag", "Bull/Bear Flag", CategoryPattern},
		{"wedge", "Wedge Pattern", CategoryPattern},
	}

	SupportFactors = []Factor{
		{"major-level", "Major Support/Resistance", CategorySupport},
		{"multi-hit", "Multi-Hit Level", CategorySupport},
		{"time-healed", "Time Healed (90+ days)", CategorySupport},
		{"trendline", "Major Trendline", CategorySupport},
		{"ma-200", "200 SMA", CategorySupport},
		{"fib-level", "Fibonacci Level", CategorySupport},
	}

	ConfluenceFactors = []Factor{
		{"rsi-divergence", "RSI Divergence", CategoryConfluence},
		{"volume-spike", "Volume Spike", CategoryConfluence},
		{"time-count", "Time Count (7 candles)", CategoryConfluence},
		{"topping-tail", "Topping/Bottoming Tail", CategoryConfluence},
		{"expert-confirmation", "Expert Confirmation", CategoryConfluence},
		{"engulfing", "Engulfing Candle", CategoryConfluence},
	}
)

// MaxProbability caps the probability score.
const MaxProbability = 95

// MinActionableFactors is the minimum factor count below which a setup is
// considered non-actionable. This is surfaced as a warning only; it never
// blocks a save.
const MinActionableFactors = 3

// AllFactors returns the full catalog in category order.
func AllFactors() []Factor {
	all := make([]Factor, 0, len(PatternFactors)+len(SupportFactors)+len(ConfluenceFactors))
	all = append(all, PatternFactors...)
	all = append(all, SupportFactors...)
	all = append(all, ConfluenceFactors...)
	return all
}

// FactorByID looks up a catalog factor. Unknown ids return false.
func FactorByID(id string) (Factor, bool) {
	for _, f := range AllFactors() {
		if f.ID == id {
			return f, true
		}
	}
	return Factor{}, false
}

// FactorScore is the output of scoring a factor selection.
type FactorScore struct {
	Probability     int
	TotalFactors    int
	PatternCount    int
	SupportCount    int
	ConfluenceCount int
}

// ScoreFactors maps a set of selected factor ids to a probability percentage
// and per-category counts. Ids outside the catalog are ignored and a given id
// contributes at most once.
//
// The probability is a hand-tuned step function: 0 factors scores 0, one
// scores 20, two score 45, and from three on the score is 70 plus 7 per
// additional factor, capped at MaxProbability.
func ScoreFactors(selected []string) FactorScore {
	seen := make(map[string]bool, len(selected))
	var score FactorScore

	for _, id := range selected {
		if seen[id] {
			continue
		}
		f, ok := FactorByID(id)
		if !ok {
			continue
		}
		seen[id] = true
		switch f.Category {
		case CategoryPattern:
			score.PatternCount++
		case CategorySupport:
			score.SupportCount++
		case CategoryConfluence:
			score.ConfluenceCount++
		}
	}

	score.TotalFactors = score.PatternCount + score.SupportCount + score.ConfluenceCount
	score.Probability = probabilityFor(score.TotalFactors)
	return score
}

func probabilityFor(totalFactors int) int {
	switch {
	case totalFactors <= 0:
		return 0
	case totalFactors == 1:
		return 20
	case totalFactors == 2:
		return 45
	default:
		p := 70 + (totalFactors-3)*7
		if p > MaxProbability {
			p = MaxProbability
		}
		return p
	}
}

// ConvictionLevel summarizes how actionable a scored setup is.
type ConvictionLevel string

const (
	ConvictionNone   ConvictionLevel = "Need 3+ Factors"
	ConvictionLow    ConvictionLevel = "Low Conviction"
	ConvictionMedium ConvictionLevel = "Medium Conviction"
	ConvictionHigh   ConvictionLevel = "High Conviction"
)

// Conviction maps a factor score to its conviction band.
func (s FactorScore) Conviction() ConvictionLevel {
	switch {
	case s.TotalFactors < MinActionableFactors:
		return ConvictionNone
	case s.Probability < 70:
		return ConvictionLow
	case s.Probability < 80:
		return ConvictionMedium
	default:
		return ConvictionHigh
	}
}
