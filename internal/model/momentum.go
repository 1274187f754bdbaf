package model

import "time"

// MomentumScore is the momentum of one instrument: latest close / moving average - 1.
type MomentumScore struct {
	Symbol        string
	Price         float64
	MovingAverage float64
	Value         float64
	AsOf          time.Time
}

// Negative reports whether the instrument is trending below its moving average.
func (m MomentumScore) Negative() bool { return m.Value < 0 }

// Exclusion records why an instrument has no momentum score.
type Exclusion struct {
	Symbol string
	Reason error
}

// MomentumSet holds scores for the instruments that have one.
// An instrument missing from the set has no score; it is never scored as zero.
type MomentumSet struct {
	order    []string
	scores   map[string]MomentumScore
	Excluded []Exclusion
}

// NewMomentumSet creates an empty set.
func NewMomentumSet() *MomentumSet {
	return &MomentumSet{scores: make(map[string]MomentumScore)}
}

// Add stores a score, keeping first-insertion order.
func (s *MomentumSet) Add(score MomentumScore) {
	if _, ok := s.scores[score.Symbol]; !ok {
		s.order = append(s.order, score.Symbol)
	}
	s.scores[score.Symbol] = score
}

// Exclude records an instrument that could not be scored.
func (s *MomentumSet) Exclude(symbol string, reason error) {
	s.Excluded = append(s.Excluded, Exclusion{Symbol: symbol, Reason: reason})
}

// Get returns the score of symbol and whether it has one.
func (s *MomentumSet) Get(symbol string) (MomentumScore, bool) {
	if s == nil {
		return MomentumScore{}, false
	}
	m, ok := s.scores[symbol]
	return m, ok
}

// Len returns the number of scored instruments.
func (s *MomentumSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Scores returns all scores in insertion order.
func (s *MomentumSet) Scores() []MomentumScore {
	if s == nil {
		return nil
	}
	out := make([]MomentumScore, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, s.scores[sym])
	}
	return out
}

// Restrict returns the scores of the given symbols, in the order given.
// Symbols without a score are skipped.
func (s *MomentumSet) Restrict(symbols []string) []MomentumScore {
	out := make([]MomentumScore, 0, len(symbols))
	for _, sym := range symbols {
		if m, ok := s.Get(sym); ok {
			out = append(out, m)
		}
	}
	return out
}
