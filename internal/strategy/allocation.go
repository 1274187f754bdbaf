package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"ProtectiveAllocator/internal/model"
)

// DefaultTopN is the number of offensive instruments held.
const DefaultTopN = 6

// fullyDefensiveAt is the negative-momentum count at which all capital goes to the fallback.
const fullyDefensiveAt = 6

// ShareBasis selects the divisor of the offensive remainder.
type ShareBasis string

const (
	// ShareByTopN divides by the configured top N even when fewer instruments
	// were selected, leaving the difference unallocated.
	ShareByTopN ShareBasis = "top_n"
	// ShareBySelected divides by the number of instruments actually selected.
	ShareBySelected ShareBasis = "selected"
)

// ParseShareBasis parses a configured share basis. Empty means ShareByTopN.
func ParseShareBasis(s string) (ShareBasis, error) {
	switch ShareBasis(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShareByTopN:
		return ShareByTopN, nil
	case ShareBySelected:
		return ShareBySelected, nil
	default:
		return "", fmt.Errorf("%w: unknown share basis %q", model.ErrConfigInconsistent, s)
	}
}

// Policy holds the tunable allocation rules.
type Policy struct {
	TopN       int
	ShareBasis ShareBasis
}

// DefaultPolicy returns top 6 with the divide-by-top-N share.
func DefaultPolicy() Policy {
	return Policy{TopN: DefaultTopN, ShareBasis: ShareByTopN}
}

// Input is everything one allocation needs.
type Input struct {
	Date         time.Time
	TotalCapital float64
	// Universe is the ordered list of offensive candidates.
	Universe []string
	Fallback string
	// FallbackPriced is false when no usable price series was loaded for the fallback.
	FallbackPriced bool
	Momentum       *model.MomentumSet
}

// DefensiveRatio maps the number of negative-momentum instruments to the
// fraction of capital moved to the fallback: k/6 for k in 0..5, saturating
// at 1.0 for k >= 6. Negative counts are treated as unexpected input and
// return 1.0.
func DefensiveRatio(negatives int) float64 {
	switch {
	case negatives < 0, negatives >= fullyDefensiveAt:
		return 1.0
	default:
		return float64(negatives) / fullyDefensiveAt
	}
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func floorCents(v float64) float64 {
	return math.Floor(v*100+1e-6) / 100
}

// OffensiveCandidates returns the universe without duplicates and without the fallback.
func OffensiveCandidates(universe []string, fallback string) []string {
	seen := make(map[string]bool, len(universe))
	out := make([]string, 0, len(universe))
	for _, sym := range universe {
		if sym == "" || sym == fallback || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// CountNegative counts scores strictly below zero.
func CountNegative(scores []model.MomentumScore) int {
	n := 0
	for _, s := range scores {
		if s.Negative() {
			n++
		}
	}
	return n
}

// SelectTopN returns the n highest scores. Equal scores keep their input
// order, which is the configured universe order.
func SelectTopN(scores []model.MomentumScore, n int) []model.MomentumScore {
	if n <= 0 {
		return nil
	}
	ranked := make([]model.MomentumScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Value > ranked[j].Value })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// OffensiveShare is the per-instrument amount of the offensive remainder.
// selected is the number of instruments picked, paid the number of them
// that will actually receive the share. A rounded share that would overdraw
// the remainder across the paid instruments is floored to cents.
func OffensiveShare(remainder float64, policy Policy, selected, paid int) float64 {
	if policy.TopN <= 0 || remainder <= 0 {
		return 0
	}
	divisor := policy.TopN
	if policy.ShareBasis == ShareBySelected {
		divisor = selected
	}
	if divisor <= 0 {
		return 0
	}
	raw := remainder / float64(divisor)
	share := RoundCents(raw)
	if share*float64(paid) > remainder+1e-9 {
		share = floorCents(raw)
	}
	return share
}

// Allocate splits TotalCapital between the fallback and the top-ranked
// offensive instruments. Instruments without a momentum score neither count
// as negative nor get selected. It fails with ErrDataUnavailable when no
// offensive candidate has a score.
func Allocate(in Input, policy Policy) (*model.Allocation, error) {
	if in.TotalCapital <= 0 || math.IsNaN(in.TotalCapital) || math.IsInf(in.TotalCapital, 0) {
		return nil, fmt.Errorf("%w: total capital must be positive, got %v", model.ErrConfigInconsistent, in.TotalCapital)
	}
	if in.Fallback == "" {
		return nil, fmt.Errorf("%w: fallback instrument is required", model.ErrConfigInconsistent)
	}

	candidates := OffensiveCandidates(in.Universe, in.Fallback)
	scored := in.Momentum.Restrict(candidates)
	if len(scored) == 0 {
		return nil, fmt.Errorf("%w: no instrument in the universe has a momentum score", model.ErrDataUnavailable)
	}

	negatives := CountNegative(scored)
	ratio := DefensiveRatio(negatives)
	defensive := RoundCents(in.TotalCapital * ratio)
	remainder := in.TotalCapital - defensive

	selected := SelectTopN(scored, policy.TopN)
	paid := len(selected) - CountNegative(selected)
	share := OffensiveShare(remainder, policy, len(selected), paid)

	alloc := &model.Allocation{
		RunID:              uuid.New(),
		Date:               in.Date,
		TotalCapital:       in.TotalCapital,
		Fallback:           in.Fallback,
		FallbackPriced:     in.FallbackPriced,
		TopN:               policy.TopN,
		NegativeCount:      negatives,
		DefensiveRatio:     ratio,
		DefensiveAmount:    defensive,
		OffensiveRemainder: remainder,
		OffensiveShare:     share,
	}

	for _, s := range selected {
		alloc.Selected = append(alloc.Selected, s.Symbol)
		if s.Negative() || share <= 0 {
			continue
		}
		alloc.Entries = append(alloc.Entries, model.AllocationEntry{Symbol: s.Symbol, Amount: share})
	}
	if defensive > 0 {
		alloc.Entries = append(alloc.Entries, model.AllocationEntry{Symbol: in.Fallback, Amount: defensive, Defensive: true})
	}

	amounts := make([]float64, len(alloc.Entries))
	for i, e := range alloc.Entries {
		amounts[i] = e.Amount
	}
	alloc.TotalAllocated = RoundCents(floats.Sum(amounts))
	alloc.Unallocated = RoundCents(in.TotalCapital - alloc.TotalAllocated)
	return alloc, nil
}
