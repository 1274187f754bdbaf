package strategy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProtectiveAllocator/internal/model"
)

type score struct {
	symbol string
	value  float64
}

func momentumSet(scores ...score) *model.MomentumSet {
	set := model.NewMomentumSet()
	for _, s := range scores {
		set.Add(model.MomentumScore{Symbol: s.symbol, Value: s.value})
	}
	return set
}

func input(capital float64, universe []string, set *model.MomentumSet) Input {
	return Input{
		Date:           time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalCapital:   capital,
		Universe:       universe,
		Fallback:       "IEF",
		FallbackPriced: true,
		Momentum:       set,
	}
}

var sixETFs = []string{"SPY", "QQQ", "IWM", "VGK", "EWJ", "EEM"}

func TestDefensiveRatio(t *testing.T) {
	for k := 0; k < 6; k++ {
		assert.Equal(t, float64(k)/6, DefensiveRatio(k), "k=%d", k)
	}
	for _, k := range []int{6, 7, 11, 100} {
		assert.Equal(t, 1.0, DefensiveRatio(k), "k=%d", k)
	}
	assert.Equal(t, 1.0, DefensiveRatio(-1))
}

func TestParseShareBasis(t *testing.T) {
	b, err := ParseShareBasis("")
	require.NoError(t, err)
	assert.Equal(t, ShareByTopN, b)

	b, err = ParseShareBasis(" Selected ")
	require.NoError(t, err)
	assert.Equal(t, ShareBySelected, b)

	_, err = ParseShareBasis("weighted")
	assert.ErrorIs(t, err, model.ErrConfigInconsistent)
}

func TestAllocate_HalfNegative(t *testing.T) {
	set := momentumSet(
		score{"SPY", 0.30}, score{"QQQ", 0.20}, score{"IWM", 0.10},
		score{"VGK", -0.10}, score{"EWJ", -0.20}, score{"EEM", -0.30},
	)
	alloc, err := Allocate(input(1200, sixETFs, set), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 3, alloc.NegativeCount)
	assert.Equal(t, 0.5, alloc.DefensiveRatio)
	assert.Equal(t, 600.0, alloc.DefensiveAmount)
	assert.Equal(t, 600.0, alloc.OffensiveRemainder)
	assert.Equal(t, 100.0, alloc.OffensiveShare)
	assert.Len(t, alloc.Selected, 6)
	assert.Equal(t, map[string]float64{"SPY": 100, "QQQ": 100, "IWM": 100, "IEF": 600}, alloc.Map())
	assert.Equal(t, 1200.0, alloc.TotalAllocated)
	assert.Equal(t, 0.0, alloc.Unallocated)

	for _, sym := range []string{"VGK", "EWJ", "EEM"} {
		_, ok := alloc.Amount(sym)
		assert.False(t, ok, "%s has negative momentum", sym)
	}
}

func TestAllocate_AllPositiveOmitsFallback(t *testing.T) {
	set := momentumSet(
		score{"SPY", 0.30}, score{"QQQ", 0.20}, score{"IWM", 0.10},
		score{"VGK", 0.05}, score{"EWJ", 0.02}, score{"EEM", 0.01},
	)
	alloc, err := Allocate(input(1200, sixETFs, set), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 0, alloc.NegativeCount)
	assert.Equal(t, 0.0, alloc.DefensiveAmount)
	_, ok := alloc.Amount("IEF")
	assert.False(t, ok)
	assert.Len(t, alloc.Entries, 6)
	assert.Equal(t, 1200.0, alloc.TotalAllocated)
}

func TestAllocate_FewerScoredThanTopNUnderAllocates(t *testing.T) {
	// EWJ and EEM have no score (insufficient history).
	set := momentumSet(score{"SPY", 0.30}, score{"QQQ", 0.20}, score{"IWM", 0.10}, score{"VGK", 0.05})
	alloc, err := Allocate(input(1200, sixETFs, set), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ", "IWM", "VGK"}, alloc.Selected)
	assert.Equal(t, 200.0, alloc.OffensiveShare)
	assert.Equal(t, 800.0, alloc.TotalAllocated)
	assert.InDelta(t, alloc.OffensiveRemainder*2/6, alloc.Unallocated, 1e-9)
	assert.Equal(t, 400.0, alloc.Unallocated)
	for _, sym := range []string{"EWJ", "EEM"} {
		_, ok := alloc.Amount(sym)
		assert.False(t, ok)
	}
}

func TestAllocate_ShareBySelectedDistributesRemainder(t *testing.T) {
	set := momentumSet(score{"SPY", 0.30}, score{"QQQ", 0.20}, score{"IWM", 0.10}, score{"VGK", 0.05})
	alloc, err := Allocate(input(1200, sixETFs, set), Policy{TopN: 6, ShareBasis: ShareBySelected})
	require.NoError(t, err)

	assert.Equal(t, 300.0, alloc.OffensiveShare)
	assert.Equal(t, 1200.0, alloc.TotalAllocated)
}

func TestAllocate_SelectedNegativeGetsNothing(t *testing.T) {
	set := momentumSet(score{"SPY", 0.10}, score{"QQQ", -0.05}, score{"IWM", 0.02})
	alloc, err := Allocate(input(600, []string{"SPY", "QQQ", "IWM"}, set), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "IWM", "QQQ"}, alloc.Selected)
	// k=1: defensive 100, remainder 500, share 500/6 rounds to 83.33
	assert.Equal(t, 100.0, alloc.DefensiveAmount)
	assert.Equal(t, 83.33, alloc.OffensiveShare)
	_, ok := alloc.Amount("QQQ")
	assert.False(t, ok)
	assert.Equal(t, map[string]float64{"SPY": 83.33, "IWM": 83.33, "IEF": 100}, alloc.Map())
}

func TestAllocate_FullyDefensive(t *testing.T) {
	universe := []string{"SPY", "QQQ", "IWM", "VGK", "EWJ", "EEM", "VNQ", "GLD"}
	set := momentumSet(
		score{"SPY", -0.1}, score{"QQQ", -0.1}, score{"IWM", -0.1}, score{"VGK", -0.1},
		score{"EWJ", -0.1}, score{"EEM", -0.1}, score{"VNQ", 0.2}, score{"GLD", 0.3},
	)
	alloc, err := Allocate(input(2000, universe, set), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 6, alloc.NegativeCount)
	assert.Equal(t, 1.0, alloc.DefensiveRatio)
	assert.Equal(t, map[string]float64{"IEF": 2000}, alloc.Map())
}

func TestAllocate_TopNZeroMeansNoOffense(t *testing.T) {
	set := momentumSet(
		score{"SPY", 0.3}, score{"QQQ", 0.2}, score{"IWM", 0.1},
		score{"VGK", 0.1}, score{"EWJ", -0.1}, score{"EEM", -0.2},
	)
	for _, topN := range []int{0, -3} {
		alloc, err := Allocate(input(1200, sixETFs, set), Policy{TopN: topN})
		require.NoError(t, err)
		assert.Empty(t, alloc.Selected)
		assert.Equal(t, 0.0, alloc.OffensiveShare)
		assert.Equal(t, map[string]float64{"IEF": 400}, alloc.Map())
		assert.Equal(t, 800.0, alloc.Unallocated)
	}
}

func TestAllocate_TiesKeepUniverseOrder(t *testing.T) {
	set := momentumSet(score{"SPY", 0.1}, score{"QQQ", 0.1}, score{"IWM", 0.1}, score{"VGK", 0.2})
	alloc, err := Allocate(input(1000, []string{"SPY", "QQQ", "IWM", "VGK"}, set), Policy{TopN: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"VGK", "SPY"}, alloc.Selected)
}

func TestAllocate_FallbackInUniverseIsDefensiveOnly(t *testing.T) {
	set := momentumSet(score{"SPY", 0.2}, score{"IEF", -0.5}, score{"QQQ", 0.1})
	alloc, err := Allocate(input(600, []string{"SPY", "IEF", "QQQ", "SPY"}, set), Policy{TopN: 3})
	require.NoError(t, err)

	assert.Equal(t, 0, alloc.NegativeCount)
	assert.Equal(t, []string{"SPY", "QQQ"}, alloc.Selected)
	_, ok := alloc.Amount("IEF")
	assert.False(t, ok)
	assert.Equal(t, map[string]float64{"SPY": 200, "QQQ": 200}, alloc.Map())
}

func TestAllocate_RoundingNeverOverdraws(t *testing.T) {
	set := momentumSet(
		score{"SPY", 0.3}, score{"QQQ", 0.2}, score{"IWM", 0.1},
		score{"VGK", 0.1}, score{"EWJ", 0.1}, score{"EEM", 0.1},
	)
	alloc, err := Allocate(input(100, sixETFs, set), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 16.66, alloc.OffensiveShare)
	assert.Equal(t, 99.96, alloc.TotalAllocated)
	assert.Equal(t, 0.04, alloc.Unallocated)
}

func TestAllocate_SumNeverExceedsCapital(t *testing.T) {
	universe := []string{"SPY", "QQQ", "IWM", "VGK", "EWJ", "EEM", "VNQ", "GLD", "DBC", "HYG", "LQD"}
	for negatives := 0; negatives <= len(universe); negatives++ {
		for _, topN := range []int{0, 1, 3, 6, 11, 15} {
			for _, capital := range []float64{1, 99.99, 1000, 2000, 12345.67} {
				name := fmt.Sprintf("k=%d/topN=%d/capital=%.2f", negatives, topN, capital)
				set := model.NewMomentumSet()
				for i, sym := range universe {
					v := 0.01 * float64(i+1)
					if i < negatives {
						v = -v
					}
					set.Add(model.MomentumScore{Symbol: sym, Value: v})
				}
				alloc, err := Allocate(input(capital, universe, set), Policy{TopN: topN})
				require.NoError(t, err, name)
				assert.LessOrEqual(t, alloc.TotalAllocated, capital+1e-9, name)
				assert.GreaterOrEqual(t, alloc.Unallocated, -1e-9, name)

				_, hasFallback := alloc.Amount("IEF")
				assert.Equal(t, alloc.DefensiveAmount > 0, hasFallback, name)
				for _, e := range alloc.Entries {
					assert.GreaterOrEqual(t, e.Amount, 0.0, name)
				}
				if negatives == 0 && topN > 0 && topN <= len(universe) {
					assert.InDelta(t, capital, alloc.TotalAllocated, 0.01*float64(topN), name)
				}
			}
		}
	}
}

func TestAllocate_Errors(t *testing.T) {
	_, err := Allocate(input(1000, sixETFs, model.NewMomentumSet()), DefaultPolicy())
	assert.ErrorIs(t, err, model.ErrDataUnavailable)

	onlyFallback := momentumSet(score{"IEF", 0.1})
	_, err = Allocate(input(1000, sixETFs, onlyFallback), DefaultPolicy())
	assert.ErrorIs(t, err, model.ErrDataUnavailable)

	set := momentumSet(score{"SPY", 0.1})
	_, err = Allocate(input(0, sixETFs, set), DefaultPolicy())
	assert.ErrorIs(t, err, model.ErrConfigInconsistent)

	in := input(1000, sixETFs, set)
	in.Fallback = ""
	_, err = Allocate(in, DefaultPolicy())
	assert.ErrorIs(t, err, model.ErrConfigInconsistent)
}

func TestOffensiveShare(t *testing.T) {
	assert.Equal(t, 100.0, OffensiveShare(600, DefaultPolicy(), 6, 6))
	assert.Equal(t, 100.0, OffensiveShare(600, DefaultPolicy(), 3, 3))
	assert.Equal(t, 200.0, OffensiveShare(600, Policy{TopN: 6, ShareBasis: ShareBySelected}, 3, 3))
	assert.Equal(t, 0.0, OffensiveShare(600, Policy{TopN: 6, ShareBasis: ShareBySelected}, 0, 0))
	assert.Equal(t, 0.0, OffensiveShare(0, DefaultPolicy(), 6, 6))
	assert.Equal(t, 0.0, OffensiveShare(600, Policy{TopN: 0}, 0, 0))

	// 1000/6 rounds up to 166.67; six payees would overdraw, four would not.
	assert.Equal(t, 166.66, OffensiveShare(1000, DefaultPolicy(), 6, 6))
	assert.Equal(t, 166.67, OffensiveShare(1000, DefaultPolicy(), 4, 4))
	assert.Equal(t, 166.67, OffensiveShare(1000, DefaultPolicy(), 6, 5))
}

func TestAllocate_FewerScoredThanTopNKeepsRoundedShare(t *testing.T) {
	set := momentumSet(score{"SPY", 0.3}, score{"QQQ", 0.2}, score{"IWM", 0.1}, score{"VGK", 0.05})
	alloc, err := Allocate(input(1000, sixETFs, set), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 0.0, alloc.DefensiveAmount)
	assert.Equal(t, 166.67, alloc.OffensiveShare)
	assert.Equal(t, 666.68, alloc.TotalAllocated)
	assert.Equal(t, 333.32, alloc.Unallocated)
	assert.Len(t, alloc.Entries, 4)
}
