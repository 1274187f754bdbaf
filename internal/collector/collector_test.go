package collector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProtectiveAllocator/internal/model"
)

var end = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func TestCollector_FetchPrices_SkipsFailedAndEmpty(t *testing.T) {
	fetcher := &MockFetcher{
		Series: map[string]model.PriceSeries{
			"SPY": GenerateSeries("SPY", end, 5, 100, 110),
			"QQQ": {Symbol: "QQQ", Points: []model.PricePoint{{Date: end, Close: math.NaN()}}},
		},
		Errors: map[string]error{"EEM": errors.New("boom")},
	}
	c := NewCollector(fetcher, zerolog.Nop())

	prices, err := c.FetchPrices(context.Background(), []string{"SPY", "QQQ", "EEM", "IWM", "SPY"}, end.AddDate(0, -1, 0), end)
	require.NoError(t, err)

	assert.Len(t, prices, 1)
	assert.Equal(t, 5, prices["SPY"].Len())
	assert.Equal(t, []string{"SPY", "QQQ", "EEM", "IWM"}, fetcher.Calls)
}

func TestCollector_FetchPrices_NothingUsable(t *testing.T) {
	c := NewCollector(&MockFetcher{}, zerolog.Nop())
	_, err := c.FetchPrices(context.Background(), []string{"SPY", "IEF"}, end.AddDate(0, -1, 0), end)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestCollector_FetchPrices_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector(&MockFetcher{}, zerolog.Nop())
	_, err := c.FetchPrices(ctx, []string{"SPY"}, end, end)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClean(t *testing.T) {
	d := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	s := model.PriceSeries{Symbol: "SPY", Points: []model.PricePoint{
		{Date: d, Close: 10},
		{Date: d.Add(time.Hour), Close: 11},
		{Date: d.AddDate(0, 0, 1), Close: 0},
		{Date: d.AddDate(0, 0, 2), Close: math.Inf(1)},
		{Date: d.AddDate(0, 0, 3), Close: -1},
		{Date: d.AddDate(0, 0, 4), Close: 12},
	}}
	got := Clean(s)
	require.Len(t, got.Points, 2)
	assert.Equal(t, 11.0, got.Points[0].Close)
	assert.Equal(t, 12.0, got.Points[1].Close)
}

func TestLookbackRange(t *testing.T) {
	start := LookbackRange(end, 12)
	assert.Equal(t, end.AddDate(0, 0, -390), start)
}

func TestGenerateSeries(t *testing.T) {
	s := GenerateSeries("SPY", end, 3, 10, 20)
	require.Len(t, s.Points, 3)
	assert.Equal(t, []float64{10, 15, 20}, s.Closes())
	assert.Equal(t, end, s.Points[2].Date)
	assert.Equal(t, end.AddDate(0, 0, -2), s.Points[0].Date)
}
