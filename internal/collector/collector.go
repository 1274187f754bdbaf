package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"ProtectiveAllocator/internal/model"
)

// MockFetcher returns fixed series for development and testing.
type MockFetcher struct {
	Series map[string]model.PriceSeries
	Errors map[string]error
	Calls  []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(_ context.Context, symbol string, _, _ time.Time) (model.PriceSeries, error) {
	m.Calls = append(m.Calls, symbol)
	if err, ok := m.Errors[symbol]; ok {
		return model.PriceSeries{}, err
	}
	s, ok := m.Series[symbol]
	if !ok {
		return model.PriceSeries{}, fmt.Errorf("mock: no data for %s", symbol)
	}
	return s, nil
}

// GenerateSeries builds count daily closes ending at end, moving linearly
// from first to last. Weekends are not skipped.
func GenerateSeries(symbol string, end time.Time, count int, first, last float64) model.PriceSeries {
	s := model.PriceSeries{Symbol: symbol, FetchedAt: end}
	for i := 0; i < count; i++ {
		p := first
		if count > 1 {
			p = first + (last-first)*float64(i)/float64(count-1)
		}
		s.Points = append(s.Points, model.PricePoint{
			Date:  end.AddDate(0, 0, -(count - 1 - i)),
			Close: p,
		})
	}
	return s
}

// LookbackRange returns the fetch window for a lookback in months. The
// extra month of calendar days covers weekends and holidays.
func LookbackRange(end time.Time, months int) (start time.Time) {
	return end.AddDate(0, 0, -(months*30 + 30))
}

// Collector loads and cleans price history for a set of instruments.
type Collector struct {
	Fetcher Fetcher
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		log:     log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// FetchPrices loads one series per symbol, one symbol at a time. Symbols
// that fail or are empty after cleaning are left out of the result. It
// returns ErrDataUnavailable when no symbol has usable data.
func (c *Collector) FetchPrices(ctx context.Context, symbols []string, start, end time.Time) (map[string]model.PriceSeries, error) {
	out := make(map[string]model.PriceSeries, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := out[sym]; done {
			continue
		}
		raw, err := c.Fetcher.FetchDailyCloses(ctx, sym, start, end)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", sym).Msg("price fetch failed, instrument skipped")
			continue
		}
		series := Clean(raw)
		if series.Len() == 0 {
			c.log.Warn().Str("symbol", sym).Msg("no valid prices after cleaning, instrument skipped")
			continue
		}
		series.Symbol = sym
		out[sym] = series
		c.log.Debug().Str("symbol", sym).Int("points", series.Len()).Msg("prices loaded")
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable price series for %d instruments", model.ErrDataUnavailable, len(symbols))
	}
	return out, nil
}

// Clean drops non-finite and non-positive closes and keeps the last point
// of each calendar day. Points are assumed to be in chronological order.
func Clean(s model.PriceSeries) model.PriceSeries {
	out := model.PriceSeries{Symbol: s.Symbol, FetchedAt: s.FetchedAt}
	for _, p := range s.Points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			continue
		}
		n := len(out.Points)
		if n > 0 && sameDay(out.Points[n-1].Date, p.Date) {
			out.Points[n-1] = p
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
