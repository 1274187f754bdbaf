package calculator

import (
	"errors"
	"fmt"
	"time"

	"ProtectiveAllocator/internal/model"
)

// DefaultWindow is the moving average length in trading observations.
const DefaultWindow = 252

// CalculateMomentum returns latest / SMA(window) - 1 for a series of closes.
func CalculateMomentum(closes []float64, window int) (value, sma float64, err error) {
	if len(closes) == 0 {
		return 0, 0, errors.New("no closes")
	}
	if len(closes) < window {
		return 0, 0, fmt.Errorf("%w: %d observations, need %d", model.ErrInsufficientHistory, len(closes), window)
	}
	sma, err = CalculateSMA(closes, window)
	if err != nil {
		return 0, 0, err
	}
	if sma <= 0 {
		return 0, 0, fmt.Errorf("non-positive moving average %.4f", sma)
	}
	return closes[len(closes)-1]/sma - 1, sma, nil
}

// ComputeMomentum scores every symbol whose series holds at least window
// observations inside [start, end]. Other symbols are recorded as excluded
// and are absent from the result. The inputs are not modified.
func ComputeMomentum(symbols []string, history map[string]model.PriceSeries, window int, start, end time.Time) *model.MomentumSet {
	set := model.NewMomentumSet()
	for _, sym := range symbols {
		series, ok := history[sym]
		if !ok {
			set.Exclude(sym, fmt.Errorf("%w: no price series", model.ErrDataUnavailable))
			continue
		}
		series = series.Between(start, end)
		latest, ok := series.Latest()
		if !ok {
			set.Exclude(sym, fmt.Errorf("%w: no points in lookback window", model.ErrDataUnavailable))
			continue
		}
		value, sma, err := CalculateMomentum(series.Closes(), window)
		if err != nil {
			set.Exclude(sym, err)
			continue
		}
		set.Add(model.MomentumScore{
			Symbol:        sym,
			Price:         latest.Close,
			MovingAverage: sma,
			Value:         value,
			AsOf:          latest.Date,
		})
	}
	return set
}
