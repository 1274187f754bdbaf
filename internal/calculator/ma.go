package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
)

// TradingDaysPerMonth approximates the number of sessions in a calendar month.
const TradingDaysPerMonth = 21

// TradingDays converts a lookback in months to a trading-day count.
func TradingDays(months int) int {
	if months <= 0 {
		return 0
	}
	return months * TradingDaysPerMonth
}

// CalculateSMA computes the simple moving average of the trailing period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sma := talib.Sma(prices[len(prices)-period:], period)
	last := sma[len(sma)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return 0, errors.New("SMA is not a finite number")
	}
	return last, nil
}
