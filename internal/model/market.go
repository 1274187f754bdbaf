package model

import (
	"time"
)

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries holds the daily closes of one instrument, oldest first.
type PriceSeries struct {
	Symbol    string
	Points    []PricePoint
	FetchedAt time.Time
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Closes returns the closing prices in chronological order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Latest returns the most recent point. ok is false for an empty series.
func (s PriceSeries) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Between returns a copy of the series restricted to [start, end].
// A zero start or end leaves that side unbounded.
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	out := PriceSeries{Symbol: s.Symbol, FetchedAt: s.FetchedAt}
	for _, p := range s.Points {
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && p.Date.After(end) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}
