package model

import "errors"

var (
	// ErrDataUnavailable means no usable price data is left for a run.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientHistory means a series is shorter than the moving average window.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrConfigInconsistent marks a configuration that cannot be used as given.
	ErrConfigInconsistent = errors.New("configuration inconsistent")
)
