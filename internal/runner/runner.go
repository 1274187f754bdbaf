package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"ProtectiveAllocator/internal/calculator"
	"ProtectiveAllocator/internal/collector"
	"ProtectiveAllocator/internal/config"
	"ProtectiveAllocator/internal/export"
	"ProtectiveAllocator/internal/model"
	"ProtectiveAllocator/internal/notifier"
	"ProtectiveAllocator/internal/recorder"
	"ProtectiveAllocator/internal/report"
	"ProtectiveAllocator/internal/strategy"
)

// Notifier delivers a formatted message. It is optional.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Result is the outcome of one allocation run.
type Result struct {
	Allocation *model.Allocation
	Momentum   *model.MomentumSet
	CSVPath    string
	// ChartPath is empty when the momentum chart could not be rendered.
	ChartPath string
}

// HistoryReport is the outcome of Report.
type HistoryReport struct {
	Table   *report.AllocationTable
	Summary []report.SymbolSummary
	// ChartPath is empty when there is no history to plot.
	ChartPath string
}

// Runner wires price collection, scoring, allocation and the ledger.
type Runner struct {
	Config    *config.Config
	Collector *collector.Collector
	Recorder  recorder.Recorder
	Notifier  Notifier
	Now       func() time.Time
	log       zerolog.Logger
}

// New creates a Runner. notify may be nil.
func New(cfg *config.Config, col *collector.Collector, rec recorder.Recorder, notify Notifier, log zerolog.Logger) *Runner {
	return &Runner{
		Config:    cfg,
		Collector: col,
		Recorder:  rec,
		Notifier:  notify,
		Now:       time.Now,
		log:       log.With().Str("component", "runner").Logger(),
	}
}

// Run performs one monthly allocation. Nothing is persisted when it fails
// before the ledger write; chart and notification failures are only logged.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	s := r.Config.Strategy
	now := r.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := collector.LookbackRange(now, s.LookbackMonths)
	offensive := r.Config.OffensiveUniverse()

	r.log.Info().
		Str("date", date.Format(model.DateLayout)).
		Strs("universe", offensive).
		Str("fallback", s.Fallback).
		Msg("allocation run started")

	symbols := append(append([]string(nil), offensive...), s.Fallback)
	prices, err := r.Collector.FetchPrices(ctx, symbols, start, now)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	// The fallback is scored for reporting; Allocate only reads the offensive scores.
	momentum := calculator.ComputeMomentum(symbols, prices, s.MAWindow, start, now)
	for _, ex := range momentum.Excluded {
		r.log.Warn().Str("symbol", ex.Symbol).Err(ex.Reason).Msg("instrument excluded from scoring")
	}

	fallback, priced := prices[s.Fallback]
	alloc, err := strategy.Allocate(strategy.Input{
		Date:           date,
		TotalCapital:   s.TotalCapital,
		Universe:       offensive,
		Fallback:       s.Fallback,
		FallbackPriced: priced && fallback.Len() > 0,
		Momentum:       momentum,
	}, r.Config.Policy())
	if err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	if !alloc.FallbackPriced {
		r.log.Warn().Str("fallback", s.Fallback).Msg("no price data for fallback instrument")
	}

	if err := r.Recorder.RecordAllocation(ctx, alloc); err != nil {
		return nil, fmt.Errorf("record allocation: %w", err)
	}

	res := &Result{Allocation: alloc, Momentum: momentum}

	res.CSVPath, err = export.WriteCSV(r.Config.Output.Dir, date, alloc.Entries)
	if err != nil {
		return res, fmt.Errorf("export allocation: %w", err)
	}

	chart := filepath.Join(r.Config.Output.Dir, report.MomentumChartName(date))
	if err := report.RenderMomentumChart(momentum.Scores(), s.MAWindow, chart); err != nil {
		r.log.Warn().Err(err).Msg("momentum chart not rendered")
	} else {
		res.ChartPath = chart
	}

	r.notify(ctx, notifier.FormatAllocationReport(alloc, momentum))

	r.log.Info().
		Str("run_id", alloc.RunID.String()).
		Int("negatives", alloc.NegativeCount).
		Float64("defensive", alloc.DefensiveAmount).
		Float64("allocated", alloc.TotalAllocated).
		Float64("unallocated", alloc.Unallocated).
		Msg("allocation run finished")
	return res, nil
}

// Report projects the whole ledger into a date by instrument table and
// renders the allocation trend chart.
func (r *Runner) Report(ctx context.Context) (*HistoryReport, error) {
	records, err := r.Recorder.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	table, err := report.Pivot(records)
	if err != nil {
		return nil, err
	}

	out := &HistoryReport{Table: table, Summary: report.Summarize(table)}
	if len(table.Dates) == 0 {
		r.log.Info().Msg("allocation ledger is empty")
		return out, nil
	}

	chart := filepath.Join(r.Config.Output.Dir, report.TrendChartName)
	if err := report.RenderAllocationTrend(table, chart); err != nil {
		return out, fmt.Errorf("render trend chart: %w", err)
	}
	out.ChartPath = chart
	r.log.Info().Int("dates", len(table.Dates)).Int("symbols", len(table.Symbols)).Str("chart", chart).Msg("history report rendered")
	return out, nil
}

func (r *Runner) notify(ctx context.Context, text string) {
	if r.Notifier == nil {
		return
	}
	if err := r.Notifier.Notify(ctx, text); err != nil {
		r.log.Error().Err(err).Msg("send notification")
	}
}
