package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ProtectiveAllocator/internal/notifier"
	"ProtectiveAllocator/internal/recorder"
	"ProtectiveAllocator/internal/runner"
)

// Scheduler triggers the monthly allocation and answers bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *runner.Runner
	Recorder recorder.Recorder
	Ctx      context.Context

	// runMu keeps manual and scheduled runs from overlapping.
	runMu sync.Mutex
	log   zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r *runner.Runner, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   r,
		Recorder: rec,
		Ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the monthly allocation task.
func (s *Scheduler) Register(monthlyCron string) error {
	if _, err := s.Cron.AddFunc(monthlyCron, s.monthlyTask); err != nil {
		return fmt.Errorf("register monthly task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the allocation immediately.
func (s *Scheduler) RunNow() (*runner.Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.Runner.Run(s.Ctx)
}

func (s *Scheduler) monthlyTask() {
	s.log.Info().Msg("running monthly allocation")
	if _, err := s.RunNow(); err != nil {
		s.log.Error().Err(err).Msg("monthly allocation failed")
		if s.Runner.Notifier != nil {
			if nerr := s.Runner.Notifier.Notify(s.Ctx, fmt.Sprintf("❌ Monthly allocation failed: %v", err)); nerr != nil {
				s.log.Error().Err(nerr).Msg("send failure notice")
			}
		}
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/run":
		if _, err := s.RunNow(); err != nil {
			return fmt.Sprintf("❌ Allocation failed: %v", err)
		}
		// The runner already sent the allocation report.
		return ""
	case "/latest":
		records, err := s.Recorder.Latest(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Could not load the latest allocation: %v", err)
		}
		return notifier.FormatHistory(records)
	case "/report":
		rep, err := s.Runner.Report(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Report failed: %v", err)
		}
		if len(rep.Table.Dates) == 0 {
			return "No allocations recorded yet."
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("📅 <b>Allocation report</b> | %d runs\n\n", len(rep.Table.Dates)))
		for _, sum := range rep.Summary {
			b.WriteString(fmt.Sprintf("  %s: avg $%.2f, last $%.2f, held %d×\n", sum.Symbol, sum.Mean, sum.Last, sum.Held))
		}
		b.WriteString(fmt.Sprintf("\nChart: %s", rep.ChartPath))
		return b.String()
	default:
		return notifier.HelpText
	}
}
