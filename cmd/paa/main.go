package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ProtectiveAllocator/internal/collector"
	"ProtectiveAllocator/internal/config"
	"ProtectiveAllocator/internal/logger"
	"ProtectiveAllocator/internal/notifier"
	"ProtectiveAllocator/internal/recorder"
	"ProtectiveAllocator/internal/runner"
	"ProtectiveAllocator/internal/scheduler"
	"ProtectiveAllocator/internal/server"
)

const usage = `usage: paa [run|report|serve]

  run     compute and record this month's allocation (default)
  report  render the allocation history table and trend chart
  serve   run monthly on schedule, answer bot commands and serve the HTTP API`

func main() {
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		fmt.Println(usage)
		return
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := recorder.Open(ctx, cfg.Database.PostgresDSN, cfg.Database.SQLitePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open allocation ledger")
	}
	defer rec.Close()

	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	r := runner.New(cfg, collector.NewCollector(fetcher, log), rec, tn, log)

	switch cmd {
	case "run":
		res, err := r.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("allocation run failed")
		}
		for _, e := range res.Allocation.Entries {
			fmt.Printf("%-6s %10.2f\n", e.Symbol, e.Amount)
		}
		fmt.Printf("%-6s %10.2f\n", "TOTAL", res.Allocation.TotalAllocated)
		fmt.Printf("saved %s\n", res.CSVPath)
	case "report":
		rep, err := r.Report(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("history report failed")
		}
		printTable(rep)
	case "serve":
		serve(ctx, cfg, r, rec, tn, log)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *config.Config, r *runner.Runner, rec recorder.Recorder, tn *notifier.TelegramNotifier, log zerolog.Logger) {
	sched := scheduler.NewScheduler(ctx, r, rec, log)
	if err := sched.Register(cfg.Schedule.MonthlyCron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running allocation now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				log.Error().Err(err).Msg("startup allocation failed")
			}
		}()
	}

	srv := server.New(server.Config{Addr: cfg.HTTP.Addr, Log: log, Recorder: rec})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info().Str("cron", cfg.Schedule.MonthlyCron).Msg("protective allocator is running, press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
}

func printTable(rep *runner.HistoryReport) {
	t := rep.Table
	if len(t.Dates) == 0 {
		fmt.Println("no allocations recorded yet")
		return
	}
	fmt.Printf("%-10s", "Date")
	for _, sym := range t.Symbols {
		fmt.Printf(" %9s", sym)
	}
	fmt.Println()
	for i, d := range t.Dates {
		fmt.Printf("%-10s", d.Format("2006-01-02"))
		for _, v := range t.Amounts[i] {
			fmt.Printf(" %9.2f", v)
		}
		fmt.Println()
	}
	fmt.Printf("saved %s\n", rep.ChartPath)
}
