package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ProtectiveAllocator/internal/calculator"
	"ProtectiveAllocator/internal/model"
	"ProtectiveAllocator/internal/strategy"
)

// DefaultUniverse is the offensive instrument list used when none is configured.
var DefaultUniverse = []string{"SPY", "QQQ", "IWM", "VGK", "EWJ", "EEM", "VNQ", "GLD", "DBC", "HYG", "LQD"}

// Config holds all application configuration.
type Config struct {
	Strategy struct {
		TotalCapital   float64  `yaml:"total_capital"`
		Universe       []string `yaml:"universe"`
		Fallback       string   `yaml:"fallback"`
		// TopN is nil when not configured; zero or less disables offense.
		TopN           *int     `yaml:"top_n"`
		LookbackMonths int      `yaml:"lookback_months"`
		MAWindow       int      `yaml:"ma_window"`
		ShareBasis     string   `yaml:"share_basis"`
	} `yaml:"strategy"`
	DataSource struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"data_source"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		MonthlyCron string `yaml:"monthly_cron"`
	} `yaml:"schedule"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads a .env file if present, then the YAML file, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PAA_TOTAL_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PAA_TOTAL_CAPITAL: %w", err)
		}
		c.Strategy.TotalCapital = f
	}
	if v := os.Getenv("PAA_UNIVERSE"); v != "" {
		c.Strategy.Universe = splitSymbols(v)
	}
	if v := os.Getenv("PAA_FALLBACK"); v != "" {
		c.Strategy.Fallback = v
	}
	if v := os.Getenv("PAA_TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAA_TOP_N: %w", err)
		}
		c.Strategy.TopN = &n
	}
	if v := os.Getenv("PAA_LOOKBACK_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAA_LOOKBACK_MONTHS: %w", err)
		}
		c.Strategy.LookbackMonths = n
	}
	if v := os.Getenv("PAA_SHARE_BASIS"); v != "" {
		c.Strategy.ShareBasis = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Database.PostgresDSN = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_MONTHLY"); v != "" {
		c.Schedule.MonthlyCron = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		c.Log.Pretty = v == "true" || v == "1"
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Strategy.TotalCapital == 0 {
		c.Strategy.TotalCapital = 2000
	}
	if len(c.Strategy.Universe) == 0 {
		c.Strategy.Universe = append([]string(nil), DefaultUniverse...)
	}
	for i, s := range c.Strategy.Universe {
		c.Strategy.Universe[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if c.Strategy.Fallback == "" {
		c.Strategy.Fallback = "IEF"
	}
	c.Strategy.Fallback = strings.ToUpper(strings.TrimSpace(c.Strategy.Fallback))
	if c.Strategy.TopN == nil {
		n := strategy.DefaultTopN
		c.Strategy.TopN = &n
	}
	if c.Strategy.LookbackMonths == 0 {
		c.Strategy.LookbackMonths = 12
	}
	if c.Strategy.MAWindow == 0 {
		c.Strategy.MAWindow = calculator.DefaultWindow
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.SQLitePath)) {
	case "":
		c.Database.SQLitePath = "data/paa_allocation.db"
	case "none":
		// Ledger explicitly disabled.
		c.Database.SQLitePath = ""
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Schedule.MonthlyCron == "" {
		c.Schedule.MonthlyCron = "0 0 9 1 * *"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the strategy settings are usable.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.TotalCapital <= 0 {
		return fmt.Errorf("%w: strategy.total_capital must be positive", model.ErrConfigInconsistent)
	}
	if s.Fallback == "" {
		return fmt.Errorf("%w: strategy.fallback is required", model.ErrConfigInconsistent)
	}
	if len(c.OffensiveUniverse()) == 0 {
		return fmt.Errorf("%w: strategy.universe has no instrument besides the fallback", model.ErrConfigInconsistent)
	}
	if s.MAWindow <= 0 {
		return fmt.Errorf("%w: strategy.ma_window must be positive", model.ErrConfigInconsistent)
	}
	if s.LookbackMonths <= 0 {
		return fmt.Errorf("%w: strategy.lookback_months must be positive", model.ErrConfigInconsistent)
	}
	if calculator.TradingDays(s.LookbackMonths) < s.MAWindow {
		return fmt.Errorf("%w: lookback of %d months (%d trading days) is shorter than ma_window %d",
			model.ErrConfigInconsistent, s.LookbackMonths, calculator.TradingDays(s.LookbackMonths), s.MAWindow)
	}
	if _, err := strategy.ParseShareBasis(s.ShareBasis); err != nil {
		return err
	}
	return nil
}

// OffensiveUniverse returns the configured universe without the fallback
// and without duplicates, so the fallback is only ever held defensively.
func (c *Config) OffensiveUniverse() []string {
	return strategy.OffensiveCandidates(c.Strategy.Universe, c.Strategy.Fallback)
}

// FallbackInUniverse reports whether the fallback was also listed as an offensive candidate.
func (c *Config) FallbackInUniverse() bool {
	for _, s := range c.Strategy.Universe {
		if s == c.Strategy.Fallback {
			return true
		}
	}
	return false
}

// Policy returns the allocation policy described by the configuration.
func (c *Config) Policy() strategy.Policy {
	basis, err := strategy.ParseShareBasis(c.Strategy.ShareBasis)
	if err != nil {
		basis = strategy.ShareByTopN
	}
	return strategy.Policy{TopN: c.TopN(), ShareBasis: basis}
}

// TopN returns the configured number of offensive picks, or the default
// when none is set.
func (c *Config) TopN() int {
	if c.Strategy.TopN == nil {
		return strategy.DefaultTopN
	}
	return *c.Strategy.TopN
}

func splitSymbols(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
