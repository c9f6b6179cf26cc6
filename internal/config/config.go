package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Rates     RatesConfig     `yaml:"rates"`
	Feed      FeedConfig      `yaml:"feed"`
	Dex       DexConfig       `yaml:"dex"`
	Engine    EngineConfig    `yaml:"engine"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type RatesConfig struct {
	Venues       []VenueConfig `yaml:"venues"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type VenueConfig struct {
	Name    string        `yaml:"name"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type FeedConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Exchange       string        `yaml:"exchange"`
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type DexConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CloseMode selects what Close does with the hedge leg.
const (
	CloseModeBookkeeping = "bookkeeping"
	CloseModeUnwind      = "unwind"
)

type EngineConfig struct {
	WatchList            []string      `yaml:"watch_list"`
	MinFundingRate       float64       `yaml:"min_funding_rate"`
	NotionalUSD          float64       `yaml:"notional_usd"`
	MaxPositionSizeUSD   float64       `yaml:"max_position_size_usd"`
	FundingPeriodsPerDay float64       `yaml:"funding_periods_per_day"`
	ScanInterval         time.Duration `yaml:"scan_interval"`
	PnlInterval          time.Duration `yaml:"pnl_interval"`
	DispatchTimeout      time.Duration `yaml:"dispatch_timeout"`
	CloseMode            string        `yaml:"close_mode"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type TelegramConfig struct {
	Enabled                bool          `yaml:"enabled"`
	Token                  string        `yaml:"token"`
	ChatID                 string        `yaml:"chat_id"`
	OperatorEnabled        bool          `yaml:"operator_enabled"`
	OperatorPollInterval   time.Duration `yaml:"operator_poll_interval"`
	OperatorAllowedUserIDs []int64       `yaml:"operator_allowed_user_ids"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Rates.FetchTimeout == 0 {
		cfg.Rates.FetchTimeout = 5 * time.Second
	}
	for i := range cfg.Rates.Venues {
		if cfg.Rates.Venues[i].Timeout == 0 {
			cfg.Rates.Venues[i].Timeout = 10 * time.Second
		}
	}
	if cfg.Feed.ReconnectDelay == 0 {
		cfg.Feed.ReconnectDelay = 3 * time.Second
	}
	if cfg.Feed.PingInterval == 0 {
		cfg.Feed.PingInterval = 30 * time.Second
	}
	if cfg.Feed.Exchange == "" {
		cfg.Feed.Exchange = "hyperliquid"
	}
	if cfg.Dex.BaseURL == "" {
		cfg.Dex.BaseURL = "https://api.hyperliquid.xyz"
	}
	if cfg.Dex.Timeout == 0 {
		cfg.Dex.Timeout = 10 * time.Second
	}
	if cfg.Engine.MinFundingRate == 0 {
		cfg.Engine.MinFundingRate = 0.10
	}
	if cfg.Engine.NotionalUSD == 0 {
		cfg.Engine.NotionalUSD = 5000
	}
	if cfg.Engine.FundingPeriodsPerDay == 0 {
		cfg.Engine.FundingPeriodsPerDay = 3
	}
	if cfg.Engine.ScanInterval == 0 {
		cfg.Engine.ScanInterval = 30 * time.Second
	}
	if cfg.Engine.PnlInterval == 0 {
		cfg.Engine.PnlInterval = time.Minute
	}
	if cfg.Engine.DispatchTimeout == 0 {
		cfg.Engine.DispatchTimeout = 10 * time.Second
	}
	if cfg.Engine.CloseMode == "" {
		cfg.Engine.CloseMode = CloseModeBookkeeping
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/funding-arb-bot.db"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9180"
	}
	if cfg.Telegram.OperatorPollInterval == 0 {
		cfg.Telegram.OperatorPollInterval = 3 * time.Second
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
}

func validate(cfg *Config) error {
	if len(cfg.Engine.WatchList) == 0 {
		return errors.New("engine.watch_list is required")
	}
	if cfg.Engine.MinFundingRate < 0 {
		return errors.New("engine.min_funding_rate must be >= 0")
	}
	if cfg.Engine.NotionalUSD <= 0 {
		return errors.New("engine.notional_usd must be > 0")
	}
	if cfg.Engine.MaxPositionSizeUSD < 0 {
		return errors.New("engine.max_position_size_usd must be >= 0")
	}
	if cfg.Engine.FundingPeriodsPerDay <= 0 {
		return errors.New("engine.funding_periods_per_day must be > 0")
	}
	if cfg.Engine.CloseMode != CloseModeBookkeeping && cfg.Engine.CloseMode != CloseModeUnwind {
		return fmt.Errorf("engine.close_mode must be %q or %q", CloseModeBookkeeping, CloseModeUnwind)
	}
	if len(cfg.Rates.Venues) == 0 && !cfg.Feed.Enabled {
		return errors.New("at least one rates venue or the feed must be configured")
	}
	for _, venue := range cfg.Rates.Venues {
		if venue.Name == "" {
			return errors.New("rates venue name is required")
		}
		if venue.BaseURL == "" {
			return fmt.Errorf("rates venue %s base_url is required", venue.Name)
		}
	}
	if cfg.Feed.Enabled && cfg.Feed.URL == "" {
		return errors.New("feed.url is required when the feed is enabled")
	}
	if cfg.Timescale.Enabled && cfg.Timescale.DSN == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}
