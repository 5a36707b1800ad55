package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"CrossoverSentinel/internal/collector"
	"CrossoverSentinel/internal/markethours"
	"CrossoverSentinel/internal/model"
	"CrossoverSentinel/internal/strategy"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	SmartAPI struct {
		APIKey              string        `yaml:"api_key" envconfig:"SMARTAPI_API_KEY"`
		ClientID            string        `yaml:"client_id" envconfig:"SMARTAPI_CLIENT_ID"`
		MPIN                string        `yaml:"mpin" envconfig:"SMARTAPI_MPIN"`
		TOTPSecret          string        `yaml:"totp_secret" envconfig:"SMARTAPI_TOTP_SECRET"`
		BaseURL             string        `yaml:"base_url" envconfig:"SMARTAPI_BASE_URL"`
		Timeout             time.Duration `yaml:"timeout" envconfig:"SMARTAPI_TIMEOUT"`
		MaxRetries          int           `yaml:"max_retries" envconfig:"MAX_FETCH_RETRIES"`
		RetryDelayBase      time.Duration `yaml:"retry_delay_base" envconfig:"RETRY_DELAY_BASE"`
		TransientErrorCodes []string      `yaml:"transient_error_codes" envconfig:"TRANSIENT_ERROR_CODES"`
	} `yaml:"smartapi"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"TELEGRAM_CHAT_ID"`
		BaseURL  string `yaml:"base_url" envconfig:"TELEGRAM_BASE_URL"`
		Commands bool   `yaml:"commands" envconfig:"TELEGRAM_COMMANDS"`
	} `yaml:"telegram"`
	Strategy struct {
		FastPeriod     int           `yaml:"fast_period" envconfig:"MA_FAST_PERIOD"`
		SlowPeriod     int           `yaml:"slow_period" envconfig:"MA_SLOW_PERIOD"`
		ScanDepth      int           `yaml:"scan_depth" envconfig:"SCAN_DEPTH"`
		CandleInterval time.Duration `yaml:"candle_interval" envconfig:"CANDLE_INTERVAL"`
		Lookback       time.Duration `yaml:"lookback" envconfig:"LOOKBACK"`
	} `yaml:"strategy"`
	Schedule struct {
		PollInterval time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	} `yaml:"schedule"`
	MarketHours struct {
		Enabled      *bool    `yaml:"enabled" envconfig:"MARKET_HOURS_ENABLED"`
		Open         string   `yaml:"open" envconfig:"MARKET_OPEN"`
		Close        string   `yaml:"close" envconfig:"MARKET_CLOSE"`
		Timezone     string   `yaml:"timezone" envconfig:"MARKET_TIMEZONE"`
		WeekdaysOnly bool     `yaml:"weekdays_only" envconfig:"MARKET_WEEKDAYS_ONLY"`
		Holidays     []string `yaml:"holidays" envconfig:"MARKET_HOLIDAYS"`
	} `yaml:"market_hours"`
	Replay struct {
		Lookback time.Duration `yaml:"lookback" envconfig:"REPLAY_LOOKBACK"`
	} `yaml:"replay"`
	Dedup struct {
		Backend       string `yaml:"backend" envconfig:"DEDUP_BACKEND"`
		RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
		RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
		RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
		RedisKey      string `yaml:"redis_key" envconfig:"REDIS_KEY"`
	} `yaml:"dedup"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr" envconfig:"METRICS_ADDR"`
	} `yaml:"metrics"`
	Symbols []model.Symbol `yaml:"symbols" ignored:"true"`
	Proxy   string         `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// DefaultSymbols is the registry used when none is configured.
var DefaultSymbols = []model.Symbol{
	{Name: "NSE:RELIANCE", Token: "2885", Exchange: "NSE"},
	{Name: "NSE:TCS", Token: "11536", Exchange: "NSE"},
	{Name: "NSE:INFY", Token: "1594", Exchange: "NSE"},
}

// Load reads config from a YAML file, loads .env if present, then applies environment overrides.
func Load(path string) (*Config, error) {
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

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SmartAPI.BaseURL == "" {
		c.SmartAPI.BaseURL = collector.DefaultSmartAPIURL
	}
	if c.SmartAPI.Timeout == 0 {
		c.SmartAPI.Timeout = 10 * time.Second
	}
	if c.SmartAPI.MaxRetries == 0 {
		c.SmartAPI.MaxRetries = 3
	}
	if c.SmartAPI.RetryDelayBase == 0 {
		c.SmartAPI.RetryDelayBase = time.Second
	}
	if len(c.SmartAPI.TransientErrorCodes) == 0 {
		c.SmartAPI.TransientErrorCodes = []string{"AB1004"}
	}
	if c.Strategy.FastPeriod == 0 {
		c.Strategy.FastPeriod = 9
	}
	if c.Strategy.SlowPeriod == 0 {
		c.Strategy.SlowPeriod = 20
	}
	if c.Strategy.ScanDepth == 0 {
		c.Strategy.ScanDepth = 3
	}
	if c.Strategy.CandleInterval == 0 {
		c.Strategy.CandleInterval = 5 * time.Minute
	}
	if c.Strategy.Lookback == 0 {
		c.Strategy.Lookback = 5 * 24 * time.Hour
	}
	if c.Schedule.PollInterval == 0 {
		c.Schedule.PollInterval = 5 * time.Minute
	}
	if c.MarketHours.Enabled == nil {
		enabled := true
		c.MarketHours.Enabled = &enabled
	}
	if c.MarketHours.Open == "" {
		c.MarketHours.Open = "09:15"
	}
	if c.MarketHours.Close == "" {
		c.MarketHours.Close = "15:30"
	}
	if c.MarketHours.Timezone == "" {
		c.MarketHours.Timezone = "Asia/Kolkata"
	}
	if c.Replay.Lookback == 0 {
		c.Replay.Lookback = 10 * 24 * time.Hour
	}
	if c.Dedup.Backend == "" {
		c.Dedup.Backend = "memory"
	}
	if len(c.Symbols) == 0 {
		c.Symbols = append([]model.Symbol(nil), DefaultSymbols...)
	}
	for i := range c.Symbols {
		if c.Symbols[i].Exchange == "" {
			c.Symbols[i].Exchange = "NSE"
		}
	}
}

// StrategyParams returns the crossover parameters.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		FastPeriod: c.Strategy.FastPeriod,
		SlowPeriod: c.Strategy.SlowPeriod,
		ScanDepth:  c.Strategy.ScanDepth,
	}
}

// MarketWindow builds the market-hours gate, or nil when disabled.
func (c *Config) MarketWindow() (*markethours.Window, error) {
	if c.MarketHours.Enabled != nil && !*c.MarketHours.Enabled {
		return nil, nil
	}
	return markethours.New(c.MarketHours.Open, c.MarketHours.Close, c.MarketHours.Timezone,
		c.MarketHours.WeekdaysOnly, c.MarketHours.Holidays)
}

// Location returns the market timezone used for timestamps and query windows.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.MarketHours.Timezone)
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.SmartAPI.APIKey == "" {
		return fmt.Errorf("smartapi.api_key is required")
	}
	if c.SmartAPI.ClientID == "" {
		return fmt.Errorf("smartapi.client_id is required")
	}
	if c.SmartAPI.MPIN == "" {
		return fmt.Errorf("smartapi.mpin is required")
	}
	if c.SmartAPI.TOTPSecret == "" {
		return fmt.Errorf("smartapi.totp_secret is required")
	}
	if c.SmartAPI.MaxRetries < 1 {
		return fmt.Errorf("smartapi.max_retries must be at least 1")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if err := c.StrategyParams().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if _, err := collector.IntervalName(c.Strategy.CandleInterval); err != nil {
		return fmt.Errorf("strategy.candle_interval: %w", err)
	}
	if c.Schedule.PollInterval < time.Second {
		return fmt.Errorf("schedule.poll_interval must be at least 1s")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("market_hours.timezone: %w", err)
	}
	if _, err := c.MarketWindow(); err != nil {
		return fmt.Errorf("market_hours: %w", err)
	}
	switch c.Dedup.Backend {
	case "memory":
	case "redis":
		if c.Dedup.RedisAddr == "" {
			return fmt.Errorf("dedup.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("dedup.backend must be memory or redis, got %q", c.Dedup.Backend)
	}
	for i, s := range c.Symbols {
		if s.Name == "" || s.Token == "" {
			return fmt.Errorf("symbols[%d]: name and token are required", i)
		}
	}
	return nil
}
