package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coffeeliuwei/stock-training/internal/calculator"
	"github.com/coffeeliuwei/stock-training/internal/model"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider  string `yaml:"provider"` // tushare, yahoo or mock
		Token     string `yaml:"token"`
		StartDate string `yaml:"start_date"`
		Workers   int    `yaml:"workers"`
	} `yaml:"data_source"`
	Storage struct {
		Driver     string `yaml:"driver"` // csv or sqlite
		DataDir    string `yaml:"data_dir"`
		SQLitePath string `yaml:"sqlite_path"`

		// HistoryPath is the SQLite journal of sync runs; empty disables it.
		HistoryPath string `yaml:"history_path"`
	} `yaml:"storage"`
	Cache struct {
		RedisAddr string        `yaml:"redis_addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		SyncCron string `yaml:"sync_cron"`
	} `yaml:"schedule"`
	Watchlist   []string          `yaml:"watchlist"`
	Indicators  calculator.Params `yaml:"indicators"`
	MetricsAddr string            `yaml:"metrics_addr"`
	LogLevel    string            `yaml:"log_level"`
	Proxy       string            `yaml:"proxy"`
}

// Load reads an optional .env file next to the working directory, the YAML
// file at path, then applies environment variable overrides and defaults.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	// real environment wins over .env
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

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

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"TUSHARE_TOKEN":      &c.DataSource.Token,
		"DATA_DIR":           &c.Storage.DataDir,
		"STORE_DRIVER":       &c.Storage.Driver,
		"SQLITE_PATH":        &c.Storage.SQLitePath,
		"HISTORY_PATH":       &c.Storage.HistoryPath,
		"REDIS_ADDR":         &c.Cache.RedisAddr,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"HTTPS_PROXY":        &c.Proxy,
		"SYNC_CRON":          &c.Schedule.SyncCron,
		"METRICS_ADDR":       &c.MetricsAddr,
		"LOG_LEVEL":          &c.LogLevel,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "tushare"
	}
	if c.DataSource.StartDate == "" {
		c.DataSource.StartDate = "2020-01-01"
	}
	if c.DataSource.Workers == 0 {
		c.DataSource.Workers = 4
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "csv"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/stockchart.db"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 6 * time.Hour
	}
	if c.Schedule.SyncCron == "" {
		c.Schedule.SyncCron = "0 30 16 * * 1-5"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	def := calculator.DefaultParams()
	ind := &c.Indicators
	if len(ind.MA) == 0 {
		ind.MA = def.MA
	}
	if len(ind.VolumeMA) == 0 {
		ind.VolumeMA = def.VolumeMA
	}
	if ind.MACD == (calculator.MACDParams{}) {
		ind.MACD = def.MACD
	}
	if ind.RSI == (calculator.RSIParams{}) {
		ind.RSI = def.RSI
	}
	if ind.KDJ == (calculator.KDJParams{}) {
		ind.KDJ = def.KDJ
	}
	if ind.Boll == (calculator.BollParams{}) {
		ind.Boll = def.Boll
	}
}

// Start parses DataSource.StartDate.
func (c *Config) Start() (time.Time, error) {
	t, err := time.Parse(model.DateLayout, c.DataSource.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("data_source.start_date: %w", err)
	}
	return t, nil
}

// Params returns the indicator parameters.
func (c *Config) Params() calculator.Params { return c.Indicators }

// Validate checks the fields every mode needs.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "tushare":
		if c.DataSource.Token == "" {
			return fmt.Errorf("data_source.token is required for tushare")
		}
	case "yahoo", "mock":
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.Storage.Driver != "csv" && c.Storage.Driver != "sqlite" {
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.DataSource.Workers < 1 {
		return fmt.Errorf("data_source.workers must be positive")
	}
	if _, err := c.Start(); err != nil {
		return err
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	return nil
}

// ValidateServe additionally checks what the scheduled service needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	return nil
}
