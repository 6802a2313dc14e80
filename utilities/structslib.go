package utilities

import (
	"log"
)

// Logging Level
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	Fatal
)

// TimestampLayout is the sortable layout every persisted timestamp uses.
const TimestampLayout = "2006-01-02T15:04:05"

// --- Types (Alphabetized) ---

// AppConfig is the root configuration structure, holding all other config sections.
type AppConfig struct {
	AppName    string           `mapstructure:"app_name"`
	DB         DatabaseConfig   `mapstructure:"database"`
	Discord    DiscordConfig    `mapstructure:"discord"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Trading    TradingConfig    `mapstructure:"trading"`
	Version    string           `mapstructure:"version"`
	Web        WebConfig        `mapstructure:"web"`
}

// DatabaseConfig holds settings for database connections.
type DatabaseConfig struct {
	DBPath string `mapstructure:"database_path"`
}

// DiscordConfig holds settings for sending notifications via Discord.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// ExecutorConfig holds settings for the auto-rsa order execution service.
// An empty BaseURL leaves the executor in dry-run mode.
type ExecutorConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
	RetryDelaySec     int    `mapstructure:"retry_delay_sec"`
}

// Logger provides a structured logger with different levels.
type Logger struct {
	Level  LogLevel
	Logger *log.Logger
}

// LoggingConfig holds settings related to logging.
type LoggingConfig struct {
	CompressBackups bool   `mapstructure:"compress_backups"`
	Level           string `mapstructure:"level"`
	LogFilePath     string `mapstructure:"log_file_path"`
	LogToFile       bool   `mapstructure:"log_to_file"`
	MaxAgeDays      int    `mapstructure:"max_age_days"`
	MaxBackups      int    `mapstructure:"max_backups"`
	MaxSizeMB       int    `mapstructure:"max_size_mb"`
}

// LogLevel defines the severity of a log message.
type LogLevel int

// MarketDataConfig holds settings for the Yahoo Finance market data provider.
type MarketDataConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	CacheRetentionDays int    `mapstructure:"cache_retention_days"`
	MaxRetries         int    `mapstructure:"max_retries"`
	RateLimitBurst     int    `mapstructure:"rate_limit_burst"`
	RateLimitPerSec    int    `mapstructure:"rate_limit_per_sec"`
	RequestTimeoutSec  int    `mapstructure:"request_timeout_sec"`
	RetryDelaySec      int    `mapstructure:"retry_delay_sec"`
}

// OHLCVBar represents a single Open, High, Low, Close, Volume data point.
type OHLCVBar struct {
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`
	Timestamp int64   `json:"timestamp"`
	Volume    float64 `json:"volume"`
}

// SchedulerConfig holds settings for the queued-order dispatcher.
type SchedulerConfig struct {
	DispatchIntervalSec int      `mapstructure:"dispatch_interval_sec"`
	Enabled             bool     `mapstructure:"enabled"`
	MarketHolidays      []string `mapstructure:"market_holidays"`
}

// TradingConfig holds the ULT-MA controller parameters. The toggleable
// fields seed the persisted settings row on first run; after that the
// stored settings are authoritative.
type TradingConfig struct {
	AllowExtendedTrend    bool     `mapstructure:"allow_extended_trend"`
	Brokers               []string `mapstructure:"brokers"`
	CandleInterval        string   `mapstructure:"candle_interval"`
	CandleRange           string   `mapstructure:"candle_range"`
	Enabled               bool     `mapstructure:"enabled"`
	LoggingEnabled        bool     `mapstructure:"logging_enabled"`
	LongSymbol            string   `mapstructure:"long_symbol"`
	PriceCheckIntervalSec int      `mapstructure:"price_check_interval_sec"`
	ShortSymbol           string   `mapstructure:"short_symbol"`
	TrailingBuffer        float64  `mapstructure:"trailing_buffer"`
	TrendSafeguardEnabled bool     `mapstructure:"trend_safeguard_enabled"`
}

// WebConfig holds settings for the control server.
type WebConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}
