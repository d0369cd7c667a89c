package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LogConfig holds logger options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // rotated JSON log file (optional)
	Environment string `mapstructure:"environment"`
}

// Config holds all configuration for the commodity API.
type Config struct {
	ServerHost string `mapstructure:"server_host"`
	ServerPort int    `mapstructure:"server_port"`
	AppEnv     string `mapstructure:"app_env"`

	// Upstreams (base URLs are configurable for testing)
	TradingViewBaseURL string `mapstructure:"tradingview_base_url"`
	TradingViewSymbol  string `mapstructure:"tradingview_symbol"`
	BybitBaseURL       string `mapstructure:"bybit_base_url"`
	BybitSymbol        string `mapstructure:"bybit_symbol"`
	BybitCategory      string `mapstructure:"bybit_category"`

	// Cache windows and outbound pacing
	ULSDCacheExpiry   time.Duration `mapstructure:"ulsd_cache_expiry"`
	GoldCacheExpiry   time.Duration `mapstructure:"gold_cache_expiry"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	UpstreamRateLimit float64       `mapstructure:"upstream_rate_limit"`

	HistorySQLitePath string   `mapstructure:"history_sqlite_path"`
	CORSAllowOrigins  []string `mapstructure:"cors_allow_origins"`

	Log LogConfig `mapstructure:"log"`
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Recognised environment variables (all optional):
//   - SERVER_HOST, SERVER_PORT, APP_ENV
//   - TRADINGVIEW_BASE_URL, TRADINGVIEW_SYMBOL
//   - BYBIT_BASE_URL, BYBIT_SYMBOL, BYBIT_CATEGORY
//   - ULSD_CACHE_EXPIRY, GOLD_CACHE_EXPIRY, FETCH_TIMEOUT (Go durations, e.g. "60m")
//   - UPSTREAM_RATE_LIMIT (requests per second per upstream, 0 disables)
//   - LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT_FILE
//   - HISTORY_SQLITE_PATH (empty disables the snapshot history)
//   - CORS_ALLOW_ORIGINS (comma separated)
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8000)
	v.SetDefault("app_env", "development")
	v.SetDefault("tradingview_base_url", "https://tradingview.com")
	v.SetDefault("tradingview_symbol", "NYMEX-ATY1!")
	v.SetDefault("bybit_base_url", "https://api.bybit.com")
	v.SetDefault("bybit_symbol", "XAUTUSDT")
	v.SetDefault("bybit_category", "linear")
	v.SetDefault("ulsd_cache_expiry", 60*time.Minute)
	v.SetDefault("gold_cache_expiry", 60*time.Minute)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("upstream_rate_limit", 1.0)
	v.SetDefault("history_sqlite_path", "")
	v.SetDefault("cors_allow_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.commodityapi")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	envKeys := map[string]string{
		"server_host":          "SERVER_HOST",
		"server_port":          "SERVER_PORT",
		"app_env":              "APP_ENV",
		"tradingview_base_url": "TRADINGVIEW_BASE_URL",
		"tradingview_symbol":   "TRADINGVIEW_SYMBOL",
		"bybit_base_url":       "BYBIT_BASE_URL",
		"bybit_symbol":         "BYBIT_SYMBOL",
		"bybit_category":       "BYBIT_CATEGORY",
		"ulsd_cache_expiry":    "ULSD_CACHE_EXPIRY",
		"gold_cache_expiry":    "GOLD_CACHE_EXPIRY",
		"fetch_timeout":        "FETCH_TIMEOUT",
		"upstream_rate_limit":  "UPSTREAM_RATE_LIMIT",
		"history_sqlite_path":  "HISTORY_SQLITE_PATH",
		"cors_allow_origins":   "CORS_ALLOW_ORIGINS",
		"log.level":            "LOG_LEVEL",
		"log.format":           "LOG_FORMAT",
		"log.output_file":      "LOG_OUTPUT_FILE",
	}
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.CORSAllowOrigins = splitOrigins(config.CORSAllowOrigins)
	config.Log.Environment = config.AppEnv

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every invalid setting in a single error.
func (c *Config) Validate() error {
	var invalid []string
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		invalid = append(invalid, "SERVER_PORT")
	}
	if c.TradingViewBaseURL == "" {
		invalid = append(invalid, "TRADINGVIEW_BASE_URL")
	}
	if c.TradingViewSymbol == "" {
		invalid = append(invalid, "TRADINGVIEW_SYMBOL")
	}
	if c.BybitBaseURL == "" {
		invalid = append(invalid, "BYBIT_BASE_URL")
	}
	if c.BybitSymbol == "" {
		invalid = append(invalid, "BYBIT_SYMBOL")
	}
	if c.ULSDCacheExpiry <= 0 {
		invalid = append(invalid, "ULSD_CACHE_EXPIRY")
	}
	if c.GoldCacheExpiry <= 0 {
		invalid = append(invalid, "GOLD_CACHE_EXPIRY")
	}
	if c.FetchTimeout <= 0 {
		invalid = append(invalid, "FETCH_TIMEOUT")
	}
	if c.UpstreamRateLimit < 0 {
		invalid = append(invalid, "UPSTREAM_RATE_LIMIT")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
