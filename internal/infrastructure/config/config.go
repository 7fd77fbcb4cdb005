package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents application configuration
type Config struct {
	App     AppConfig     `yaml:"app"`
	Primary PrimaryConfig `yaml:"primary"`
	Legs    []LegConfig   `yaml:"legs"`
	Monitor MonitorConfig `yaml:"monitor"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// AppConfig represents application settings
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

// PrimaryConfig represents market data API connection settings
type PrimaryConfig struct {
	RestURL  string `yaml:"rest_url"`
	WSURL    string `yaml:"ws_url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MarketID string `yaml:"market_id"`
}

// InstrumentConfig represents one side of a leg. A zero ConversionFactor is
// looked up from the API.
type InstrumentConfig struct {
	Symbol           string          `yaml:"symbol"`
	ConversionFactor decimal.Decimal `yaml:"conversion_factor"`
}

// LegConfig represents a buy/sell instrument pairing, e.g. AL30 / AL30D
type LegConfig struct {
	Name string           `yaml:"name"`
	Buy  InstrumentConfig `yaml:"buy"`
	Sell InstrumentConfig `yaml:"sell"`
}

// MonitorConfig represents ratio trade monitor settings
type MonitorConfig struct {
	Interval  time.Duration   `yaml:"interval"`
	MinProfit decimal.Decimal `yaml:"min_profit"`
	TopN      int             `yaml:"top_n"`
	History   int             `yaml:"history"`
}

// RedisConfig represents snapshot publisher settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	Stream   string `yaml:"stream"`
}

// MetricsConfig represents Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns configuration with every optional field filled in
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "ratio-arb",
			Environment: "development",
		},
		Primary: PrimaryConfig{
			RestURL:  "https://api.remarkets.primary.com.ar",
			WSURL:    "wss://api.remarkets.primary.com.ar",
			MarketID: "ROFX",
		},
		Monitor: MonitorConfig{
			Interval:  time.Second,
			MinProfit: decimal.Zero,
			TopN:      10,
			History:   120,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "ratio:",
			Stream: "ratio:stream",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from YAML file with env overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	// Load .env if present
	_ = godotenv.Load()

	// Load from YAML file
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.loadEnvOverrides()

	// Validate
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadEnvOverrides overrides config with environment variables
func (c *Config) loadEnvOverrides() {
	// Primary settings
	if v := os.Getenv("PRIMARY_USER"); v != "" {
		c.Primary.User = v
	}
	if v := os.Getenv("PRIMARY_PASSWORD"); v != "" {
		c.Primary.Password = v
	}
	if v := os.Getenv("PRIMARY_REST_URL"); v != "" {
		c.Primary.RestURL = v
	}
	if v := os.Getenv("PRIMARY_WS_URL"); v != "" {
		c.Primary.WSURL = v
	}

	// App settings
	if v := os.Getenv("APP_ENVIRONMENT"); v != "" {
		c.App.Environment = v
	}

	// Log settings
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	// Redis settings
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	// Monitor settings
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			c.Monitor.Interval = dur
		}
	}
	if v := os.Getenv("MONITOR_MIN_PROFIT"); v != "" {
		if p, err := decimal.NewFromString(v); err == nil {
			c.Monitor.MinProfit = p
		}
	}
	if v := os.Getenv("MONITOR_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Monitor.TopN = n
		}
	}
}

// validate validates configuration
func (c *Config) validate() error {
	if c.Primary.User == "" {
		return fmt.Errorf("primary.user is required")
	}
	if c.Primary.Password == "" {
		return fmt.Errorf("primary.password is required")
	}
	if len(c.Legs) < 2 {
		return fmt.Errorf("at least two legs are required, got %d", len(c.Legs))
	}

	seen := make(map[string]bool, len(c.Legs))
	for i, leg := range c.Legs {
		if leg.Name == "" {
			return fmt.Errorf("legs[%d].name is required", i)
		}
		if seen[leg.Name] {
			return fmt.Errorf("legs[%d]: duplicate name %q", i, leg.Name)
		}
		seen[leg.Name] = true
		if leg.Buy.Symbol == "" || leg.Sell.Symbol == "" {
			return fmt.Errorf("legs[%d] %s: buy and sell symbols are required", i, leg.Name)
		}
		// zero means resolve from instrument details at startup
		if leg.Buy.ConversionFactor.IsNegative() || leg.Sell.ConversionFactor.IsNegative() {
			return fmt.Errorf("legs[%d] %s: conversion factors must not be negative", i, leg.Name)
		}
	}

	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = time.Second // default
	}
	if c.Monitor.TopN < 0 {
		c.Monitor.TopN = 0
	}
	if c.Primary.MarketID == "" {
		c.Primary.MarketID = "ROFX"
	}
	return nil
}
