// Package common provides shared utilities for StockReplay
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for StockReplay
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Dataset     DatasetConfig  `toml:"dataset"`
	CORS        CORSConfig     `toml:"cors"`
	Snapshot    SnapshotConfig `toml:"snapshot"`
	Clients     ClientsConfig  `toml:"clients"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatasetConfig points at the stock reference dataset.
// An empty path selects the dataset compiled into the binary.
type DatasetConfig struct {
	Path string `toml:"path"`
}

// CORSConfig lists the browser origins allowed to call the API.
// Entries may contain shell-style wildcards ("https://stock-replay-*.vercel.app").
type CORSConfig struct {
	Origins []string `toml:"origins"`
}

// SnapshotConfig tunes the market snapshot aggregator.
type SnapshotConfig struct {
	// Grace is added on top of the summed source timeouts to form the request deadline.
	Grace string `toml:"grace"`
	// ETFConcurrency bounds in-flight ETF history requests.
	ETFConcurrency int `toml:"etf_concurrency"`
}

// GetGrace parses and returns the deadline grace period
func (c *SnapshotConfig) GetGrace() time.Duration {
	d, err := time.ParseDuration(c.Grace)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	HiStock     SourceConfig `toml:"histock"`
	YahooTW     SourceConfig `toml:"yahoo_tw"`
	Yahoo       SourceConfig `toml:"yahoo"`
	MorningStar SourceConfig `toml:"morningstar"`
	Tavily      SourceConfig `toml:"tavily"`
	Gemini      GeminiConfig `toml:"gemini"`
}

// SourceConfig holds the settings shared by every external data source
type SourceConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *SourceConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8888,
		},
		CORS: CORSConfig{
			Origins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://localhost:2330",
				"https://stock-replay.vercel.app",
				"https://stock-replay-*.vercel.app",
			},
		},
		Snapshot: SnapshotConfig{
			Grace:          "500ms",
			ETFConcurrency: 10,
		},
		Clients: ClientsConfig{
			HiStock: SourceConfig{
				BaseURL:   "https://histock.tw",
				RateLimit: 2,
				Timeout:   "10s",
			},
			YahooTW: SourceConfig{
				BaseURL:   "https://tw.stock.yahoo.com",
				RateLimit: 5,
				Timeout:   "3s",
			},
			Yahoo: SourceConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 10,
				Timeout:   "10s",
			},
			MorningStar: SourceConfig{
				BaseURL:   "https://morning-star.p.rapidapi.com",
				RateLimit: 2,
				Timeout:   "10s",
			},
			Tavily: SourceConfig{
				BaseURL:   "https://api.tavily.com",
				RateLimit: 2,
				Timeout:   "10s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Outputs:    []string{"console"},
			FilePath:   "./logs/stockreplay.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is read first so that its values
// take part in the environment overrides; variables already set win.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKREPLAY_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKREPLAY_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STOCKREPLAY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKREPLAY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("STOCKREPLAY_DATASET"); path != "" {
		config.Dataset.Path = path
	}

	if origins := os.Getenv("STOCKREPLAY_CORS_ORIGINS"); origins != "" {
		var list []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				list = append(list, o)
			}
		}
		config.CORS.Origins = list
	}

	if v := os.Getenv("STOCKREPLAY_GEMINI_MODEL"); v != "" {
		config.Clients.Gemini.Model = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// keyToEnvMapping lists the environment variables consulted for each API key, in priority order.
var keyToEnvMapping = map[string][]string{
	"rapidapi_api_key": {"RAPIDAPI_KEY", "STOCKREPLAY_RAPIDAPI_KEY"},
	"tavily_api_key":   {"TAVILY_API_KEY", "STOCKREPLAY_TAVILY_API_KEY"},
	"gemini_api_key":   {"GEMINI_API_KEY", "STOCKREPLAY_GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// ResolveAPIKey resolves an API key from environment or the configured fallback.
// A missing key is reported as a ConfigError so callers can tell it apart from outages.
func ResolveAPIKey(name string, fallback string) (string, error) {
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := strings.TrimSpace(os.Getenv(envVarName)); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback, nil
	}

	return "", &ConfigError{Setting: name}
}
