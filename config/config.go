package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bookflow BookflowConfig `yaml:"bookflow"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Reader   ReaderConfig   `yaml:"reader"`
	Source   SourceConfig   `yaml:"source"`
}

type BookflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch     bool          `yaml:"cloudwatch"`
	Region         string        `yaml:"region"`
	Namespace      string        `yaml:"namespace"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type SourceConfig struct {
	Binance BinanceSourceConfig `yaml:"binance"`
}

type BinanceSourceConfig struct {
	REST BinanceRESTConfig `yaml:"rest"`
	WS   BinanceWSConfig   `yaml:"ws"`
}

type BinanceRESTConfig struct {
	URL   string `yaml:"url"`
	Limit int    `yaml:"limit"`
}

type BinanceWSConfig struct {
	URL          string `yaml:"url"`
	Workers      int    `yaml:"workers"`
	DepthChannel string `yaml:"depth_channel"`
	PriceChannel string `yaml:"price_channel"`
}

// Default returns the built-in configuration used when no file overrides a
// setting.
func Default() *Config {
	return &Config{
		Bookflow: BookflowConfig{
			Name:    "bookflow",
			Version: "dev",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Namespace:      "Bookflow",
			ReportInterval: 30 * time.Second,
		},
		Reader: ReaderConfig{
			Timeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 5,
				BurstSize:         5,
			},
		},
		Source: SourceConfig{
			Binance: BinanceSourceConfig{
				REST: BinanceRESTConfig{
					URL:   "https://api.binance.com",
					Limit: 100,
				},
				WS: BinanceWSConfig{
					URL:          "wss://stream.binance.com:9443",
					Workers:      3,
					DepthChannel: "depth",
					PriceChannel: "bookTicker",
				},
			},
		},
	}
}

// LoadConfig reads a yaml configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Region can always be supplied through the environment
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Metrics.Region = strings.TrimSpace(v)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Bookflow.Name == "" {
		return fmt.Errorf("bookflow.name is required")
	}

	if cfg.Bookflow.Version == "" {
		return fmt.Errorf("bookflow.version is required")
	}

	if cfg.Source.Binance.REST.URL == "" {
		return fmt.Errorf("source.binance.rest.url is required")
	}

	if cfg.Source.Binance.WS.URL == "" {
		return fmt.Errorf("source.binance.ws.url is required")
	}

	if cfg.Source.Binance.WS.Workers <= 0 {
		return fmt.Errorf("source.binance.ws.workers must be greater than 0")
	}

	if cfg.Source.Binance.WS.DepthChannel == "" {
		return fmt.Errorf("source.binance.ws.depth_channel is required")
	}

	if cfg.Source.Binance.WS.PriceChannel == "" {
		return fmt.Errorf("source.binance.ws.price_channel is required")
	}

	if cfg.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be greater than 0")
	}

	if cfg.Reader.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("reader.rate_limit.requests_per_second must be greater than 0")
	}

	return nil
}
