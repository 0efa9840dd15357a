package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15s" or "4h" parse.
// Bare integers are accepted as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Provider    ProviderConfig `yaml:"provider"`
	Cache       CacheConfig    `yaml:"cache"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
	Environment string         `yaml:"environment"`
}

type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout Duration      `yaml:"timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Database       string `yaml:"database"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"ssl_mode"`
	MaxConnections int    `yaml:"max_connections"`
}

type RedisConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	MaxConnections int    `yaml:"max_connections"`
}

// ProviderConfig holds settings for the financial statement provider.
type ProviderConfig struct {
	AlphaVantage AlphaVantageConfig `yaml:"alpha_vantage"`
}

type AlphaVantageConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout Duration      `yaml:"timeout"`
}

// CacheConfig controls Redis TTLs for histories and suggestions.
type CacheConfig struct {
	HistoryTTL    Duration `yaml:"history_ttl"`
	SuggestionTTL Duration `yaml:"suggestion_ttl"`
}

// PipelineConfig controls the background refresh pipeline.
type PipelineConfig struct {
	RefreshInterval Duration `yaml:"refresh_interval"`
	Tickers         []string `yaml:"tickers"`
	DefaultSector   string   `yaml:"default_sector"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in secret-bearing fields
	expandEnvVars(config)

	applyDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func expandEnvVars(config *Config) {
	config.Provider.AlphaVantage.APIKey = os.ExpandEnv(config.Provider.AlphaVantage.APIKey)
	config.Database.Postgres.Password = os.ExpandEnv(config.Database.Postgres.Password)
	config.Database.Redis.Password = os.ExpandEnv(config.Database.Redis.Password)
}

// applyDefaults fills in values a minimal config file may omit
func applyDefaults(config *Config) {
	if config.Provider.AlphaVantage.BaseURL == "" {
		config.Provider.AlphaVantage.BaseURL = "https://www.alphavantage.co/query"
	}
	if config.Provider.AlphaVantage.Timeout == 0 {
		config.Provider.AlphaVantage.Timeout = Duration(30 * time.Second)
	}
	if config.Cache.HistoryTTL == 0 {
		config.Cache.HistoryTTL = Duration(24 * time.Hour)
	}
	if config.Cache.SuggestionTTL == 0 {
		config.Cache.SuggestionTTL = Duration(6 * time.Hour)
	}
	if config.Pipeline.RefreshInterval == 0 {
		config.Pipeline.RefreshInterval = Duration(12 * time.Hour)
	}
	if config.Pipeline.DefaultSector == "" {
		config.Pipeline.DefaultSector = "DEFAULT"
	}
	if config.Server.Timeout == 0 {
		config.Server.Timeout = Duration(30 * time.Second)
	}
}

// validate ensures the configuration is valid
func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Postgres.Host == "" {
		return fmt.Errorf("postgres host is required")
	}

	if config.Database.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	return nil
}
