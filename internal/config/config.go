// Package config loads and validates YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the full application configuration.
type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required"`

	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"1s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		Buffer         int           `yaml:"buffer" default:"10000" validate:"gt=0"`
	} `yaml:"feed"`

	Engine struct {
		LargeTradePercentile  float64 `yaml:"large_trade_percentile" default:"0.75" validate:"gte=0,lte=1"`
		LargeTradeWarmupTicks int     `yaml:"large_trade_warmup_ticks" default:"256" validate:"gt=0"`
	} `yaml:"engine"`

	Pipeline struct {
		QueueCapacity int `yaml:"queue_capacity" default:"1024" validate:"gt=0"`
	} `yaml:"pipeline"`

	Writer struct {
		BatchSize      int           `yaml:"batch_size" default:"500" validate:"gt=0"`
		MaxRetries     int           `yaml:"max_retries" default:"5" validate:"gte=0"`
		RetryBaseDelay time.Duration `yaml:"retry_base_delay" default:"100ms"`
		RetryMaxDelay  time.Duration `yaml:"retry_max_delay" default:"5s"`
	} `yaml:"writer"`

	Storage struct {
		Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory clickhouse postgres"`
		ClickHouseDSN string `yaml:"clickhouse_dsn"`
		PostgresDSN   string `yaml:"postgres_dsn"`
	} `yaml:"storage"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Addr    string `yaml:"addr" default:":9100"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// Default returns a configuration with all defaults applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file, applying defaults
// for absent fields.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_WS_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	switch c.Storage.Backend {
	case "clickhouse":
		if c.Storage.ClickHouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for the clickhouse backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	}
	return nil
}
