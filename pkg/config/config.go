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

// Institution is one monitored ticker from the static list.
type Institution struct {
	Symbol    string `yaml:"symbol" validate:"required"`
	Name      string `yaml:"name" validate:"required"`
	AssetType string `yaml:"asset_type" default:"Equity" validate:"oneof=Index ETF MutualFund Portfolio Equity PrivateCompany FixedIncome Holder"`
}

type Config struct {
	Environment string `yaml:"environment" validate:"required"`

	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`

	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Metrics struct {
		Path string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	// Schedule, when set, turns the process into a daemon that reruns the
	// batch on the given cron expression and keeps the HTTP API up between
	// runs. Empty means a one-shot batch.
	Schedule string `yaml:"schedule"`

	StreetAccount struct {
		BaseURL  string        `yaml:"base_url" validate:"required,url"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		Timeout  time.Duration `yaml:"timeout" default:"30s"`

		LookbackDays  int  `yaml:"lookback_days" default:"30" validate:"gt=0"`
		PageLimit     int  `yaml:"page_limit" default:"100" validate:"gt=0,lte=100"`
		IsPrimaryOnly bool `yaml:"is_primary_only"`

		// Request-side filter vocabularies. Empty slices are omitted from
		// outgoing requests entirely (the vendor rejects empty arrays).
		Categories []string `yaml:"categories"`
		Topics     []string `yaml:"topics"`
		Regions    []string `yaml:"regions"`
		Sectors    []string `yaml:"sectors"`

		RequestDelay    time.Duration `yaml:"request_delay" default:"2s"`
		LongPauseEvery  int           `yaml:"long_pause_every"` // 0 disables the checkpoint pause
		LongPause       time.Duration `yaml:"long_pause" default:"10s"`
		MaxRetries      int           `yaml:"max_retries" default:"5" validate:"gt=0"`
		RetryBackoff    time.Duration `yaml:"retry_backoff" default:"2s"`
		MaxRetryBackoff time.Duration `yaml:"max_retry_backoff" default:"60s"`
	} `yaml:"street_account"`

	Institutions []Institution `yaml:"monitored_institutions" validate:"required,min=1,dive"`

	Output struct {
		Dir    string `yaml:"dir" default:"output"`
		Format string `yaml:"format" default:"both" validate:"oneof=json excel both"`
	} `yaml:"output"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"street-account-news"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"streetpull"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		SeenTTL  time.Duration `yaml:"seen_ttl" default:"2160h"` // 90 days
	} `yaml:"redis"`

	RunLog struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Dir     string `yaml:"dir" default:"output/logs"`
	} `yaml:"run_log"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse parses configuration bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("API_USERNAME"); v != "" {
		c.StreetAccount.Username = v
	}
	if v := os.Getenv("API_PASSWORD"); v != "" {
		c.StreetAccount.Password = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.StreetAccount.BaseURL = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	seen := make(map[string]struct{}, len(c.Institutions))
	for _, inst := range c.Institutions {
		if _, dup := seen[inst.Symbol]; dup {
			return fmt.Errorf("monitored_institutions: duplicate symbol %q", inst.Symbol)
		}
		seen[inst.Symbol] = struct{}{}
	}
	return nil
}

// Localize strips remote infrastructure for a fully local run: file sinks
// only, in-memory seen store, no server.
func (c *Config) Localize() {
	c.Kafka.Enabled = false
	c.ClickHouse.Enabled = false
	c.Redis.Enabled = false
	c.Server.Enabled = false
	c.Schedule = ""
}
