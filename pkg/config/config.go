package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// ModelConfig describes where one trained model comes from.
type ModelConfig struct {
	Kind           string        `yaml:"kind" default:"lstm"` // lstm | remote
	Name           string        `yaml:"name"`
	Path           string        `yaml:"path"`
	URL            string        `yaml:"url"`
	Timeout        time.Duration `yaml:"timeout" default:"3s"`
	ConcurrentSafe bool          `yaml:"concurrent_safe"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string        `yaml:"level" default:"info"`
		Format    string        `yaml:"format" default:"json"` // json | console
		Output    string        `yaml:"output" default:"stdout"`
		Collect   bool          `yaml:"collect"`
		LogsTopic string        `yaml:"logs_topic" default:"fincast.logs"`
		Throttle  time.Duration `yaml:"throttle" default:"1m"`
	} `yaml:"logging"`
	Forecast struct {
		WindowSize int           `yaml:"window_size" default:"12"`
		Steps      int           `yaml:"steps" default:"12"`
		Budget     time.Duration `yaml:"budget" default:"5s"`
		Scaling    struct {
			Mode     string `yaml:"mode" default:"refit"` // refit | fixed
			Artifact string `yaml:"artifact"`
		} `yaml:"scaling"`
		Models struct {
			Income   ModelConfig `yaml:"income"`
			Expenses ModelConfig `yaml:"expenses"`
		} `yaml:"models"`
	} `yaml:"forecast"`
	Ledger struct {
		Enabled  bool          `yaml:"enabled"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
	} `yaml:"ledger"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		LedgerTopic  string   `yaml:"ledger_topic" default:"fincast.ledger"`
		EventsTopic  string   `yaml:"events_topic" default:"fincast.forecasts"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"fincast-ledger"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"fincast.ledger.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fincast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"fincast"`
	} `yaml:"redis"`
	Cache struct {
		MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
		L1TTL         time.Duration `yaml:"l1_ttl" default:"30s"`
	} `yaml:"cache"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		RPS     float64 `yaml:"rps" default:"5"`
		Burst   int     `yaml:"burst" default:"10"`
	} `yaml:"ratelimit"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables before validating.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("FINCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("SCALING_MODE"); v != "" {
		c.Forecast.Scaling.Mode = v
	}
	if v := getenv("SCALING_ARTIFACT"); v != "" {
		c.Forecast.Scaling.Artifact = v
	}
	if v := getenv("INCOME_MODEL_PATH"); v != "" {
		c.Forecast.Models.Income.Path = v
	}
	if v := getenv("EXPENSES_MODEL_PATH"); v != "" {
		c.Forecast.Models.Expenses.Path = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	f := c.Forecast
	if f.WindowSize <= 0 || f.Steps <= 0 {
		return fmt.Errorf("forecast.window_size and forecast.steps must be positive")
	}
	if f.Budget < 0 {
		return fmt.Errorf("forecast.budget cannot be negative")
	}
	switch f.Scaling.Mode {
	case "refit":
	case "fixed":
		if f.Scaling.Artifact == "" {
			return fmt.Errorf("forecast.scaling.artifact is required in fixed mode")
		}
	default:
		return fmt.Errorf("forecast.scaling.mode must be 'refit' or 'fixed', got '%s'", f.Scaling.Mode)
	}
	if err := f.Models.Income.validate("income"); err != nil {
		return err
	}
	if err := f.Models.Expenses.validate("expenses"); err != nil {
		return err
	}
	if c.Ledger.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when ledger is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}

func (m ModelConfig) validate(signal string) error {
	switch m.Kind {
	case "lstm":
		if m.Path == "" {
			return fmt.Errorf("forecast.models.%s.path is required", signal)
		}
	case "remote":
		if m.URL == "" {
			return fmt.Errorf("forecast.models.%s.url is required", signal)
		}
		if m.Name == "" {
			return fmt.Errorf("forecast.models.%s.name is required", signal)
		}
	default:
		return fmt.Errorf("forecast.models.%s.kind must be 'lstm' or 'remote', got '%s'", signal, m.Kind)
	}
	return nil
}
