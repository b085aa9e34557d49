package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"ChartMarks/pkg/util"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	// InstanceID tags events this process publishes; empty means a random id.
	InstanceID string `yaml:"instance_id"`

	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		DisableCORS     bool          `yaml:"disable_cors"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Cache struct {
		LevelsMaxAge   time.Duration `yaml:"levels_max_age"`
		OverlaysMaxAge time.Duration `yaml:"overlays_max_age"`
		WaitTimeout    time.Duration `yaml:"wait_timeout"`
		PollInterval   time.Duration `yaml:"poll_interval"`
		StreamBuffer   int           `yaml:"stream_buffer"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchSize    int           `yaml:"batch_size"`
			Linger       time.Duration `yaml:"linger"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id"`
			StartLatest bool          `yaml:"start_latest"`
			Workers     int           `yaml:"workers"`
			BufferSize  int           `yaml:"buffer_size"`
			RetryMax    int           `yaml:"retry_max"`
			BackoffMin  time.Duration `yaml:"backoff_min"`
			BackoffMax  time.Duration `yaml:"backoff_max"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes"`
			MaxBytes    int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Addr       string        `yaml:"addr"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		KeyPrefix  string        `yaml:"key_prefix"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	OpenAI struct {
		APIKey    string        `yaml:"api_key"`
		BaseURL   string        `yaml:"base_url"`
		Model     string        `yaml:"model"`
		MaxTokens int           `yaml:"max_tokens"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"openai"`
	Analysis struct {
		MinInterval time.Duration `yaml:"min_interval"`
		DefaultBars int           `yaml:"default_bars"`
	} `yaml:"analysis"`
}

// Load reads and parses a YAML configuration file, fills defaults and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML and fills defaults without validating.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

// LoadWithEnv loads a .env file next to the process when present, then the
// YAML file, then applies environment overrides and validates again.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("CHARTMARKS_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("INSTANCE_ID"); v != "" {
		c.InstanceID = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Queue.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Queue.Password = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}

	for name, dst := range map[string]*time.Duration{
		"LEVELS_MAX_AGE":   &c.Cache.LevelsMaxAge,
		"OVERLAYS_MAX_AGE": &c.Cache.OverlaysMaxAge,
	} {
		if v := getenv(name); v != "" {
			d, err := util.ParseSeconds(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// must exceed the longest wait a client may request
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Cache.LevelsMaxAge == 0 {
		c.Cache.LevelsMaxAge = 6 * time.Hour
	}
	if c.Cache.OverlaysMaxAge == 0 {
		c.Cache.OverlaysMaxAge = 15 * time.Minute
	}
	if c.Cache.WaitTimeout == 0 {
		c.Cache.WaitTimeout = 5 * time.Second
	}
	if c.Cache.PollInterval == 0 {
		c.Cache.PollInterval = 250 * time.Millisecond
	}
	if c.Cache.StreamBuffer == 0 {
		c.Cache.StreamBuffer = 64
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "chartmarks.annotations"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "chartmarks"
	}
	if c.Queue.KeyPrefix == "" {
		c.Queue.KeyPrefix = "chartmarks:queue"
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4"
	}
	if c.OpenAI.MaxTokens == 0 {
		c.OpenAI.MaxTokens = 1024
	}
	if c.OpenAI.Timeout == 0 {
		c.OpenAI.Timeout = 60 * time.Second
	}
	if c.Analysis.MinInterval == 0 {
		c.Analysis.MinInterval = time.Minute
	}
	if c.Analysis.DefaultBars == 0 {
		c.Analysis.DefaultBars = 240
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Cache.LevelsMaxAge < 0 || c.Cache.OverlaysMaxAge < 0 {
		return fmt.Errorf("cache max ages must not be negative")
	}
	if c.Cache.OverlaysMaxAge > c.Cache.LevelsMaxAge {
		return fmt.Errorf("cache.overlays_max_age (%s) must not exceed cache.levels_max_age (%s)",
			c.Cache.OverlaysMaxAge, c.Cache.LevelsMaxAge)
	}
	if c.Cache.PollInterval < 0 || c.Cache.WaitTimeout < 0 {
		return fmt.Errorf("cache wait settings must not be negative")
	}
	if c.Server.WriteTimeout <= c.Cache.WaitTimeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed cache.wait_timeout (%s)",
			c.Server.WriteTimeout, c.Cache.WaitTimeout)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Queue.Enabled {
		if c.Queue.Addr == "" {
			return fmt.Errorf("queue.addr is required when the queue is enabled")
		}
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when the queue is enabled")
		}
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required when the queue is enabled")
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
