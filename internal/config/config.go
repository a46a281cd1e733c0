package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// API base URLs
const (
	ProductionBaseURL = "https://www.bscotch.net/api/"
	BetaBaseURL       = "https://beta.bscotch.net/api/"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Poll     PollConfig     `yaml:"poll"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Rumpus   RumpusConfig   `yaml:"rumpus"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Watches  []WatchConfig  `yaml:"watches"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" env:"TRACKER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"REDIS_ADDR"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host" env:"POSTGRES_HOST"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user" env:"POSTGRES_USER"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD"`
	Database        string        `yaml:"database" env:"POSTGRES_DB"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	// RequestTopic carries out-of-schedule poll requests
	RequestTopic string `yaml:"request_topic"`
	// EventTopic receives a summary of every completed poll
	EventTopic    string        `yaml:"event_topic"`
	GroupID       string        `yaml:"group_id"`
	Enabled       bool          `yaml:"enabled" env:"KAFKA_ENABLED"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// PollConfig holds poll worker configuration
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	Enabled  bool          `yaml:"enabled"`
	// RestoreOnStart reloads rankings from the latest snapshots at startup
	RestoreOnStart bool `yaml:"restore_on_start"`
}

// RankingConfig holds ranking query configuration
type RankingConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// BroadcastTop is how many entries are pushed to websocket subscribers
	BroadcastTop int `yaml:"broadcast_top"`
}

// RumpusConfig holds API client configuration
type RumpusConfig struct {
	BaseURL       string        `yaml:"base_url" env:"RUMPUS_BASE_URL"`
	Beta          bool          `yaml:"beta" env:"RUMPUS_BETA"`
	DelegationKey string        `yaml:"delegation_key" env:"RUMPUS_DELEGATION_KEY"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
}

// URL returns the configured base URL, or the production or beta default
func (c *RumpusConfig) URL() string {
	switch {
	case c.BaseURL != "":
		return c.BaseURL
	case c.Beta:
		return BetaBaseURL
	default:
		return ProductionBaseURL
	}
}

// MetricsConfig holds prometheus configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WatchConfig defines a search that is polled and ranked
type WatchConfig struct {
	Name   string            `yaml:"name"`
	Kind   string            `yaml:"kind"`
	RankBy string            `yaml:"rank_by"`
	Params map[string]string `yaml:"params"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	// Apply defaults
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv() error {
	for _, section := range []any{&c.Server, &c.Redis, &c.Postgres, &c.Kafka, &c.Rumpus} {
		if err := env.Parse(section); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

// Validate checks settings that have no sensible default
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Watches))
	for i, w := range c.Watches {
		if w.Name == "" {
			return fmt.Errorf("watch %d: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("watch %q: duplicate name", w.Name)
		}
		seen[w.Name] = true
		if w.Kind != "players" && w.Kind != "levels" {
			return fmt.Errorf("watch %q: kind must be players or levels, got %q", w.Name, w.Kind)
		}
		if w.RankBy == "" {
			return fmt.Errorf("watch %q: rank_by is required", w.Name)
		}
	}
	if c.Ranking.DefaultLimit > c.Ranking.MaxLimit {
		return fmt.Errorf("ranking: default_limit %d exceeds max_limit %d", c.Ranking.DefaultLimit, c.Ranking.MaxLimit)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 20
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 10
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 1
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.RequestTopic == "" {
		c.Kafka.RequestTopic = "rumpus-poll-requests"
	}
	if c.Kafka.EventTopic == "" {
		c.Kafka.EventTopic = "rumpus-polls"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "rumpus-tracker"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 20
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 1 * time.Second
	}
	if c.Kafka.RetryAttempts == 0 {
		c.Kafka.RetryAttempts = 3
	}
	if c.Kafka.RetryDelay == 0 {
		c.Kafka.RetryDelay = 1 * time.Second
	}

	// Poll defaults
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 10 * time.Minute
	}

	// Ranking defaults
	if c.Ranking.DefaultLimit == 0 {
		c.Ranking.DefaultLimit = 10
	}
	if c.Ranking.MaxLimit == 0 {
		c.Ranking.MaxLimit = 100
	}
	if c.Ranking.BroadcastTop == 0 {
		c.Ranking.BroadcastTop = 10
	}

	// Rumpus defaults
	if c.Rumpus.Timeout == 0 {
		c.Rumpus.Timeout = 15 * time.Second
	}
	if c.Rumpus.UserAgent == "" {
		c.Rumpus.UserAgent = "rumpus-tracker"
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Poll.Enabled = true
	cfg.Metrics.Enabled = true
	return cfg
}
