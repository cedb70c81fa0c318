package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Rotation   RotationConfig   `yaml:"rotation"`
	Tournament TournamentConfig `yaml:"tournament"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// StorageConfig selects the store backing tournaments, groups, participations and users
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
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

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig holds Kafka configuration for level-up events
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	GroupID      string        `yaml:"group_id"`
	Enabled      bool          `yaml:"enabled"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	Concurrency  int           `yaml:"concurrency"`
}

// RotationConfig controls the periodic tournament rotation. LockTTL must be
// shorter than the schedule period and longer than the clock skew between
// instances, since a successful rotation holds the lock until it expires.
type RotationConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Schedule        string        `yaml:"schedule"`
	RotateOnStartup bool          `yaml:"rotate_on_startup"`
	LockKey         string        `yaml:"lock_key"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
}

// TournamentConfig holds the entry rules and group sizing
type TournamentConfig struct {
	GroupCapacity     int   `yaml:"group_capacity"`
	MinEntryLevel     int   `yaml:"min_entry_level"`
	EntryFee          int64 `yaml:"entry_fee"`
	JoinRetryAttempts int   `yaml:"join_retry_attempts"`
	LevelUpCoins      int64 `yaml:"level_up_coins"`
	InitialCoins      int64 `yaml:"initial_coins"`
}

// CacheConfig holds caching configuration for finished leaderboards
type CacheConfig struct {
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl"`
}

// Load reads configuration from a YAML file. Variables from a .env file in
// the working directory are loaded first so the YAML can reference them.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Tournament.GroupCapacity <= 0 {
		return fmt.Errorf("tournament group capacity must be positive, got %d", c.Tournament.GroupCapacity)
	}
	if c.Rotation.LockTTL < 0 {
		return fmt.Errorf("rotation lock ttl must not be negative, got %s", c.Rotation.LockTTL)
	}
	if c.Tournament.EntryFee < 0 {
		return fmt.Errorf("tournament entry fee must not be negative, got %d", c.Tournament.EntryFee)
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

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.Database == "" {
		c.Postgres.Database = "tournaments"
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 50
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 5
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
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

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "tournament-level-ups"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "tournament-score-consumer"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 100
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 1 * time.Second
	}
	if c.Kafka.Concurrency == 0 {
		c.Kafka.Concurrency = 8
	}

	// Rotation defaults: midnight every day
	if c.Rotation.Schedule == "" {
		c.Rotation.Schedule = "0 0 * * *"
	}
	if c.Rotation.LockKey == "" {
		c.Rotation.LockKey = "tournament:rotation:lock"
	}
	if c.Rotation.LockTTL == 0 {
		c.Rotation.LockTTL = 1 * time.Minute
	}

	// Tournament defaults
	if c.Tournament.GroupCapacity == 0 {
		c.Tournament.GroupCapacity = 20
	}
	if c.Tournament.MinEntryLevel == 0 {
		c.Tournament.MinEntryLevel = 20
	}
	if c.Tournament.EntryFee == 0 {
		c.Tournament.EntryFee = 1000
	}
	if c.Tournament.JoinRetryAttempts == 0 {
		c.Tournament.JoinRetryAttempts = 5
	}
	if c.Tournament.LevelUpCoins == 0 {
		c.Tournament.LevelUpCoins = 25
	}
	if c.Tournament.InitialCoins == 0 {
		c.Tournament.InitialCoins = 5000
	}

	if c.Cache.LeaderboardTTL == 0 {
		c.Cache.LeaderboardTTL = 48 * time.Hour
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Rotation.Enabled = true
	cfg.Rotation.RotateOnStartup = true
	return cfg
}
