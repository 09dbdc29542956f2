// Package config loads process configuration from defaults, an optional YAML
// file and RATES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, so artifacts.dir is
// read from RATES_ARTIFACTS_DIR.
const EnvPrefix = "RATES"

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Training  TrainingConfig  `mapstructure:"training"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

type ArtifactsConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	DB     int    `mapstructure:"db"`
	Prefix string `mapstructure:"prefix"`
}

// DatabaseConfig points at the database holding reference locations. An
// empty URL keeps them in the artifact store instead.
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type GeocoderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Delay   time.Duration `mapstructure:"delay"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TrainingConfig struct {
	Workers        int     `mapstructure:"workers"`
	Queue          int     `mapstructure:"queue"`
	Retain         int     `mapstructure:"retain"`
	ChunkSize      int     `mapstructure:"chunk_size"`
	ParallelChunks int     `mapstructure:"parallel_chunks"`
	VocabCap       int     `mapstructure:"vocab_cap"`
	Trees          int     `mapstructure:"trees"`
	MaxDepth       int     `mapstructure:"max_depth"`
	MinLeaf        int     `mapstructure:"min_leaf"`
	TestSplit      float64 `mapstructure:"test_split"`
	Ridge          float64 `mapstructure:"ridge"`
	Seed           uint64  `mapstructure:"seed"`
}

type MatcherConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

type PricingConfig struct {
	Currency             string  `mapstructure:"currency"`
	LargeContainerVolume float64 `mapstructure:"large_container_volume"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)

	v.SetDefault("artifacts.backend", BackendFile)
	v.SetDefault("artifacts.dir", "data")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "rates:")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("geocoder.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.delay", 300*time.Millisecond)
	v.SetDefault("geocoder.timeout", 10*time.Second)

	v.SetDefault("training.workers", 1)
	v.SetDefault("training.queue", 16)
	v.SetDefault("training.retain", 100)
	v.SetDefault("training.chunk_size", 8000)
	v.SetDefault("training.parallel_chunks", 2)
	v.SetDefault("training.vocab_cap", 200)
	v.SetDefault("training.trees", 20)
	v.SetDefault("training.max_depth", 10)
	v.SetDefault("training.min_leaf", 5)
	v.SetDefault("training.test_split", 0.2)
	v.SetDefault("training.ridge", 0)
	v.SetDefault("training.seed", 42)

	v.SetDefault("matcher.threshold", 0.35)

	v.SetDefault("pricing.currency", "EUR")
	v.SetDefault("pricing.large_container_volume", 33)
}

// Load reads configuration into v and decodes it. file may be empty, in
// which case ./config.yaml is used when present.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	switch c.Artifacts.Backend {
	case BackendFile:
		if c.Artifacts.Dir == "" {
			return errors.New("config: artifacts.dir is required for the file backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown artifacts.backend %q", c.Artifacts.Backend)
	}

	if c.Database.URL != "" && c.Database.Driver != "postgres" && c.Database.Driver != "sqlite3" {
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Matcher.Threshold <= 0 || c.Matcher.Threshold > 1 {
		return fmt.Errorf("config: matcher.threshold must be in (0, 1], got %v", c.Matcher.Threshold)
	}
	if c.Training.TestSplit <= 0 || c.Training.TestSplit >= 1 {
		return fmt.Errorf("config: training.test_split must be in (0, 1), got %v", c.Training.TestSplit)
	}
	if c.Training.Workers < 1 {
		return fmt.Errorf("config: training.workers must be at least 1, got %d", c.Training.Workers)
	}
	if c.Pricing.LargeContainerVolume <= 0 {
		return fmt.Errorf("config: pricing.large_container_volume must be positive, got %v", c.Pricing.LargeContainerVolume)
	}
	return nil
}
