package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       LogConfig         `mapstructure:"log"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Datasets  map[string]string `mapstructure:"datasets"` // name -> sqlite path
	Cache     CacheConfig       `mapstructure:"cache"`
	RateLimit RateLimitConfig   `mapstructure:"ratelimit"`
	Auth      AuthConfig        `mapstructure:"auth"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"` // debug, release, test
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

type DatabaseConfig struct {
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
}

// CacheConfig configures the response cache. An empty Addr selects the
// in-process cache; Enabled=false turns caching off.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"` // bounds the in-process cache
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"` // per window per client IP, 0 disables
	Window   time.Duration `mapstructure:"window"`
}

// AuthConfig enables bearer-token checks when JWTSecret is set
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

var reservedPaths = map[string]bool{"health": true, "metrics": true, "datasets": true}

// DefaultDatasets are the observation stores served out of the box
var DefaultDatasets = map[string]string{
	"birdcollision": "data/birdcollision.db",
	"caterpillar":   "data/caterpillar.db",
	"spider":        "data/spider.db",
}

// Load reads configuration from .env, an optional config.yaml and GLOBE_* env vars
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "component", "config", "error", err)
	}

	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// GLOBE_SERVER_PORT -> server.port
	v.SetEnvPrefix("GLOBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GLOBE_DATASETS_SPIDER=/srv/spider.db
	for name := range DefaultDatasets {
		if err := v.BindEnv("datasets." + name); err != nil {
			return nil, fmt.Errorf("failed to bind env for dataset %s: %w", name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return Decode(v)
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.query_timeout", "10s")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("ratelimit.requests", 120)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("auth.jwt_secret", "")
}

// Decode unmarshals and validates v
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Datasets = resolveDatasets(cfg.Datasets)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveDatasets applies DefaultDatasets to the configured map. A map that
// names at least one store replaces the defaults; otherwise it is laid over
// them. Entries with an empty path disable that dataset.
func resolveDatasets(configured map[string]string) map[string]string {
	replace := false
	for _, path := range configured {
		if path != "" {
			replace = true
			break
		}
	}

	out := make(map[string]string, len(DefaultDatasets))
	if !replace {
		for name, path := range DefaultDatasets {
			out[name] = path
		}
	}
	for name, path := range configured {
		out[name] = path
	}
	for name, path := range out {
		if path == "" {
			slog.Info("dataset disabled", "component", "config", "dataset", name)
			delete(out, name)
		}
	}
	return out
}

// Validate checks that required configuration fields are present and sane
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if len(c.Datasets) == 0 {
		errs = append(errs, "at least one dataset is required")
	}
	for _, name := range c.DatasetNames() {
		if c.Datasets[name] == "" {
			errs = append(errs, fmt.Sprintf("datasets.%s path is empty", name))
		}
		if reservedPaths[name] {
			errs = append(errs, fmt.Sprintf("dataset name %q clashes with a built-in route", name))
		}
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, "database.query_timeout must be positive")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, "ratelimit.window must be positive when ratelimit.requests is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// DatasetNames returns the configured dataset names, sorted
func (c *Config) DatasetNames() []string {
	names := make([]string, 0, len(c.Datasets))
	for name := range c.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Addr returns the listen address in the format ":port"
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
