// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token     string  `yaml:"token"`
	Mode      string  `yaml:"mode"`       // polling only for now
	Channel   string  `yaml:"channel"`    // default destination: @username or numeric chat id
	Workers   int     `yaml:"workers"`    // update handling shards
	AdminIDs  []int64 `yaml:"admin_ids"`
	Language  string  `yaml:"language"`   // ru | en
	ParseMode string  `yaml:"parse_mode"` // "", HTML, MarkdownV2
	RateLimit int     `yaml:"rate_limit"` // submissions per submitter per minute
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // how long a delivered update stays claimed
}

// CounterConfig selects the durable store behind sequence numbers.
type CounterConfig struct {
	Backend string `yaml:"backend"` // postgres | redis | sqlite | file
	Path    string `yaml:"path"`    // sqlite database file or counter directory
}

type PublisherConfig struct {
	Debounce     time.Duration `yaml:"debounce"`
	HeaderFormat string        `yaml:"header_format"`
	PoolWorkers  int           `yaml:"pool_workers"`
	DryRun       bool          `yaml:"dry_run"` // log publish requests instead of sending them
}

type SanitizerConfig struct {
	ContactKeywords []string `yaml:"contact_keywords"`
}

type SchedulerConfig struct {
	GrantExpiryInterval time.Duration `yaml:"grant_expiry_interval"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Counter   CounterConfig   `yaml:"counter"`
	Publisher PublisherConfig `yaml:"publisher"`
	Sanitizer SanitizerConfig `yaml:"sanitizer"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
)

// LoadConfig reads the YAML file at path, fills defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Bot.Channel == "" {
		return nil, errors.New("bot.channel is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	switch cfg.Counter.Backend {
	case BackendPostgres:
	case BackendRedis:
		if cfg.Redis.URL == "" {
			return nil, errors.New("redis.url is required for counter.backend=redis")
		}
	case BackendSQLite, BackendFile:
		if cfg.Counter.Path == "" {
			return nil, fmt.Errorf("counter.path is required for counter.backend=%s", cfg.Counter.Backend)
		}
	default:
		return nil, fmt.Errorf("unknown counter.backend %q", cfg.Counter.Backend)
	}
	if !strings.Contains(cfg.Publisher.HeaderFormat, "%d") {
		return nil, errors.New("publisher.header_format must contain %d")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "ru"
	}
	if cfg.Bot.RateLimit <= 0 {
		cfg.Bot.RateLimit = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	cfg.Counter.Backend = strings.ToLower(strings.TrimSpace(cfg.Counter.Backend))
	if cfg.Counter.Backend == "" {
		cfg.Counter.Backend = BackendPostgres
	}
	if cfg.Publisher.Debounce <= 0 {
		cfg.Publisher.Debounce = 1500 * time.Millisecond
	}
	if cfg.Publisher.HeaderFormat == "" {
		cfg.Publisher.HeaderFormat = "#Объект %d"
	}
	if cfg.Publisher.PoolWorkers <= 0 {
		cfg.Publisher.PoolWorkers = 4
	}
	if cfg.Scheduler.GrantExpiryInterval <= 0 {
		cfg.Scheduler.GrantExpiryInterval = time.Hour
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 24 * time.Hour
	}
	return d
}
