package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

// Duration lets YAML carry human-readable values ("15s", "30m").
type Duration time.Duration

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
	var ns int64
	if err := value.Decode(&ns); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(ns)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type BotConfig struct {
	Token    string `yaml:"token"`
	Language string `yaml:"language"` // locale for chat notifications
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port              int      `yaml:"port"`
	APIKey            string   `yaml:"api_key"`       // bearer key guarding the admin routes
	SocketSecret      string   `yaml:"socket_secret"` // HMAC secret for ws tokens
	SocketTokenTTL    Duration `yaml:"socket_token_ttl"`
	MaxSocketsPerUser int      `yaml:"max_sockets_per_user"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProviderConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"` // per provider call
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // 16/24/32 bytes, AES key for stored credentials
}

type RelayConfig struct {
	PollInterval    Duration `yaml:"poll_interval"`
	ActiveWindow    Duration `yaml:"active_window"`
	Workers         int      `yaml:"workers"` // per-tick session concurrency
	DispatchTimeout Duration `yaml:"dispatch_timeout"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Security SecurityConfig `yaml:"security"`
	Relay    RelayConfig    `yaml:"relay"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// Allow ${VAR} references so secrets can live in the environment.
	b = []byte(os.ExpandEnv(string(b)))

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.mail.tm"
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = Duration(15 * time.Second)
	}
	if cfg.Relay.PollInterval <= 0 {
		cfg.Relay.PollInterval = Duration(15 * time.Second)
	}
	if cfg.Relay.ActiveWindow <= 0 {
		cfg.Relay.ActiveWindow = Duration(30 * time.Minute)
	}
	if cfg.Relay.Workers <= 0 {
		cfg.Relay.Workers = 8
	}
	if cfg.Relay.DispatchTimeout <= 0 {
		cfg.Relay.DispatchTimeout = Duration(5 * time.Second)
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.SocketTokenTTL <= 0 {
		cfg.Web.SocketTokenTTL = Duration(30 * time.Minute)
	}
	if cfg.Web.MaxSocketsPerUser <= 0 {
		cfg.Web.MaxSocketsPerUser = 4
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Web.SocketSecret == "" {
		return nil, errors.New("web.socket_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
