package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "BAAS_"

type Config struct {
	App      AppConfig      `koanf:"app"`
	Supabase SupabaseConfig `koanf:"supabase"`
	API      APIConfig      `koanf:"api"`
	Retry    RetryConfig    `koanf:"retry"`
	Auth     AuthConfig     `koanf:"auth"`
	Realtime RealtimeConfig `koanf:"realtime"`
	DB       DBConfig       `koanf:"db"`
	Redis    RedisConfig    `koanf:"redis"`
	Storage  StorageConfig  `koanf:"storage"`
	Log      LogConfig      `koanf:"log"`
}

type AppConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
	Env     string `koanf:"env"`
	Debug   bool   `koanf:"debug"`
}

type SupabaseConfig struct {
	URL       string `koanf:"url"`
	Key       string `koanf:"key"`
	JWTSecret string `koanf:"jwtsecret"`
	Schema    string `koanf:"schema"`
}

type APIConfig struct {
	BaseURL   string        `koanf:"baseurl"`
	Timeout   time.Duration `koanf:"timeout"`
	LoginPath string        `koanf:"loginpath"`
}

type RetryConfig struct {
	Count int           `koanf:"count"`
	Delay time.Duration `koanf:"delay"`
}

type AuthConfig struct {
	AutoRefresh    bool   `koanf:"autorefresh"`
	PersistSession bool   `koanf:"persistsession"`
	FlowType       string `koanf:"flowtype"`
	RedirectURL    string `koanf:"redirecturl"`
}

type RealtimeConfig struct {
	EventsPerSecond int `koanf:"eventspersecond"`
}

type DBConfig struct {
	URL          string `koanf:"url"`
	DefaultLimit int    `koanf:"defaultlimit"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	HashSalt string `koanf:"hashsalt"`
}

type StorageConfig struct {
	URL string `koanf:"url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":    "My App",
			"version": "1.0.0",
			"env":     "development",
			"debug":   false,
		},
		"supabase": map[string]any{"schema": "public"},
		"api": map[string]any{
			"timeout":   "10s",
			"loginpath": "/login",
		},
		"retry": map[string]any{
			"count": 3,
			"delay": "1s",
		},
		"auth": map[string]any{
			"autorefresh":    true,
			"persistsession": true,
			"flowtype":       "pkce",
			"redirecturl":    "http://localhost:8080/auth/callback",
		},
		"realtime": map[string]any{"eventspersecond": 10},
		"db":       map[string]any{"defaultlimit": 100},
		"storage":  map[string]any{"url": "file:///tmp/baas-storage"},
		"log": map[string]any{
			"level":  "info",
			"format": "json",
		},
	}
}

// Load reads defaults, then the optional YAML file, then BAAS_* environment
// variables (BAAS_SUPABASE_URL -> supabase.url), and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Supabase.URL == "" || c.Supabase.Key == "" {
		return fmt.Errorf("supabase URL and key are required, check %sSUPABASE_URL and %sSUPABASE_KEY", EnvPrefix, EnvPrefix)
	}
	if c.Retry.Count < 0 {
		return fmt.Errorf("retry count must not be negative")
	}
	if c.Realtime.EventsPerSecond <= 0 {
		return fmt.Errorf("realtime events per second must be positive")
	}
	return nil
}

func (c *Config) ClientInfo() string {
	return c.App.Name + "@" + c.App.Version
}

// PublicStorageURL is the base of public object URLs.
func (c *Config) PublicStorageURL() string {
	return strings.TrimRight(c.Supabase.URL, "/") + "/storage/v1/object/public"
}

func (c *Config) AuthURL() string {
	return strings.TrimRight(c.Supabase.URL, "/") + "/auth/v1"
}
