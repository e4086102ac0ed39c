package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/flatten/cache"
	"github.com/jonwraymond/flatten/flatten"
	"github.com/jonwraymond/flatten/observe"
	"github.com/jonwraymond/flatten/secret"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FLATTEN"

// Config is the complete runtime configuration.
type Config struct {
	Cache   CacheConfig   `mapstructure:"cache"`
	Store   StoreConfig   `mapstructure:"store"`
	Observe ObserveConfig `mapstructure:"observe"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
}

// CacheConfig holds the page caching rules.
type CacheConfig struct {
	Environment   string   `mapstructure:"environment"`
	Environments  []string `mapstructure:"environments"`
	Folder        string   `mapstructure:"folder"`
	Only          []string `mapstructure:"only"`
	Ignore        []string `mapstructure:"ignore"`
	RuleMode      string   `mapstructure:"rule_mode"`
	HookPoint     string   `mapstructure:"hook_point"`
	DefaultLocale string   `mapstructure:"default_locale"`
	Localize      bool     `mapstructure:"localize"`
	ETag          bool     `mapstructure:"etag"`
}

// StoreConfig selects the page store.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`

	Redis RedisConfig `mapstructure:"redis"`

	Resilient       bool          `mapstructure:"resilient"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerReset    time.Duration `mapstructure:"breaker_reset"`
	WriteRetries    int           `mapstructure:"write_retries"`

	// NearCacheSize keeps that many pages in process memory in front of a
	// file or redis store. 0 disables it.
	NearCacheSize int `mapstructure:"near_cache_size"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ObserveConfig mirrors observe.Config.
type ObserveConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`

	Tracing struct {
		Enabled   bool    `mapstructure:"enabled"`
		Exporter  string  `mapstructure:"exporter"`
		SamplePct float64 `mapstructure:"sample_pct"`
	} `mapstructure:"tracing"`

	Metrics struct {
		Enabled  bool   `mapstructure:"enabled"`
		Exporter string `mapstructure:"exporter"`
	} `mapstructure:"metrics"`

	Logging struct {
		Enabled bool   `mapstructure:"enabled"`
		Level   string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// AdminConfig configures the admin API.
type AdminConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Addr       string         `mapstructure:"addr"`
	BaseURL    string         `mapstructure:"base_url"`
	JWTSecret  string         `mapstructure:"jwt_secret"`
	JWTIssuer  string         `mapstructure:"jwt_issuer"`
	APIKeys    []APIKeyConfig `mapstructure:"api_keys"`
	FlushRate  float64        `mapstructure:"flush_rate"`
	FlushBurst int            `mapstructure:"flush_burst"`
}

// APIKeyConfig registers one admin API key.
type APIKeyConfig struct {
	ID        string   `mapstructure:"id"`
	Principal string   `mapstructure:"principal"`
	Key       string   `mapstructure:"key"`
	Roles     []string `mapstructure:"roles"`
}

// ProxyConfig configures the serve command's reverse proxy.
type ProxyConfig struct {
	Addr            string        `mapstructure:"addr"`
	Upstream        string        `mapstructure:"upstream"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Routes names upstream paths so pages can be flushed by route or
	// action. Unlisted paths are still proxied and cached.
	Routes []RouteConfig `mapstructure:"routes"`
}

// RouteConfig names one upstream path template, e.g. "/{locale}/blog/{slug}".
type RouteConfig struct {
	Name   string `mapstructure:"name"`
	Path   string `mapstructure:"path"`
	Action bool   `mapstructure:"action"`
}

// Load reads configuration from path (optional) and the environment, resolves
// credential references and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.resolveSecrets(context.Background(), secret.DefaultResolver()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no
// FLATTEN_* variables set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg) // defaults always decode
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.environment", "production")
	v.SetDefault("cache.environments", []string{"local"})
	v.SetDefault("cache.folder", "flatten")
	v.SetDefault("cache.only", []string{})
	v.SetDefault("cache.ignore", []string{})
	v.SetDefault("cache.rule_mode", string(flatten.RuleModeUnion))
	v.SetDefault("cache.hook_point", string(flatten.HookRequest))
	v.SetDefault("cache.default_locale", flatten.DefaultLocale)
	v.SetDefault("cache.localize", true)
	v.SetDefault("cache.etag", false)

	v.SetDefault("store.driver", cache.DriverMemory)
	v.SetDefault("store.dir", "storage/cache")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.username", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "flatten:")
	v.SetDefault("store.resilient", true)
	v.SetDefault("store.timeout", "250ms")
	v.SetDefault("store.breaker_failures", 5)
	v.SetDefault("store.breaker_reset", "30s")
	v.SetDefault("store.write_retries", 1)
	v.SetDefault("store.near_cache_size", 0)

	v.SetDefault("observe.service_name", "flatten")
	v.SetDefault("observe.version", "")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", false)
	v.SetDefault("observe.metrics.exporter", "prometheus")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")

	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.addr", "127.0.0.1:9090")
	v.SetDefault("admin.base_url", "http://localhost:8080")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.jwt_issuer", "flatten")
	v.SetDefault("admin.api_keys", []map[string]any{})
	v.SetDefault("admin.flush_rate", 2.0)
	v.SetDefault("admin.flush_burst", 5)

	v.SetDefault("proxy.addr", ":8080")
	v.SetDefault("proxy.upstream", "http://localhost:3000")
	v.SetDefault("proxy.shutdown_timeout", "10s")
	v.SetDefault("proxy.routes", []map[string]any{})
}

func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	var err error
	if c.Store.Redis.Password, err = r.Resolve(ctx, c.Store.Redis.Password); err != nil {
		return fmt.Errorf("config: store.redis.password: %w", err)
	}
	if c.Admin.JWTSecret, err = r.Resolve(ctx, c.Admin.JWTSecret); err != nil {
		return fmt.Errorf("config: admin.jwt_secret: %w", err)
	}
	for i := range c.Admin.APIKeys {
		if c.Admin.APIKeys[i].Key, err = r.Resolve(ctx, c.Admin.APIKeys[i].Key); err != nil {
			return fmt.Errorf("config: admin.api_keys[%d].key: %w", i, err)
		}
	}
	return nil
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	fc := c.Flatten()
	if err := fc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	} else if _, err := flatten.NewRules(fc.RuleMode, fc.Only, fc.Ignore); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := c.Store.validate(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	obs := c.Observer()
	if err := obs.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observe: %w", err))
	}
	if err := c.Admin.validate(); err != nil {
		errs = append(errs, fmt.Errorf("admin: %w", err))
	}
	if err := c.Proxy.validate(); err != nil {
		errs = append(errs, fmt.Errorf("proxy: %w", err))
	}
	return errors.Join(errs...)
}

func (s StoreConfig) validate() error {
	switch s.Driver {
	case cache.DriverMemory, "":
	case cache.DriverFile:
		if strings.TrimSpace(s.Dir) == "" {
			return errors.New("dir is required for the file driver")
		}
	case cache.DriverRedis:
		if strings.TrimSpace(s.Redis.Addr) == "" {
			return errors.New("redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("%w: %q", cache.ErrUnknownDriver, s.Driver)
	}
	if s.Timeout < 0 || s.BreakerReset < 0 {
		return errors.New("durations must not be negative")
	}
	if s.NearCacheSize < 0 {
		return errors.New("near_cache_size must not be negative")
	}
	return nil
}

func (a AdminConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if strings.TrimSpace(a.Addr) == "" {
		return errors.New("addr is required")
	}
	if a.FlushRate < 0 || a.FlushBurst < 0 {
		return errors.New("flush_rate and flush_burst must not be negative")
	}
	for i, k := range a.APIKeys {
		if k.Key == "" || k.Principal == "" {
			return fmt.Errorf("api_keys[%d]: principal and key are required", i)
		}
	}
	return nil
}

func (p ProxyConfig) validate() error {
	if strings.TrimSpace(p.Upstream) == "" {
		return errors.New("upstream is required")
	}
	for i, r := range p.Routes {
		if r.Name == "" || !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("routes[%d]: name and an absolute path are required", i)
		}
	}
	return nil
}

// Flatten returns the flattener configuration.
func (c *Config) Flatten() flatten.Config {
	return flatten.Config{
		Environment:   c.Cache.Environment,
		Environments:  c.Cache.Environments,
		Folder:        c.Cache.Folder,
		Only:          c.Cache.Only,
		Ignore:        c.Cache.Ignore,
		RuleMode:      flatten.RuleMode(c.Cache.RuleMode),
		HookPoint:     flatten.HookPoint(c.Cache.HookPoint),
		DefaultLocale: c.Cache.DefaultLocale,
		Localize:      c.Cache.Localize,
		ETag:          c.Cache.ETag,
	}
}

// StoreOptions returns the store factory configuration.
func (c *Config) StoreOptions() cache.Config {
	attempts := c.Store.WriteRetries + 1
	return cache.Config{
		Driver: c.Store.Driver,
		File:   cache.FileStoreConfig{Dir: c.Store.Dir},
		Redis: cache.RedisConfig{
			Addr:      c.Store.Redis.Addr,
			Username:  c.Store.Redis.Username,
			Password:  c.Store.Redis.Password,
			DB:        c.Store.Redis.DB,
			KeyPrefix: c.Store.Redis.KeyPrefix,
		},
		Resilient: c.Store.Resilient,
		Resilience: cache.ResilienceConfig{
			Timeout:       c.Store.Timeout,
			MaxFailures:   c.Store.BreakerFailures,
			ResetTimeout:  c.Store.BreakerReset,
			WriteAttempts: attempts,
		},
		NearSize: c.Store.NearCacheSize,
	}
}

// Observer returns the telemetry configuration.
func (c *Config) Observer() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}
