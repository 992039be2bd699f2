package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/authcore"
)

const envPrefix = "AUTHCORE_"

// Config is the service configuration. Sources are applied in order: flag defaults,
// the YAML file given by --config, AUTHCORE_* environment variables, then flags set
// on the command line.
type Config struct {
	HTTP     httpConfig     `koanf:"http"`
	Database databaseConfig `koanf:"database"`
	Redis    redisConfig    `koanf:"redis"`
	JWT      jwtConfig      `koanf:"jwt"`
	Log      logConfig      `koanf:"log"`
	Refresh  refreshConfig  `koanf:"refresh"`
	Audit    auditConfig    `koanf:"audit"`
	Metrics  metricsConfig  `koanf:"metrics"`
	Security securityConfig `koanf:"security"`
}

type httpConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

type databaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns"`
	ConnectAttempts uint64        `koanf:"connect_attempts"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff"`
}

type redisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type jwtConfig struct {
	Secret     string        `koanf:"secret"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
	Issuer     string        `koanf:"issuer"`
}

type logConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type refreshConfig struct {
	Store string `koanf:"store"`
	// PurgeInterval is how often expired postgres refresh rows are deleted. Zero disables the sweep.
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

type auditConfig struct {
	Enabled bool `koanf:"enabled"`
}

type metricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

type securityConfig struct {
	Production     bool   `koanf:"production"`
	ValidationMode string `koanf:"validation_mode"`
}

// Default values for flags.
const (
	defaultHTTPAddr        = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultRefreshStore    = "postgres"
	defaultValidationMode  = "jwt_only"
)

// bindFlags registers every config key as a persistent flag named after its key.
func bindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file")

	fs.String("http.addr", defaultHTTPAddr, "HTTP listen address")
	fs.Duration("http.shutdown_timeout", defaultShutdownTimeout, "graceful shutdown limit")
	fs.Int64("http.max_body_bytes", 1<<20, "largest accepted request body")

	fs.String("database.url", "", "PostgreSQL URL (empty keeps identities in memory)")
	fs.Int32("database.max_conns", 0, "pool size (0 = pgxpool default)")
	fs.Uint64("database.connect_attempts", 5, "connection attempts at startup")
	fs.Duration("database.connect_backoff", 500*time.Millisecond, "first retry delay")

	fs.String("redis.addr", "", "Redis address for the redis refresh store")
	fs.String("redis.password", "", "Redis password")
	fs.Int("redis.db", 0, "Redis database")
	fs.String("redis.prefix", "", "Redis key prefix")

	fs.String("jwt.secret", "", "HS256 signing secret")
	fs.Duration("jwt.access_ttl", 15*time.Minute, "access token lifetime")
	fs.Duration("jwt.refresh_ttl", 7*24*time.Hour, "refresh token lifetime")
	fs.String("jwt.issuer", "", "iss claim")

	fs.String("log.level", defaultLogLevel, "debug, info, warn or error")
	fs.String("log.format", defaultLogFormat, "json or text")

	fs.String("refresh.store", defaultRefreshStore, "postgres or redis")
	fs.Duration("refresh.purge_interval", time.Hour, "interval between expired refresh token sweeps (postgres, 0 disables)")
	fs.Bool("audit.enabled", false, "log audit events")
	fs.Bool("metrics.enabled", true, "serve /metrics")

	fs.Bool("security.production", false, "enforce production secret and leeway limits")
	fs.String("security.validation_mode", defaultValidationMode, "jwt_only or strict")
}

func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func loadConfig(fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Refresh.Store {
	case "postgres", "redis":
	default:
		return oops.Code("CONFIG_INVALID").Errorf("refresh.store must be 'postgres' or 'redis', got %q", c.Refresh.Store)
	}
	if c.Refresh.Store == "redis" && c.Redis.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("refresh.store redis needs redis.addr")
	}
	if _, err := c.validationMode(); err != nil {
		return err
	}
	return nil
}

func (c Config) validationMode() (authcore.ValidationMode, error) {
	switch c.Security.ValidationMode {
	case "", "jwt_only":
		return authcore.ModeJWTOnly, nil
	case "strict":
		return authcore.ModeStrict, nil
	default:
		return 0, oops.Code("CONFIG_INVALID").Errorf("security.validation_mode must be 'jwt_only' or 'strict', got %q", c.Security.ValidationMode)
	}
}

// engineConfig maps the service settings onto the engine defaults.
func (c Config) engineConfig() (authcore.Config, error) {
	mode, err := c.validationMode()
	if err != nil {
		return authcore.Config{}, err
	}

	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.AccessTTL = c.JWT.AccessTTL
	cfg.JWT.RefreshTTL = c.JWT.RefreshTTL
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled
	cfg.Security.ProductionMode = c.Security.Production
	cfg.ValidationMode = mode

	if err := cfg.Validate(); err != nil {
		return authcore.Config{}, fmt.Errorf("engine config: %w", err)
	}
	return cfg, nil
}
