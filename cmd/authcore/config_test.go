package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "postgres", cfg.Refresh.Store)
	assert.Equal(t, time.Hour, cfg.Refresh.PurgeInterval)
	assert.Equal(t, uint64(5), cfg.Database.ConnectAttempts)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Security.Production)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
http:
  addr: 127.0.0.1:9090
jwt:
  secret: file-secret
  access_ttl: 5m
log:
  format: text
`)

	cfg, err := loadConfig(parseFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "jwt:\n  secret: file-secret\n  access_ttl: 5m\n")
	t.Setenv("AUTHCORE_JWT_SECRET", "env-secret")
	t.Setenv("AUTHCORE_JWT_ACCESS_TTL", "2m")
	t.Setenv("AUTHCORE_SECURITY_PRODUCTION", "true")

	cfg, err := loadConfig(parseFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Minute, cfg.JWT.AccessTTL)
	assert.True(t, cfg.Security.Production)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("AUTHCORE_HTTP_ADDR", ":7000")
	t.Setenv("AUTHCORE_LOG_LEVEL", "debug")

	cfg, err := loadConfig(parseFlags(t, "--http.addr", ":7001"))
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(parseFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad log format", []string{"--log.format", "xml"}},
		{"bad refresh store", []string{"--refresh.store", "memcached"}},
		{"redis without addr", []string{"--refresh.store", "redis"}},
		{"bad validation mode", []string{"--security.validation_mode", "paranoid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(parseFlags(t, tt.args...))
			require.Error(t, err)
		})
	}
}

func TestEngineConfig(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t,
		"--jwt.secret", "0123456789abcdef0123456789abcdef",
		"--jwt.access_ttl", "10m",
		"--security.validation_mode", "strict",
		"--security.production",
		"--audit.enabled",
	))
	require.NoError(t, err)

	engineCfg, err := cfg.engineConfig()
	require.NoError(t, err)

	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), engineCfg.JWT.Secret)
	assert.Equal(t, 10*time.Minute, engineCfg.JWT.AccessTTL)
	assert.Equal(t, authcore.ModeStrict, engineCfg.ValidationMode)
	assert.True(t, engineCfg.Security.ProductionMode)
	assert.True(t, engineCfg.Audit.Enabled)
}

func TestEngineConfig_RejectsShortProductionSecret(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t, "--jwt.secret", "short", "--security.production"))
	require.NoError(t, err)

	_, err = cfg.engineConfig()
	require.Error(t, err)
}

func TestEngineConfig_RequiresSecret(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t))
	require.NoError(t, err)

	_, err = cfg.engineConfig()
	require.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "jwt.access_ttl", envKey("AUTHCORE_JWT_ACCESS_TTL"))
	assert.Equal(t, "database.url", envKey("AUTHCORE_DATABASE_URL"))
	assert.Equal(t, "http.addr", envKey("AUTHCORE_HTTP_ADDR"))
}
