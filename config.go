package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/credential"
)

// Config is the complete engine configuration. Build takes a copy; later changes to
// the caller's value have no effect.
type Config struct {
	JWT            JWTConfig
	Password       PasswordConfig
	Policy         credential.PasswordPolicy
	Hashing        HashingConfig
	Listing        ListingConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	Security       SecurityConfig
	ValidationMode ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the signing secret and token lifetimes.
type JWTConfig struct {
	// Secret is the HS256 signing key. Build fails when it is empty.
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway is a grace window on access-token expiry. Zero means expiry is exact.
	Leeway   time.Duration
	Issuer   string
	Audience string
	// KeyID and VerifyKeys support secret rotation. See jwt.Config.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters for new hashes. Memory is in KiB.
// Hashes made with other parameters keep verifying.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

/*
====================================
HASHING CONFIG
====================================
*/

// HashingConfig bounds concurrent hash computations. Workers <= 0 means GOMAXPROCS.
type HashingConfig struct {
	Workers int
}

/*
====================================
LISTING CONFIG
====================================
*/

type ListingConfig struct {
	DefaultLimit int
	MaxLimit     int
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment-level switches.
type SecurityConfig struct {
	// ProductionMode requires a secret of at least MinProductionSecretBytes and
	// forbids leeway above one minute.
	ProductionMode bool
}

// MinProductionSecretBytes is the smallest HS256 secret accepted in production mode.
const MinProductionSecretBytes = 32

// DefaultConfig returns the engine defaults. The secret is empty and must be set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Policy: credential.DefaultPolicy(),
		Listing: ListingConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		ValidationMode: ModeJWTOnly,
	}
}

// HighSecurityConfig tightens DefaultConfig: production mode, 5 minute access tokens,
// 24 hour refresh tokens, strict validation, a longer password minimum with all
// character classes, and blocking audit delivery.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.Policy.MinLength = 12
	cfg.Policy.RequireLower = true
	cfg.Policy.RequireSpecial = true
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Security.ProductionMode = true
	cfg.ValidationMode = ModeStrict
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first setting that makes the configuration unusable.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be longer than AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if len(c.JWT.VerifyKeys) > 0 && c.JWT.KeyID == "" {
		return errors.New("JWT KeyID is required when VerifyKeys is set")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Policy
	if err := c.Policy.Validate(); err != nil {
		return err
	}

	// Listing
	if c.Listing.DefaultLimit < 1 || c.Listing.MaxLimit < c.Listing.DefaultLimit {
		return errors.New("Listing limits must satisfy 1 <= DefaultLimit <= MaxLimit")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	if c.ValidationMode != ModeJWTOnly && c.ValidationMode != ModeStrict {
		return fmt.Errorf("unsupported ValidationMode %d", c.ValidationMode)
	}

	// Production
	if c.Security.ProductionMode {
		if len(c.JWT.Secret) < MinProductionSecretBytes {
			return fmt.Errorf("JWT Secret must be >= %d bytes in production mode", MinProductionSecretBytes)
		}
		if c.JWT.Leeway > time.Minute {
			return errors.New("JWT Leeway must be <= 1m in production mode")
		}
	}

	return nil
}

// LintSeverity ranks a LintWarning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

// LintWarning is a setting that is valid but probably not intended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast returns the warnings at or above min.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports valid but risky settings. It never fails; call Validate for that.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway %s lets expired tokens through for over a minute", c.JWT.Leeway)
	}
	if c.JWT.AccessTTL > time.Hour {
		add("access_ttl_long", LintWarn, "access TTL %s exceeds one hour", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL > 14*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh TTL %s exceeds 14 days", c.JWT.RefreshTTL)
	}
	if n := len(c.JWT.Secret); n > 0 && n < MinProductionSecretBytes {
		add("secret_short", LintHigh, "JWT secret is %d bytes; use at least %d", n, MinProductionSecretBytes)
	}
	if c.Policy.MinLength < 8 {
		add("password_min_short", LintHigh, "password minimum length %d is below 8", c.Policy.MinLength)
	}
	if !c.Password.UpgradeOnLogin {
		add("hash_upgrade_disabled", LintInfo, "hashes made with older parameters are never upgraded")
	}
	if c.Security.ProductionMode && !c.Audit.Enabled {
		add("audit_disabled", LintWarn, "audit is disabled in production mode")
	}
	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit events are dropped when the buffer is full")
	}
	return ws
}
