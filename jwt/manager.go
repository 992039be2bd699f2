package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/MrEthical07/authcore/internal"
)

const (
	// DefaultAccessTTL is the access-token lifetime when Config.AccessTTL is zero.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the refresh-token lifetime when Config.RefreshTTL is zero.
	DefaultRefreshTTL = 7 * 24 * time.Hour

	maxLeeway = 2 * time.Minute
)

var (
	// ErrTokenInvalid is the single rejection returned by VerifyAccess. The specific cause
	// (malformed, bad signature, expired, ...) is attached as oops context under "cause"
	// for logging and never changes the error identity.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrMissingSecret is returned by NewManager when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt signing secret is required")
)

// Config holds signing material and lifetimes. It is read once by NewManager.
type Config struct {
	// Secret is the HS256 key. Required.
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
	// Leeway widens the expiry window. Zero means expiry is exact.
	Leeway time.Duration
	// KeyID is written to the "kid" header. When VerifyKeys is set, tokens are
	// verified with the key named by their kid, which lets old secrets keep
	// verifying during rotation.
	KeyID      string
	VerifyKeys map[string][]byte
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// AccessClaims are the identity facts carried by a verified access token.
type AccessClaims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshToken is an opaque refresh credential. Digest is what gets stored.
type RefreshToken struct {
	Token     string
	Digest    string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues and verifies access tokens and issues refresh tokens.
// It is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
	parser *jwt.Parser
}

// NewManager validates cfg and returns a Manager. A missing secret is an error here so
// that the process fails at startup rather than per request.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) == 0 {
			return nil, fmt.Errorf("empty verify key for kid %q", kid)
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	cfg.Secret = append([]byte(nil), cfg.Secret...)

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}

	return &Manager{config: cfg, parser: jwt.NewParser(options...)}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// Leeway returns the configured expiry grace window.
func (m *Manager) Leeway() time.Duration { return m.config.Leeway }

// IssueAccess signs an access token for subject and email.
func (m *Manager) IssueAccess(subject, email string) (string, error) {
	if subject == "" {
		return "", errors.New("access token subject is required")
	}

	now := m.config.Now()
	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN").Wrap(err)
	}
	return signed, nil
}

// VerifyAccess checks signature, structure, and expiry, and returns the embedded claims.
// Every failure is reported as ErrTokenInvalid. A token checked exactly at its expiry
// instant is rejected.
func (m *Manager) VerifyAccess(tokenStr string) (AccessClaims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return AccessClaims{}, oops.Code("TOKEN_INVALID").With("cause", err.Error()).Wrap(ErrTokenInvalid)
	}

	return AccessClaims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueRefresh returns a new opaque refresh token and its expiry. Persisting it is
// the caller's job; only Digest should be stored.
func (m *Manager) IssueRefresh() (RefreshToken, error) {
	token, digest, err := internal.NewRefreshToken()
	if err != nil {
		return RefreshToken{}, oops.Code("REFRESH_GENERATE").Wrap(err)
	}
	return RefreshToken{
		Token:     token,
		Digest:    digest,
		ExpiresAt: m.config.Now().Add(m.config.RefreshTTL),
	}, nil
}

func (m *Manager) parse(tokenStr string) (*tokenClaims, error) {
	token, err := m.parser.ParseWithClaims(tokenStr, &tokenClaims{}, m.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	if claims.IssuedAt == nil {
		return nil, errors.New("missing iat")
	}

	// The library accepts a token at exactly exp; expiry here is exclusive.
	if !m.config.Now().Before(claims.ExpiresAt.Time.Add(m.config.Leeway)) {
		return nil, jwt.ErrTokenExpired
	}

	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(m.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	if m.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != m.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return m.config.Secret, nil
}
