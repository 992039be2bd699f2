package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, mutate func(*Config)) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cfg := Config{Secret: testSecret, AccessTTL: time.Minute, Now: clock.Now}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, clock
}

func signRaw(t *testing.T, method gjwt.SigningMethod, key any, claims gjwt.Claims, kid string) string {
	t.Helper()
	tok := gjwt.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestNewManagerDefaultsAndValidation(t *testing.T) {
	m, err := NewManager(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.AccessTTL() != DefaultAccessTTL || m.RefreshTTL() != DefaultRefreshTTL {
		t.Fatalf("unexpected default TTLs: %v %v", m.AccessTTL(), m.RefreshTTL())
	}
	if m.Leeway() != 0 {
		t.Fatalf("expected zero default leeway, got %v", m.Leeway())
	}

	bad := []Config{
		{Secret: testSecret, AccessTTL: -time.Second},
		{Secret: testSecret, RefreshTTL: -time.Second},
		{Secret: testSecret, Leeway: 3 * time.Minute},
		{Secret: testSecret, VerifyKeys: map[string][]byte{" ": testSecret}},
		{Secret: testSecret, VerifyKeys: map[string][]byte{"k1": nil}},
		{Secret: testSecret, KeyID: "k2", VerifyKeys: map[string][]byte{"k1": testSecret}},
	}
	for i, cfg := range bad {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config to be rejected", i)
		}
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m, clock := newTestManager(t, nil)

	token, err := m.IssueAccess("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.VerifyAccess(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "ana@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IssuedAt.Equal(clock.now) {
		t.Fatalf("unexpected iat: %v", claims.IssuedAt)
	}
	if !claims.ExpiresAt.Equal(clock.now.Add(time.Minute)) {
		t.Fatalf("unexpected exp: %v", claims.ExpiresAt)
	}
}

func TestIssueAccessRequiresSubject(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if _, err := m.IssueAccess("", "ana@example.com"); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}
}

func TestVerifyAccessExpiryIsExclusive(t *testing.T) {
	m, clock := newTestManager(t, nil)
	issuedAt := clock.now

	token, err := m.IssueAccess("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = issuedAt.Add(time.Minute - time.Second)
	if _, err := m.VerifyAccess(token); err != nil {
		t.Fatalf("expected token to verify one second before expiry: %v", err)
	}

	clock.now = issuedAt.Add(time.Minute)
	if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token at exact expiry to be rejected, got %v", err)
	}

	clock.now = issuedAt.Add(time.Hour)
	if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestVerifyAccessLeewayExtendsExpiry(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.Leeway = 30 * time.Second })
	issuedAt := clock.now

	token, err := m.IssueAccess("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.now = issuedAt.Add(time.Minute + 29*time.Second)
	if _, err := m.VerifyAccess(token); err != nil {
		t.Fatalf("expected token inside leeway to verify: %v", err)
	}
	clock.now = issuedAt.Add(time.Minute + 30*time.Second)
	if _, err := m.VerifyAccess(token); err == nil {
		t.Fatal("expected token at leeway boundary to be rejected")
	}
}

func TestVerifyAccessRejectsTamperingUniformly(t *testing.T) {
	m, clock := newTestManager(t, nil)

	token, err := m.IssueAccess("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}

	forgedPayload := signRaw(t, gjwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), tokenClaims{
		Email: "ana@example.com",
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  gjwt.NewNumericDate(clock.now),
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	}, "")

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"bad signature":  parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:],
		"swapped claims": parts[0] + "." + strings.Split(forgedPayload, ".")[1] + "." + parts[2],
		"wrong secret":   forgedPayload,
		"alg none":       "eyJhbGciOiJub25lIn0." + parts[1] + ".",
	}
	for name, tok := range cases {
		_, err := m.VerifyAccess(tok)
		if !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
		if err.Error() != ErrTokenInvalid.Error() {
			t.Fatalf("%s: rejection message leaks cause: %q", name, err.Error())
		}
		oopsErr, ok := oops.AsOops(err)
		if !ok || oopsErr.Context()["cause"] == nil {
			t.Fatalf("%s: expected internal cause in error context", name)
		}
	}
}

func TestVerifyAccessRejectsWrongAlgorithm(t *testing.T) {
	m, clock := newTestManager(t, nil)

	claims := tokenClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	token := signRaw(t, gjwt.SigningMethodHS512, testSecret, claims, "")
	if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected HS512 token to be rejected, got %v", err)
	}
}

func TestVerifyAccessRequiresStandardClaims(t *testing.T) {
	m, clock := newTestManager(t, nil)

	noExp := tokenClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:  "user-1",
		IssuedAt: gjwt.NewNumericDate(clock.now),
	}}
	noSub := tokenClaims{RegisteredClaims: gjwt.RegisteredClaims{
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	noIAT := tokenClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	futureIAT := tokenClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  gjwt.NewNumericDate(clock.now.Add(time.Hour)),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(2 * time.Hour)),
	}}

	for name, claims := range map[string]tokenClaims{"no exp": noExp, "no sub": noSub, "no iat": noIAT, "future iat": futureIAT} {
		token := signRaw(t, gjwt.SigningMethodHS256, testSecret, claims, "")
		if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: expected rejection, got %v", name, err)
		}
	}
}

func TestVerifyAccessIssuerAndAudience(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) {
		c.Issuer = "authcore"
		c.Audience = "api"
	})

	token, err := m.IssueAccess("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.VerifyAccess(token); err != nil {
		t.Fatalf("expected valid token to verify: %v", err)
	}

	wrongIssuer := signRaw(t, gjwt.SigningMethodHS256, testSecret, tokenClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}, "")
	if _, err := m.VerifyAccess(wrongIssuer); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	wrongAudience := signRaw(t, gjwt.SigningMethodHS256, testSecret, tokenClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "authcore",
		Audience:  gjwt.ClaimStrings{"other-api"},
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}, "")
	if _, err := m.VerifyAccess(wrongAudience); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
}

func TestVerifyAccessKeyRotation(t *testing.T) {
	oldSecret := []byte("old-secret-old-secret-old-secret")
	oldManager, _ := newTestManager(t, func(c *Config) {
		c.Secret = oldSecret
		c.KeyID = "k1"
	})
	oldToken, err := oldManager.IssueAccess("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, _ := newTestManager(t, func(c *Config) {
		c.KeyID = "k2"
		c.VerifyKeys = map[string][]byte{"k1": oldSecret, "k2": testSecret}
	})
	if _, err := rotated.VerifyAccess(oldToken); err != nil {
		t.Fatalf("expected token signed with retired key to verify: %v", err)
	}
	newToken, err := rotated.IssueAccess("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := rotated.VerifyAccess(newToken); err != nil {
		t.Fatalf("expected token signed with current key to verify: %v", err)
	}

	if _, err := oldManager.VerifyAccess(newToken); err == nil {
		t.Fatal("expected kid mismatch to fail")
	}
}

func TestIssueRefresh(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.RefreshTTL = 48 * time.Hour })

	first, err := m.IssueRefresh()
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	second, err := m.IssueRefresh()
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if first.Token == second.Token || first.Digest == second.Digest {
		t.Fatal("expected refresh tokens to be unique")
	}
	if first.Token == first.Digest {
		t.Fatal("expected digest to differ from token")
	}
	if strings.Count(first.Token, ".") != 0 {
		t.Fatal("expected refresh token to be opaque, not a JWT")
	}
	if !first.ExpiresAt.Equal(clock.now.Add(48 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry: %v", first.ExpiresAt)
	}
}
