package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// RefreshSecretSize is the number of random bytes behind a refresh token.
const RefreshSecretSize = 32

// ErrMalformedRefreshToken is returned for tokens that cannot have been issued by NewRefreshToken.
var ErrMalformedRefreshToken = errors.New("malformed refresh token")

type RefreshSecret [RefreshSecretSize]byte

func NewRefreshSecret() (RefreshSecret, error) {
	var secret RefreshSecret
	_, err := rand.Read(secret[:])
	return secret, err
}

// String returns the opaque wire form: base64url, no padding.
func (s RefreshSecret) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// Hash returns the hex SHA-256 digest stored in place of the token.
func (s RefreshSecret) Hash() string {
	sum := sha256.Sum256(s[:])
	return hex.EncodeToString(sum[:])
}

// NewRefreshToken returns a fresh opaque token and its storage digest.
func NewRefreshToken() (token string, digest string, err error) {
	secret, err := NewRefreshSecret()
	if err != nil {
		return "", "", err
	}
	return secret.String(), secret.Hash(), nil
}

func DecodeRefreshToken(token string) (RefreshSecret, error) {
	var secret RefreshSecret

	if base64.RawURLEncoding.DecodedLen(len(token)) != RefreshSecretSize {
		return secret, ErrMalformedRefreshToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != RefreshSecretSize {
		return secret, ErrMalformedRefreshToken
	}

	copy(secret[:], raw)
	return secret, nil
}

// HashRefreshToken decodes token and returns its storage digest.
func HashRefreshToken(token string) (string, error) {
	secret, err := DecodeRefreshToken(token)
	if err != nil {
		return "", err
	}
	return secret.Hash(), nil
}
