// Package jwt issues and verifies HS256 access tokens and generates opaque refresh tokens.
//
// Access tokens carry subject, email, issued-at, and expiry. Verification collapses every
// failure into [ErrTokenInvalid] so callers cannot tell a forged token from an expired one.
package jwt
