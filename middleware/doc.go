// Package middleware exposes net/http guards that authenticate requests with an
// authcore access token.
//
// # Guards
//
//   - [Guard] validates with an explicit mode, or the engine default via ModeInherit.
//   - [RequireJWTOnly] checks signature and expiry only. No store lookup.
//   - [RequireStrict] also requires the subject to be an active identity.
//
// Each guard reads the Authorization header, calls Validate, and stores the verified
// claims in the request context. Read them back with [ClaimsFromContext].
//
// # What this package must NOT do
//
//   - Parse or sign JWTs itself.
//   - Reveal why a token was rejected.
package middleware
