// Package refresh stores refresh token digests in Redis.
//
// Each token lives under <prefix>:t:<digest> with a TTL equal to its remaining
// lifetime. Each identity has a sorted set <prefix>:i:<identity> of its digests scored
// by expiry in unix milliseconds, so tokens that lapse unredeemed fall out of the
// index instead of accumulating. Insert, consume and revoke run as Lua scripts, so a
// digest is handed out at most once even with concurrent callers.
//
// # What this package must NOT do
//
//   - Store plaintext refresh tokens.
//   - Decide whether a record is still valid. The engine checks expiry.
package refresh
