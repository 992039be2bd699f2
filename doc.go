// Package authcore provides an account-authentication engine: credential validation,
// argon2id password hashing, HS256 access tokens, and single-use opaque refresh tokens.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the storage
// contracts ([IdentityStore], [RefreshStore]), and value types. Flow orchestration,
// audit dispatch, and metric slots live under internal/ and are never exported directly.
// Storage adapters live in store/memory, store/postgres, and refresh.
//
// # What this package must NOT do
//
//   - Import any storage adapter or transport package.
//   - Log or return plaintext passwords, password hashes, or tokens.
//   - Perform I/O outside of Engine methods. Construction via Builder does no I/O.
//
// # Error contract
//
// Validation and conflict errors are returned as-is so callers can explain them. Unknown
// emails, wrong passwords, inactive identities, and rejected tokens all return
// [ErrInvalidCredentials]. Hashing and signing failures return [ErrHashing] or [ErrToken]
// with the cause attached as context for logging only. Use [KindOf] to classify.
package authcore
