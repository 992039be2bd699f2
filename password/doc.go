// Package password implements slow, salted, one-way password hashing.
//
// # Output format
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the parameters from the stored string, so raising the cost never
// invalidates existing hashes. Legacy bcrypt hashes ($2a$, $2b$, $2y$) also verify and
// always report [Argon2.NeedsUpgrade] so the engine can re-hash them after a good login.
//
// [Pool] bounds how many computations run at once and lets callers give up via context.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Enforce composition policy (see package credential).
//   - Log plaintext passwords.
package password
