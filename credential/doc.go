// Package credential validates and normalizes registration and login input.
//
// All functions are pure: they perform no I/O, hold no state beyond the supplied
// [PasswordPolicy], and are safe to call from any number of goroutines.
//
// # Normalization
//
// Emails are trimmed and lower-cased. The lower-cased form is the canonical key used
// by every repository lookup, so case-insensitive uniqueness holds end to end.
// Names are trimmed and internal whitespace runs collapse to a single space.
//
// # What this package must NOT do
//
//   - Hash, store, or log passwords.
//   - Import authcore or any storage package.
package credential
