// Package security builds the read-only security posture report exposed by
// Engine.SecurityReport.
//
// # What this package must NOT do
//
//   - Read secrets beyond their length.
//   - Import authcore.
package security
