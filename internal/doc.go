// Package internal holds refresh token generation and decoding shared by the
// engine flows and the refresh stores.
//
// Sub-packages:
//
//   - audit: buffered event dispatch and sinks
//   - flows: the register, login, refresh and account operations behind Engine
//   - logging: slog setup and oops-aware error logging
//   - metrics: counters and latency histograms
//   - security: configuration lint and the security report
package internal
