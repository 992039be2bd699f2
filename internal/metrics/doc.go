// Package metrics counts engine outcomes and times password hashing.
//
// Each counter sits in its own cache-line-padded slot and is bumped with a
// single atomic add, so concurrent requests never contend on a lock. The
// hashing histogram has fixed buckets from 10ms to +Inf, which is the range
// argon2id lands in. Recording never allocates.
//
// Snapshot copies the current values for the root package. Exporters in
// metrics/export (Prometheus, OTel) read snapshots and never touch the
// counters directly. The package does no I/O and keeps no global registry.
package metrics
