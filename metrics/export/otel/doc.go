// Package otel publishes engine metrics as OpenTelemetry observable instruments.
//
// Counters become Int64ObservableCounter. The hash latency histogram becomes one
// cumulative gauge per bucket plus a count gauge, since snapshots carry bucket
// counts and no sum.
package otel
