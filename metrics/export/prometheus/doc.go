// Package prometheus publishes engine metrics through prometheus/client_golang.
//
// [Collector] reads a snapshot on every scrape, so registering it costs nothing on
// the request path. Use [Handler] for a ready /metrics endpoint or register the
// collector with an existing registry.
package prometheus
