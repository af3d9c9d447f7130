// Package metrics defines the observability interfaces blobflashd's
// components depend on, plus the global Prometheus registry that backs the
// concrete implementations in pkg/metrics/prometheus.
//
// Passing nil for any of these interfaces disables metrics collection with
// zero overhead; every method on a nil receiver is a no-op.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var registry *prometheus.Registry

// InitRegistry creates the global Prometheus registry. Call once during
// daemon startup before constructing any prometheus.* metrics implementation.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	return registry
}

// GetRegistry returns the global registry, or nil if InitRegistry was never
// called.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether the global registry has been initialized.
func IsEnabled() bool {
	return registry != nil
}
