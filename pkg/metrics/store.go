package metrics

import (
	"github.com/marmos91/metacache/pkg/pathmeta"
)

// NewStoreMetrics creates a Prometheus-backed StoreMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). A nil
// StoreMetrics is valid everywhere one is accepted and costs nothing.
func NewStoreMetrics(storeType string) pathmeta.StoreMetrics {
	if !IsEnabled() || newPrometheusStoreMetrics == nil {
		return nil
	}
	return newPrometheusStoreMetrics(storeType)
}

// newPrometheusStoreMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle: the prometheus package imports
// this one for the registry.
var newPrometheusStoreMetrics func(storeType string) pathmeta.StoreMetrics

// RegisterStoreMetricsConstructor registers the Prometheus store metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterStoreMetricsConstructor(constructor func(storeType string) pathmeta.StoreMetrics) {
	newPrometheusStoreMetrics = constructor
}
