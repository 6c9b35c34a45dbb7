// Package metrics holds the Prometheus side of inodefs: the process-wide
// registry, the collector interfaces the container and the S3 content store
// report through, and the HTTP server that exposes /metrics.
//
// Nothing is collected until InitRegistry runs. Before that, the constructors in
// pkg/metrics/prometheus hand back no-op collectors, so a container built with
// metrics disabled pays a method call per operation and nothing more.
//
// config.InitializeMetrics wires everything from the metrics section:
//
//	metrics.InitRegistry()
//	cm := prometheus.NewContainerMetrics(cfg.Container.Name)
//	c, err := container.New(engine, container.Config{Name: cfg.Container.Name, Metrics: cm})
//
//	srv := metrics.NewServer(metrics.ServerConfig{Addr: ":9090"})
//	go srv.Start(ctx)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is set once by InitRegistry and read by every collector constructor
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the registry. Later calls keep the first one.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the registry, or nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
