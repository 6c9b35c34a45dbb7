package config

import (
	"github.com/marmos91/inodefs/pkg/metrics"
	promMetrics "github.com/marmos91/inodefs/pkg/metrics/prometheus"
	contentS3 "github.com/marmos91/inodefs/pkg/store/content/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server exposes the registry over HTTP (nil unless metrics.listen is set).
	// It is created stopped; the caller decides when to Start it.
	Server *metrics.Server

	// Container is the collector for container operations (never nil)
	Container metrics.ContainerMetrics

	// S3 is the collector for the S3 content store (nil if disabled)
	S3 contentS3.S3Metrics
}

// InitializeMetrics creates metrics components based on configuration.
//
// If metrics are disabled the result carries no-op implementations and no
// server, and the global registry is left uninitialized.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Container: metrics.NewNoopContainerMetrics(),
		}
	}

	metrics.InitRegistry()

	result := &MetricsResult{
		Container: promMetrics.NewContainerMetrics(cfg.Container.Name),
	}

	if cfg.Content.Type == "s3" {
		result.S3 = promMetrics.NewS3Metrics()
	}

	if cfg.Metrics.Listen != "" {
		result.Server = metrics.NewServer(metrics.ServerConfig{Addr: cfg.Metrics.Listen})
	}

	return result
}
