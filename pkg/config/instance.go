package config

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/inodefs/internal/logger"
	"github.com/marmos91/inodefs/pkg/container"
	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
	"github.com/marmos91/inodefs/pkg/vfs"
)

// FS is a container over runtime-selected storage and semantics.
type FS = container.Container[store.Storage, semantics.Semantics]

// Instance is a container assembled from configuration together with the
// resources it owns.
type Instance struct {
	*FS

	// Metrics holds the collectors and the optional scrape server
	Metrics *MetricsResult

	content content.ContentStore
}

// NewContainer builds a ready container from cfg.
//
// Initialization order:
//  1. Logging
//  2. Metrics
//  3. Content store, then storage over it
//  4. Semantics, engine and container (usage is computed from the tree)
//
// The caller must Close the instance.
func NewContainer(ctx context.Context, cfg *Config) (*Instance, error) {
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	m := InitializeMetrics(cfg)

	cs, err := CreateContentStore(ctx, &cfg.Content, m.S3)
	if err != nil {
		return nil, err
	}

	storage, err := CreateStorage(ctx, &cfg.Storage, cs)
	if err != nil {
		closeContent(cs)
		return nil, err
	}

	sem, err := CreateSemantics(&cfg.Semantics)
	if err != nil {
		_ = storage.Close()
		closeContent(cs)
		return nil, err
	}

	c, err := container.New(vfs.New(storage, sem), container.Config{
		Name:    cfg.Container.Name,
		Limits:  cfg.Container.Limits,
		Metrics: m.Container,
	})
	if err != nil {
		_ = storage.Close()
		closeContent(cs)
		return nil, err
	}

	logger.Info("Container %q backends: storage=%s content=%s policy=%s read_only=%t",
		cfg.Container.Name, cfg.Storage.Type, cfg.Content.Type, cfg.Semantics.Policy, cfg.Semantics.ReadOnly)

	return &Instance{FS: c, Metrics: m, content: cs}, nil
}

// Close closes the container and any content store it owns.
func (i *Instance) Close() error {
	err := i.FS.Close()
	if closer, ok := i.content.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func closeContent(cs content.ContentStore) {
	if closer, ok := cs.(io.Closer); ok {
		_ = closer.Close()
	}
}
