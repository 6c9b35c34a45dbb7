// Package container wraps a vfs.Engine with usage accounting and capacity
// limits, and offers the ergonomic path API applications call.
//
// Every mutating call is pre-flighted against the configured Limits before the
// engine runs, so a rejected call leaves both the tree and the usage counters
// untouched. Like the engine, a Container does not lock: concurrent use must
// be serialized by the caller.
package container

import (
	"errors"
	"time"

	"github.com/marmos91/inodefs/internal/logger"
	"github.com/marmos91/inodefs/pkg/metrics"
	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/vfs"
)

// Config configures a Container.
type Config struct {
	// Name identifies the container in logs
	Name string

	// Limits are the capacity bounds (zero fields are unlimited)
	Limits Limits

	// Metrics receives per-operation observations (nil disables collection)
	Metrics metrics.ContainerMetrics
}

// Container is the quota-enforcing front of an engine.
type Container[S store.Storage, P semantics.Semantics] struct {
	name    string
	engine  *vfs.Engine[S, P]
	limits  Limits
	usage   Usage
	metrics metrics.ContainerMetrics
}

// New creates a container over engine.
//
// The usage counters are rebuilt from a walk of the existing tree, so a
// container opened over a persistent storage starts with accurate usage.
// The existing content is accepted even if it already exceeds the limits;
// only further growth is refused.
//
// Parameters:
//   - engine: The path engine to wrap
//   - config: Name, limits and optional metrics
//
// Returns:
//   - *Container: Ready container
//   - error: Walk failure while computing the initial usage
func New[S store.Storage, P semantics.Semantics](engine *vfs.Engine[S, P], config Config) (*Container[S, P], error) {
	c := &Container[S, P]{
		name:    config.Name,
		engine:  engine,
		limits:  config.Limits,
		metrics: config.Metrics,
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNoopContainerMetrics()
	}

	if err := c.Recompute(); err != nil {
		return nil, err
	}

	logger.Info("Container %q ready: nodes=%d bytes=%d", c.name, c.usage.Nodes, c.usage.TotalBytes)
	return c, nil
}

// Engine returns the wrapped engine. Mutations made through it bypass the
// usage counters until the next Recompute.
func (c *Container[S, P]) Engine() *vfs.Engine[S, P] {
	return c.engine
}

// Limits returns the configured limits.
func (c *Container[S, P]) Limits() Limits {
	return c.limits
}

// Usage returns a snapshot of the current counters.
func (c *Container[S, P]) Usage() Usage {
	return c.usage.clone()
}

// Recompute rebuilds the usage counters from a full walk of the tree.
func (c *Container[S, P]) Recompute() error {
	start := time.Now()

	usage := Usage{Entries: make(map[store.InodeID]uint64)}
	err := c.engine.Walk("/", func(_ string, entry vfs.Entry) error {
		if entry.Depth == 0 {
			return nil
		}
		usage.Nodes++
		usage.addEntry(entry.Parent)
		if entry.Inode.IsRegular() {
			usage.TotalBytes += entry.Inode.Size
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.usage = usage
	c.metrics.SetUsage(usage.TotalBytes, usage.Nodes)
	logger.Debug("Container %q usage recomputed in %s: nodes=%d bytes=%d",
		c.name, time.Since(start), usage.Nodes, usage.TotalBytes)
	return nil
}

// Sync flushes the storage.
func (c *Container[S, P]) Sync() error {
	start := time.Now()
	return c.record("sync", start, c.engine.Sync())
}

// Close flushes and closes the storage. The container must not be used afterwards.
func (c *Container[S, P]) Close() error {
	syncErr := c.engine.Sync()
	closeErr := c.engine.Storage().Close()
	logger.Info("Container %q closed", c.name)
	return errors.Join(syncErr, closeErr)
}

// abs turns a relative path into one anchored at the root.
func (c *Container[S, P]) abs(path string) string {
	if path == "" {
		return "/"
	}
	if c.engine.Semantics().IsAbsolute(path) {
		return path
	}
	return "/" + path
}

// mutate runs a pre-flighted mutation.
//
// preflight validates against the limits and returns the function that
// applies the accounting once the engine call has succeeded. A storage
// failure may have left the tree partially changed, so it triggers a full
// recompute instead.
func (c *Container[S, P]) mutate(op, path string, preflight func() (func(), error), apply func() error) error {
	start := time.Now()

	commit, err := preflight()
	if err != nil {
		err = c.rejected(op, path, err)
		c.metrics.RecordOperation(op, time.Since(start), err)
		return err
	}

	err = apply()
	switch {
	case err == nil:
		if commit != nil {
			commit()
		}
		c.metrics.SetUsage(c.usage.TotalBytes, c.usage.Nodes)
	case store.IsCode(err, store.ErrStorageFailure):
		logger.Warn("Container %q: %s %s failed in storage, recomputing usage: %v", c.name, op, path, err)
		if rerr := c.Recompute(); rerr != nil {
			logger.Error("Container %q: usage recompute failed: %v", c.name, rerr)
		}
	}

	c.metrics.RecordOperation(op, time.Since(start), err)
	return err
}

// rejected wraps a capacity error with path context and counts it.
func (c *Container[S, P]) rejected(op, path string, err error) error {
	var capErr *CapacityError
	if errors.As(err, &capErr) {
		c.metrics.RecordCapacityRejection(string(capErr.Resource))
		logger.Debug("Container %q: %s %s refused: %v", c.name, op, path, err)
		var pe *vfs.PathError
		if !errors.As(err, &pe) {
			return &vfs.PathError{Op: op, Path: path, Err: err}
		}
	}
	return err
}

// record reports a non-mutating call started at start.
func (c *Container[S, P]) record(op string, start time.Time, err error) error {
	c.metrics.RecordOperation(op, time.Since(start), err)
	return err
}

// fallback is the commit used when a pre-flight could not inspect the tree.
// The engine call normally fails in that case; if it succeeds, the counters
// are rebuilt.
func (c *Container[S, P]) fallback() func() {
	return func() {
		if err := c.Recompute(); err != nil {
			logger.Error("Container %q: usage recompute failed: %v", c.name, err)
		}
	}
}
