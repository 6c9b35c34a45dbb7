package metrics

import (
	"strings"
	"time"

	"github.com/marmos91/inodefs/pkg/store"
)

// ContainerMetrics provides observability for container operations.
//
// Implementations receive one observation per public container call and the
// usage counters after every successful mutation. This interface is optional -
// if not provided to the container, a no-op implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewContainerMetrics("data")
//	c, err := container.New(engine, container.Config{Metrics: m})
//
//	// Without metrics (no-op)
//	c, err := container.New(engine, container.Config{})
type ContainerMetrics interface {
	// RecordOperation records a completed container operation.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "write", "rename", "mkdir_all")
	//   - duration: Time taken to complete the operation
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes read or written.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Number of bytes transferred
	RecordBytes(direction string, bytes int64)

	// RecordCapacityRejection counts an operation refused by a limit.
	//
	// Parameters:
	//   - resource: The exhausted resource (e.g., "total_bytes", "nodes")
	RecordCapacityRejection(resource string)

	// SetUsage publishes the current usage counters.
	SetUsage(totalBytes uint64, nodes uint64)
}

// NewNoopContainerMetrics returns a ContainerMetrics that discards everything.
func NewNoopContainerMetrics() ContainerMetrics {
	return noopContainerMetrics{}
}

// noopContainerMetrics is a no-op implementation of ContainerMetrics with zero overhead.
type noopContainerMetrics struct{}

func (noopContainerMetrics) RecordOperation(operation string, duration time.Duration, err error) {}
func (noopContainerMetrics) RecordBytes(direction string, bytes int64)                           {}
func (noopContainerMetrics) RecordCapacityRejection(resource string)                             {}
func (noopContainerMetrics) SetUsage(totalBytes uint64, nodes uint64)                            {}

// ErrorLabel returns a stable label value for err: "" for nil, the snake_case
// error code name for coded errors, "storage_failure" otherwise.
func ErrorLabel(err error) string {
	if err == nil {
		return ""
	}
	code, ok := store.CodeOf(err)
	if !ok {
		code = store.ErrStorageFailure
	}
	return strings.ReplaceAll(code.String(), " ", "_")
}
