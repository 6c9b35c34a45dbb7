package s3

import (
	"io"
	"time"
)

// S3Metrics provides observability for S3 requests.
//
// Optional: a nil value in S3ContentStoreConfig disables collection.
type S3Metrics interface {
	// ObserveOperation records an S3 request with its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes moved by a read or write request
	RecordBytes(operation string, bytes int64)
}

// noopMetrics is the default when no S3Metrics is configured
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordBytes(operation string, bytes int64)                            {}

// metricsReadCloser counts bytes read from an object body
type metricsReadCloser struct {
	io.ReadCloser
	metrics   S3Metrics
	operation string
	bytesRead int64
}

func (m *metricsReadCloser) Read(p []byte) (n int, err error) {
	n, err = m.ReadCloser.Read(p)
	if n > 0 {
		m.bytesRead += int64(n)
	}
	return n, err
}

func (m *metricsReadCloser) Close() error {
	err := m.ReadCloser.Close()
	if m.bytesRead > 0 {
		m.metrics.RecordBytes(m.operation, m.bytesRead)
	}
	return err
}

// observe records one request started at start.
func (s *S3ContentStore) observe(operation string, start time.Time, err error) {
	s.metrics.ObserveOperation(operation, time.Since(start), err)
}
