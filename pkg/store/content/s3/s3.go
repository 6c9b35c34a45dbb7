// Package s3 implements S3-based content storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/inodefs/internal/logger"
	"github.com/marmos91/inodefs/pkg/store/content"
)

// digestMetadataKey is the object metadata key holding the hex BLAKE3 digest
// of the whole object. S3 returns user metadata keys lowercased.
const digestMetadataKey = "blake3"

// Client is the subset of the S3 API used by the content store.
//
// *s3.Client satisfies it; tests substitute an in-memory fake.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ContentStore implements content.ContentStore using Amazon S3 or S3-compatible storage.
//
// Object Layout:
//   - One object per ContentID, key = KeyPrefix + ContentID
//   - Every object carries a BLAKE3 digest of its bytes in user metadata
//
// S3 Characteristics:
//   - Object storage (no true random access like filesystem)
//   - Range reads are used for partial reads
//   - WriteAt and Truncate are implemented with read-modify-write
//
// Integrity:
// Whole-object reads (read-modify-write, and every read when VerifyReads is set)
// recompute the digest and fail with content.ErrIntegrityCheckFailed on mismatch.
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
// Concurrent writes to the same ContentID are last-write-wins.
type S3ContentStore struct {
	client         Client
	bucket         string
	keyPrefix      string
	verifyReads    bool
	requestTimeout time.Duration
	metrics        S3Metrics
}

// S3ContentStoreConfig contains configuration for S3 content store.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "inodefs/content/" results in keys like "inodefs/content/<uuid>"
	KeyPrefix string

	// VerifyReads makes every read fetch the whole object and verify its digest
	VerifyReads bool

	// RequestTimeout bounds each S3 request (0 = no bound)
	RequestTimeout time.Duration

	// Metrics receives per-request observations (nil disables collection)
	Metrics S3Metrics
}

// NewS3ContentStore creates a new S3-based content store.
//
// This verifies bucket access. The bucket must already exist - this function
// does not create it.
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	// ========================================================================
	// Step 1: Validate configuration
	// ========================================================================

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	store := &S3ContentStore{
		client:         cfg.Client,
		bucket:         cfg.Bucket,
		keyPrefix:      cfg.KeyPrefix,
		verifyReads:    cfg.VerifyReads,
		requestTimeout: cfg.RequestTimeout,
		metrics:        cfg.Metrics,
	}
	if store.metrics == nil {
		store.metrics = noopMetrics{}
	}

	// ========================================================================
	// Step 2: Verify bucket access
	// ========================================================================

	reqCtx, cancel := store.requestContext(ctx)
	defer cancel()

	_, err := cfg.Client.HeadBucket(reqCtx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	logger.Info("S3 content store ready: bucket=%s prefix=%q", cfg.Bucket, cfg.KeyPrefix)
	return store, nil
}

// getObjectKey returns the full S3 object key for a given content ID.
func (s *S3ContentStore) getObjectKey(id content.ContentID) string {
	return s.keyPrefix + string(id)
}

// requestContext derives a per-request context bounded by the configured timeout.
func (s *S3ContentStore) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout > 0 {
		return context.WithTimeout(ctx, s.requestTimeout)
	}
	return context.WithCancel(ctx)
}

// isNotFound reports whether err is S3's "object does not exist".
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
