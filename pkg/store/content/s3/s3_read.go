package s3

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/inodefs/pkg/store/content"
	"github.com/zeebo/blake3"
)

// ReadAt reads len(p) bytes at offset.
//
// Without VerifyReads this issues a single ranged GetObject; with it, the whole
// object is fetched and its digest checked before copying the range.
func (s *S3ContentStore) ReadAt(ctx context.Context, id content.ContentID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, fmt.Errorf("offset %d: %w", offset, content.ErrInvalidOffset)
	}

	if s.verifyReads {
		data, err := s.load(ctx, id)
		if err != nil {
			return 0, err
		}
		return content.ReadRange(data, p, offset)
	}

	size, err := s.Size(ctx, id)
	if err != nil {
		return 0, err
	}
	if uint64(offset) >= size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := uint64(offset) + uint64(len(p)) - 1
	if end >= size {
		end = size - 1
	}

	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	start := time.Now()
	result, err := s.client.GetObject(reqCtx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, end)),
	})
	s.observe("GetObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to read content from S3: %w", err)
	}
	body := &metricsReadCloser{ReadCloser: result.Body, metrics: s.metrics, operation: "read"}
	defer func() { _ = body.Close() }()

	want := int(end-uint64(offset)) + 1
	n, err := io.ReadFull(body, p[:want])
	if err != nil {
		return n, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the object length using HeadObject.
func (s *S3ContentStore) Size(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	start := time.Now()
	result, err := s.client.HeadObject(reqCtx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	s.observe("HeadObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to stat content in S3: %w", err)
	}

	return uint64(aws.ToInt64(result.ContentLength)), nil
}

// load fetches the whole object and verifies its digest.
//
// Objects written by other tools carry no digest and are accepted unverified.
func (s *S3ContentStore) load(ctx context.Context, id content.ContentID) ([]byte, error) {
	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	start := time.Now()
	result, err := s.client.GetObject(reqCtx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	s.observe("GetObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	body := &metricsReadCloser{ReadCloser: result.Body, metrics: s.metrics, operation: "read"}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	if want, ok := result.Metadata[digestMetadataKey]; ok {
		if got := digest(data); got != want {
			return nil, fmt.Errorf("content %s: digest %s, expected %s: %w", id, got, want, content.ErrIntegrityCheckFailed)
		}
	}

	return data, nil
}

// digest returns the hex BLAKE3-256 digest of data.
func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
