package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/inodefs/pkg/store/content"
	contenttesting "github.com/marmos91/inodefs/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObject is one stored object of the fake client.
type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeClient is an in-memory stand-in for the S3 API.
type fakeClient struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]*fakeObject
}

func newFakeClient(bucket string) *fakeClient {
	return &fakeClient{bucket: bucket, objects: make(map[string]*fakeObject)}
}

func (c *fakeClient) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != c.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (c *fakeClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(obj.data))), Metadata: obj.metadata}, nil
}

func (c *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	data := obj.data
	if r := aws.ToString(in.Range); r != "" {
		var start, end int
		if _, err := fmt.Sscanf(r, "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		data = data[start : end+1]
	}

	return &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(append([]byte(nil), data...))),
		Metadata: obj.metadata,
	}, nil
}

func (c *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[aws.ToString(in.Key)] = &fakeObject{data: data, metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (c *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore(t *testing.T, client *fakeClient, verify bool) *S3ContentStore {
	t.Helper()
	store, err := NewS3ContentStore(context.Background(), S3ContentStoreConfig{
		Client:      client,
		Bucket:      client.bucket,
		KeyPrefix:   "content/",
		VerifyReads: verify,
	})
	require.NoError(t, err)
	return store
}

func TestS3ContentStore(t *testing.T) {
	for _, verify := range []bool{false, true} {
		t.Run(fmt.Sprintf("VerifyReads=%v", verify), func(t *testing.T) {
			suite := &contenttesting.StoreTestSuite{
				NewStore: func(t *testing.T) content.ContentStore {
					return newTestStore(t, newFakeClient("bucket"), verify)
				},
			}
			suite.Run(t)
		})
	}
}

func TestNewS3ContentStore_Validation(t *testing.T) {
	_, err := NewS3ContentStore(context.Background(), S3ContentStoreConfig{Bucket: "b"})
	assert.Error(t, err)

	_, err = NewS3ContentStore(context.Background(), S3ContentStoreConfig{Client: newFakeClient("b")})
	assert.Error(t, err)

	_, err = NewS3ContentStore(context.Background(), S3ContentStoreConfig{Client: newFakeClient("b"), Bucket: "other"})
	assert.Error(t, err)
}

func TestS3ContentStore_KeyPrefixAndDigest(t *testing.T) {
	client := newFakeClient("bucket")
	store := newTestStore(t, client, false)
	id := content.NewContentID()

	require.NoError(t, store.WriteAt(context.Background(), id, []byte("payload"), 0))

	obj, ok := client.objects["content/"+string(id)]
	require.True(t, ok)
	assert.Equal(t, digest([]byte("payload")), obj.metadata[digestMetadataKey])
}

func TestS3ContentStore_CorruptionDetected(t *testing.T) {
	client := newFakeClient("bucket")
	store := newTestStore(t, client, true)
	id := content.NewContentID()
	ctx := context.Background()

	require.NoError(t, store.WriteAt(ctx, id, []byte("payload"), 0))
	client.objects["content/"+string(id)].data[0] = 'X'

	_, err := store.ReadAt(ctx, id, make([]byte, 7), 0)
	assert.ErrorIs(t, err, content.ErrIntegrityCheckFailed)

	err = store.WriteAt(ctx, id, []byte("!"), 7)
	assert.ErrorIs(t, err, content.ErrIntegrityCheckFailed)
}

// recordingMetrics counts observations per operation.
type recordingMetrics struct {
	mu     sync.Mutex
	ops    map[string]int
	errors map[string]int
	bytes  map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string]int{}, errors: map[string]int{}, bytes: map[string]int64{}}
}

func (m *recordingMetrics) ObserveOperation(operation string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[operation]++
	if err != nil {
		m.errors[operation]++
	}
}

func (m *recordingMetrics) RecordBytes(operation string, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes[operation] += bytes
}

func TestS3ContentStore_Metrics(t *testing.T) {
	client := newFakeClient("bucket")
	m := newRecordingMetrics()
	store, err := NewS3ContentStore(context.Background(), S3ContentStoreConfig{
		Client:  client,
		Bucket:  "bucket",
		Metrics: m,
	})
	require.NoError(t, err)

	ctx := context.Background()
	id := content.NewContentID()

	// Read-modify-write of a missing object: one failed GET, one PUT
	require.NoError(t, store.WriteAt(ctx, id, []byte("0123456789"), 0))
	assert.Equal(t, 1, m.ops["GetObject"])
	assert.Equal(t, 1, m.errors["GetObject"])
	assert.Equal(t, 1, m.ops["PutObject"])
	assert.Equal(t, int64(10), m.bytes["write"])

	buf := make([]byte, 4)
	n, err := store.ReadAt(ctx, id, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(buf[:n]))
	assert.Equal(t, 1, m.ops["HeadObject"])
	assert.Equal(t, 2, m.ops["GetObject"])
	assert.Equal(t, int64(4), m.bytes["read"])

	require.NoError(t, store.Delete(ctx, id))
	assert.Equal(t, 1, m.ops["DeleteObject"])
}
