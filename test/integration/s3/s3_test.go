//go:build integration

package s3_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/inodefs/pkg/config"
	"github.com/marmos91/inodefs/pkg/store/content"
	s3store "github.com/marmos91/inodefs/pkg/store/content/s3"
	contenttesting "github.com/marmos91/inodefs/pkg/store/content/testing"
	"github.com/stretchr/testify/require"
)

func localstackEndpoint() string {
	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "http://localhost:4566"
}

// setupTestS3 creates an S3 client and a test bucket on Localstack.
//
// The bucket and its objects are removed when the test ends.
func setupTestS3(t *testing.T, bucketName string) *s3.Client {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(localstackEndpoint())
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	require.NoError(t, err, "Failed to create test bucket")

	t.Cleanup(func() {
		listResp, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)})
		if listResp != nil {
			for _, obj := range listResp.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucketName), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	})

	return client
}

// TestS3ContentStore_Integration runs the content store suite against
// Localstack.
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./test/integration/s3/...
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3ContentStore_Integration(t *testing.T) {
	ctx := context.Background()
	bucketName := "inodefs-test-bucket"
	client := setupTestS3(t, bucketName)

	// Each test gets its own key prefix
	testCounter := 0
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.ContentStore {
			testCounter++
			store, err := s3store.NewS3ContentStore(ctx, s3store.S3ContentStoreConfig{
				Client:      client,
				Bucket:      bucketName,
				KeyPrefix:   fmt.Sprintf("test-%d/", testCounter),
				VerifyReads: true,
			})
			require.NoError(t, err)
			return store
		},
	}

	suite.Run(t)
}

// TestS3Container_Integration builds a whole container from configuration
// with content on Localstack.
func TestS3Container_Integration(t *testing.T) {
	bucketName := "inodefs-container-test"
	setupTestS3(t, bucketName)

	cfg := config.GetDefaultConfig()
	cfg.Content.Type = "s3"
	cfg.Content.S3["bucket"] = bucketName
	cfg.Content.S3["endpoint"] = localstackEndpoint()
	cfg.Content.S3["access_key_id"] = "test"
	cfg.Content.S3["secret_access_key"] = "test"
	require.NoError(t, config.Validate(cfg))

	inst, err := config.NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = inst.Close() }()

	require.NoError(t, inst.MkdirAll("/docs/2024", 0))
	require.NoError(t, inst.Write("/docs/2024/report.txt", []byte("quarterly numbers")))
	require.NoError(t, inst.HardLink("/docs/2024/report.txt", "/docs/latest.txt"))
	require.NoError(t, inst.Append("/docs/latest.txt", []byte(" (final)")))

	data, err := inst.Read("/docs/2024/report.txt")
	require.NoError(t, err)
	require.Equal(t, "quarterly numbers (final)", string(data))

	require.NoError(t, inst.RemoveAll("/docs"))
	require.Equal(t, uint64(0), inst.Usage().Nodes)
}
