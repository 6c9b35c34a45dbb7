package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/inodefs/internal/logger"
	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/badger"
	"github.com/marmos91/inodefs/pkg/store/content"
	contentbadger "github.com/marmos91/inodefs/pkg/store/content/badger"
	contentmemory "github.com/marmos91/inodefs/pkg/store/content/memory"
	contentS3 "github.com/marmos91/inodefs/pkg/store/content/s3"
	"github.com/marmos91/inodefs/pkg/store/memory"
	"github.com/mitchellh/mapstructure"
)

// badgerContentOptions configures a dedicated content database.
type badgerContentOptions struct {
	DBPath     string `mapstructure:"db_path"`
	InMemory   bool   `mapstructure:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// s3ContentOptions configures the S3 content store.
type s3ContentOptions struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	ForcePathStyle  bool          `mapstructure:"force_path_style"`
	VerifyReads     bool          `mapstructure:"verify_reads"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

// decodeOptions decodes a backend option map into out.
//
// Values are weakly typed so that environment strings ("true", "30s") decode
// into their field types.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// CreateContentStore creates a content store based on configuration.
//
// Supported types:
//   - "default": returns nil, letting the storage keep content itself
//   - "memory": pkg/store/content/memory (volatile)
//   - "badger": pkg/store/content/badger over a dedicated database
//   - "s3": pkg/store/content/s3
//
// Stores that hold resources (the dedicated badger database) implement
// io.Closer.
func CreateContentStore(ctx context.Context, cfg *ContentConfig, s3Metrics contentS3.S3Metrics) (content.ContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "default":
		return nil, nil
	case "memory":
		return contentmemory.NewMemoryContentStore(), nil
	case "badger":
		return createBadgerContentStore(cfg.Badger)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown content store type: %q (supported: default, memory, badger, s3)", cfg.Type)
	}
}

// ownedBadgerContent closes the database it was opened on.
type ownedBadgerContent struct {
	*contentbadger.BadgerContentStore
	db *badgerdb.DB
}

func (c *ownedBadgerContent) Close() error {
	err := c.BadgerContentStore.Close()
	if dbErr := c.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

// createBadgerContentStore opens a database used only for content blobs.
func createBadgerContentStore(options map[string]any) (content.ContentStore, error) {
	var opts badgerContentOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger content options: %w", err)
	}
	if opts.DBPath == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger content store: db_path is required")
	}

	path := opts.DBPath
	if opts.InMemory {
		path = ""
	}
	db, err := badgerdb.Open(badgerdb.DefaultOptions(path).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLoggingLevel(badgerdb.WARNING))
	if err != nil {
		return nil, fmt.Errorf("failed to open content database at %s: %w", path, err)
	}

	cs, err := contentbadger.NewBadgerContentStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Badger content store initialized: path=%q in_memory=%t", path, opts.InMemory)
	return &ownedBadgerContent{BadgerContentStore: cs, db: db}, nil
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any, s3Metrics contentS3.S3Metrics) (content.ContentStore, error) {
	var storeCfg s3ContentOptions
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 content options: %w", err)
	}
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("s3 content store: bucket is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	if storeCfg.Region != "" {
		configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))
	}

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			// MinIO and Localstack need path-style addressing
			o.UsePathStyle = true
		}
		if storeCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Content Store
	// ========================================================================

	cs, err := contentS3.NewS3ContentStore(ctx, contentS3.S3ContentStoreConfig{
		Client:         client,
		Bucket:         storeCfg.Bucket,
		KeyPrefix:      storeCfg.KeyPrefix,
		VerifyReads:    storeCfg.VerifyReads,
		RequestTimeout: storeCfg.RequestTimeout,
		Metrics:        s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return cs, nil
}

// CreateStorage creates the inode storage based on configuration.
//
// Supported types:
//   - "memory": pkg/store/memory (volatile)
//   - "badger": pkg/store/badger (persistent)
//
// A nil cs lets the storage pick its built-in content backend.
func CreateStorage(ctx context.Context, cfg *StorageConfig, cs content.ContentStore) (store.Storage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return memory.NewMemoryStore(memory.MemoryStoreConfig{Content: cs}), nil
	case "badger":
		return createBadgerStorage(ctx, cfg.Badger, cs)
	default:
		return nil, fmt.Errorf("unknown storage type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerStorage opens a BadgerDB-backed storage.
func createBadgerStorage(ctx context.Context, options map[string]any, cs content.ContentStore) (store.Storage, error) {
	var storeCfg badger.BadgerStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger storage options: %w", err)
	}
	storeCfg.Content = cs

	s, err := badger.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger storage: %w", err)
	}
	return s, nil
}

// CreateSemantics builds the path policy described by cfg.
//
// ReadOnly wraps the selected policy.
func CreateSemantics(cfg *SemanticsConfig) (semantics.Semantics, error) {
	dots, err := semantics.ParseDotMode(cfg.DotSegments)
	if err != nil {
		return nil, err
	}

	opts := semantics.Options{
		MaxNameLen:       cfg.MaxNameLen,
		MaxSymlinkDepth:  cfg.MaxSymlinkDepth,
		MaxPathDepth:     cfg.MaxPathDepth,
		DotSegments:      dots,
		DisableSymlinks:  cfg.DisableSymlinks,
		DisableHardLinks: cfg.DisableHardLinks,
	}

	var sem semantics.Semantics
	switch cfg.Policy {
	case "posix":
		sem = semantics.NewPosix(opts)
	case "portable":
		sem = semantics.NewPortable(opts)
	default:
		return nil, fmt.Errorf("unknown semantics policy: %q (supported: posix, portable)", cfg.Policy)
	}

	if cfg.ReadOnly {
		sem = semantics.NewReadOnly(sem)
	}
	return sem, nil
}
