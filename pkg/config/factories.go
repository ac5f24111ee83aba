package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/blobfs/internal/logger"
	"github.com/marmos91/blobfs/internal/ratelimiter"
	"github.com/marmos91/blobfs/pkg/blobfs"
	"github.com/marmos91/blobfs/pkg/store"
	"github.com/marmos91/blobfs/pkg/store/azure"
	"github.com/marmos91/blobfs/pkg/store/badger"
	"github.com/marmos91/blobfs/pkg/store/memory"
	storeS3 "github.com/marmos91/blobfs/pkg/store/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateStore creates an object store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": pkg/store/memory (in-process, ephemeral)
//   - "badger": pkg/store/badger (BadgerDB, persistent)
//   - "azure":  pkg/store/azure (Azure Blob Storage)
//   - "s3":     pkg/store/s3 (Amazon S3 or compatible storage)
//
// A non-nil m wraps the store with store.Instrument. A positive
// RateLimit.RequestsPerSecond puts a store.Throttle in front of that, so
// recorded latencies exclude time spent throttled.
func CreateStore(ctx context.Context, cfg *StoreConfig, m store.Metrics) (store.ObjectStore, error) {
	var (
		s   store.ObjectStore
		err error
	)

	switch cfg.Type {
	case "memory":
		s, err = createMemoryStore(ctx, cfg.Memory)
	case "badger":
		s, err = createBadgerStore(ctx, cfg.Badger)
	case "azure":
		s, err = createAzureStore(ctx, cfg.Azure)
	case "s3":
		s, err = createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: memory, badger, azure, s3)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	s = store.Instrument(s, cfg.Type, m)

	rl := cfg.RateLimit
	limiter := ratelimiter.New(rl.RequestsPerSecond, rl.Burst)
	if !limiter.Unlimited() {
		logger.Debug("Throttling %s store to %d req/s (burst %d)", cfg.Type, rl.RequestsPerSecond, rl.Burst)
	}
	return store.Throttle(s, limiter), nil
}

// CreateFS creates the object store and the filesystem on top of it.
//
// m may be nil, in which case no metrics are collected.
func CreateFS(ctx context.Context, cfg *Config, m *MetricsResult) (*blobfs.FS, error) {
	var (
		storeMetrics store.Metrics
		fsMetrics    blobfs.Metrics
	)
	if m != nil {
		storeMetrics = m.StoreMetrics
		fsMetrics = m.FSMetrics
	}

	s, err := CreateStore(ctx, &cfg.Store, storeMetrics)
	if err != nil {
		return nil, err
	}

	fsys, err := blobfs.New(s, blobfs.Options{
		Delimiter:           cfg.Filesystem.Delimiter,
		RenameCheckInterval: cfg.Filesystem.RenameCheckInterval,
		RenameTimeout:       cfg.Filesystem.RenameTimeout,
		Metrics:             fsMetrics,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create filesystem: %w", err)
	}

	return fsys, nil
}

// decodeOptions decodes a store section into out. Durations may be given as
// strings and scalars as their string form (environment variables).
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// createMemoryStore creates an in-memory object store.
func createMemoryStore(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	var storeCfg memory.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory store config: %w", err)
	}

	s, err := memory.NewMemoryStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	return s, nil
}

// createBadgerStore creates a BadgerDB-based persistent object store.
func createBadgerStore(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	var storeCfg badger.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}
	if err := validateStoreConfig("badger", &storeCfg); err != nil {
		return nil, err
	}

	s, err := badger.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	logger.Info("Badger store initialized: path=%s, in_memory=%t", storeCfg.DBPath, storeCfg.InMemory)
	return s, nil
}

// createAzureStore creates an Azure Blob Storage object store.
func createAzureStore(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	var storeCfg azure.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode azure store config: %w", err)
	}
	if err := validateStoreConfig("azure", &storeCfg); err != nil {
		return nil, err
	}
	if storeCfg.ConnectionString == "" && (storeCfg.Account == "" || storeCfg.AccountKey == "") {
		return nil, fmt.Errorf("azure store: connection_string or account and account_key are required")
	}

	s, err := azure.NewAzureStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure store: %w", err)
	}

	logger.Info("Azure store initialized: container=%s", storeCfg.Container)
	return s, nil
}

// S3StoreConfig is the store.s3 configuration section.
type S3StoreConfig struct {
	Region          string `mapstructure:"region" validate:"required"`
	Bucket          string `mapstructure:"bucket" validate:"required"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	SnapshotPrefix  string `mapstructure:"snapshot_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// createS3Store creates an S3-based object store.
func createS3Store(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	var storeCfg S3StoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}
	if err := validateStoreConfig("S3", &storeCfg); err != nil {
		return nil, err
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	s, err := storeS3.NewS3Store(ctx, storeS3.Config{
		Client:         client,
		Bucket:         storeCfg.Bucket,
		KeyPrefix:      storeCfg.KeyPrefix,
		SnapshotPrefix: storeCfg.SnapshotPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)
	return s, nil
}

// newS3Client builds the S3 client described by cfg.
func newS3Client(ctx context.Context, cfg S3StoreConfig) (*s3.Client, error) {
	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}

	// Set credentials if provided, otherwise use default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
