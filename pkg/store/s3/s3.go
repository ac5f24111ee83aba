// Package s3 implements store.ObjectStore on Amazon S3 or S3-compatible
// storage.
//
// S3 has no native snapshots, so a snapshot is a copy of the object stored
// under a reserved key prefix:
//
//	live:     <keyPrefix><key>
//	snapshot: <keyPrefix><snapshotPrefix><key>/@snapshots/<id>
//
// Snapshot ids are v7 UUIDs, so listing a key's snapshots returns them in
// creation order. The reserved prefix is hidden from every listing. Copies
// use CopyObject, which completes synchronously.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/marmos91/blobfs/pkg/store"
)

const (
	// DefaultSnapshotPrefix is where snapshot copies are kept.
	DefaultSnapshotPrefix = ".blobfs-snapshots/"

	snapshotInfix = "/@snapshots/"

	// metaModified carries the source's modification time on snapshot copies.
	metaModified = "blobfs-modified"

	// maxBatchSize is the DeleteObjects limit.
	maxBatchSize = 1000
)

// S3Store implements store.ObjectStore using an S3 bucket.
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
// S3 offers no multi-object transactions, so a delete racing a snapshot of
// the same key may leave an orphaned snapshot copy.
type S3Store struct {
	client         *s3.Client
	bucket         string
	keyPrefix      string
	snapshotPrefix string
}

// Config contains configuration for the S3 object store.
type Config struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string

	// SnapshotPrefix overrides DefaultSnapshotPrefix.
	SnapshotPrefix string
}

// NewS3Store creates a new S3-based object store.
//
// The bucket must already exist; access to it is verified with HeadBucket.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	snapshotPrefix := cfg.SnapshotPrefix
	if snapshotPrefix == "" {
		snapshotPrefix = DefaultSnapshotPrefix
	}
	if !strings.HasSuffix(snapshotPrefix, "/") {
		snapshotPrefix += "/"
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{
		client:         cfg.Client,
		bucket:         cfg.Bucket,
		keyPrefix:      cfg.KeyPrefix,
		snapshotPrefix: snapshotPrefix,
	}, nil
}

// ============================================================================
// Key layout
// ============================================================================

func (s *S3Store) objectKey(key string) string {
	return s.keyPrefix + key
}

func (s *S3Store) snapshotKey(key, snapshot string) string {
	return s.snapshotListPrefix(key) + snapshot
}

func (s *S3Store) snapshotListPrefix(key string) string {
	return s.keyPrefix + s.snapshotPrefix + key + snapshotInfix
}

// versionKey returns the S3 key holding key at snapshot ("" for live).
func (s *S3Store) versionKey(key, snapshot string) string {
	if snapshot == "" {
		return s.objectKey(key)
	}
	return s.snapshotKey(key, snapshot)
}

// reserved reports whether a store key (without keyPrefix) is in the
// snapshot namespace.
func (s *S3Store) reserved(key string) bool {
	return strings.HasPrefix(key, s.snapshotPrefix)
}

func (s *S3Store) Name() string {
	return s.bucket
}

// ============================================================================
// Reads
// ============================================================================

func (s *S3Store) head(ctx context.Context, key, snapshot string) (*s3.HeadObjectOutput, error) {
	if s.reserved(key) {
		return nil, fmt.Errorf("object %s: %w", key, store.ErrObjectNotFound)
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.versionKey(key, snapshot)),
	})
	if err != nil {
		return nil, mapError("head", key, err)
	}
	return out, nil
}

func (s *S3Store) GetProperties(ctx context.Context, key string, opts store.GetOptions) (*store.ObjectProperties, error) {
	out, err := s.head(ctx, key, opts.Snapshot)
	if err != nil {
		return nil, err
	}

	metadata, modified := splitMetadata(out.Metadata)
	props := &store.ObjectProperties{
		Key:             key,
		Snapshot:        opts.Snapshot,
		Size:            aws.ToInt64(out.ContentLength),
		LastModified:    aws.ToTime(out.LastModified),
		ETag:            aws.ToString(out.ETag),
		ContentSettings: headContentSettings(out),
		Metadata:        metadata,
	}
	if !modified.IsZero() {
		props.LastModified = modified
	}
	return props, nil
}

func (s *S3Store) GetMetadata(ctx context.Context, key string, opts store.GetOptions) (map[string]string, error) {
	props, err := s.GetProperties(ctx, key, opts)
	if err != nil {
		return nil, err
	}
	return props.Metadata, nil
}

func (s *S3Store) Open(ctx context.Context, key string, opts store.GetOptions) (io.ReadCloser, error) {
	if s.reserved(key) {
		return nil, fmt.Errorf("object %s: %w", key, store.ErrObjectNotFound)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.versionKey(key, opts.Snapshot)),
	})
	if err != nil {
		return nil, mapError("get", key, err)
	}
	return out.Body, nil
}

// ContainerProperties reports the bucket creation date when the caller may
// list buckets, and the zero time otherwise.
func (s *S3Store) ContainerProperties(ctx context.Context) (*store.ContainerProperties, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return nil, mapError("head bucket", s.bucket, err)
	}

	props := &store.ContainerProperties{}
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{Prefix: aws.String(s.bucket)})
	if err == nil {
		for _, b := range out.Buckets {
			if aws.ToString(b.Name) == s.bucket {
				props.LastModified = aws.ToTime(b.CreationDate)
			}
		}
	}
	return props, nil
}

// URL returns an s3:// address, with a snapshot query parameter when set.
func (s *S3Store) URL(key string, snapshot string) string {
	u := url.URL{Scheme: "s3", Host: s.bucket, Path: "/" + s.objectKey(key)}
	if snapshot != "" {
		u.RawQuery = url.Values{"snapshot": {snapshot}}.Encode()
	}
	return u.String()
}

// ============================================================================
// Writes
// ============================================================================

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, opts store.PutOptions) error {
	if key == "" || s.reserved(key) {
		return fmt.Errorf("%q: %w", key, store.ErrInvalidKey)
	}

	// PutObject needs a seekable body to compute the payload hash.
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body for %s: %w", key, err)
	}

	cs := opts.ContentSettings
	input := &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(s.objectKey(key)),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        optional(cs.ContentType),
		ContentEncoding:    optional(cs.ContentEncoding),
		ContentLanguage:    optional(cs.ContentLanguage),
		ContentDisposition: optional(cs.ContentDisposition),
		CacheControl:       optional(cs.CacheControl),
		Metadata:           opts.Metadata,
	}
	if opts.IfNotExists {
		input.IfNoneMatch = aws.String("*")
	}

	_, err = s.client.PutObject(ctx, input)
	return mapError("put", key, err)
}

// copyVersion copies one version onto dstKey (an S3 key), replacing its
// metadata with metadata.
func (s *S3Store) copyVersion(ctx context.Context, srcKey, dstKey string, head *s3.HeadObjectOutput, metadata map[string]string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(dstKey),
		CopySource:         aws.String(s.bucket + "/" + url.PathEscape(srcKey)),
		MetadataDirective:  types.MetadataDirectiveReplace,
		Metadata:           metadata,
		ContentType:        head.ContentType,
		ContentEncoding:    head.ContentEncoding,
		ContentLanguage:    head.ContentLanguage,
		ContentDisposition: head.ContentDisposition,
		CacheControl:       head.CacheControl,
	})
	return err
}

// StartCopy copies src into dstKey with CopyObject. The copy has completed
// when StartCopy returns.
func (s *S3Store) StartCopy(ctx context.Context, src store.ObjectRef, dstKey string) (*store.CopyInfo, error) {
	if dstKey == "" || s.reserved(dstKey) {
		return nil, fmt.Errorf("%q: %w", dstKey, store.ErrInvalidKey)
	}

	head, err := s.head(ctx, src.Key, src.Snapshot)
	if err != nil {
		return nil, err
	}
	metadata, _ := splitMetadata(head.Metadata)

	err = s.copyVersion(ctx, s.versionKey(src.Key, src.Snapshot), s.objectKey(dstKey), head, metadata)
	if err != nil {
		return nil, mapError("copy", src.Key, err)
	}
	return &store.CopyInfo{ID: uuid.NewString(), Status: store.CopySuccess}, nil
}

// AbortCopy is not supported: copies never stay pending on S3.
func (s *S3Store) AbortCopy(ctx context.Context, key string, copyID string) error {
	return fmt.Errorf("abort copy %s into %s: %w", copyID, key, store.ErrNotSupported)
}

func (s *S3Store) CreateSnapshot(ctx context.Context, key string, metadata map[string]string) (string, error) {
	head, err := s.head(ctx, key, "")
	if err != nil {
		return "", err
	}

	md := head.Metadata
	if metadata != nil {
		md = metadata
	}
	md = maps.Clone(md)
	if md == nil {
		md = map[string]string{}
	}
	md[metaModified] = aws.ToTime(head.LastModified).UTC().Format(time.RFC3339Nano)

	id := uuid.Must(uuid.NewV7()).String()
	if err := s.copyVersion(ctx, s.objectKey(key), s.snapshotKey(key, id), head, md); err != nil {
		return "", mapError("snapshot", key, err)
	}
	return id, nil
}

func (s *S3Store) SetMetadata(ctx context.Context, key string, metadata map[string]string, opts store.GetOptions) error {
	if opts.Snapshot != "" {
		return fmt.Errorf("set metadata on snapshot %s of %s: %w", opts.Snapshot, key, store.ErrNotSupported)
	}

	head, err := s.head(ctx, key, "")
	if err != nil {
		return err
	}

	objectKey := s.objectKey(key)
	if err := s.copyVersion(ctx, objectKey, objectKey, head, metadata); err != nil {
		return mapError("set metadata", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string, opts store.DeleteOptions) error {
	if opts.Snapshot != "" {
		if _, err := s.head(ctx, key, opts.Snapshot); err != nil {
			return err
		}
		return s.deleteKeys(ctx, []string{s.snapshotKey(key, opts.Snapshot)})
	}

	if _, err := s.head(ctx, key, ""); err != nil {
		return err
	}

	snapshots, err := s.snapshotKeys(ctx, key)
	if err != nil {
		return err
	}

	switch opts.Snapshots {
	case store.DeleteSnapshotsNone:
		if len(snapshots) > 0 {
			return fmt.Errorf("object %s: %w", key, store.ErrSnapshotsPresent)
		}
		return s.deleteKeys(ctx, []string{s.objectKey(key)})
	case store.DeleteSnapshotsOnly:
		return s.deleteKeys(ctx, snapshots)
	default:
		return s.deleteKeys(ctx, append(snapshots, s.objectKey(key)))
	}
}

// snapshotKeys lists the S3 keys of every snapshot of key, oldest first.
func (s *S3Store) snapshotKeys(ctx context.Context, key string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.snapshotListPrefix(key)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("list snapshots", key, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// deleteKeys removes S3 keys in batches of at most maxBatchSize.
func (s *S3Store) deleteKeys(ctx context.Context, keys []string) error {
	for i := 0; i < len(keys); i += maxBatchSize {
		end := min(i+maxBatchSize, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-i)
		for _, k := range keys[i:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return mapError("delete", keys[i], err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}
	return nil
}

// Close is a no-op: the S3 client holds no resources that need releasing.
func (s *S3Store) Close() error { return nil }

// ============================================================================
// Helpers
// ============================================================================

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return aws.String(v)
}

func headContentSettings(out *s3.HeadObjectOutput) store.ContentSettings {
	return store.ContentSettings{
		ContentType:        aws.ToString(out.ContentType),
		ContentEncoding:    aws.ToString(out.ContentEncoding),
		ContentLanguage:    aws.ToString(out.ContentLanguage),
		ContentDisposition: aws.ToString(out.ContentDisposition),
		CacheControl:       aws.ToString(out.CacheControl),
	}
}

// splitMetadata separates user metadata from the keys this store reserves.
func splitMetadata(md map[string]string) (map[string]string, time.Time) {
	raw, ok := md[metaModified]
	if !ok {
		if len(md) == 0 {
			return nil, time.Time{}
		}
		return md, time.Time{}
	}

	user := maps.Clone(md)
	delete(user, metaModified)
	if len(user) == 0 {
		user = nil
	}

	modified, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return user, time.Time{}
	}
	return user, modified
}
