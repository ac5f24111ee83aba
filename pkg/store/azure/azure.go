// Package azure implements store.ObjectStore on Azure Blob Storage.
//
// It is the native backend for the filesystem layer: snapshots, asynchronous
// server-side copies and hierarchical listings map one to one onto the Blob
// service. Blob metadata keys are reported in lower case because the service
// treats them case-insensitively.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/marmos91/blobfs/pkg/store"
)

// Config controls connectivity to Azure Blob Storage.
type Config struct {
	// ConnectionString takes precedence over account credentials when set.
	ConnectionString string `mapstructure:"connection_string"`

	Account    string `mapstructure:"account"`
	AccountKey string `mapstructure:"account_key"`

	// Endpoint overrides https://<account>.blob.core.windows.net (Azurite).
	Endpoint string `mapstructure:"endpoint"`

	Container string `mapstructure:"container" validate:"required"`

	// CreateContainer creates the container on startup if it is missing.
	CreateContainer bool `mapstructure:"create_container"`
}

// AzureStore implements store.ObjectStore backed by one blob container.
type AzureStore struct {
	client    *container.Client
	container string
}

// NewAzureStore connects to the container described by cfg.
func NewAzureStore(ctx context.Context, cfg Config) (*AzureStore, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure: container is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.Account != "" && cfg.AccountKey != "":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.Account)
		}
		cred, credErr := azblob.NewSharedKeyCredential(cfg.Account, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("azure: build credentials: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	default:
		return nil, fmt.Errorf("azure: connection string or account and account key required")
	}
	if err != nil {
		return nil, fmt.Errorf("azure: create client: %w", err)
	}

	s := &AzureStore{
		client:    client.ServiceClient().NewContainerClient(cfg.Container),
		container: cfg.Container,
	}

	if cfg.CreateContainer {
		_, err := s.client.Create(ctx, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("azure: create container: %w", err)
		}
	}

	return s, nil
}

func (s *AzureStore) Name() string {
	return s.container
}

// blobClient returns a client for key, pinned to snapshot when set.
func (s *AzureStore) blobClient(key, snapshot string) (*blob.Client, error) {
	c := s.client.NewBlobClient(key)
	if snapshot == "" {
		return c, nil
	}
	pinned, err := c.WithSnapshot(snapshot)
	if err != nil {
		return nil, fmt.Errorf("azure: snapshot %s of %s: %w", snapshot, key, err)
	}
	return pinned, nil
}

func (s *AzureStore) Put(ctx context.Context, key string, body io.Reader, opts store.PutOptions) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("azure: read body for %s: %w", key, err)
	}

	uploadOpts := &blockblob.UploadBufferOptions{
		HTTPHeaders: toHTTPHeaders(opts.ContentSettings),
		Metadata:    toAzureMetadata(opts.Metadata),
	}
	if opts.IfNotExists {
		uploadOpts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		}
	}

	_, err = s.client.NewBlockBlobClient(key).UploadBuffer(ctx, data, uploadOpts)
	return mapError("put", key, err)
}

func (s *AzureStore) GetProperties(ctx context.Context, key string, opts store.GetOptions) (*store.ObjectProperties, error) {
	c, err := s.blobClient(key, opts.Snapshot)
	if err != nil {
		return nil, err
	}

	resp, err := c.GetProperties(ctx, nil)
	if err != nil {
		return nil, mapError("get properties", key, err)
	}

	props := &store.ObjectProperties{
		Key:      key,
		Snapshot: opts.Snapshot,
		Size:     deref(resp.ContentLength),
		ContentSettings: store.ContentSettings{
			ContentType:        deref(resp.ContentType),
			ContentEncoding:    deref(resp.ContentEncoding),
			ContentLanguage:    deref(resp.ContentLanguage),
			ContentDisposition: deref(resp.ContentDisposition),
			CacheControl:       deref(resp.CacheControl),
			ContentMD5:         resp.ContentMD5,
		},
		Metadata: fromAzureMetadata(resp.Metadata),
		CopyID:   deref(resp.CopyID),
	}
	if resp.LastModified != nil {
		props.LastModified = *resp.LastModified
	}
	if resp.ETag != nil {
		props.ETag = string(*resp.ETag)
	}
	if resp.CopyStatus != nil {
		props.CopyStatus = copyStatus(*resp.CopyStatus)
	}
	return props, nil
}

func (s *AzureStore) GetMetadata(ctx context.Context, key string, opts store.GetOptions) (map[string]string, error) {
	props, err := s.GetProperties(ctx, key, opts)
	if err != nil {
		return nil, err
	}
	return props.Metadata, nil
}

func (s *AzureStore) Open(ctx context.Context, key string, opts store.GetOptions) (io.ReadCloser, error) {
	c, err := s.blobClient(key, opts.Snapshot)
	if err != nil {
		return nil, err
	}

	resp, err := c.DownloadStream(ctx, nil)
	if err != nil {
		return nil, mapError("download", key, err)
	}
	return resp.Body, nil
}

func (s *AzureStore) Delete(ctx context.Context, key string, opts store.DeleteOptions) error {
	c, err := s.blobClient(key, opts.Snapshot)
	if err != nil {
		return err
	}

	deleteOpts := &blob.DeleteOptions{}
	if opts.Snapshot == "" {
		switch opts.Snapshots {
		case store.DeleteSnapshotsInclude:
			deleteOpts.DeleteSnapshots = to.Ptr(blob.DeleteSnapshotsOptionTypeInclude)
		case store.DeleteSnapshotsOnly:
			deleteOpts.DeleteSnapshots = to.Ptr(blob.DeleteSnapshotsOptionTypeOnly)
		}
	}

	_, err = c.Delete(ctx, deleteOpts)
	return mapError("delete", key, err)
}

func (s *AzureStore) StartCopy(ctx context.Context, src store.ObjectRef, dstKey string) (*store.CopyInfo, error) {
	source, err := s.blobClient(src.Key, src.Snapshot)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.NewBlobClient(dstKey).StartCopyFromURL(ctx, source.URL(), nil)
	if err != nil {
		return nil, mapError("start copy", src.Key, err)
	}

	info := &store.CopyInfo{ID: deref(resp.CopyID), Status: store.CopyPending}
	if resp.CopyStatus != nil {
		info.Status = copyStatus(*resp.CopyStatus)
	}
	return info, nil
}

func (s *AzureStore) AbortCopy(ctx context.Context, key string, copyID string) error {
	_, err := s.client.NewBlobClient(key).AbortCopyFromURL(ctx, copyID, nil)
	return mapError("abort copy", key, err)
}

func (s *AzureStore) CreateSnapshot(ctx context.Context, key string, metadata map[string]string) (string, error) {
	opts := &blob.CreateSnapshotOptions{}
	if metadata != nil {
		opts.Metadata = toAzureMetadata(metadata)
	}

	resp, err := s.client.NewBlobClient(key).CreateSnapshot(ctx, opts)
	if err != nil {
		return "", mapError("snapshot", key, err)
	}
	return deref(resp.Snapshot), nil
}

func (s *AzureStore) SetMetadata(ctx context.Context, key string, metadata map[string]string, opts store.GetOptions) error {
	if opts.Snapshot != "" {
		return fmt.Errorf("azure: set metadata on snapshot %s of %s: %w", opts.Snapshot, key, store.ErrNotSupported)
	}

	_, err := s.client.NewBlobClient(key).SetMetadata(ctx, toAzureMetadata(metadata), nil)
	return mapError("set metadata", key, err)
}

func (s *AzureStore) ContainerProperties(ctx context.Context) (*store.ContainerProperties, error) {
	resp, err := s.client.GetProperties(ctx, nil)
	if err != nil {
		return nil, mapError("container properties", s.container, err)
	}

	props := &store.ContainerProperties{Metadata: fromAzureMetadata(resp.Metadata)}
	if resp.LastModified != nil {
		props.LastModified = *resp.LastModified
	}
	return props, nil
}

// URL returns the blob URL, with a snapshot query parameter when set.
func (s *AzureStore) URL(key string, snapshot string) string {
	c, err := s.blobClient(key, snapshot)
	if err != nil {
		return s.client.NewBlobClient(key).URL()
	}
	return c.URL()
}

// Close is a no-op: the SDK client holds no resources that need releasing.
func (s *AzureStore) Close() error { return nil }

// ============================================================================
// Conversions
// ============================================================================

func toHTTPHeaders(cs store.ContentSettings) *blob.HTTPHeaders {
	h := &blob.HTTPHeaders{BlobContentMD5: cs.ContentMD5}
	if cs.ContentType != "" {
		h.BlobContentType = to.Ptr(cs.ContentType)
	}
	if cs.ContentEncoding != "" {
		h.BlobContentEncoding = to.Ptr(cs.ContentEncoding)
	}
	if cs.ContentLanguage != "" {
		h.BlobContentLanguage = to.Ptr(cs.ContentLanguage)
	}
	if cs.ContentDisposition != "" {
		h.BlobContentDisposition = to.Ptr(cs.ContentDisposition)
	}
	if cs.CacheControl != "" {
		h.BlobCacheControl = to.Ptr(cs.CacheControl)
	}
	return h
}

func toAzureMetadata(md map[string]string) map[string]*string {
	if md == nil {
		return nil
	}
	out := make(map[string]*string, len(md))
	for k, v := range md {
		out[k] = to.Ptr(v)
	}
	return out
}

func fromAzureMetadata(md map[string]*string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		if v != nil {
			out[strings.ToLower(k)] = *v
		}
	}
	return out
}

func copyStatus[T ~string](status T) store.CopyStatus {
	switch strings.ToLower(string(status)) {
	case "pending":
		return store.CopyPending
	case "success":
		return store.CopySuccess
	case "aborted":
		return store.CopyAborted
	case "failed":
		return store.CopyFailed
	default:
		return store.CopyNone
	}
}

// mapError translates service errors into store sentinels.
func mapError(op, key string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.CannotVerifyCopySource):
		return fmt.Errorf("azure: %s %s: %w", op, key, errors.Join(store.ErrObjectNotFound, err))
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		return fmt.Errorf("azure: %s %s: %w", op, key, errors.Join(store.ErrObjectExists, err))
	case bloberror.HasCode(err, bloberror.SnapshotsPresent):
		return fmt.Errorf("azure: %s %s: %w", op, key, errors.Join(store.ErrSnapshotsPresent, err))
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("azure: %s %s: %w", op, key, errors.Join(store.ErrObjectNotFound, err))
		case http.StatusPreconditionFailed:
			return fmt.Errorf("azure: %s %s: %w", op, key, errors.Join(store.ErrObjectExists, err))
		}
	}

	return fmt.Errorf("azure: %s %s: %w", op, key, err)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
