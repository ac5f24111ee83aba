// Package store defines the object store capability consumed by the
// filesystem emulation layer.
//
// An ObjectStore is a flat, key-addressed namespace. It offers whole-object
// put/get/delete, prefix-filtered paginated listing, asynchronous server-side
// copy and immutable point-in-time snapshots. It has no notion of directories,
// rename or open handles; those are emulated by pkg/blobfs on top of it.
//
// Implementations:
//   - memory: in-process store for tests and ephemeral use
//   - badger: persistent embedded store
//   - azure:  Azure Blob Storage
//   - s3:     Amazon S3 and compatible services
package store

import (
	"context"
	"io"
	"time"
)

// ============================================================================
// ObjectStore Interface
// ============================================================================

// ObjectStore is the narrow capability interface the filesystem layer needs
// from a blob backend.
//
// Snapshots:
// Every read-side call accepts an optional snapshot id. The empty id always
// means the current (live) version. Snapshot ids are opaque and only
// meaningful to the store that issued them.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type ObjectStore interface {
	// Name returns the container/bucket this store is bound to.
	Name() string

	// Put writes the whole object, replacing any current version.
	//
	// With PutOptions.IfNotExists set, the write fails with ErrObjectExists
	// when the key already has a live version.
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error

	// GetProperties returns system properties, content settings, user
	// metadata and the copy status of the object.
	//
	// Returns ErrObjectNotFound if the object (or snapshot) is missing.
	GetProperties(ctx context.Context, key string, opts GetOptions) (*ObjectProperties, error)

	// GetMetadata returns only the user metadata of the object.
	GetMetadata(ctx context.Context, key string, opts GetOptions) (map[string]string, error)

	// Open returns a reader over the object's content. The caller closes it.
	Open(ctx context.Context, key string, opts GetOptions) (io.ReadCloser, error)

	// Delete removes the object, one of its snapshots, or its snapshots only,
	// depending on DeleteOptions.
	//
	// Returns ErrObjectNotFound if there is nothing to delete.
	Delete(ctx context.Context, key string, opts DeleteOptions) error

	// List returns one page of entries under ListOptions.Prefix.
	//
	// With a delimiter set, keys that contain the delimiter after the prefix
	// are rolled up into ListPage.Prefixes (each ending with the delimiter).
	// Entries are returned in ascending key order; snapshots of a key precede
	// its live version. An empty ListPage.Token marks the last page.
	List(ctx context.Context, opts ListOptions) (*ListPage, error)

	// StartCopy begins a server-side copy of src to dstKey.
	//
	// The copy may complete synchronously (CopyInfo.Status is CopySuccess) or
	// remain CopyPending, in which case callers poll the destination's
	// ObjectProperties.CopyStatus until it reaches a terminal state.
	//
	// Returns ErrObjectNotFound if the source is missing.
	StartCopy(ctx context.Context, src ObjectRef, dstKey string) (*CopyInfo, error)

	// AbortCopy cancels a pending copy into key.
	AbortCopy(ctx context.Context, key string, copyID string) error

	// CreateSnapshot records an immutable read-only copy of the object's
	// current content and metadata. A non-nil metadata replaces the metadata
	// stored with the snapshot (the live object is unchanged).
	//
	// Returns the opaque snapshot id.
	CreateSnapshot(ctx context.Context, key string, metadata map[string]string) (string, error)

	// SetMetadata replaces the user metadata of the object.
	SetMetadata(ctx context.Context, key string, metadata map[string]string, opts GetOptions) error

	// ContainerProperties returns properties of the container itself.
	ContainerProperties(ctx context.Context) (*ContainerProperties, error)

	// URL returns the fully qualified address of the object, optionally
	// qualified with a snapshot id.
	URL(key string, snapshot string) string

	// Close releases any resources held by the store.
	Close() error
}

// ============================================================================
// Types
// ============================================================================

// ContentSettings are the HTTP-level content headers stored with an object.
type ContentSettings struct {
	ContentType        string `json:"content_type,omitempty"`
	ContentEncoding    string `json:"content_encoding,omitempty"`
	ContentLanguage    string `json:"content_language,omitempty"`
	ContentDisposition string `json:"content_disposition,omitempty"`
	CacheControl       string `json:"cache_control,omitempty"`
	ContentMD5         []byte `json:"content_md5,omitempty"`
}

// CopyStatus is the state of a server-side copy as reported on the
// destination object.
type CopyStatus string

const (
	// CopyNone means the object was never the target of a copy.
	CopyNone    CopyStatus = ""
	CopyPending CopyStatus = "pending"
	CopySuccess CopyStatus = "success"
	CopyFailed  CopyStatus = "failed"
	CopyAborted CopyStatus = "aborted"
)

// Terminal reports whether the copy will not change state anymore.
func (s CopyStatus) Terminal() bool {
	return s != CopyPending
}

// ObjectProperties describes one version of an object.
type ObjectProperties struct {
	Key             string
	Snapshot        string
	Size            int64
	LastModified    time.Time
	ETag            string
	ContentSettings ContentSettings
	Metadata        map[string]string
	CopyID          string
	CopyStatus      CopyStatus
}

// ContainerProperties describes the container/bucket.
type ContainerProperties struct {
	LastModified time.Time
	Metadata     map[string]string
}

// ObjectRef addresses one version of an object.
type ObjectRef struct {
	Key      string
	Snapshot string
}

// CopyInfo is returned by StartCopy.
type CopyInfo struct {
	ID     string
	Status CopyStatus
}

// PutOptions control a whole-object write.
type PutOptions struct {
	ContentSettings ContentSettings
	Metadata        map[string]string

	// IfNotExists turns the write into a conditional create.
	IfNotExists bool
}

// GetOptions select the version to read.
type GetOptions struct {
	// Snapshot selects a snapshot; empty reads the live version.
	Snapshot string
}

// DeleteSnapshots selects what a delete does with an object's snapshots.
type DeleteSnapshots int

const (
	// DeleteSnapshotsInclude removes the object and all of its snapshots.
	DeleteSnapshotsInclude DeleteSnapshots = iota

	// DeleteSnapshotsOnly removes the snapshots and keeps the live object.
	DeleteSnapshotsOnly

	// DeleteSnapshotsNone removes only the live object. It fails with
	// ErrSnapshotsPresent if snapshots exist.
	DeleteSnapshotsNone
)

func (d DeleteSnapshots) String() string {
	switch d {
	case DeleteSnapshotsInclude:
		return "include"
	case DeleteSnapshotsOnly:
		return "only"
	case DeleteSnapshotsNone:
		return "none"
	default:
		return "unknown"
	}
}

// DeleteOptions control Delete.
type DeleteOptions struct {
	// Snapshot deletes only the given snapshot when set. Snapshots is
	// ignored in that case.
	Snapshot  string
	Snapshots DeleteSnapshots
}

// ListKind filters which kinds of entries a listing returns.
type ListKind int

const (
	// ListAll returns both rolled-up prefixes and objects.
	ListAll ListKind = iota

	// ListPrefixes returns only rolled-up prefixes.
	ListPrefixes

	// ListObjects returns only objects.
	ListObjects
)

// ListInclude requests optional details in a listing.
type ListInclude struct {
	Snapshots bool
	Metadata  bool
}

// ListOptions control one List call.
type ListOptions struct {
	Prefix string

	// Delimiter enables hierarchical listing. Empty lists flat.
	Delimiter string

	Kind ListKind

	// Token continues a previous listing. Empty starts from the beginning.
	Token string

	// MaxResults caps the number of entries (prefixes plus objects) on the
	// page. Zero means the backend default.
	MaxResults int

	Include ListInclude
}

// ObjectEntry is one object (or one snapshot of an object) in a listing.
type ObjectEntry struct {
	Name            string
	Snapshot        string
	Size            int64
	LastModified    time.Time
	ContentSettings ContentSettings
	Metadata        map[string]string
}

// ListPage is one page of a listing.
type ListPage struct {
	Prefixes []string
	Objects  []ObjectEntry

	// Token continues the listing. Empty on the last page.
	Token string
}

// Len returns the number of entries on the page.
func (p *ListPage) Len() int {
	return len(p.Prefixes) + len(p.Objects)
}
