package blobfs

import (
	"strings"
	"time"

	"github.com/marmos91/blobfs/pkg/store"
)

const (
	// DefaultDelimiter separates path segments in store keys.
	DefaultDelimiter = "/"

	// DefaultRenameCheckInterval is the wait between copy status polls.
	DefaultRenameCheckInterval = 500 * time.Millisecond
)

// Options configure an FS. They are fixed once New returns.
type Options struct {
	// Delimiter separates path segments in store keys. Defaults to "/".
	Delimiter string

	// RenameCheckInterval is the wait between copy status polls during
	// Rename. Defaults to 500ms.
	RenameCheckInterval time.Duration

	// RenameTimeout bounds the whole Rename. Zero means no bound beyond the
	// caller's context.
	RenameTimeout time.Duration

	// Metrics receives per-operation observations. nil disables collection.
	Metrics Metrics
}

func (o *Options) applyDefaults() {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	if o.RenameCheckInterval <= 0 {
		o.RenameCheckInterval = DefaultRenameCheckInterval
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
}

// Flag is an open mode.
type Flag string

const (
	FlagRead           Flag = "r"
	FlagWrite          Flag = "w"
	FlagWriteExclusive Flag = "wx"
)

func (f Flag) exclusive() bool {
	return strings.Contains(string(f), "x")
}

// StatOptions select the optional parts of a Stat result.
type StatOptions struct {
	// Metadata fetches the user metadata.
	Metadata bool

	// Snapshot stats one snapshot of the file instead of the live version.
	Snapshot string

	// Snapshots lists every version of the file in Stat.Snapshots.
	// Cannot be combined with Snapshot.
	Snapshots bool
}

// SnapshotOptions control Snapshot.
type SnapshotOptions struct {
	// Metadata replaces the metadata stored with the snapshot.
	Metadata map[string]string
}

// UnlinkOptions control Unlink.
type UnlinkOptions struct {
	// Snapshot deletes only this snapshot of the file.
	Snapshot string

	// Snapshots selects what happens to the file's snapshots. The zero value
	// deletes the file together with all of its snapshots.
	Snapshots store.DeleteSnapshots
}

// SetMetadataOptions control SetMetadata.
type SetMetadataOptions struct {
	Snapshot string
}

// OpenOptions control Open.
type OpenOptions struct {
	// Snapshot pins the handle to a historical version.
	Snapshot string
}

// ReadOptions control OpenReader and ReadFile.
type ReadOptions struct {
	// Flag must be a read mode. Defaults to "r".
	Flag Flag

	// Snapshot reads a historical version.
	Snapshot string

	// Handle, when set, replaces the path argument and its snapshot.
	Handle *FileHandle
}

func (o *ReadOptions) validate() bool {
	if o.Flag == "" {
		o.Flag = FlagRead
	}
	return strings.HasPrefix(string(o.Flag), string(FlagRead))
}

// WriteOptions control OpenWriter and WriteFile.
type WriteOptions struct {
	// Flag is "w" (create or replace) or "wx" (create only). Defaults to "w".
	Flag Flag

	ContentSettings store.ContentSettings
	Metadata        map[string]string

	// Handle, when set, replaces the path argument.
	Handle *FileHandle
}

func (o *WriteOptions) validate() bool {
	if o.Flag == "" {
		o.Flag = FlagWrite
	}
	return o.Flag == FlagWrite || o.Flag == FlagWriteExclusive
}
