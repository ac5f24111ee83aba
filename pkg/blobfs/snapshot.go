package blobfs

import (
	"context"
	"slices"
	"time"

	"github.com/marmos91/blobfs/pkg/store"
)

// SnapshotDescriptor describes one version of a file. ID is empty for the
// live version.
type SnapshotDescriptor struct {
	ID              string
	Metadata        map[string]string
	ContentSettings store.ContentSettings
	Size            uint64
	ModTime         time.Time
	URL             string
}

// Snapshot records an immutable copy of file p and returns its id.
func (fsys *FS) Snapshot(ctx context.Context, p string, opts SnapshotOptions) (string, error) {
	p = Normalize(p)

	var id string
	err := fsys.run(ctx, "snapshot", p, func(ctx context.Context) error {
		var err error
		id, err = fsys.store.CreateSnapshot(ctx, p, opts.Metadata)
		return err
	})
	return id, err
}

// versions lists every version of p (snapshots and the live object) in
// backend order.
func (fsys *FS) versions(ctx context.Context, p string, withMetadata bool) ([]store.ObjectEntry, error) {
	var out []store.ObjectEntry
	list := objectLister(fsys.store, store.ListOptions{
		Prefix:  p,
		Include: store.ListInclude{Snapshots: true, Metadata: withMetadata},
	})
	for entry, err := range Pages(ctx, list) {
		if err != nil {
			return nil, err
		}
		if entry.Name == p {
			out = append(out, entry)
		}
	}
	return out, nil
}

// snapshots returns the version history of p ordered by ascending
// modification time. Versions with equal times keep backend order.
func (fsys *FS) snapshots(ctx context.Context, p string, withMetadata bool) ([]SnapshotDescriptor, error) {
	entries, err := fsys.versions(ctx, p, withMetadata)
	if err != nil {
		return nil, err
	}

	out := make([]SnapshotDescriptor, 0, len(entries))
	for _, e := range entries {
		out = append(out, SnapshotDescriptor{
			ID:              e.Snapshot,
			Metadata:        e.Metadata,
			ContentSettings: e.ContentSettings,
			Size:            uint64(e.Size),
			ModTime:         e.LastModified,
			URL:             fsys.store.URL(p, e.Snapshot),
		})
	}

	slices.SortStableFunc(out, func(a, b SnapshotDescriptor) int {
		return a.ModTime.Compare(b.ModTime)
	})
	return out, nil
}
