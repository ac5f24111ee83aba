package blobfs

import (
	"context"
	"time"

	"github.com/marmos91/blobfs/pkg/store"
	"golang.org/x/sync/errgroup"
)

// Mode bits reported in Stat.Mode.
const (
	ModeRead    uint32 = 4
	ModeWrite   uint32 = 2
	ModeExec    uint32 = 1
	ModeRegular uint32 = 0o100000
	ModeDir     uint32 = 0o040000
)

const (
	fileMode = ModeRead | ModeWrite | ModeRegular
	dirMode  = ModeRead | ModeWrite | ModeExec | ModeDir
)

// Stat describes a file or directory.
type Stat struct {
	IsDirectory bool
	Mode        uint32
	ModTime     time.Time
	Size        uint64

	// File-only fields.
	ContentSettings *store.ContentSettings
	Metadata        map[string]string
	Snapshots       []SnapshotDescriptor
	URL             string
}

// IsDir reports whether the entry is a directory.
func (s *Stat) IsDir() bool {
	return s.IsDirectory
}

// Stat resolves p to a file, a directory or the root.
//
// A path that names an object is a file. Otherwise, a path with anything
// stored under it is a directory (with a zero-epoch modification time, since
// directories have no timestamp of their own). The root always exists and
// reports the container's modification time.
func (fsys *FS) Stat(ctx context.Context, p string, opts StatOptions) (*Stat, error) {
	p = Normalize(p)

	var st *Stat
	err := fsys.run(ctx, "stat", p, func(ctx context.Context) error {
		if opts.Snapshot != "" && opts.Snapshots {
			return newError(NotImplemented, "stat", p)
		}

		var err error
		if p == "" {
			st, err = fsys.statRoot(ctx)
		} else {
			st, err = fsys.statPath(ctx, p, opts)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (fsys *FS) statRoot(ctx context.Context) (*Stat, error) {
	props, err := fsys.store.ContainerProperties(ctx)
	if err != nil {
		return nil, err
	}
	return &Stat{IsDirectory: true, Mode: dirMode, ModTime: props.LastModified}, nil
}

func (fsys *FS) statPath(ctx context.Context, p string, opts StatOptions) (*Stat, error) {
	get := store.GetOptions{Snapshot: opts.Snapshot}

	props, err := fsys.store.GetProperties(ctx, p, get)
	if isNotFound(err) {
		if opts.Snapshot == "" {
			dir, derr := fsys.isDir(ctx, p)
			if derr != nil {
				return nil, derr
			}
			if dir {
				return &Stat{IsDirectory: true, Mode: dirMode, ModTime: time.Unix(0, 0)}, nil
			}
		}
		return nil, newError(NotFound, "stat", p)
	}
	if err != nil {
		return nil, err
	}

	settings := props.ContentSettings
	st := &Stat{
		Mode:            fileMode,
		ModTime:         props.LastModified,
		Size:            uint64(props.Size),
		ContentSettings: &settings,
		URL:             fsys.store.URL(p, opts.Snapshot),
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Metadata {
		g.Go(func() error {
			md, err := fsys.store.GetMetadata(gctx, p, get)
			if err != nil {
				return err
			}
			st.Metadata = md
			return nil
		})
	}
	if opts.Snapshots {
		g.Go(func() error {
			snaps, err := fsys.snapshots(gctx, p, opts.Metadata)
			if err != nil {
				return err
			}
			st.Snapshots = snaps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return st, nil
}
