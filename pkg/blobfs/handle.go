package blobfs

import (
	"context"

	"github.com/marmos91/blobfs/pkg/store"
)

// FileHandle is the result of Open. It holds no descriptor; it only names a
// path, the mode it was opened with and, optionally, a pinned snapshot.
type FileHandle struct {
	Path     string
	Flags    Flag
	Snapshot string
}

// Open checks that p can be opened with flags and returns a handle.
//
// Supported flags are "r", "w" and "wx". "wx" requires p to be absent
// (AlreadyExists otherwise); "r" and "w" require it to exist (NotFound
// otherwise). Any other flag fails with NotImplemented.
func (fsys *FS) Open(ctx context.Context, p string, flags Flag, opts OpenOptions) (*FileHandle, error) {
	p = Normalize(p)

	var h *FileHandle
	err := fsys.run(ctx, "open", p, func(ctx context.Context) error {
		switch flags {
		case FlagRead, FlagWrite, FlagWriteExclusive:
		default:
			return newError(NotImplemented, "open", p)
		}

		_, err := fsys.store.GetProperties(ctx, p, store.GetOptions{Snapshot: opts.Snapshot})
		exists := err == nil
		if err != nil && !isNotFound(err) {
			return err
		}

		if flags.exclusive() {
			if exists {
				return newError(AlreadyExists, "open", p)
			}
		} else if !exists {
			return newError(NotFound, "open", p)
		}

		h = &FileHandle{Path: p, Flags: flags, Snapshot: opts.Snapshot}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}
