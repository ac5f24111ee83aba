package blobfs

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/marmos91/blobfs/pkg/store"
)

// OpenReader returns a reader over file p (or the file named by
// opts.Handle). The caller closes it. Flags other than read modes fail with
// NotImplemented.
func (fsys *FS) OpenReader(ctx context.Context, p string, opts ReadOptions) (io.ReadCloser, error) {
	snapshot := opts.Snapshot
	if opts.Handle != nil {
		p, snapshot = opts.Handle.Path, opts.Handle.Snapshot
	}
	p = Normalize(p)

	var rc io.ReadCloser
	err := fsys.run(ctx, "read", p, func(ctx context.Context) error {
		if !opts.validate() {
			return newError(NotImplemented, "read", p)
		}

		r, err := fsys.store.Open(ctx, p, store.GetOptions{Snapshot: snapshot})
		if err != nil {
			return err
		}
		rc = &fileReader{ReadCloser: r, fsys: fsys, path: p}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// ReadFile returns the whole content of file p.
func (fsys *FS) ReadFile(ctx context.Context, p string, opts ReadOptions) ([]byte, error) {
	rc, err := fsys.OpenReader(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// OpenWriter returns a writer that replaces file p when closed.
//
// Content is buffered and uploaded by Close, which reports any error. With
// flag "wx" the upload fails with AlreadyExists if p exists by then.
func (fsys *FS) OpenWriter(ctx context.Context, p string, opts WriteOptions) (io.WriteCloser, error) {
	if opts.Handle != nil {
		p = opts.Handle.Path
	}
	p = Normalize(p)

	if !opts.validate() {
		return nil, newError(NotImplemented, "write", p)
	}

	return &fileWriter{ctx: ctx, fsys: fsys, path: p, opts: opts}, nil
}

// WriteFile writes data to file p, replacing it (flag "w") or creating it
// only if absent (flag "wx").
func (fsys *FS) WriteFile(ctx context.Context, p string, data []byte, opts WriteOptions) error {
	if opts.Handle != nil {
		p = opts.Handle.Path
	}
	p = Normalize(p)

	return fsys.run(ctx, "write", p, func(ctx context.Context) error {
		if !opts.validate() {
			return newError(NotImplemented, "write", p)
		}
		return fsys.put(ctx, p, data, opts)
	})
}

func (fsys *FS) put(ctx context.Context, p string, data []byte, opts WriteOptions) error {
	err := fsys.store.Put(ctx, p, bytes.NewReader(data), store.PutOptions{
		ContentSettings: opts.ContentSettings,
		Metadata:        opts.Metadata,
		IfNotExists:     opts.Flag.exclusive(),
	})
	if err == nil {
		fsys.metrics.RecordBytes("write", int64(len(data)))
	}
	return err
}

// Unlink deletes file p. By default its snapshots go with it; see
// UnlinkOptions for deleting one snapshot or the snapshots only.
func (fsys *FS) Unlink(ctx context.Context, p string, opts UnlinkOptions) error {
	p = Normalize(p)

	return fsys.run(ctx, "unlink", p, func(ctx context.Context) error {
		return fsys.store.Delete(ctx, p, store.DeleteOptions{
			Snapshot:  opts.Snapshot,
			Snapshots: opts.Snapshots,
		})
	})
}

// SetMetadata replaces the user metadata of file p.
func (fsys *FS) SetMetadata(ctx context.Context, p string, metadata map[string]string, opts SetMetadataOptions) error {
	p = Normalize(p)

	return fsys.run(ctx, "setmetadata", p, func(ctx context.Context) error {
		return fsys.store.SetMetadata(ctx, p, metadata, store.GetOptions{Snapshot: opts.Snapshot})
	})
}

// URL returns the fully qualified address of file p, optionally qualified
// with a snapshot id.
func (fsys *FS) URL(p string, snapshot string) string {
	return fsys.store.URL(Normalize(p), snapshot)
}

type fileReader struct {
	io.ReadCloser
	fsys *FS
	path string
	n    int64
}

func (r *fileReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		err = mapError("read", r.path, err)
	}
	return n, err
}

func (r *fileReader) Close() error {
	r.fsys.metrics.RecordBytes("read", r.n)
	return r.ReadCloser.Close()
}

type fileWriter struct {
	ctx    context.Context
	fsys   *FS
	path   string
	opts   WriteOptions
	buffer bytes.Buffer
	closed bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, mapError("write", w.path, errors.New("write to closed file"))
	}
	return w.buffer.Write(p)
}

func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	return w.fsys.run(w.ctx, "write", w.path, func(ctx context.Context) error {
		return w.fsys.put(ctx, w.path, w.buffer.Bytes(), w.opts)
	})
}
