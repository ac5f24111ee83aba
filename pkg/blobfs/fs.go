// Package blobfs emulates a POSIX-flavored filesystem on top of a flat
// object store.
//
// Directories are witnessed by zero-length marker objects and inferred from
// key prefixes. Rename is a server-side copy followed by a delete of the
// source, with compensating cleanup when any step fails. Files can carry
// immutable snapshots, which survive a rename.
//
// Every operation returns either a result or a single *Error carrying one
// Code from the filesystem taxonomy.
//
// Usage:
//
//	s, _ := memory.NewMemoryStore(ctx, memory.Config{})
//	fsys, _ := blobfs.New(s, blobfs.Options{})
//
//	_ = fsys.Mkdir(ctx, "docs")
//	_ = fsys.WriteFile(ctx, "docs/a.txt", []byte("Hello, World!"), blobfs.WriteOptions{})
//	st, _ := fsys.Stat(ctx, "docs/a.txt", blobfs.StatOptions{})
package blobfs

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/blobfs/internal/logger"
	"github.com/marmos91/blobfs/pkg/store"
)

// FS is the filesystem facade. It is safe for concurrent use; it holds no
// mutable state of its own.
type FS struct {
	store         store.ObjectStore
	delim         string
	checkInterval time.Duration
	renameTimeout time.Duration
	metrics       Metrics
}

// New creates an FS over s.
func New(s store.ObjectStore, opts Options) (*FS, error) {
	if s == nil {
		return nil, errors.New("blobfs: object store is required")
	}

	opts.applyDefaults()

	return &FS{
		store:         s,
		delim:         opts.Delimiter,
		checkInterval: opts.RenameCheckInterval,
		renameTimeout: opts.RenameTimeout,
		metrics:       opts.Metrics,
	}, nil
}

// Store returns the underlying object store.
func (fsys *FS) Store() store.ObjectStore {
	return fsys.store
}

// Close closes the underlying object store.
func (fsys *FS) Close() error {
	return fsys.store.Close()
}

// run executes one operation: it logs it, maps its error into the taxonomy
// and records its outcome.
func (fsys *FS) run(ctx context.Context, op, path string, fn func(ctx context.Context) error) error {
	start := time.Now()
	logger.Debug("%s(%q)", op, path)

	err := mapError(op, path, fn(ctx))

	fsys.metrics.ObserveOperation(op, time.Since(start), string(codeOf(err)))
	if err != nil {
		logger.Debug("%s(%q) failed: %v", op, path, err)
	}
	return err
}

// isNotFound reports whether a backend error means the object is missing.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrObjectNotFound)
}
