package blobfs

import (
	"bytes"
	"context"
	"slices"

	"github.com/marmos91/blobfs/pkg/store"
	"golang.org/x/sync/errgroup"
)

// Mkdir creates directory p by writing its marker object.
//
// It fails with AlreadyExists when the marker is already present. The marker
// is written with a conditional create, so two racing Mkdir calls on a
// backend that honors it cannot both succeed.
func (fsys *FS) Mkdir(ctx context.Context, p string) error {
	p = Normalize(p)

	return fsys.run(ctx, "mkdir", p, func(ctx context.Context) error {
		if p == "" {
			return newError(AlreadyExists, "mkdir", p)
		}

		key := fsys.markerKey(p)

		page, err := fsys.store.List(ctx, store.ListOptions{Prefix: key, MaxResults: 1})
		if err != nil {
			return err
		}
		for _, obj := range page.Objects {
			if obj.Name == key {
				return newError(AlreadyExists, "mkdir", p)
			}
		}

		return fsys.store.Put(ctx, key, bytes.NewReader(nil), store.PutOptions{IfNotExists: true})
	})
}

// Rmdir removes directory p.
//
// The marker is deleted first (a missing marker is not an error), then the
// directory is probed for remaining children; any child fails the call with
// NotEmpty. The two steps are not atomic: a child created in between is
// reported as NotEmpty after the marker is already gone.
func (fsys *FS) Rmdir(ctx context.Context, p string) error {
	p = Normalize(p)

	return fsys.run(ctx, "rmdir", p, func(ctx context.Context) error {
		err := fsys.store.Delete(ctx, fsys.markerKey(p), store.DeleteOptions{})
		if err != nil && !isNotFound(err) {
			return err
		}

		found, err := fsys.anyEntry(ctx, store.ListOptions{Prefix: fsys.childPrefix(p)})
		if err != nil {
			return err
		}
		if found {
			return newError(NotEmpty, "rmdir", p)
		}
		return nil
	})
}

// ReadDir returns the sorted, de-duplicated names of the immediate children
// of directory p. Marker objects are never returned. A directory with no
// children (or no existence at all) yields an empty list.
func (fsys *FS) ReadDir(ctx context.Context, p string) ([]string, error) {
	p = Normalize(p)

	var names []string
	err := fsys.run(ctx, "readdir", p, func(ctx context.Context) error {
		prefix := fsys.childPrefix(p)
		opts := store.ListOptions{Prefix: prefix, Delimiter: fsys.delim}

		var dirs, files []string
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			prefixes, err := Collect(gctx, prefixLister(fsys.store, opts))
			if err != nil {
				return err
			}
			dirs = fsys.childNames(prefix, prefixes)
			return nil
		})

		g.Go(func() error {
			objects, err := Collect(gctx, objectLister(fsys.store, opts))
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(objects))
			for _, obj := range objects {
				keys = append(keys, obj.Name)
			}
			files = fsys.childNames(prefix, keys)
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}

		names = append(dirs, files...)
		slices.Sort(names)
		names = slices.Compact(names)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// childNames maps listing keys to child names, dropping markers.
func (fsys *FS) childNames(prefix string, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if fsys.classify(key) == EntryMarker {
			continue
		}
		if name := fsys.childName(prefix, key); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// isDir reports whether anything lives under directory p: a marker, a file
// or a deeper directory.
func (fsys *FS) isDir(ctx context.Context, p string) (bool, error) {
	return fsys.anyEntry(ctx, store.ListOptions{
		Prefix:    fsys.childPrefix(p),
		Delimiter: fsys.delim,
	})
}

// anyEntry reports whether the listing described by opts holds at least one
// entry. A backend may hide keys after applying MaxResults, so an empty page
// with a continuation token is followed rather than taken as empty.
func (fsys *FS) anyEntry(ctx context.Context, opts store.ListOptions) (bool, error) {
	opts.MaxResults = 1
	for {
		page, err := fsys.store.List(ctx, opts)
		if err != nil {
			return false, err
		}
		if page.Len() > 0 {
			return true, nil
		}
		if page.Token == "" {
			return false, nil
		}
		opts.Token = page.Token
	}
}

