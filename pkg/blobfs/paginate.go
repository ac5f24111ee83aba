package blobfs

import (
	"context"
	"iter"

	"github.com/marmos91/blobfs/pkg/store"
)

// Lister fetches one page. An empty next token ends the listing.
type Lister[T any] func(ctx context.Context, token string) (items []T, next string, err error)

// Pages walks every page of a listing lazily. Each range over the returned
// sequence starts again from the first page. Iteration stops at the first
// error, which is yielded with the zero item.
func Pages[T any](ctx context.Context, list Lister[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		token := ""
		for {
			items, next, err := list(ctx, token)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if next == "" {
				return
			}
			token = next
		}
	}
}

// Collect drains a listing into a slice in backend order.
func Collect[T any](ctx context.Context, list Lister[T]) ([]T, error) {
	var out []T
	for item, err := range Pages(ctx, list) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// objectLister lists the objects of a store listing.
func objectLister(s store.ObjectStore, opts store.ListOptions) Lister[store.ObjectEntry] {
	opts.Kind = store.ListObjects
	return func(ctx context.Context, token string) ([]store.ObjectEntry, string, error) {
		opts.Token = token
		page, err := s.List(ctx, opts)
		if err != nil {
			return nil, "", err
		}
		return page.Objects, page.Token, nil
	}
}

// prefixLister lists the rolled-up prefixes of a store listing.
func prefixLister(s store.ObjectStore, opts store.ListOptions) Lister[string] {
	opts.Kind = store.ListPrefixes
	return func(ctx context.Context, token string) ([]string, string, error) {
		opts.Token = token
		page, err := s.List(ctx, opts)
		if err != nil {
			return nil, "", err
		}
		return page.Prefixes, page.Token, nil
	}
}
