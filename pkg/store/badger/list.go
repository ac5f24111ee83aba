package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/blobfs/pkg/store"
)

// List scans the record namespace from the prefix (or the token's cursor)
// and feeds every version to a store.PageBuilder.
func (s *BadgerStore) List(ctx context.Context, opts store.ListOptions) (*store.ListPage, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	cursor, err := store.DecodeToken(opts.Token)
	if err != nil {
		return nil, err
	}

	seek := opts.Prefix
	if cursor.Key > seek {
		seek = cursor.Key
	}

	b := store.NewPageBuilder(opts)
	err = s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(prefixRecord + opts.Prefix)

		it := txn.NewIterator(iterOpts)
		defer it.Close()

		current, version := "", 0
		for it.Seek([]byte(prefixRecord + seek)); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			key, snapshot, ok := parseRecordKey(item.Key())
			if !ok {
				continue
			}
			if snapshot != "" && !opts.Include.Snapshots {
				continue
			}

			if key != current {
				current, version = key, 0
			} else {
				version++
			}

			if key == cursor.Key && version < cursor.Version {
				continue
			}
			if b.Skip(key) {
				continue
			}

			var r *record
			err := item.Value(func(val []byte) error {
				var err error
				r, err = decodeRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			if !b.Add(r.entry(key, snapshot, opts.Include.Metadata), version) {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return b.Page(), nil
}
