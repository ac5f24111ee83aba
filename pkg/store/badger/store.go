// Package badger implements a persistent ObjectStore on BadgerDB.
//
// Objects, their snapshots and the container record live in one BadgerDB
// directory (see keys.go for the key schema). Server-side copies complete
// inside a single transaction, so StartCopy always reports CopySuccess.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	"github.com/marmos91/blobfs/pkg/store"
)

// Config contains configuration for creating a BadgerDB object store.
type Config struct {
	// DBPath is the directory where BadgerDB stores its files.
	// Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path" validate:"required_without=InMemory"`

	// Container is the name reported by Name and used in URLs.
	Container string `mapstructure:"container"`

	// InMemory keeps the whole database in memory (nothing is persisted).
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// BadgerStore implements store.ObjectStore using BadgerDB for persistence.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use. The only state kept
// outside the database is the modification clock, guarded by clockMu.
type BadgerStore struct {
	db        *badger.DB
	container containerRecord
	closed    atomic.Bool

	clockMu sync.Mutex
	last    time.Time
}

// NewBadgerStore opens (or creates) the database described by config.
func NewBadgerStore(ctx context.Context, config Config) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	s := &BadgerStore{db: db}
	if err := s.initializeContainer(config.Container); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}

	return s, nil
}

// initializeContainer loads the container record, creating it on first open.
func (s *BadgerStore) initializeContainer(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyContainer))
		if err == nil {
			return item.Value(func(val []byte) error {
				c, err := decodeContainer(val)
				if err != nil {
					return err
				}
				s.container = *c
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if name == "" {
			name = "badger"
		}
		s.container = containerRecord{Name: name, Created: time.Now().UTC()}
		data, err := encodeContainer(&s.container)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyContainer), data)
	})
}

// now returns a strictly increasing timestamp.
func (s *BadgerStore) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *BadgerStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return store.ErrStoreClosed
	}
	return nil
}

func (s *BadgerStore) Name() string {
	return s.container.Name
}

// ============================================================================
// Reads
// ============================================================================

// getRecord loads one version record inside txn.
func getRecord(txn *badger.Txn, key, snapshot string) (*record, error) {
	item, err := txn.Get(keyRecord(key, snapshot))
	if errors.Is(err, badger.ErrKeyNotFound) {
		if snapshot != "" {
			return nil, fmt.Errorf("object %s snapshot %s: %w", key, snapshot, store.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("object %s: %w", key, store.ErrObjectNotFound)
	}
	if err != nil {
		return nil, err
	}

	var r *record
	err = item.Value(func(val []byte) error {
		r, err = decodeRecord(val)
		return err
	})
	return r, err
}

func getData(txn *badger.Txn, key, snapshot string) ([]byte, error) {
	item, err := txn.Get(keyData(key, snapshot))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (s *BadgerStore) GetProperties(ctx context.Context, key string, opts store.GetOptions) (*store.ObjectProperties, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var props *store.ObjectProperties
	err := s.db.View(func(txn *badger.Txn) error {
		r, err := getRecord(txn, key, opts.Snapshot)
		if err != nil {
			return err
		}
		props = r.properties(key, opts.Snapshot)
		return nil
	})
	return props, err
}

func (s *BadgerStore) GetMetadata(ctx context.Context, key string, opts store.GetOptions) (map[string]string, error) {
	props, err := s.GetProperties(ctx, key, opts)
	if err != nil {
		return nil, err
	}
	return props.Metadata, nil
}

func (s *BadgerStore) Open(ctx context.Context, key string, opts store.GetOptions) (io.ReadCloser, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getRecord(txn, key, opts.Snapshot); err != nil {
			return err
		}
		var err error
		data, err = getData(txn, key, opts.Snapshot)
		return err
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BadgerStore) ContainerProperties(ctx context.Context) (*store.ContainerProperties, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return &store.ContainerProperties{LastModified: s.container.Created}, nil
}

func (s *BadgerStore) URL(key string, snapshot string) string {
	u := url.URL{Scheme: "badger", Host: s.container.Name, Path: "/" + key}
	if snapshot != "" {
		u.RawQuery = url.Values{"snapshot": {snapshot}}.Encode()
	}
	return u.String()
}

// ============================================================================
// Writes
// ============================================================================

// setVersion writes the record and data of one version.
func setVersion(txn *badger.Txn, key, snapshot string, r *record, data []byte) error {
	encoded, err := encodeRecord(r)
	if err != nil {
		return err
	}
	if err := txn.Set(keyRecord(key, snapshot), encoded); err != nil {
		return err
	}
	return txn.Set(keyData(key, snapshot), data)
}

func deleteVersion(txn *badger.Txn, key, snapshot string) error {
	if err := txn.Delete(keyRecord(key, snapshot)); err != nil {
		return err
	}
	return txn.Delete(keyData(key, snapshot))
}

// snapshotIDs returns the ids of every snapshot of key, oldest first.
func snapshotIDs(txn *badger.Txn, key string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = keySnapshotPrefix(key)

	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		if _, id, ok := parseRecordKey(it.Item().Key()); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *BadgerStore) Put(ctx context.Context, key string, body io.Reader, opts store.PutOptions) error {
	if !validKey(key) {
		return fmt.Errorf("%q: %w", key, store.ErrInvalidKey)
	}
	if err := s.check(ctx); err != nil {
		return err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body for %s: %w", key, err)
	}

	r := &record{
		Size:            int64(len(data)),
		LastModified:    s.now(),
		ETag:            uuid.NewString(),
		ContentSettings: opts.ContentSettings,
		Metadata:        opts.Metadata,
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if opts.IfNotExists {
			_, err := txn.Get(keyRecord(key, ""))
			if err == nil {
				return fmt.Errorf("object %s: %w", key, store.ErrObjectExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return setVersion(txn, key, "", r, data)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, key string, opts store.DeleteOptions) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if opts.Snapshot != "" {
			if _, err := getRecord(txn, key, opts.Snapshot); err != nil {
				return err
			}
			return deleteVersion(txn, key, opts.Snapshot)
		}

		if _, err := getRecord(txn, key, ""); err != nil {
			return err
		}
		ids := snapshotIDs(txn, key)

		switch opts.Snapshots {
		case store.DeleteSnapshotsNone:
			if len(ids) > 0 {
				return fmt.Errorf("object %s: %w", key, store.ErrSnapshotsPresent)
			}
			return deleteVersion(txn, key, "")
		case store.DeleteSnapshotsOnly:
		default:
			if err := deleteVersion(txn, key, ""); err != nil {
				return err
			}
		}

		for _, id := range ids {
			if err := deleteVersion(txn, key, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// StartCopy copies src into dstKey within one transaction. The copy is
// complete when StartCopy returns.
func (s *BadgerStore) StartCopy(ctx context.Context, src store.ObjectRef, dstKey string) (*store.CopyInfo, error) {
	if !validKey(dstKey) {
		return nil, fmt.Errorf("%q: %w", dstKey, store.ErrInvalidKey)
	}
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	info := &store.CopyInfo{ID: uuid.NewString(), Status: store.CopySuccess}
	modified := s.now()

	err := s.db.Update(func(txn *badger.Txn) error {
		r, err := getRecord(txn, src.Key, src.Snapshot)
		if err != nil {
			return err
		}
		data, err := getData(txn, src.Key, src.Snapshot)
		if err != nil {
			return err
		}

		r.LastModified = modified
		r.ETag = uuid.NewString()
		r.CopyID = info.ID
		r.CopyStatus = info.Status
		return setVersion(txn, dstKey, "", r, data)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// AbortCopy always fails: copies never stay pending in this store.
func (s *BadgerStore) AbortCopy(ctx context.Context, key string, copyID string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return fmt.Errorf("object %s: no pending copy %s", key, copyID)
}

func (s *BadgerStore) CreateSnapshot(ctx context.Context, key string, metadata map[string]string) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}

	id := uuid.Must(uuid.NewV7()).String()
	err := s.db.Update(func(txn *badger.Txn) error {
		r, err := getRecord(txn, key, "")
		if err != nil {
			return err
		}
		data, err := getData(txn, key, "")
		if err != nil {
			return err
		}

		if metadata != nil {
			r.Metadata = metadata
		}
		r.CopyID, r.CopyStatus = "", store.CopyNone
		return setVersion(txn, key, id, r, data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *BadgerStore) SetMetadata(ctx context.Context, key string, metadata map[string]string, opts store.GetOptions) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if opts.Snapshot != "" {
		return fmt.Errorf("set metadata on snapshot %s of %s: %w", opts.Snapshot, key, store.ErrNotSupported)
	}

	modified := s.now()
	return s.db.Update(func(txn *badger.Txn) error {
		r, err := getRecord(txn, key, "")
		if err != nil {
			return err
		}
		r.Metadata = metadata
		r.LastModified = modified

		encoded, err := encodeRecord(r)
		if err != nil {
			return err
		}
		return txn.Set(keyRecord(key, ""), encoded)
	})
}

// Close closes the BadgerDB database. Further calls fail with
// store.ErrStoreClosed.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
