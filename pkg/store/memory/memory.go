// Package memory implements an in-process ObjectStore.
//
// Keys are kept in an ordered B-tree so listings, prefix roll-up and
// continuation tokens behave like a real blob service. Server-side copies can
// be configured to stay pending for a number of polls and to settle in any
// terminal state, which makes the store suitable for exercising copy polling
// and rollback paths in tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/blobfs/pkg/store"
	"github.com/tidwall/btree"
)

// Config configures a MemoryStore.
type Config struct {
	// Container is the name reported by Name and used in URLs.
	Container string `mapstructure:"container"`

	// PendingPolls is the number of GetProperties calls on a copy destination
	// that report CopyPending before the copy settles.
	PendingPolls int `mapstructure:"pending_polls"`

	// CopyResult decides the terminal state of each copy. nil means success.
	CopyResult func(src store.ObjectRef, dstKey string) store.CopyStatus `mapstructure:"-"`

	// Fault is consulted before every operation; a non-nil error is returned
	// instead of performing it.
	Fault func(op, key string) error `mapstructure:"-"`

	// Now overrides the clock.
	Now func() time.Time `mapstructure:"-"`
}

type version struct {
	snapshot        string
	data            []byte
	lastModified    time.Time
	etag            string
	contentSettings store.ContentSettings
	metadata        map[string]string
}

type pendingCopy struct {
	id        string
	status    store.CopyStatus
	remaining int
	result    store.CopyStatus
}

type object struct {
	live      *version
	snapshots []*version
	copy      *pendingCopy
}

// MemoryStore implements store.ObjectStore in memory.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Content is copied on the
// way in and on the way out so callers never share buffers with the store.
type MemoryStore struct {
	cfg     Config
	objects btree.Map[string, *object]
	created time.Time
	last    time.Time
	closed  bool
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(ctx context.Context, cfg Config) (*MemoryStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Container == "" {
		cfg.Container = "memory"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &MemoryStore{cfg: cfg}
	s.created = s.now()
	return s, nil
}

// now returns a strictly increasing timestamp. Must be called with mu held
// (or before the store is shared).
func (s *MemoryStore) now() time.Time {
	t := s.cfg.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *MemoryStore) check(ctx context.Context, op, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return store.ErrStoreClosed
	}
	if s.cfg.Fault != nil {
		if err := s.cfg.Fault(op, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Name() string {
	return s.cfg.Container
}

func (s *MemoryStore) Put(ctx context.Context, key string, body io.Reader, opts store.PutOptions) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body for %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "Put", key); err != nil {
		return err
	}

	obj, ok := s.objects.Get(key)
	if ok && opts.IfNotExists {
		return fmt.Errorf("object %s: %w", key, store.ErrObjectExists)
	}
	if !ok {
		obj = &object{}
		s.objects.Set(key, obj)
	}

	obj.live = &version{
		data:            data,
		lastModified:    s.now(),
		etag:            uuid.NewString(),
		contentSettings: opts.ContentSettings,
		metadata:        cloneMetadata(opts.Metadata),
	}
	obj.copy = nil
	return nil
}

// lookup resolves a version. Must be called with mu held.
func (s *MemoryStore) lookup(key, snapshot string) (*object, *version, error) {
	obj, ok := s.objects.Get(key)
	if !ok {
		return nil, nil, fmt.Errorf("object %s: %w", key, store.ErrObjectNotFound)
	}
	if snapshot == "" {
		return obj, obj.live, nil
	}
	for _, v := range obj.snapshots {
		if v.snapshot == snapshot {
			return obj, v, nil
		}
	}
	return nil, nil, fmt.Errorf("object %s snapshot %s: %w", key, snapshot, store.ErrObjectNotFound)
}

func (s *MemoryStore) GetProperties(ctx context.Context, key string, opts store.GetOptions) (*store.ObjectProperties, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "GetProperties", key); err != nil {
		return nil, err
	}

	obj, v, err := s.lookup(key, opts.Snapshot)
	if err != nil {
		return nil, err
	}

	props := &store.ObjectProperties{
		Key:             key,
		Snapshot:        v.snapshot,
		Size:            int64(len(v.data)),
		LastModified:    v.lastModified,
		ETag:            v.etag,
		ContentSettings: v.contentSettings,
		Metadata:        cloneMetadata(v.metadata),
	}

	if opts.Snapshot == "" && obj.copy != nil {
		s.advanceCopy(obj)
		props.CopyID = obj.copy.id
		props.CopyStatus = obj.copy.status
	}

	return props, nil
}

// advanceCopy counts one status poll against a pending copy.
func (s *MemoryStore) advanceCopy(obj *object) {
	c := obj.copy
	if c.status != store.CopyPending {
		return
	}
	c.remaining--
	if c.remaining <= 0 {
		c.status = c.result
		if c.status != store.CopySuccess {
			obj.live.data = nil
		}
	}
}

func (s *MemoryStore) GetMetadata(ctx context.Context, key string, opts store.GetOptions) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "GetMetadata", key); err != nil {
		return nil, err
	}

	_, v, err := s.lookup(key, opts.Snapshot)
	if err != nil {
		return nil, err
	}
	return cloneMetadata(v.metadata), nil
}

func (s *MemoryStore) Open(ctx context.Context, key string, opts store.GetOptions) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "Open", key); err != nil {
		return nil, err
	}

	_, v, err := s.lookup(key, opts.Snapshot)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(v.data))), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string, opts store.DeleteOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "Delete", key); err != nil {
		return err
	}

	obj, ok := s.objects.Get(key)
	if !ok {
		return fmt.Errorf("object %s: %w", key, store.ErrObjectNotFound)
	}

	if opts.Snapshot != "" {
		for i, v := range obj.snapshots {
			if v.snapshot == opts.Snapshot {
				obj.snapshots = append(obj.snapshots[:i], obj.snapshots[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("object %s snapshot %s: %w", key, opts.Snapshot, store.ErrObjectNotFound)
	}

	switch opts.Snapshots {
	case store.DeleteSnapshotsOnly:
		obj.snapshots = nil
	case store.DeleteSnapshotsNone:
		if len(obj.snapshots) > 0 {
			return fmt.Errorf("object %s: %w", key, store.ErrSnapshotsPresent)
		}
		s.objects.Delete(key)
	default:
		s.objects.Delete(key)
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, opts store.ListOptions) (*store.ListPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "List", opts.Prefix); err != nil {
		return nil, err
	}

	cursor, err := store.DecodeToken(opts.Token)
	if err != nil {
		return nil, err
	}

	pivot := opts.Prefix
	if cursor.Key > pivot {
		pivot = cursor.Key
	}

	b := store.NewPageBuilder(opts)
	s.objects.Ascend(pivot, func(key string, obj *object) bool {
		if !strings.HasPrefix(key, opts.Prefix) {
			return false
		}
		if b.Skip(key) {
			return true
		}

		versions := obj.versions(opts.Include.Snapshots)
		start := 0
		if key == cursor.Key {
			start = cursor.Version
		}
		for i := start; i < len(versions); i++ {
			if !b.Add(entryOf(key, versions[i], opts.Include.Metadata), i) {
				return false
			}
		}
		return true
	})

	return b.Page(), nil
}

func (o *object) versions(snapshots bool) []*version {
	if !snapshots {
		return []*version{o.live}
	}
	out := make([]*version, 0, len(o.snapshots)+1)
	out = append(out, o.snapshots...)
	return append(out, o.live)
}

func entryOf(key string, v *version, withMetadata bool) store.ObjectEntry {
	entry := store.ObjectEntry{
		Name:            key,
		Snapshot:        v.snapshot,
		Size:            int64(len(v.data)),
		LastModified:    v.lastModified,
		ContentSettings: v.contentSettings,
	}
	if withMetadata {
		entry.Metadata = cloneMetadata(v.metadata)
	}
	return entry
}

func (s *MemoryStore) StartCopy(ctx context.Context, src store.ObjectRef, dstKey string) (*store.CopyInfo, error) {
	if dstKey == "" {
		return nil, store.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "StartCopy", src.Key); err != nil {
		return nil, err
	}

	_, v, err := s.lookup(src.Key, src.Snapshot)
	if err != nil {
		return nil, err
	}

	result := store.CopySuccess
	if s.cfg.CopyResult != nil {
		result = s.cfg.CopyResult(src, dstKey)
	}

	c := &pendingCopy{
		id:        uuid.NewString(),
		status:    result,
		remaining: s.cfg.PendingPolls,
		result:    result,
	}
	if c.remaining > 0 {
		c.status = store.CopyPending
	}

	dst, ok := s.objects.Get(dstKey)
	if !ok {
		dst = &object{}
		s.objects.Set(dstKey, dst)
	}
	dst.live = &version{
		data:            bytes.Clone(v.data),
		lastModified:    s.now(),
		etag:            uuid.NewString(),
		contentSettings: v.contentSettings,
		metadata:        cloneMetadata(v.metadata),
	}
	dst.copy = c
	if c.status != store.CopyPending && c.status != store.CopySuccess {
		dst.live.data = nil
	}

	return &store.CopyInfo{ID: c.id, Status: c.status}, nil
}

func (s *MemoryStore) AbortCopy(ctx context.Context, key string, copyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "AbortCopy", key); err != nil {
		return err
	}

	obj, ok := s.objects.Get(key)
	if !ok {
		return fmt.Errorf("object %s: %w", key, store.ErrObjectNotFound)
	}
	if obj.copy == nil || obj.copy.id != copyID || obj.copy.status != store.CopyPending {
		return fmt.Errorf("object %s: no pending copy %s", key, copyID)
	}

	obj.copy.status = store.CopyAborted
	obj.live.data = nil
	return nil
}

func (s *MemoryStore) CreateSnapshot(ctx context.Context, key string, metadata map[string]string) (string, error) {
	if key == "" {
		return "", store.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "CreateSnapshot", key); err != nil {
		return "", err
	}

	obj, v, err := s.lookup(key, "")
	if err != nil {
		return "", err
	}

	md := v.metadata
	if metadata != nil {
		md = metadata
	}

	snap := &version{
		snapshot:        uuid.Must(uuid.NewV7()).String(),
		data:            bytes.Clone(v.data),
		lastModified:    v.lastModified,
		etag:            v.etag,
		contentSettings: v.contentSettings,
		metadata:        cloneMetadata(md),
	}
	obj.snapshots = append(obj.snapshots, snap)
	return snap.snapshot, nil
}

func (s *MemoryStore) SetMetadata(ctx context.Context, key string, metadata map[string]string, opts store.GetOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "SetMetadata", key); err != nil {
		return err
	}

	if opts.Snapshot != "" {
		return fmt.Errorf("set metadata on snapshot %s of %s: %w", opts.Snapshot, key, store.ErrNotSupported)
	}

	_, v, err := s.lookup(key, "")
	if err != nil {
		return err
	}
	v.metadata = cloneMetadata(metadata)
	v.lastModified = s.now()
	return nil
}

func (s *MemoryStore) ContainerProperties(ctx context.Context) (*store.ContainerProperties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "ContainerProperties", ""); err != nil {
		return nil, err
	}
	return &store.ContainerProperties{LastModified: s.created}, nil
}

func (s *MemoryStore) URL(key string, snapshot string) string {
	u := url.URL{Scheme: "memory", Host: s.cfg.Container, Path: "/" + key}
	if snapshot != "" {
		u.RawQuery = url.Values{"snapshot": {snapshot}}.Encode()
	}
	return u.String()
}

// Close discards all objects. Further calls fail with store.ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = btree.Map[string, *object]{}
	s.closed = true
	return nil
}

func cloneMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	return maps.Clone(md)
}
