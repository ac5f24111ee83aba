package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/marmos91/blobfs/pkg/store"
	storetesting "github.com/marmos91/blobfs/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg Config) *MemoryStore {
	t.Helper()
	s, err := NewMemoryStore(context.Background(), cfg)
	require.NoError(t, err)
	return s
}

func TestMemoryStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.ObjectStore {
			return newTestStore(t, Config{Container: "test"})
		},
	}
	suite.Run(t)
}

func TestMemoryStore_PendingCopies(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.ObjectStore {
			return newTestStore(t, Config{Container: "test", PendingPolls: 3})
		},
	}
	suite.RunCopyTests(t)
}

func TestMemoryStore_CopySettlesAfterPolls(t *testing.T) {
	s := newTestStore(t, Config{PendingPolls: 2})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "src", bytes.NewReader([]byte("data")), store.PutOptions{}))

	info, err := s.StartCopy(ctx, store.ObjectRef{Key: "src"}, "dst")
	require.NoError(t, err)
	assert.Equal(t, store.CopyPending, info.Status)

	props, err := s.GetProperties(ctx, "dst", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, store.CopyPending, props.CopyStatus)

	props, err = s.GetProperties(ctx, "dst", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, store.CopySuccess, props.CopyStatus)
	assert.Equal(t, info.ID, props.CopyID)
}

func TestMemoryStore_CopyResult(t *testing.T) {
	s := newTestStore(t, Config{
		CopyResult: func(src store.ObjectRef, dst string) store.CopyStatus { return store.CopyFailed },
	})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "src", bytes.NewReader([]byte("data")), store.PutOptions{}))

	info, err := s.StartCopy(ctx, store.ObjectRef{Key: "src"}, "dst")
	require.NoError(t, err)
	assert.Equal(t, store.CopyFailed, info.Status)

	props, err := s.GetProperties(ctx, "dst", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), props.Size)
}

func TestMemoryStore_AbortCopy(t *testing.T) {
	s := newTestStore(t, Config{PendingPolls: 10})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "src", bytes.NewReader([]byte("data")), store.PutOptions{}))
	info, err := s.StartCopy(ctx, store.ObjectRef{Key: "src"}, "dst")
	require.NoError(t, err)

	require.NoError(t, s.AbortCopy(ctx, "dst", info.ID))

	props, err := s.GetProperties(ctx, "dst", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, store.CopyAborted, props.CopyStatus)

	assert.Error(t, s.AbortCopy(ctx, "dst", info.ID))
}

func TestMemoryStore_Fault(t *testing.T) {
	boom := errors.New("boom")
	s := newTestStore(t, Config{
		Fault: func(op, key string) error {
			if op == "Delete" && key == "locked" {
				return boom
			}
			return nil
		},
	})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "locked", bytes.NewReader(nil), store.PutOptions{}))
	assert.ErrorIs(t, s.Delete(ctx, "locked", store.DeleteOptions{}), boom)
	assert.NoError(t, s.Put(ctx, "other", bytes.NewReader(nil), store.PutOptions{}))
	assert.NoError(t, s.Delete(ctx, "other", store.DeleteOptions{}))
}

func TestMemoryStore_SetMetadataOnSnapshot(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "file", bytes.NewReader(nil), store.PutOptions{}))
	id, err := s.CreateSnapshot(ctx, "file", nil)
	require.NoError(t, err)

	err = s.SetMetadata(ctx, "file", map[string]string{"a": "b"}, store.GetOptions{Snapshot: id})
	assert.ErrorIs(t, err, store.ErrNotSupported)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := newTestStore(t, Config{})
	require.NoError(t, s.Close())

	_, err := s.List(context.Background(), store.ListOptions{})
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}

func TestMemoryStore_InvalidToken(t *testing.T) {
	s := newTestStore(t, Config{})

	_, err := s.List(context.Background(), store.ListOptions{Token: "!!not-base64!!"})
	assert.Error(t, err)
}

func TestMemoryStore_EmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})

	require.NoError(t, s.Put(ctx, "src", bytes.NewReader([]byte("x")), store.PutOptions{}))

	_, err := s.StartCopy(ctx, store.ObjectRef{Key: "src"}, "")
	assert.ErrorIs(t, err, store.ErrInvalidKey)

	_, err = s.CreateSnapshot(ctx, "", nil)
	assert.ErrorIs(t, err, store.ErrInvalidKey)

	err = s.Put(ctx, "", bytes.NewReader(nil), store.PutOptions{})
	assert.ErrorIs(t, err, store.ErrInvalidKey)
}
