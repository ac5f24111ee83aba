package blobfs

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/blobfs/pkg/store"
	"github.com/marmos91/blobfs/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStat_File(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	mustWrite(t, fsys, "a.txt", "Hello, World!")

	st, err := fsys.Stat(ctx, "a.txt", StatOptions{})
	require.NoError(t, err)
	assert.False(t, st.IsDirectory)
	assert.False(t, st.IsDir())
	assert.Equal(t, uint64(13), st.Size)
	assert.Equal(t, ModeRead|ModeWrite|ModeRegular, st.Mode)
	assert.Equal(t, uint32(32768|6), st.Mode)
	assert.False(t, st.ModTime.IsZero())
	assert.Contains(t, st.URL, "a.txt")
	assert.Nil(t, st.Metadata)
	assert.Nil(t, st.Snapshots)
}

func TestStat_Directory(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	require.NoError(t, fsys.Mkdir(ctx, "d"))

	st, err := fsys.Stat(ctx, "d", StatOptions{})
	require.NoError(t, err)
	assert.True(t, st.IsDirectory)
	assert.Equal(t, uint32(16384|7), st.Mode)
	assert.Equal(t, time.Unix(0, 0), st.ModTime)
	assert.Equal(t, uint64(0), st.Size)
}

func TestStat_ImplicitDirectory(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	mustWrite(t, fsys, "x/y/z.txt", "z")

	for _, p := range []string{"x", "x/y", "/x/y/"} {
		st, err := fsys.Stat(ctx, p, StatOptions{})
		require.NoError(t, err, p)
		assert.True(t, st.IsDirectory, p)
	}
}

func TestStat_SiblingPrefixIsNotDirectory(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())

	mustWrite(t, fsys, "a-b/file", "x")

	_, err := fsys.Stat(context.Background(), "a", StatOptions{})
	requireCode(t, NotFound, err)
}

func TestStat_Root(t *testing.T) {
	fsys, s := newTestFS(t, memoryConfig())
	ctx := context.Background()

	container, err := s.ContainerProperties(ctx)
	require.NoError(t, err)

	for _, p := range []string{"", "/", "."} {
		st, err := fsys.Stat(ctx, p, StatOptions{})
		require.NoError(t, err)
		assert.True(t, st.IsDirectory)
		assert.Equal(t, dirMode, st.Mode)
		assert.Equal(t, container.LastModified, st.ModTime)
	}
}

func TestStat_NotFound(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())

	_, err := fsys.Stat(context.Background(), "missing", StatOptions{})
	requireCode(t, NotFound, err)
}

func TestStat_Metadata(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	require.NoError(t, fsys.WriteFile(ctx, "doc", []byte("x"), WriteOptions{
		ContentSettings: store.ContentSettings{ContentType: "text/plain"},
		Metadata:        map[string]string{"owner": "alice"},
	}))

	st, err := fsys.Stat(ctx, "doc", StatOptions{Metadata: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "alice"}, st.Metadata)
	require.NotNil(t, st.ContentSettings)
	assert.Equal(t, "text/plain", st.ContentSettings.ContentType)
}

func TestStat_SnapshotAndSnapshotsConflict(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	mustWrite(t, fsys, "doc", "x")

	_, err := fsys.Stat(context.Background(), "doc", StatOptions{Snapshot: "id", Snapshots: true})
	requireCode(t, NotImplemented, err)
}

func TestStat_MissingSnapshot(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	mustWrite(t, fsys, "d/file", "x")

	_, err := fsys.Stat(ctx, "d/file", StatOptions{Snapshot: "nope"})
	requireCode(t, NotFound, err)

	_, err = fsys.Stat(ctx, "d", StatOptions{Snapshot: "nope"})
	requireCode(t, NotFound, err)
}

func TestStat_BackendFailure(t *testing.T) {
	fsys, _ := newTestFS(t, memory.Config{
		Fault: func(op, key string) error {
			if op == "GetProperties" {
				return assert.AnError
			}
			return nil
		},
	})

	_, err := fsys.Stat(context.Background(), "doc", StatOptions{})
	requireCode(t, Unknown, err)
	assert.ErrorIs(t, err, assert.AnError)
}
