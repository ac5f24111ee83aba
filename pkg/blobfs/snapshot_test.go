package blobfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_ReadOldVersion(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	mustWrite(t, fsys, "f.txt", "before")
	id, err := fsys.Snapshot(ctx, "f.txt", SnapshotOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	mustWrite(t, fsys, "f.txt", "after!")

	assert.Equal(t, "before", mustRead(t, fsys, "f.txt", ReadOptions{Snapshot: id}))
	assert.Equal(t, "after!", mustRead(t, fsys, "f.txt", ReadOptions{}))

	st, err := fsys.Stat(ctx, "f.txt", StatOptions{Snapshots: true})
	require.NoError(t, err)
	require.Len(t, st.Snapshots, 2)
	assert.Equal(t, id, st.Snapshots[0].ID)
	assert.Equal(t, "", st.Snapshots[1].ID)
	assert.False(t, st.Snapshots[1].ModTime.Before(st.Snapshots[0].ModTime))
	assert.Equal(t, uint64(6), st.Snapshots[0].Size)
	assert.Contains(t, st.Snapshots[0].URL, "snapshot="+id)
	assert.NotContains(t, st.Snapshots[1].URL, "snapshot=")
}

func TestSnapshot_StatPinned(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	mustWrite(t, fsys, "f", "12345")
	id, err := fsys.Snapshot(ctx, "f", SnapshotOptions{Metadata: map[string]string{"tag": "v1"}})
	require.NoError(t, err)
	mustWrite(t, fsys, "f", "1")

	st, err := fsys.Stat(ctx, "f", StatOptions{Snapshot: id, Metadata: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), st.Size)
	assert.Equal(t, "v1", st.Metadata["tag"])
	assert.Contains(t, st.URL, id)
}

func TestSnapshot_History(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())
	ctx := context.Background()

	var ids []string
	for _, content := range []string{"one", "two", "three"} {
		mustWrite(t, fsys, "log", content)
		id, err := fsys.Snapshot(ctx, "log", SnapshotOptions{Metadata: map[string]string{"v": content}})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	mustWrite(t, fsys, "log-other", "sibling sharing the prefix")

	st, err := fsys.Stat(ctx, "log", StatOptions{Snapshots: true, Metadata: true})
	require.NoError(t, err)
	require.Len(t, st.Snapshots, 4)
	for i, id := range ids {
		assert.Equal(t, id, st.Snapshots[i].ID)
	}
	assert.Equal(t, "two", st.Snapshots[1].Metadata["v"])
	for i := 1; i < len(st.Snapshots); i++ {
		assert.False(t, st.Snapshots[i].ModTime.Before(st.Snapshots[i-1].ModTime))
	}
}

func TestSnapshot_NotFound(t *testing.T) {
	fsys, _ := newTestFS(t, memoryConfig())

	_, err := fsys.Snapshot(context.Background(), "missing", SnapshotOptions{})
	requireCode(t, NotFound, err)
}
