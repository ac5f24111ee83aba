package testing

import (
	"testing"

	"github.com/marmos91/blobfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotTests executes snapshot creation, read and delete tests.
func (suite *StoreTestSuite) RunSnapshotTests(t *testing.T) {
	t.Run("Create_NotFound", suite.testSnapshotNotFound)
	t.Run("ReadOldContent", suite.testSnapshotReadOldContent)
	t.Run("MetadataOverride", suite.testSnapshotMetadataOverride)
	t.Run("ListWithSnapshots", suite.testListWithSnapshots)
	t.Run("DeleteOne", suite.testDeleteOneSnapshot)
	t.Run("DeleteOnlySnapshots", suite.testDeleteOnlySnapshots)
	t.Run("DeleteIncludeSnapshots", suite.testDeleteIncludeSnapshots)
	t.Run("DeleteNoneWithSnapshots", suite.testDeleteNoneWithSnapshots)
}

func (suite *StoreTestSuite) testSnapshotNotFound(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.CreateSnapshot(testContext(), "missing", nil)
	AssertErrorIs(t, store.ErrObjectNotFound, err)

	MustPut(t, s, "file", []byte("x"), store.PutOptions{})
	_, err = s.GetProperties(testContext(), "file", store.GetOptions{Snapshot: "no-such-snapshot"})
	AssertErrorIs(t, store.ErrObjectNotFound, err)
}

func (suite *StoreTestSuite) testSnapshotReadOldContent(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("old"), store.PutOptions{})
	id, err := s.CreateSnapshot(testContext(), "file", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	MustPut(t, s, "file", []byte("new content"), store.PutOptions{})

	assert.Equal(t, []byte("old"), MustRead(t, s, "file", id))
	assert.Equal(t, []byte("new content"), MustRead(t, s, "file", ""))

	props, err := s.GetProperties(testContext(), "file", store.GetOptions{Snapshot: id})
	require.NoError(t, err)
	assert.Equal(t, int64(3), props.Size)
}

func (suite *StoreTestSuite) testSnapshotMetadataOverride(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("x"), store.PutOptions{Metadata: map[string]string{"v": "live"}})
	id, err := s.CreateSnapshot(testContext(), "file", map[string]string{"v": "snap"})
	require.NoError(t, err)

	md, err := s.GetMetadata(testContext(), "file", store.GetOptions{Snapshot: id})
	require.NoError(t, err)
	assert.Equal(t, "snap", md["v"])

	md, err = s.GetMetadata(testContext(), "file", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "live", md["v"])
}

func (suite *StoreTestSuite) testListWithSnapshots(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "dir/file", []byte("1"), store.PutOptions{})
	first, err := s.CreateSnapshot(testContext(), "dir/file", nil)
	require.NoError(t, err)
	MustPut(t, s, "dir/file", []byte("22"), store.PutOptions{})
	second, err := s.CreateSnapshot(testContext(), "dir/file", nil)
	require.NoError(t, err)
	MustPut(t, s, "dir/file", []byte("333"), store.PutOptions{})
	MustPut(t, s, "dir/other", []byte("x"), store.PutOptions{})

	plain := MustListAll(t, s, store.ListOptions{Prefix: "dir/"})
	assert.Equal(t, []string{"dir/file", "dir/other"}, names(plain.Objects))

	page := MustListAll(t, s, store.ListOptions{Prefix: "dir/file", Include: store.ListInclude{Snapshots: true}})
	require.Len(t, page.Objects, 3)
	assert.Equal(t, first, page.Objects[0].Snapshot)
	assert.Equal(t, second, page.Objects[1].Snapshot)
	assert.Equal(t, "", page.Objects[2].Snapshot)
	assert.Equal(t, int64(3), page.Objects[2].Size)

	paged := MustListAll(t, s, store.ListOptions{Prefix: "dir/", MaxResults: 1, Include: store.ListInclude{Snapshots: true}})
	assert.Len(t, paged.Objects, 4)
}

func (suite *StoreTestSuite) testDeleteOneSnapshot(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("x"), store.PutOptions{})
	id, err := s.CreateSnapshot(testContext(), "file", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(testContext(), "file", store.DeleteOptions{Snapshot: id}))

	_, err = s.GetProperties(testContext(), "file", store.GetOptions{Snapshot: id})
	AssertErrorIs(t, store.ErrObjectNotFound, err)
	assert.Equal(t, []byte("x"), MustRead(t, s, "file", ""))
}

func (suite *StoreTestSuite) testDeleteOnlySnapshots(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("x"), store.PutOptions{})
	_, err := s.CreateSnapshot(testContext(), "file", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(testContext(), "file", store.DeleteOptions{Snapshots: store.DeleteSnapshotsOnly}))

	page := MustListAll(t, s, store.ListOptions{Prefix: "file", Include: store.ListInclude{Snapshots: true}})
	require.Len(t, page.Objects, 1)
	assert.Equal(t, "", page.Objects[0].Snapshot)
}

func (suite *StoreTestSuite) testDeleteIncludeSnapshots(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("x"), store.PutOptions{})
	id, err := s.CreateSnapshot(testContext(), "file", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(testContext(), "file", store.DeleteOptions{Snapshots: store.DeleteSnapshotsInclude}))

	_, err = s.GetProperties(testContext(), "file", store.GetOptions{})
	AssertErrorIs(t, store.ErrObjectNotFound, err)
	_, err = s.GetProperties(testContext(), "file", store.GetOptions{Snapshot: id})
	AssertErrorIs(t, store.ErrObjectNotFound, err)

	page := MustListAll(t, s, store.ListOptions{Prefix: "file", Include: store.ListInclude{Snapshots: true}})
	assert.Equal(t, 0, page.Len())
}

func (suite *StoreTestSuite) testDeleteNoneWithSnapshots(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("x"), store.PutOptions{})
	_, err := s.CreateSnapshot(testContext(), "file", nil)
	require.NoError(t, err)

	err = s.Delete(testContext(), "file", store.DeleteOptions{Snapshots: store.DeleteSnapshotsNone})
	AssertErrorIs(t, store.ErrSnapshotsPresent, err)
}
