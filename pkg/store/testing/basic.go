package testing

import (
	"testing"

	"github.com/marmos91/blobfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes object put/get/delete tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Put_ReadBack", suite.testPutReadBack)
	t.Run("Put_Empty", suite.testPutEmpty)
	t.Run("Put_Overwrite", suite.testPutOverwrite)
	t.Run("Put_IfNotExists", suite.testPutIfNotExists)
	t.Run("GetProperties_NotFound", suite.testGetPropertiesNotFound)
	t.Run("GetProperties_Success", suite.testGetPropertiesSuccess)
	t.Run("Metadata_RoundTrip", suite.testMetadataRoundTrip)
	t.Run("Delete_NotFound", suite.testDeleteNotFound)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("ContainerProperties", suite.testContainerProperties)
	t.Run("URL", suite.testURL)
}

// ============================================================================
// Put / Open
// ============================================================================

func (suite *StoreTestSuite) testPutReadBack(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "dir/hello.txt", []byte("Hello, World!"), store.PutOptions{})

	assert.Equal(t, []byte("Hello, World!"), MustRead(t, s, "dir/hello.txt", ""))
}

func (suite *StoreTestSuite) testPutEmpty(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "empty", nil, store.PutOptions{})

	props, err := s.GetProperties(testContext(), "empty", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), props.Size)
	assert.Empty(t, MustRead(t, s, "empty", ""))
}

func (suite *StoreTestSuite) testPutOverwrite(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("first"), store.PutOptions{})
	MustPut(t, s, "file", []byte("second"), store.PutOptions{})

	assert.Equal(t, []byte("second"), MustRead(t, s, "file", ""))
}

func (suite *StoreTestSuite) testPutIfNotExists(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("first"), store.PutOptions{IfNotExists: true})

	err := s.Put(testContext(), "file", bytesReader("second"), store.PutOptions{IfNotExists: true})
	AssertErrorIs(t, store.ErrObjectExists, err)
	assert.Equal(t, []byte("first"), MustRead(t, s, "file", ""))
}

// ============================================================================
// Properties / Metadata
// ============================================================================

func (suite *StoreTestSuite) testGetPropertiesNotFound(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.GetProperties(testContext(), "missing", store.GetOptions{})
	AssertErrorIs(t, store.ErrObjectNotFound, err)

	_, err = s.Open(testContext(), "missing", store.GetOptions{})
	AssertErrorIs(t, store.ErrObjectNotFound, err)
}

func (suite *StoreTestSuite) testGetPropertiesSuccess(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "doc.txt", []byte("Hello, World!"), store.PutOptions{
		ContentSettings: store.ContentSettings{ContentType: "text/plain"},
		Metadata:        map[string]string{"owner": "alice"},
	})

	props, err := s.GetProperties(testContext(), "doc.txt", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(13), props.Size)
	assert.Equal(t, "text/plain", props.ContentSettings.ContentType)
	assert.Equal(t, "alice", props.Metadata["owner"])
	assert.False(t, props.LastModified.IsZero())
}

func (suite *StoreTestSuite) testMetadataRoundTrip(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "doc", []byte("x"), store.PutOptions{Metadata: map[string]string{"a": "1"}})

	require.NoError(t, s.SetMetadata(testContext(), "doc", map[string]string{"b": "2"}, store.GetOptions{}))

	md, err := s.GetMetadata(testContext(), "doc", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "2"}, md)

	err = s.SetMetadata(testContext(), "missing", map[string]string{"b": "2"}, store.GetOptions{})
	AssertErrorIs(t, store.ErrObjectNotFound, err)
}

// ============================================================================
// Delete
// ============================================================================

func (suite *StoreTestSuite) testDeleteNotFound(t *testing.T) {
	s := suite.newStore(t)

	err := s.Delete(testContext(), "missing", store.DeleteOptions{})
	AssertErrorIs(t, store.ErrObjectNotFound, err)
}

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "file", []byte("x"), store.PutOptions{})
	require.NoError(t, s.Delete(testContext(), "file", store.DeleteOptions{}))

	_, err := s.GetProperties(testContext(), "file", store.GetOptions{})
	AssertErrorIs(t, store.ErrObjectNotFound, err)
}

// ============================================================================
// Container
// ============================================================================

func (suite *StoreTestSuite) testContainerProperties(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.ContainerProperties(testContext())
	require.NoError(t, err)
	assert.NotEmpty(t, s.Name())
}

func (suite *StoreTestSuite) testURL(t *testing.T) {
	s := suite.newStore(t)

	live := s.URL("dir/file.txt", "")
	snap := s.URL("dir/file.txt", "snap-1")

	assert.Contains(t, live, "file.txt")
	assert.NotEqual(t, live, snap)
	assert.Contains(t, snap, "snapshot=")
}
