package testing

import (
	"testing"

	"github.com/marmos91/blobfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCopyTests executes server-side copy tests.
func (suite *StoreTestSuite) RunCopyTests(t *testing.T) {
	t.Run("SourceNotFound", suite.testCopySourceNotFound)
	t.Run("Live", suite.testCopyLive)
	t.Run("FromSnapshot", suite.testCopyFromSnapshot)
}

func (suite *StoreTestSuite) testCopySourceNotFound(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.StartCopy(testContext(), store.ObjectRef{Key: "missing"}, "dst")
	AssertErrorIs(t, store.ErrObjectNotFound, err)
}

func (suite *StoreTestSuite) testCopyLive(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "src", []byte("Hello, World!"), store.PutOptions{
		ContentSettings: store.ContentSettings{ContentType: "text/plain"},
		Metadata:        map[string]string{"owner": "alice"},
	})

	info, err := s.StartCopy(testContext(), store.ObjectRef{Key: "src"}, "dst")
	require.NoError(t, err)
	require.Equal(t, store.CopySuccess, WaitCopy(t, s, "dst", info))

	assert.Equal(t, []byte("Hello, World!"), MustRead(t, s, "dst", ""))
	assert.Equal(t, []byte("Hello, World!"), MustRead(t, s, "src", ""))

	props, err := s.GetProperties(testContext(), "dst", store.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "alice", props.Metadata["owner"])
	assert.Equal(t, "text/plain", props.ContentSettings.ContentType)
}

func (suite *StoreTestSuite) testCopyFromSnapshot(t *testing.T) {
	s := suite.newStore(t)

	MustPut(t, s, "src", []byte("old"), store.PutOptions{})
	id, err := s.CreateSnapshot(testContext(), "src", nil)
	require.NoError(t, err)
	MustPut(t, s, "src", []byte("new"), store.PutOptions{})

	info, err := s.StartCopy(testContext(), store.ObjectRef{Key: "src", Snapshot: id}, "dst")
	require.NoError(t, err)
	require.Equal(t, store.CopySuccess, WaitCopy(t, s, "dst", info))

	assert.Equal(t, []byte("old"), MustRead(t, s, "dst", ""))
}
