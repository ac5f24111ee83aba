package testing

import (
	"testing"

	"github.com/marmos91/blobfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunListingTests executes prefix listing and pagination tests.
func (suite *StoreTestSuite) RunListingTests(t *testing.T) {
	t.Run("Flat", suite.testListFlat)
	t.Run("Hierarchical", suite.testListHierarchical)
	t.Run("KindFilter", suite.testListKindFilter)
	t.Run("Pagination", suite.testListPagination)
	t.Run("PaginationRollUp", suite.testListPaginationRollUp)
	t.Run("Empty", suite.testListEmpty)
	t.Run("IncludeMetadata", suite.testListIncludeMetadata)
}

func seedTree(t *testing.T, s store.ObjectStore) {
	t.Helper()
	for _, key := range []string{
		"a/1.txt",
		"a/2.txt",
		"a/sub/3.txt",
		"a/sub/deep/4.txt",
		"a-b/5.txt",
		"b.txt",
	} {
		MustPut(t, s, key, []byte(key), store.PutOptions{})
	}
}

func (suite *StoreTestSuite) testListFlat(t *testing.T) {
	s := suite.newStore(t)
	seedTree(t, s)

	page := MustListAll(t, s, store.ListOptions{Prefix: "a/"})

	assert.Empty(t, page.Prefixes)
	assert.Equal(t, []string{"a/1.txt", "a/2.txt", "a/sub/3.txt", "a/sub/deep/4.txt"}, names(page.Objects))
}

func (suite *StoreTestSuite) testListHierarchical(t *testing.T) {
	s := suite.newStore(t)
	seedTree(t, s)

	page := MustListAll(t, s, store.ListOptions{Prefix: "a/", Delimiter: "/"})
	assert.Equal(t, []string{"a/sub/"}, page.Prefixes)
	assert.Equal(t, []string{"a/1.txt", "a/2.txt"}, names(page.Objects))

	root := MustListAll(t, s, store.ListOptions{Delimiter: "/"})
	assert.Equal(t, []string{"a-b/", "a/"}, root.Prefixes)
	assert.Equal(t, []string{"b.txt"}, names(root.Objects))
}

func (suite *StoreTestSuite) testListKindFilter(t *testing.T) {
	s := suite.newStore(t)
	seedTree(t, s)

	dirs := MustListAll(t, s, store.ListOptions{Prefix: "a/", Delimiter: "/", Kind: store.ListPrefixes})
	assert.Equal(t, []string{"a/sub/"}, dirs.Prefixes)
	assert.Empty(t, dirs.Objects)

	files := MustListAll(t, s, store.ListOptions{Prefix: "a/", Delimiter: "/", Kind: store.ListObjects})
	assert.Empty(t, files.Prefixes)
	assert.Equal(t, []string{"a/1.txt", "a/2.txt"}, names(files.Objects))
}

func (suite *StoreTestSuite) testListPagination(t *testing.T) {
	s := suite.newStore(t)
	seedTree(t, s)

	first, err := s.List(testContext(), store.ListOptions{Prefix: "a/", MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, first.Objects, 3)
	require.NotEmpty(t, first.Token)

	second, err := s.List(testContext(), store.ListOptions{Prefix: "a/", MaxResults: 3, Token: first.Token})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/sub/deep/4.txt"}, names(second.Objects))
	assert.Empty(t, second.Token)

	one, err := s.List(testContext(), store.ListOptions{Prefix: "a/", MaxResults: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, one.Len())
}

func (suite *StoreTestSuite) testListPaginationRollUp(t *testing.T) {
	s := suite.newStore(t)
	seedTree(t, s)

	page := MustListAll(t, s, store.ListOptions{Delimiter: "/", MaxResults: 1})
	assert.Equal(t, []string{"a-b/", "a/"}, page.Prefixes)
	assert.Equal(t, []string{"b.txt"}, names(page.Objects))
}

func (suite *StoreTestSuite) testListEmpty(t *testing.T) {
	s := suite.newStore(t)
	seedTree(t, s)

	page, err := s.List(testContext(), store.ListOptions{Prefix: "zzz/", Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Len())
	assert.Empty(t, page.Token)
}

func (suite *StoreTestSuite) testListIncludeMetadata(t *testing.T) {
	s := suite.newStore(t)
	MustPut(t, s, "m/file", []byte("x"), store.PutOptions{Metadata: map[string]string{"k": "v"}})

	without := MustListAll(t, s, store.ListOptions{Prefix: "m/"})
	require.Len(t, without.Objects, 1)
	assert.Empty(t, without.Objects[0].Metadata)

	with := MustListAll(t, s, store.ListOptions{Prefix: "m/", Include: store.ListInclude{Metadata: true}})
	require.Len(t, with.Objects, 1)
	assert.Equal(t, "v", with.Objects[0].Metadata["k"])
	assert.Equal(t, int64(1), with.Objects[0].Size)
}
