package testing

import (
	"context"
	"testing"

	"github.com/marmos91/blobfs/pkg/store"
)

// StoreTestSuite is a conformance test suite for ObjectStore implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, badger, Azure, S3).
//
// Usage:
//
//	func TestMyObjectStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) store.ObjectStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty ObjectStore for each test.
	NewStore func(t *testing.T) store.ObjectStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("Listing", suite.RunListingTests)
	t.Run("Snapshots", suite.RunSnapshotTests)
	t.Run("Copy", suite.RunCopyTests)
}

// newStore creates a store and registers its cleanup.
func (suite *StoreTestSuite) newStore(t *testing.T) store.ObjectStore {
	t.Helper()
	s := suite.NewStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
