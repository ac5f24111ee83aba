//go:build integration

package azure

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/marmos91/blobfs/pkg/store"
	storetesting "github.com/marmos91/blobfs/pkg/store/testing"
	"github.com/stretchr/testify/require"
)

// Requires Azurite (or a real account):
//
//	docker run -p 10000:10000 mcr.microsoft.com/azure-storage/azurite azurite-blob --blobHost 0.0.0.0
//	BLOBFS_AZURE_CONNECTION_STRING="UseDevelopmentStorage=true" go test -tags=integration ./pkg/store/azure/
func TestAzureStore_Integration(t *testing.T) {
	conn := os.Getenv("BLOBFS_AZURE_CONNECTION_STRING")
	if conn == "" {
		t.Skip("BLOBFS_AZURE_CONNECTION_STRING not set")
	}

	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.ObjectStore {
			s, err := NewAzureStore(context.Background(), Config{
				ConnectionString: conn,
				Container:        fmt.Sprintf("blobfs-test-%d", time.Now().UnixNano()),
				CreateContainer:  true,
			})
			require.NoError(t, err)
			t.Cleanup(func() {
				_, _ = s.client.Delete(context.Background(), nil)
			})
			return s
		},
	}
	suite.Run(t)
}
