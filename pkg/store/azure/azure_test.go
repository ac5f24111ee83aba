package azure

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/marmos91/blobfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"blob not found", &azcore.ResponseError{ErrorCode: "BlobNotFound", StatusCode: http.StatusNotFound}, store.ErrObjectNotFound},
		{"plain 404", &azcore.ResponseError{StatusCode: http.StatusNotFound}, store.ErrObjectNotFound},
		{"already exists", &azcore.ResponseError{ErrorCode: "BlobAlreadyExists", StatusCode: http.StatusConflict}, store.ErrObjectExists},
		{"precondition", &azcore.ResponseError{StatusCode: http.StatusPreconditionFailed}, store.ErrObjectExists},
		{"snapshots present", &azcore.ResponseError{ErrorCode: "SnapshotsPresent", StatusCode: http.StatusConflict}, store.ErrSnapshotsPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("op", "key", tt.err)
			assert.ErrorIs(t, err, tt.target)

			var respErr *azcore.ResponseError
			assert.True(t, errors.As(err, &respErr))
		})
	}

	assert.NoError(t, mapError("op", "key", nil))

	other := errors.New("boom")
	err := mapError("op", "key", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, store.ErrObjectNotFound)
}

func TestCopyStatus(t *testing.T) {
	assert.Equal(t, store.CopyPending, copyStatus(blob.CopyStatusTypePending))
	assert.Equal(t, store.CopySuccess, copyStatus(blob.CopyStatusTypeSuccess))
	assert.Equal(t, store.CopyAborted, copyStatus(blob.CopyStatusTypeAborted))
	assert.Equal(t, store.CopyFailed, copyStatus(blob.CopyStatusTypeFailed))
	assert.Equal(t, store.CopyNone, copyStatus("weird"))
}

func TestMetadataConversion(t *testing.T) {
	assert.Nil(t, toAzureMetadata(nil))
	assert.Nil(t, fromAzureMetadata(nil))

	md := fromAzureMetadata(map[string]*string{"Owner": to.Ptr("alice"), "skip": nil})
	assert.Equal(t, map[string]string{"owner": "alice"}, md)

	az := toAzureMetadata(map[string]string{"k": "v"})
	require.Contains(t, az, "k")
	assert.Equal(t, "v", *az["k"])
}

func TestHTTPHeaders(t *testing.T) {
	h := toHTTPHeaders(store.ContentSettings{ContentType: "text/plain", CacheControl: "no-cache"})
	assert.Equal(t, "text/plain", *h.BlobContentType)
	assert.Equal(t, "no-cache", *h.BlobCacheControl)
	assert.Nil(t, h.BlobContentEncoding)
}

func TestNewAzureStore_Validation(t *testing.T) {
	_, err := NewAzureStore(t.Context(), Config{})
	require.Error(t, err)

	_, err = NewAzureStore(t.Context(), Config{Container: "c"})
	require.Error(t, err)
}

func TestURL(t *testing.T) {
	s, err := NewAzureStore(t.Context(), Config{
		Account:    "devstoreaccount1",
		AccountKey: "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==",
		Endpoint:   "http://127.0.0.1:10000/devstoreaccount1",
		Container:  "blobfs",
	})
	require.NoError(t, err)

	live := s.URL("dir/file.txt", "")
	assert.True(t, strings.HasPrefix(live, "http://127.0.0.1:10000/devstoreaccount1/blobfs/"), live)
	assert.Contains(t, live, "file.txt")
	assert.NotContains(t, live, "snapshot=")
	assert.Contains(t, s.URL("dir/file.txt", "2024-01-01T00:00:00.0000000Z"), "snapshot=")
}
