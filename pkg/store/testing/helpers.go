package testing

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/marmos91/blobfs/pkg/store"
	"github.com/stretchr/testify/require"
)

// maxCopyPolls bounds WaitCopy so a broken store cannot hang the suite.
const maxCopyPolls = 1000

// MustPut writes data at key or fails the test.
func MustPut(t *testing.T, s store.ObjectStore, key string, data []byte, opts store.PutOptions) {
	t.Helper()
	require.NoError(t, s.Put(testContext(), key, bytes.NewReader(data), opts), "put %s", key)
}

// MustRead returns the content of key (optionally a snapshot) or fails the test.
func MustRead(t *testing.T, s store.ObjectStore, key, snapshot string) []byte {
	t.Helper()
	rc, err := s.Open(testContext(), key, store.GetOptions{Snapshot: snapshot})
	require.NoError(t, err, "open %s", key)
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err, "read %s", key)
	return data
}

// MustListAll drains a listing and returns every page merged.
func MustListAll(t *testing.T, s store.ObjectStore, opts store.ListOptions) *store.ListPage {
	t.Helper()
	var all store.ListPage
	for {
		page, err := s.List(testContext(), opts)
		require.NoError(t, err)
		all.Prefixes = append(all.Prefixes, page.Prefixes...)
		all.Objects = append(all.Objects, page.Objects...)
		if page.Token == "" {
			return &all
		}
		opts.Token = page.Token
	}
}

// WaitCopy polls the destination until its copy leaves the pending state.
func WaitCopy(t *testing.T, s store.ObjectStore, key string, info *store.CopyInfo) store.CopyStatus {
	t.Helper()
	status := info.Status
	for i := 0; status == store.CopyPending; i++ {
		require.Less(t, i, maxCopyPolls, "copy into %s never settled", key)
		props, err := s.GetProperties(testContext(), key, store.GetOptions{})
		require.NoError(t, err)
		status = props.CopyStatus
	}
	return status
}

// AssertErrorIs checks that err wraps target.
func AssertErrorIs(t *testing.T, target, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, target), "expected %v, got %v", target, err)
}

func names(objects []store.ObjectEntry) []string {
	out := make([]string, 0, len(objects))
	for _, o := range objects {
		out = append(out, o.Name)
	}
	return out
}

func bytesReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}
