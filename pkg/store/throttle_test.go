package store_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/marmos91/blobfs/internal/ratelimiter"
	"github.com/marmos91/blobfs/pkg/store"
	"github.com/marmos91/blobfs/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLimiter struct {
	calls int
	err   error
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls++
	return l.err
}

func newMemory(t *testing.T) *memory.MemoryStore {
	t.Helper()
	s, err := memory.NewMemoryStore(context.Background(), memory.Config{})
	require.NoError(t, err)
	return s
}

func TestThrottle_NilLimiter(t *testing.T) {
	s := newMemory(t)
	assert.Same(t, s, store.Throttle(s, nil))
}

func TestThrottle_UnlimitedLimiter(t *testing.T) {
	s := newMemory(t)
	assert.Same(t, s, store.Throttle(s, ratelimiter.New(0, 0)))
	assert.NotSame(t, s, store.Throttle(s, ratelimiter.New(10, 1)))
}

func TestThrottle_WaitsBeforeEachCall(t *testing.T) {
	ctx := context.Background()
	l := &countingLimiter{}
	s := store.Throttle(newMemory(t), l)

	require.NoError(t, s.Put(ctx, "k", bytes.NewReader([]byte("v")), store.PutOptions{}))
	_, err := s.GetProperties(ctx, "k", store.GetOptions{})
	require.NoError(t, err)
	_, err = s.List(ctx, store.ListOptions{})
	require.NoError(t, err)

	rc, err := s.Open(ctx, "k", store.GetOptions{})
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "v", string(data))

	assert.Equal(t, 4, l.calls)

	// Local calls never wait.
	_ = s.Name()
	_ = s.URL("k", "")
	assert.Equal(t, 4, l.calls)
}

func TestThrottle_LimiterErrorSkipsBackend(t *testing.T) {
	ctx := context.Background()
	inner := newMemory(t)
	errDenied := errors.New("denied")
	s := store.Throttle(inner, &countingLimiter{err: errDenied})

	err := s.Put(ctx, "k", bytes.NewReader(nil), store.PutOptions{})
	assert.ErrorIs(t, err, errDenied)

	_, err = inner.GetProperties(ctx, "k", store.GetOptions{})
	assert.ErrorIs(t, err, store.ErrObjectNotFound)
}

func TestThrottle_WithRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := ratelimiter.New(1, 1)
	s := store.Throttle(newMemory(t), l)

	_, err := s.ContainerProperties(ctx)
	require.NoError(t, err)

	cancel()
	_, err = s.ContainerProperties(ctx)
	assert.Error(t, err)
}
