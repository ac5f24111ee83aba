package store

import (
	"context"
	"io"
)

// Limiter admits backend calls. *ratelimiter.RateLimiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Throttle wraps s so that every backend call first waits on l. Name, URL
// and Close are local and never wait. A nil l, or one that reports itself
// unlimited, returns s unchanged.
func Throttle(s ObjectStore, l Limiter) ObjectStore {
	if l == nil {
		return s
	}
	if u, ok := l.(interface{ Unlimited() bool }); ok && u.Unlimited() {
		return s
	}
	return &throttledStore{inner: s, limiter: l}
}

type throttledStore struct {
	inner   ObjectStore
	limiter Limiter
}

func (s *throttledStore) Name() string { return s.inner.Name() }

func (s *throttledStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Put(ctx, key, body, opts)
}

func (s *throttledStore) GetProperties(ctx context.Context, key string, opts GetOptions) (*ObjectProperties, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.GetProperties(ctx, key, opts)
}

func (s *throttledStore) GetMetadata(ctx context.Context, key string, opts GetOptions) (map[string]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.GetMetadata(ctx, key, opts)
}

func (s *throttledStore) Open(ctx context.Context, key string, opts GetOptions) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Open(ctx, key, opts)
}

func (s *throttledStore) Delete(ctx context.Context, key string, opts DeleteOptions) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Delete(ctx, key, opts)
}

func (s *throttledStore) List(ctx context.Context, opts ListOptions) (*ListPage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.List(ctx, opts)
}

func (s *throttledStore) StartCopy(ctx context.Context, src ObjectRef, dstKey string) (*CopyInfo, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.StartCopy(ctx, src, dstKey)
}

func (s *throttledStore) AbortCopy(ctx context.Context, key string, copyID string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.AbortCopy(ctx, key, copyID)
}

func (s *throttledStore) CreateSnapshot(ctx context.Context, key string, metadata map[string]string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.CreateSnapshot(ctx, key, metadata)
}

func (s *throttledStore) SetMetadata(ctx context.Context, key string, metadata map[string]string, opts GetOptions) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.SetMetadata(ctx, key, metadata, opts)
}

func (s *throttledStore) ContainerProperties(ctx context.Context) (*ContainerProperties, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.ContainerProperties(ctx)
}

func (s *throttledStore) URL(key string, snapshot string) string {
	return s.inner.URL(key, snapshot)
}

func (s *throttledStore) Close() error {
	return s.inner.Close()
}
