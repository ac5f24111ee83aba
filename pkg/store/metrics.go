package store

import (
	"context"
	"io"
	"time"
)

// Metrics provides observability for object store calls.
//
// Implementations can use this interface to collect metrics about backend
// latency, throughput and errors. It is optional: Instrument with a nil
// Metrics returns the store unchanged.
type Metrics interface {
	// ObserveOperation records a backend call with its duration and outcome.
	ObserveOperation(backend, operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred by "read" or "write" operations.
	RecordBytes(backend, operation string, bytes int64)
}

// Instrument wraps s so that every call is reported to m.
func Instrument(s ObjectStore, backend string, m Metrics) ObjectStore {
	if m == nil {
		return s
	}
	return &instrumentedStore{inner: s, backend: backend, metrics: m}
}

type instrumentedStore struct {
	inner   ObjectStore
	backend string
	metrics Metrics
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(s.backend, op, time.Since(start), err)
}

func (s *instrumentedStore) Name() string { return s.inner.Name() }

func (s *instrumentedStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (err error) {
	start := time.Now()
	defer func() { s.observe("Put", start, err) }()

	counter := &countingReader{Reader: body}
	err = s.inner.Put(ctx, key, counter, opts)
	if err == nil {
		s.metrics.RecordBytes(s.backend, "write", counter.n)
	}
	return err
}

func (s *instrumentedStore) GetProperties(ctx context.Context, key string, opts GetOptions) (props *ObjectProperties, err error) {
	start := time.Now()
	defer func() { s.observe("GetProperties", start, err) }()
	return s.inner.GetProperties(ctx, key, opts)
}

func (s *instrumentedStore) GetMetadata(ctx context.Context, key string, opts GetOptions) (md map[string]string, err error) {
	start := time.Now()
	defer func() { s.observe("GetMetadata", start, err) }()
	return s.inner.GetMetadata(ctx, key, opts)
}

func (s *instrumentedStore) Open(ctx context.Context, key string, opts GetOptions) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() { s.observe("Open", start, err) }()

	rc, err = s.inner.Open(ctx, key, opts)
	if err != nil {
		return nil, err
	}
	return &metricsReadCloser{ReadCloser: rc, metrics: s.metrics, backend: s.backend}, nil
}

func (s *instrumentedStore) Delete(ctx context.Context, key string, opts DeleteOptions) (err error) {
	start := time.Now()
	defer func() { s.observe("Delete", start, err) }()
	return s.inner.Delete(ctx, key, opts)
}

func (s *instrumentedStore) List(ctx context.Context, opts ListOptions) (page *ListPage, err error) {
	start := time.Now()
	defer func() { s.observe("List", start, err) }()
	return s.inner.List(ctx, opts)
}

func (s *instrumentedStore) StartCopy(ctx context.Context, src ObjectRef, dstKey string) (info *CopyInfo, err error) {
	start := time.Now()
	defer func() { s.observe("StartCopy", start, err) }()
	return s.inner.StartCopy(ctx, src, dstKey)
}

func (s *instrumentedStore) AbortCopy(ctx context.Context, key string, copyID string) (err error) {
	start := time.Now()
	defer func() { s.observe("AbortCopy", start, err) }()
	return s.inner.AbortCopy(ctx, key, copyID)
}

func (s *instrumentedStore) CreateSnapshot(ctx context.Context, key string, metadata map[string]string) (id string, err error) {
	start := time.Now()
	defer func() { s.observe("CreateSnapshot", start, err) }()
	return s.inner.CreateSnapshot(ctx, key, metadata)
}

func (s *instrumentedStore) SetMetadata(ctx context.Context, key string, metadata map[string]string, opts GetOptions) (err error) {
	start := time.Now()
	defer func() { s.observe("SetMetadata", start, err) }()
	return s.inner.SetMetadata(ctx, key, metadata, opts)
}

func (s *instrumentedStore) ContainerProperties(ctx context.Context) (props *ContainerProperties, err error) {
	start := time.Now()
	defer func() { s.observe("ContainerProperties", start, err) }()
	return s.inner.ContainerProperties(ctx)
}

func (s *instrumentedStore) URL(key string, snapshot string) string {
	return s.inner.URL(key, snapshot)
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}

type countingReader struct {
	io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.Reader.Read(p)
	c.n += int64(n)
	return n, err
}

// metricsReadCloser wraps an io.ReadCloser to track bytes read
type metricsReadCloser struct {
	io.ReadCloser
	metrics   Metrics
	backend   string
	bytesRead int64
}

func (m *metricsReadCloser) Read(p []byte) (n int, err error) {
	n, err = m.ReadCloser.Read(p)
	if n > 0 {
		m.bytesRead += int64(n)
	}
	return n, err
}

func (m *metricsReadCloser) Close() error {
	err := m.ReadCloser.Close()
	// Record bytes read regardless of close error
	if m.bytesRead > 0 {
		m.metrics.RecordBytes(m.backend, "read", m.bytesRead)
	}
	return err
}
