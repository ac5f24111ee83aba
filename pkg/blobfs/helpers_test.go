package blobfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/marmos91/blobfs/pkg/store/memory"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, cfg memory.Config) (*FS, *memory.MemoryStore) {
	t.Helper()

	s, err := memory.NewMemoryStore(context.Background(), cfg)
	require.NoError(t, err)

	fsys, err := New(s, Options{RenameCheckInterval: time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsys.Close() })

	return fsys, s
}

func mustWrite(t *testing.T, fsys *FS, p, data string) {
	t.Helper()
	require.NoError(t, fsys.WriteFile(context.Background(), p, []byte(data), WriteOptions{}))
}

func mustRead(t *testing.T, fsys *FS, p string, opts ReadOptions) string {
	t.Helper()
	data, err := fsys.ReadFile(context.Background(), p, opts)
	require.NoError(t, err)
	return string(data)
}

// requireCode asserts err is an *Error with the given code.
func requireCode(t *testing.T, code Code, err error) {
	t.Helper()
	require.Error(t, err)

	var fsErr *Error
	require.True(t, errors.As(err, &fsErr), "expected *Error, got %T: %v", err, err)
	require.Equal(t, code, fsErr.Code, "unexpected code for %v", err)
}

type recordingMetrics struct {
	ops   map[string]int
	codes map[string]int
	polls int
	bytes map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string]int{}, codes: map[string]int{}, bytes: map[string]int64{}}
}

func (m *recordingMetrics) ObserveOperation(op string, duration time.Duration, code string) {
	m.ops[op]++
	if code != "" {
		m.codes[code]++
	}
}

func (m *recordingMetrics) RecordCopyPoll() { m.polls++ }

func (m *recordingMetrics) RecordBytes(direction string, bytes int64) { m.bytes[direction] += bytes }

func memoryConfig() memory.Config {
	return memory.Config{Container: "test"}
}

func emptyReader() io.Reader {
	return bytes.NewReader(nil)
}

func padded(i int) string {
	return fmt.Sprintf("%06d", i)
}
