package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/blobfs/internal/logger"
	"github.com/marmos91/blobfs/pkg/blobfs"
	"github.com/marmos91/blobfs/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) (*env, *bytes.Buffer) {
	t.Helper()

	s, err := memory.NewMemoryStore(context.Background(), memory.Config{Container: "cli"})
	require.NoError(t, err)

	fsys, err := blobfs.New(s, blobfs.Options{RenameCheckInterval: time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsys.Close() })

	out := &bytes.Buffer{}
	return &env{fsys: fsys, stdin: strings.NewReader(""), stdout: out}, out
}

func exec(t *testing.T, e *env, name string, args ...string) error {
	t.Helper()
	cmd, ok := commands[name]
	require.True(t, ok, "unknown command %s", name)
	return cmd.run(context.Background(), e, args)
}

func TestCommands_PutCatLs(t *testing.T) {
	e, out := newTestEnv(t)

	e.stdin = strings.NewReader("hello")
	require.NoError(t, exec(t, e, "put", "--content-type", "text/plain", "-m", "owner=me", "-", "docs/a.txt"))
	require.NoError(t, exec(t, e, "mkdir", "empty"))

	out.Reset()
	require.NoError(t, exec(t, e, "cat", "docs/a.txt"))
	assert.Equal(t, "hello", out.String())

	out.Reset()
	require.NoError(t, exec(t, e, "ls"))
	assert.Equal(t, "docs\nempty\n", out.String())

	out.Reset()
	require.NoError(t, exec(t, e, "ls", "-l", "docs"))
	fields := strings.Fields(out.String())
	require.Len(t, fields, 4)
	assert.Equal(t, "-", fields[0])
	assert.Equal(t, "5", fields[1])
	assert.Equal(t, "a.txt", fields[3])

	out.Reset()
	require.NoError(t, exec(t, e, "stat", "--metadata", "docs/a.txt"))
	assert.Contains(t, out.String(), "Type:")
	assert.Contains(t, out.String(), "file")
	assert.Contains(t, out.String(), "Content-Type: text/plain")
	assert.Contains(t, out.String(), "owner=me")
}

func TestCommands_PutFromFile(t *testing.T) {
	e, out := newTestEnv(t)

	local := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(local, []byte("from disk"), 0644))

	require.NoError(t, exec(t, e, "put", local, "copy.bin"))
	require.NoError(t, exec(t, e, "cat", "copy.bin"))
	assert.Equal(t, "from disk", out.String())
}

func TestCommands_PutExclusive(t *testing.T) {
	e, _ := newTestEnv(t)

	e.stdin = strings.NewReader("one")
	require.NoError(t, exec(t, e, "put", "-x", "-", "f"))

	e.stdin = strings.NewReader("two")
	err := exec(t, e, "put", "-x", "-", "f")
	assert.ErrorIs(t, err, blobfs.ErrExist)
	assert.Equal(t, 1, exitCode(err))
}

func TestCommands_MvAndRmdir(t *testing.T) {
	e, out := newTestEnv(t)

	require.NoError(t, exec(t, e, "mkdir", "src", "dst"))
	e.stdin = strings.NewReader("payload")
	require.NoError(t, exec(t, e, "put", "-", "src/f"))

	assert.ErrorIs(t, exec(t, e, "rmdir", "src"), blobfs.ErrNotEmpty)

	require.NoError(t, exec(t, e, "mv", "src/f", "dst/f"))

	out.Reset()
	require.NoError(t, exec(t, e, "ls", "dst"))
	assert.Equal(t, "f\n", out.String())

	require.NoError(t, exec(t, e, "rmdir", "src"))
}

func TestCommands_SnapshotLifecycle(t *testing.T) {
	e, out := newTestEnv(t)

	e.stdin = strings.NewReader("v1")
	require.NoError(t, exec(t, e, "put", "-", "f"))

	out.Reset()
	require.NoError(t, exec(t, e, "snapshot", "--meta", "tag=first", "f"))
	id := strings.TrimSpace(out.String())
	require.NotEmpty(t, id)

	e.stdin = strings.NewReader("v2")
	require.NoError(t, exec(t, e, "put", "-", "f"))

	out.Reset()
	require.NoError(t, exec(t, e, "cat", "--snapshot", id, "f"))
	assert.Equal(t, "v1", out.String())

	out.Reset()
	require.NoError(t, exec(t, e, "stat", "--snapshots", "f"))
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "(live)")

	assert.ErrorIs(t, exec(t, e, "rm", "--keep-snapshots", "f"), blobfs.ErrUnknown)

	require.NoError(t, exec(t, e, "rm", "--snapshots-only", "f"))
	out.Reset()
	require.NoError(t, exec(t, e, "cat", "f"))
	assert.Equal(t, "v2", out.String())

	require.NoError(t, exec(t, e, "rm", "f"))
	assert.ErrorIs(t, exec(t, e, "cat", "f"), blobfs.ErrNotFound)
}

func TestCommands_SetMeta(t *testing.T) {
	e, out := newTestEnv(t)

	e.stdin = strings.NewReader("x")
	require.NoError(t, exec(t, e, "put", "-m", "old=1", "-", "f"))
	require.NoError(t, exec(t, e, "setmeta", "f", "a=1", "b=two"))

	out.Reset()
	require.NoError(t, exec(t, e, "stat", "--metadata", "f"))
	assert.Contains(t, out.String(), "a=1")
	assert.Contains(t, out.String(), "b=two")
	assert.NotContains(t, out.String(), "old=1")

	err := exec(t, e, "setmeta", "f", "novalue")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestCommands_URL(t *testing.T) {
	e, out := newTestEnv(t)

	require.NoError(t, exec(t, e, "url", "--snapshot", "s1", "dir/f"))
	assert.Contains(t, out.String(), "dir/f")
	assert.Contains(t, out.String(), "s1")
}

func TestCommands_UsageErrors(t *testing.T) {
	e, _ := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"mv", []string{"only-one"}},
		{"cat", nil},
		{"mkdir", nil},
		{"ls", []string{"a", "b"}},
		{"stat", []string{"--bogus", "f"}},
		{"rm", []string{"--snapshots-only", "--keep-snapshots", "f"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec(t, e, tt.name, tt.args...)
			require.Error(t, err)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestRun_InitAndCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobfs", "config.yaml")
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", path, "init"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), path)
	assert.FileExists(t, path)

	code = run([]string{"--config", path, "init"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "already exists")

	stdout.Reset()
	stderr.Reset()
	code = run([]string{"-c", path, "--log-level", "error", "ls"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())
}

func TestRun_InitUsageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	for _, args := range [][]string{{"init", "extra"}, {"init", "--bogus"}} {
		var stdout, stderr bytes.Buffer
		code := run(append([]string{"--config", path}, args...), strings.NewReader(""), &stdout, &stderr)
		assert.Equal(t, 2, code, "args %v", args)
		assert.Contains(t, stderr.String(), "blobfs init:")
	}
	assert.NoFileExists(t, path)
}

func TestRun_DebugLogNamesContainer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	logPath := filepath.Join(dir, "blobfs.log")
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr, "text")
		logger.SetLevel("INFO")
	})

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"--config", path, "init"}, strings.NewReader(""), &stdout, &stderr), stderr.String())

	t.Setenv("BLOBFS_LOGGING_OUTPUT", logPath)
	code := run([]string{"-c", path, "--log-level", "debug", "ls"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Running ls on container blobfs (log level DEBUG)")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run([]string{"frobnicate"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)
	assert.Contains(t, stderr.String(), "Commands:")
}

func TestRun_NoCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(nil, strings.NewReader(""), &stdout, &stderr))
	assert.Equal(t, 0, run([]string{"help"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "snapshot")
}
