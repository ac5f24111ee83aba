package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/blobfs/pkg/store/badger"
	"github.com/marmos91/blobfs/pkg/store/memory"
)

func TestCreateStore_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type:   "memory",
		Memory: map[string]any{"container": "test", "pending_polls": "2"},
	}

	s, err := CreateStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, ok := s.(*memory.MemoryStore); !ok {
		t.Errorf("Expected an uninstrumented *memory.MemoryStore, got %T", s)
	}
	if s.Name() != "test" {
		t.Errorf("Expected container 'test', got %q", s.Name())
	}
}

func TestCreateStore_RateLimited(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type:      "memory",
		Memory:    map[string]any{},
		RateLimit: RateLimitConfig{RequestsPerSecond: 1000, Burst: 10},
	}

	s, err := CreateStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create rate limited store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, ok := s.(*memory.MemoryStore); ok {
		t.Error("Expected the store to be wrapped by a throttle")
	}
	if _, err := s.ContainerProperties(ctx); err != nil {
		t.Errorf("ContainerProperties through throttle failed: %v", err)
	}
}

func TestCreateStore_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":   filepath.Join(t.TempDir(), "db"),
			"container": "persisted",
		},
	}

	s, err := CreateStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create badger store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, ok := s.(*badger.BadgerStore); !ok {
		t.Errorf("Expected *badger.BadgerStore, got %T", s)
	}
}

func TestCreateStore_BadgerMissingPath(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{Type: "badger", Badger: map[string]any{}}

	_, err := CreateStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "badger store") {
		t.Errorf("Expected badger store validation error, got: %v", err)
	}
}

func TestCreateStore_AzureMissingCredentials(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{Type: "azure", Azure: map[string]any{"container": "c"}}

	_, err := CreateStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing azure credentials")
	}
	if !strings.Contains(err.Error(), "connection_string") {
		t.Errorf("Expected credentials error, got: %v", err)
	}
}

func TestCreateStore_S3MissingBucket(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}}

	_, err := CreateStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "Bucket") {
		t.Errorf("Expected bucket validation error, got: %v", err)
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{Type: "gcs"}

	_, err := CreateStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown store type") {
		t.Errorf("Expected 'unknown store type' error, got: %v", err)
	}
}

func TestCreateStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &StoreConfig{Type: "memory", Memory: map[string]any{}}
	if _, err := CreateStore(ctx, cfg, nil); err == nil {
		t.Error("Expected error with canceled context")
	}
}

func TestCreateFS(t *testing.T) {
	ctx := context.Background()
	cfg := GetDefaultConfig()
	cfg.Filesystem.RenameCheckInterval = time.Millisecond

	fsys, err := CreateFS(ctx, cfg, InitializeMetrics(cfg))
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	defer func() { _ = fsys.Close() }()

	if err := fsys.Mkdir(ctx, "dir"); err != nil {
		t.Fatalf("Mkdir on created filesystem failed: %v", err)
	}
	entries, err := fsys.ReadDir(ctx, "")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0] != "dir" {
		t.Errorf("Expected [dir], got %v", entries)
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	if result.Server != nil || result.FSMetrics != nil || result.StoreMetrics != nil {
		t.Errorf("Expected empty metrics result when disabled, got %+v", result)
	}
}
