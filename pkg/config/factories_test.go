package config

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/badger"
	"github.com/marmos91/inodefs/pkg/store/memory"
)

func TestCreateContentStore_Default(t *testing.T) {
	cs, err := CreateContentStore(context.Background(), &ContentConfig{Type: "default"}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cs != nil {
		t.Errorf("Expected nil content store for 'default', got %T", cs)
	}
}

func TestCreateContentStore_Memory(t *testing.T) {
	cs, err := CreateContentStore(context.Background(), &ContentConfig{Type: "memory"}, nil)
	if err != nil {
		t.Fatalf("Failed to create memory content store: %v", err)
	}
	if cs == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateContentStore_Badger(t *testing.T) {
	cfg := &ContentConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": filepath.Join(t.TempDir(), "content")},
	}

	cs, err := CreateContentStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create badger content store: %v", err)
	}
	closeContent(cs)
}

func TestCreateContentStore_BadgerMissingPath(t *testing.T) {
	cfg := &ContentConfig{Type: "badger", Badger: map[string]any{}}

	_, err := CreateContentStore(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateContentStore_S3MissingBucket(t *testing.T) {
	cfg := &ContentConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}}

	_, err := CreateContentStore(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateContentStore_UnknownType(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{Type: "tape"}, nil)
	if err == nil {
		t.Fatal("Expected error for unknown content type")
	}
	if !strings.Contains(err.Error(), "unknown content store type") {
		t.Errorf("Expected 'unknown content store type' error, got: %v", err)
	}
}

func TestCreateContentStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := CreateContentStore(ctx, &ContentConfig{Type: "memory"}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCreateStorage(t *testing.T) {
	ctx := context.Background()

	s, err := CreateStorage(ctx, &StorageConfig{Type: "memory"}, nil)
	if err != nil {
		t.Fatalf("Failed to create memory storage: %v", err)
	}
	if _, ok := s.(*memory.MemoryStore); !ok {
		t.Errorf("Expected *memory.MemoryStore, got %T", s)
	}
	_ = s.Close()

	s, err = CreateStorage(ctx, &StorageConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true, "block_cache_size_mb": "8"},
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create badger storage: %v", err)
	}
	if _, ok := s.(*badger.BadgerStore); !ok {
		t.Errorf("Expected *badger.BadgerStore, got %T", s)
	}
	_ = s.Close()

	if _, err := CreateStorage(ctx, &StorageConfig{Type: "sqlite"}, nil); err == nil {
		t.Error("Expected error for unknown storage type")
	}
}

func TestCreateSemantics(t *testing.T) {
	sem, err := CreateSemantics(&SemanticsConfig{Policy: "posix", DotSegments: "physical", MaxSymlinkDepth: 7})
	if err != nil {
		t.Fatalf("Failed to create semantics: %v", err)
	}
	if _, ok := sem.(semantics.Posix); !ok {
		t.Errorf("Expected semantics.Posix, got %T", sem)
	}
	if sem.DotSegments() != semantics.DotPhysical {
		t.Errorf("Expected physical dot segments, got %v", sem.DotSegments())
	}
	if sem.MaxSymlinkDepth() != 7 {
		t.Errorf("Expected max symlink depth 7, got %d", sem.MaxSymlinkDepth())
	}

	sem, err = CreateSemantics(&SemanticsConfig{Policy: "portable", DotSegments: "lexical", ReadOnly: true, DisableHardLinks: true})
	if err != nil {
		t.Fatalf("Failed to create semantics: %v", err)
	}
	if _, ok := sem.(semantics.ReadOnly); !ok {
		t.Errorf("Expected semantics.ReadOnly wrapper, got %T", sem)
	}
	if sem.SupportsHardLinks() {
		t.Error("Expected hard links disabled")
	}
	if err := sem.CheckPermission(semantics.OpWrite, "/f", nil); !store.IsCode(err, store.ErrPermissionDenied) {
		t.Errorf("Expected read-only policy to deny writes, got %v", err)
	}

	if _, err := CreateSemantics(&SemanticsConfig{Policy: "posix", DotSegments: "smart"}); err == nil {
		t.Error("Expected error for unknown dot segment mode")
	}
	if _, err := CreateSemantics(&SemanticsConfig{Policy: "vms"}); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestNewContainer_Memory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Container.Limits.MaxTotalBytes = 8

	inst, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	defer func() { _ = inst.Close() }()

	if err := inst.Write("/hello.txt", []byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := inst.Read("/hello.txt")
	if err != nil || string(data) != "hello" {
		t.Fatalf("Read returned %q, %v", data, err)
	}

	err = inst.Write("/big.txt", []byte("too large"))
	if !store.IsCode(err, store.ErrCapacityExceeded) {
		t.Errorf("Expected capacity error, got %v", err)
	}
	if usage := inst.Usage(); usage.TotalBytes != 5 || usage.Nodes != 1 {
		t.Errorf("Unexpected usage %+v", usage)
	}
}

func TestNewContainer_ReadOnly(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Semantics.ReadOnly = true

	inst, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	defer func() { _ = inst.Close() }()

	if err := inst.Mkdir("/dir", 0); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("Expected permission error, got %v", err)
	}
}

func TestNewContainer_BadgerReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := GetDefaultConfig()
	cfg.Storage.Type = "badger"
	cfg.Storage.Badger = map[string]any{"db_path": filepath.Join(dir, "db")}
	cfg.Content.Type = "badger"
	cfg.Content.Badger = map[string]any{"db_path": filepath.Join(dir, "content")}

	inst, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	if err := inst.MkdirAll("/a/b", 0); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := inst.Write("/a/b/f", []byte("persisted")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := inst.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	inst, err = NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to reopen container: %v", err)
	}
	defer func() { _ = inst.Close() }()

	data, err := inst.Read("/a/b/f")
	if err != nil || string(data) != "persisted" {
		t.Fatalf("Read after reopen returned %q, %v", data, err)
	}
	if usage := inst.Usage(); usage.Nodes != 3 || usage.TotalBytes != 9 {
		t.Errorf("Unexpected usage after reopen %+v", usage)
	}
}

func TestNewContainer_InvalidSemantics(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Semantics.Policy = "vms"

	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown policy")
	}
}
