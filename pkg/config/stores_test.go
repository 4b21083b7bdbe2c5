package config

import (
	"testing"

	"github.com/marmos91/metacache/pkg/pathmeta/store/memory"
	"github.com/marmos91/metacache/pkg/pathmeta/store/null"
)

func TestCreateStore_Memory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Memory = map[string]any{"max_entries": 128}

	store, err := CreateStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}

	// Bounded memory stores may evict
	mem, ok := store.(*memory.MemoryMetadataStore)
	if !ok {
		t.Fatalf("Expected *memory.MemoryMetadataStore, got %T", store)
	}
	if !mem.AllowsMissing() {
		t.Error("Expected bounded memory store to allow missing entries")
	}
}

func TestCreateStore_Null(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "null"

	store, err := CreateStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Failed to create null store: %v", err)
	}
	if _, ok := store.(*null.NullMetadataStore); !ok {
		t.Fatalf("Expected *null.NullMetadataStore, got %T", store)
	}
}

func TestCreateStore_BadgerRequiresPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"

	if _, err := CreateStore(t.Context(), cfg); err == nil {
		t.Fatal("Expected error for badger store without path")
	}
}

func TestCreateStore_BadgerInMemory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{"in_memory": true}

	store, err := CreateStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Failed to create in-memory badger store: %v", err)
	}
	defer store.Close()
}

func TestCreateStore_UnknownType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "redis"

	if _, err := CreateStore(t.Context(), cfg); err == nil {
		t.Fatal("Expected error for unknown store type")
	}
}

func TestCreateBacking_Static(t *testing.T) {
	id, err := CreateBacking(t.Context(), BackingConfig{
		Type:      "static",
		Scheme:    "s3",
		Authority: "my-bucket",
	})
	if err != nil {
		t.Fatalf("Failed to create static backing: %v", err)
	}
	if id.Scheme() != "s3" || id.Authority() != "my-bucket" {
		t.Errorf("Unexpected identity: %s://%s", id.Scheme(), id.Authority())
	}
}

func TestCreateBacking_StaticRequiresAuthority(t *testing.T) {
	if _, err := CreateBacking(t.Context(), BackingConfig{Type: "static", Scheme: "s3"}); err == nil {
		t.Fatal("Expected error for static backing without authority")
	}
}

func TestCreateBacking_S3RequiresBucket(t *testing.T) {
	if _, err := CreateBacking(t.Context(), BackingConfig{Type: "s3", Scheme: "s3"}); err == nil {
		t.Fatal("Expected error for s3 backing without bucket")
	}
}
