package storetest

import (
	"testing"

	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// runLifecycleTests covers the Uninitialized -> Ready -> Closed state
// machine shared by every store.
func runLifecycleTests(t *testing.T, factory StoreFactory, fx Fixture) {
	t.Helper()

	t.Run("OpsBeforeInitialize", func(t *testing.T) {
		ms := factory(t)
		ctx := t.Context()

		assertAllOpsNotInitialized(t, ms, fx)

		// The store is still usable once initialized.
		if err := ms.Initialize(ctx, fx.Identity); err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		t.Cleanup(func() {
			if err := ms.Close(); err != nil {
				t.Errorf("Close() failed: %v", err)
			}
		})
		if err := ms.Put(ctx, testEntry(fx, "/file1")); err != nil {
			t.Fatalf("Put after Initialize failed: %v", err)
		}
	})

	t.Run("DoubleInitialize", func(t *testing.T) {
		ms := factory(t)
		ctx := t.Context()

		if err := ms.Initialize(ctx, fx.Identity); err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		t.Cleanup(func() {
			if err := ms.Close(); err != nil {
				t.Errorf("Close() failed: %v", err)
			}
		})

		err := ms.Initialize(ctx, fx.Identity)
		if !errors.HasCode(err, errors.ErrInvalidArgument) {
			t.Fatalf("second Initialize error = %v, want InvalidArgument", err)
		}
	})

	t.Run("OpsAfterClose", func(t *testing.T) {
		ms := factory(t)
		ctx := t.Context()

		if err := ms.Initialize(ctx, fx.Identity); err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		if err := ms.Put(ctx, testEntry(fx, "/file1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := ms.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}

		assertAllOpsNotInitialized(t, ms, fx)

		// Closed is terminal.
		err := ms.Initialize(ctx, fx.Identity)
		if !errors.HasCode(err, errors.ErrNotInitialized) {
			t.Fatalf("Initialize after Close error = %v, want NotInitialized", err)
		}
	})

	t.Run("DoubleClose", func(t *testing.T) {
		ms := factory(t)

		if err := ms.Initialize(t.Context(), fx.Identity); err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		if err := ms.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
		if err := ms.Close(); err != nil {
			t.Fatalf("second Close() failed: %v", err)
		}
	})
}

// assertAllOpsNotInitialized checks every data operation fails with the
// NotInitialized code in the store's current state.
func assertAllOpsNotInitialized(t *testing.T, ms pathmeta.MetadataStore, fx Fixture) {
	t.Helper()
	ctx := t.Context()

	if err := ms.Put(ctx, testEntry(fx, "/file1")); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Fatalf("Put error = %v, want NotInitialized", err)
	}
	listing := pathmeta.DirListing{Path: "/d", Entries: []pathmeta.PathEntry{testEntry(fx, "/d/file1")}}
	if err := ms.PutListing(ctx, listing); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Fatalf("PutListing error = %v, want NotInitialized", err)
	}
	if _, err := ms.Get(ctx, "/file1"); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Fatalf("Get error = %v, want NotInitialized", err)
	}
	if _, err := ms.ListChildren(ctx, "/"); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Fatalf("ListChildren error = %v, want NotInitialized", err)
	}
	if err := ms.Delete(ctx, "/file1"); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Fatalf("Delete error = %v, want NotInitialized", err)
	}
	if err := ms.DeleteSubtree(ctx, "/file1"); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Fatalf("DeleteSubtree error = %v, want NotInitialized", err)
	}
	if err := ms.Move(ctx, []string{"/file1"}, []pathmeta.PathEntry{testEntry(fx, "/file2")}); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Fatalf("Move error = %v, want NotInitialized", err)
	}
}

// testEntry builds a minimal file entry without requiring an initialized
// harness.
func testEntry(fx Fixture, path string) pathmeta.PathEntry {
	return pathmeta.PathEntry{
		Path:        path,
		Length:      100,
		BlockSize:   fx.BlockSize,
		Replication: fx.Replication,
		AccessTime:  fx.AccessTime,
		ModTime:     fx.ModTime,
		Owner:       fx.Owner,
		Group:       fx.Group,
		Mode:        fx.Mode,
	}
}
