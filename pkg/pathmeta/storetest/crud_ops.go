package storetest

import (
	"testing"
	"time"

	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// runCrudTests covers single-entry put, get, replace, and delete semantics.
func runCrudTests(t *testing.T, factory StoreFactory, fx Fixture) {
	t.Helper()

	t.Run("PutNew", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		h.createDirs(t, "/da1", "/da2", "/da3")

		// Ancestor entries beyond the containing directory are the
		// caller's responsibility: only direct children are tracked, so
		// this put must not affect /da1's listing.
		h.putFiles(t, "/da1/db1/fc1")

		h.assertEmptyDirs(t, "/da1", "/da2", "/da3")
		h.assertDirectorySize(t, "/da1/db1", 1)

		dirMeta, err := h.ms.Get(ctx, "/da1")
		if err != nil {
			t.Fatalf("Get(/da1) failed: %v", err)
		}
		if !h.allowMissing || dirMeta != nil {
			if dirMeta == nil {
				t.Fatal("Get(/da1) returned nil after put")
			}
			h.verifyDirEntry(t, dirMeta)
		}

		// Already exists: silently replaced as a whole.
		h.createDirs(t, "/da1/db1")
		h.assertDirectorySize(t, "/da1", 1)
		h.assertEmptyDirs(t, "/da2", "/da3")

		// New files update the correct parent dirs.
		h.putFiles(t, "/da1/db1/fc1", "/da1/db1/fc2")
		h.assertDirectorySize(t, "/da1", 1)
		h.assertDirectorySize(t, "/da1/db1", 2)
		h.assertEmptyDirs(t, "/da2", "/da3")

		meta, err := h.ms.Get(ctx, "/da1/db1/fc2")
		if err != nil {
			t.Fatalf("Get(/da1/db1/fc2) failed: %v", err)
		}
		if !h.allowMissing || meta != nil {
			if meta == nil {
				t.Fatal("Get after put returned nil")
			}
			if meta.Length != 100 {
				t.Fatalf("cached file size = %d, want 100", meta.Length)
			}
		}
	})

	t.Run("PutOverwrite", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		const filePath = "/a1/b1/c1/some_file"
		const dirPath = "/a1/b1/c1/d1"
		h.putFiles(t, filePath)
		h.createDirs(t, dirPath)

		meta, err := h.ms.Get(ctx, filePath)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !h.allowMissing || meta != nil {
			h.verifyFileEntry(t, meta)
		}

		// The replacement differs in every mutable field; nothing of the
		// old entry may survive.
		replacement := h.fileEntry(filePath, 9999)
		replacement.Owner = "carol"
		replacement.Group = "aunts"
		replacement.Mode = 0600
		replacement.Replication = 3
		replacement.AccessTime = fx.AccessTime.Add(time.Hour)
		replacement.ModTime = fx.ModTime.Add(time.Hour)
		if err := h.ms.Put(ctx, replacement); err != nil {
			t.Fatalf("Put(replacement) failed: %v", err)
		}

		meta, err = h.ms.Get(ctx, filePath)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !h.allowMissing || meta != nil {
			if meta.Length != 9999 {
				t.Fatalf("updated size = %d, want 9999", meta.Length)
			}
			if meta.Owner != "carol" || meta.Group != "aunts" {
				t.Fatalf("ownership not replaced: %q:%q", meta.Owner, meta.Group)
			}
			if meta.Mode != 0600 || meta.Replication != 3 {
				t.Fatalf("attributes merged instead of replaced: mode=%o replication=%d", meta.Mode, meta.Replication)
			}
			if !meta.AccessTime.Equal(replacement.AccessTime) || !meta.ModTime.Equal(replacement.ModTime) {
				t.Fatal("timestamps merged instead of replaced")
			}
		}
	})

	t.Run("Get", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		const filePath = "/a1/b1/c1/some_file"
		const dirPath = "/a1/b1/c1/d1"
		h.putFiles(t, filePath)
		h.createDirs(t, dirPath)

		meta, err := h.ms.Get(ctx, filePath)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !h.allowMissing || meta != nil {
			if meta == nil {
				t.Fatal("Get did not find file")
			}
			h.verifyFileEntry(t, meta)
			if meta.Path != h.key(t, filePath) {
				t.Fatalf("entry key = %q, want canonical %q", meta.Path, h.key(t, filePath))
			}
		}

		meta, err = h.ms.Get(ctx, dirPath)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !h.allowMissing || meta != nil {
			if meta == nil {
				t.Fatal("Get did not find directory")
			}
			if !meta.IsDir {
				t.Fatal("expected a directory entry")
			}
		}

		// Unknown keys are absent, not errors.
		meta, err = h.ms.Get(ctx, "/bollocks")
		if err != nil {
			t.Fatalf("Get(missing) failed: %v", err)
		}
		if meta != nil {
			t.Fatalf("Get(missing) = %+v, want nil", meta)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		setUpDeleteTest(t, h, "")

		if err := h.ms.Delete(ctx, "/ADirectory1/db1/file2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		h.assertDirectorySize(t, "/ADirectory1/db1", 1)
		h.assertNotCached(t, "/ADirectory1/db1/file2")
	})

	t.Run("DeleteIsShallow", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		h.createDirs(t, "/d1")
		h.putFiles(t, "/d1/file1")

		// A plain delete of the directory leaves the child entry alone.
		if err := h.ms.Delete(ctx, "/d1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		h.assertNotCached(t, "/d1")
		h.assertCached(t, "/d1/file1")
	})

	t.Run("DeleteNonExisting", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		// Path doesn't exist, but should silently succeed.
		if err := h.ms.Delete(ctx, "/bobs/your/uncle"); err != nil {
			t.Fatalf("Delete(missing) failed: %v", err)
		}
		// Twice in a row is the same as once.
		if err := h.ms.Delete(ctx, "/bobs/your/uncle"); err != nil {
			t.Fatalf("second Delete(missing) failed: %v", err)
		}

		// Ditto for subtrees.
		if err := h.ms.DeleteSubtree(ctx, "/internets"); err != nil {
			t.Fatalf("DeleteSubtree(missing) failed: %v", err)
		}
	})

	t.Run("NormalizationEquivalence", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		// Written scheme-less, read fully qualified: one cached state.
		h.putFiles(t, "/norm/file1")

		qualified := h.key(t, "/norm/file1")
		meta, err := h.ms.Get(ctx, qualified)
		if err != nil {
			t.Fatalf("Get(qualified) failed: %v", err)
		}
		if !h.allowMissing || meta != nil {
			if meta == nil {
				t.Fatal("qualified spelling did not find entry")
			}
			h.verifyFileEntry(t, meta)
		}

		// And deleted through yet another spelling.
		if err := h.ms.Delete(ctx, "/norm/./file1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		h.assertNotCached(t, qualified)
	})

	t.Run("InvalidPath", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		for _, p := range []string{"", "relative/path"} {
			if err := h.ms.Put(ctx, h.fileEntry(p, 1)); !errors.HasCode(err, errors.ErrInvalidPath) {
				t.Fatalf("Put(%q) error = %v, want InvalidPath", p, err)
			}
			if _, err := h.ms.Get(ctx, p); !errors.HasCode(err, errors.ErrInvalidPath) {
				t.Fatalf("Get(%q) error = %v, want InvalidPath", p, err)
			}
			if err := h.ms.Delete(ctx, p); !errors.HasCode(err, errors.ErrInvalidPath) {
				t.Fatalf("Delete(%q) error = %v, want InvalidPath", p, err)
			}
		}
	})
}

// setUpDeleteTest builds the shared delete fixture tree under prefix.
func setUpDeleteTest(t *testing.T, h *harness, prefix string) {
	t.Helper()

	h.createDirs(t,
		prefix+"/ADirectory1",
		prefix+"/ADirectory2",
		prefix+"/ADirectory1/db1",
	)
	h.putFiles(t,
		prefix+"/ADirectory1/db1/file1",
		prefix+"/ADirectory1/db1/file2",
	)

	meta, err := h.ms.Get(t.Context(), prefix+"/ADirectory1/db1/file2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !h.allowMissing || meta != nil {
		if meta == nil {
			t.Fatal("test file missing after setup")
		}
		h.assertDirectorySize(t, prefix+"/ADirectory1/db1", 2)
	}
}
