package storetest

import (
	"testing"

	"github.com/marmos91/metacache/pkg/pathmeta"
)

// runTreeTests covers subtree deletion and batch moves.
func runTreeTests(t *testing.T, factory StoreFactory, fx Fixture) {
	t.Helper()

	t.Run("DeleteSubtree", func(t *testing.T) {
		deleteSubtreeHelper(t, factory, fx, "")
	})

	t.Run("DeleteSubtreeHostPath", func(t *testing.T) {
		// Fully qualified keys with a non-default authority share the store
		// with default-authority keys but live in a separate tree.
		deleteSubtreeHelper(t, factory, fx, "s3://test-bucket-name")
	})

	t.Run("DeleteSubtreeIsolation", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		setUpDeleteTest(t, h, "")
		setUpDeleteTest(t, h, "s3://test-bucket-name")

		if err := h.ms.DeleteSubtree(ctx, "s3://test-bucket-name/ADirectory1"); err != nil {
			t.Fatalf("DeleteSubtree failed: %v", err)
		}

		h.assertNotCached(t, "s3://test-bucket-name/ADirectory1")
		h.assertNotCached(t, "s3://test-bucket-name/ADirectory1/db1/file1")

		// The default-authority tree is untouched.
		h.assertCached(t, "/ADirectory1")
		h.assertCached(t, "/ADirectory1/db1/file1")
		h.assertDirectorySize(t, "/ADirectory1/db1", 2)
	})

	t.Run("DeleteRecursiveRoot", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		setUpDeleteTest(t, h, "")

		if err := h.ms.DeleteSubtree(ctx, "/"); err != nil {
			t.Fatalf("DeleteSubtree(/) failed: %v", err)
		}

		h.assertNotCached(t, "/ADirectory1")
		h.assertNotCached(t, "/ADirectory2")
		h.assertNotCached(t, "/ADirectory1/db1")
		h.assertNotCached(t, "/ADirectory1/db1/file1")
		h.assertNotCached(t, "/ADirectory1/db1/file2")

		// Root itself stays queryable, back to empty.
		listing, err := h.ms.ListChildren(ctx, "/")
		if err != nil {
			t.Fatalf("ListChildren(/) failed: %v", err)
		}
		if listing == nil {
			t.Fatal("root listing is nil after subtree delete")
		}
		if len(listing.Entries) != 0 {
			t.Fatalf("root still has %d entries after subtree delete", len(listing.Entries))
		}
		if listing.Authoritative {
			t.Fatal("emptied root must not be authoritative")
		}
	})

	t.Run("Move", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		h.createDirs(t, "/a1", "/a2", "/a3", "/a1/b1")
		h.putFiles(t, "/a1/b1/file1", "/a1/b1/file2")

		// A rename of /a1/b1 to /b1: the caller enumerates the whole moved
		// subtree in both sets.
		sources := []string{"/a1/b1", "/a1/b1/file1", "/a1/b1/file2"}
		destinations := []pathmeta.PathEntry{
			h.dirEntry("/b1"),
			h.fileEntry("/b1/file1", 100),
			h.fileEntry("/b1/file2", 100),
		}
		if err := h.ms.Move(ctx, sources, destinations); err != nil {
			t.Fatalf("Move failed: %v", err)
		}

		h.assertNotCached(t, "/a1/b1")
		h.assertNotCached(t, "/a1/b1/file1")
		h.assertNotCached(t, "/a1/b1/file2")
		h.assertEmptyDirs(t, "/a1")

		h.assertCached(t, "/b1")
		h.assertCached(t, "/b1/file1")
		h.assertCached(t, "/b1/file2")
		h.assertDirectorySize(t, "/b1", 2)

		listing, err := h.ms.ListChildren(ctx, "/")
		if err != nil {
			t.Fatalf("ListChildren(/) failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			h.assertListingKeys(t, listing, "/a1", "/a2", "/a3", "/b1")
		}
	})

	t.Run("MoveEmptyBatch", func(t *testing.T) {
		h := newHarness(t, factory, fx)

		if err := h.ms.Move(t.Context(), nil, nil); err != nil {
			t.Fatalf("Move(empty) failed: %v", err)
		}
	})
}

// deleteSubtreeHelper runs the deep subtree delete scenario with all paths
// under prefix ("" for default-authority paths).
func deleteSubtreeHelper(t *testing.T, factory StoreFactory, fx Fixture, prefix string) {
	t.Helper()

	h := newHarness(t, factory, fx)
	ctx := t.Context()

	setUpDeleteTest(t, h, prefix)
	h.createDirs(t,
		prefix+"/ADirectory1/db1/dc1",
		prefix+"/ADirectory1/db1/dc1/dd1",
	)
	h.putFiles(t, prefix+"/ADirectory1/db1/dc1/dd1/deepFile")

	if err := h.ms.DeleteSubtree(ctx, prefix+"/ADirectory1/db1"); err != nil {
		t.Fatalf("DeleteSubtree failed: %v", err)
	}

	h.assertNotCached(t, prefix+"/ADirectory1/db1")
	h.assertNotCached(t, prefix+"/ADirectory1/db1/file1")
	h.assertNotCached(t, prefix+"/ADirectory1/db1/file2")
	h.assertNotCached(t, prefix+"/ADirectory1/db1/dc1")
	h.assertNotCached(t, prefix+"/ADirectory1/db1/dc1/dd1")
	h.assertNotCached(t, prefix+"/ADirectory1/db1/dc1/dd1/deepFile")

	h.assertCached(t, prefix+"/ADirectory1")
	h.assertCached(t, prefix+"/ADirectory2")
	h.assertEmptyDirs(t, prefix+"/ADirectory1")
}
