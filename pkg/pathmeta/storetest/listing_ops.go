package storetest

import (
	"testing"
)

// runListingTests covers directory-listing behavior: lazy creation, the
// authoritative flag, root handling, and bulk listing puts.
func runListingTests(t *testing.T, factory StoreFactory, fx Fixture) {
	t.Helper()

	t.Run("RootDirPutNew", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		h.putFiles(t, "/file1")

		listing, err := h.ms.ListChildren(ctx, "/")
		if err != nil {
			t.Fatalf("ListChildren(/) failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			if listing == nil {
				t.Fatal("root dir not cached")
			}
			// The cache has no way of knowing it has all entries for root
			// unless told via PutListing with Authoritative set.
			if listing.Authoritative {
				t.Fatal("root listing reported authoritative after a single put")
			}
			h.assertListingKeys(t, listing, "/file1")
		}
	})

	t.Run("ListChildren", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		setupListStatus(t, h)

		listing, err := h.ms.ListChildren(ctx, "/")
		if err != nil {
			t.Fatalf("ListChildren(/) failed: %v", err)
		}
		if !h.allowMissing {
			if listing == nil {
				t.Fatal("root listing is nil")
			}
			if listing.Authoritative {
				t.Fatal("root is partially cached, must not be authoritative")
			}
			h.assertListingKeys(t, listing, "/a1", "/a2")
		}

		listing, err = h.ms.ListChildren(ctx, "/a1")
		if err != nil {
			t.Fatalf("ListChildren(/a1) failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			h.assertListingKeys(t, listing, "/a1/b1", "/a1/b2")
		}

		listing, err = h.ms.ListChildren(ctx, "/a1/b1")
		if err != nil {
			t.Fatalf("ListChildren(/a1/b1) failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			h.assertListingKeys(t, listing, "/a1/b1/file1", "/a1/b1/file2", "/a1/b1/c1")
		}
	})

	t.Run("InvalidListChildren", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		setupListStatus(t, h)

		listing, err := h.ms.ListChildren(ctx, "/a1/b1x")
		if err != nil {
			t.Fatalf("ListChildren failed: %v", err)
		}
		if listing != nil {
			t.Fatalf("missing path returned listing %+v, want nil", listing)
		}
	})

	t.Run("DirectChildrenOnly", func(t *testing.T) {
		h := newHarness(t, factory, fx)

		h.createDirs(t, "/g")

		// Depth >= 2 below /g: must never appear in /g's listing, and must
		// not create an entry for the intermediate directory.
		h.putFiles(t, "/g/sub/deep/leaf")

		h.assertEmptyDirs(t, "/g")
		h.assertNotCached(t, "/g/sub")
		h.assertNotCached(t, "/g/sub/deep")
		h.assertDirectorySize(t, "/g/sub/deep", 1)
	})

	t.Run("DirListingRoot", func(t *testing.T) {
		commonPutListStatus(t, factory, fx, "/")
	})

	t.Run("PutDirListing", func(t *testing.T) {
		commonPutListStatus(t, factory, fx, "/a")
	})

	t.Run("RootNeverAbsent", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		// Never touched, but root conceptually exists.
		listing, err := h.ms.ListChildren(ctx, "/")
		if err != nil {
			t.Fatalf("ListChildren(/) failed: %v", err)
		}
		if listing == nil {
			t.Fatal("root listing is nil on an empty store")
		}
		if len(listing.Entries) != 0 || listing.Authoritative {
			t.Fatalf("fresh root listing = %+v, want empty non-authoritative", listing)
		}
	})

	t.Run("AuthoritativeEmptyListing", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		// A confirmed-empty directory is distinct from an unknown one.
		h.putListingFiles(t, "/confirmed-empty", true)

		listing, err := h.ms.ListChildren(ctx, "/confirmed-empty")
		if err != nil {
			t.Fatalf("ListChildren failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			if listing == nil {
				t.Fatal("authoritative empty listing missing")
			}
			if !listing.Authoritative || len(listing.Entries) != 0 {
				t.Fatalf("listing = %+v, want authoritative empty", listing)
			}
		}
	})

	t.Run("AuthoritativeFlagPolicy", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		// Individually populated: never authoritative.
		h.putFiles(t, "/auth/file1")
		listing, err := h.ms.ListChildren(ctx, "/auth")
		if err != nil {
			t.Fatalf("ListChildren failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			if listing.Authoritative {
				t.Fatal("individually populated listing reported authoritative")
			}
		}

		// Bulk put with the flag: authoritative.
		h.putListingFiles(t, "/auth", true, "/auth/file1", "/auth/file2")
		listing, err = h.ms.ListChildren(ctx, "/auth")
		if err != nil {
			t.Fatalf("ListChildren failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			if !listing.Authoritative {
				t.Fatal("bulk-put listing not authoritative")
			}
			h.assertListingKeys(t, listing, "/auth/file1", "/auth/file2")
		}

		// Policy: individual mutations update membership in place and
		// preserve the flag, since the listing stays complete.
		h.putFiles(t, "/auth/file3")
		if err := h.ms.Delete(ctx, "/auth/file1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		listing, err = h.ms.ListChildren(ctx, "/auth")
		if err != nil {
			t.Fatalf("ListChildren failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			if !listing.Authoritative {
				t.Fatal("authoritative flag lost after in-place membership updates")
			}
			h.assertListingKeys(t, listing, "/auth/file2", "/auth/file3")
		}
	})

	t.Run("PutListingReplacesMembership", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		h.putListingFiles(t, "/r", false, "/r/old1", "/r/old2")
		h.putListingFiles(t, "/r", true, "/r/new1")

		listing, err := h.ms.ListChildren(ctx, "/r")
		if err != nil {
			t.Fatalf("ListChildren failed: %v", err)
		}
		if !h.allowMissing || listing != nil {
			if !listing.Authoritative {
				t.Fatal("replacement listing not authoritative")
			}
			h.assertListingKeys(t, listing, "/r/new1")
		}
	})
}

// setupListStatus builds the shared listing fixture tree.
func setupListStatus(t *testing.T, h *harness) {
	t.Helper()

	h.createDirs(t, "/a1", "/a2", "/a1/b1", "/a1/b2", "/a1/b1/c1", "/a1/b1/c1/d1")
	h.putFiles(t, "/a1/b1/file1", "/a1/b1/file2")
}

// commonPutListStatus bulk-puts three files under parent and verifies the
// listing comes back whole.
func commonPutListStatus(t *testing.T, factory StoreFactory, fx Fixture, parent string) {
	t.Helper()

	h := newHarness(t, factory, fx)
	ctx := t.Context()

	base := parent
	if base == "/" {
		base = ""
	}
	files := []string{base + "/file1", base + "/file2", base + "/file3"}
	h.putListingFiles(t, parent, true, files...)

	listing, err := h.ms.ListChildren(ctx, parent)
	if err != nil {
		t.Fatalf("ListChildren(%q) failed: %v", parent, err)
	}
	if !h.allowMissing || listing != nil {
		if listing == nil {
			t.Fatalf("listing for %q is nil after PutListing", parent)
		}
		h.assertListingKeys(t, listing, files...)
	}
}
