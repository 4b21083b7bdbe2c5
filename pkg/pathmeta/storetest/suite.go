package storetest

import (
	"testing"
	"time"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
)

// StoreFactory creates a fresh, uninitialized MetadataStore instance for
// each test. The factory receives *testing.T so it can use t.TempDir() for
// stores that need filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) pathmeta.MetadataStore

// Fixture carries the attribute constants the suite stamps onto every test
// entry. It is explicit configuration rather than package-level state so a
// caller can run the suite against other values.
type Fixture struct {
	Identity    backing.Identity
	BlockSize   int64
	Replication int
	Mode        uint32
	Owner       string
	Group       string
	AccessTime  time.Time
	ModTime     time.Time
}

// DefaultFixture returns the fixture used by RunConformanceSuite.
// Timestamps carry sub-microsecond digits on purpose: durable encodings
// must round-trip PathEntry fields exactly, nanoseconds included.
func DefaultFixture() Fixture {
	access := time.Now().UTC().Truncate(time.Second).Add(123456789 * time.Nanosecond)
	return Fixture{
		Identity:    backing.Static{URIScheme: "s3", URIAuthority: "conformance-bucket"},
		BlockSize:   32 * 1024 * 1024,
		Replication: 1,
		Mode:        0755,
		Owner:       "bob",
		Group:       "uncles",
		AccessTime:  access,
		ModTime:     access.Add(-5 * time.Second),
	}
}

// RunConformanceSuite runs the full conformance test suite against the
// provided store factory using the default fixture. Each test gets a fresh
// store instance to ensure isolation.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()
	RunConformanceSuiteWithFixture(t, factory, DefaultFixture())
}

// RunConformanceSuiteWithFixture is RunConformanceSuite with an explicit
// fixture.
func RunConformanceSuiteWithFixture(t *testing.T, factory StoreFactory, fx Fixture) {
	t.Helper()

	t.Run("Crud", func(t *testing.T) {
		runCrudTests(t, factory, fx)
	})

	t.Run("Listings", func(t *testing.T) {
		runListingTests(t, factory, fx)
	})

	t.Run("Tree", func(t *testing.T) {
		runTreeTests(t, factory, fx)
	})

	t.Run("Lifecycle", func(t *testing.T) {
		runLifecycleTests(t, factory, fx)
	})

	t.Run("Concurrency", func(t *testing.T) {
		runConcurrencyTests(t, factory, fx)
	})
}

// harness bundles one initialized store with the fixture and resolver the
// assertions need.
type harness struct {
	ms           pathmeta.MetadataStore
	fx           Fixture
	resolver     *pathmeta.Resolver
	allowMissing bool
}

// newHarness creates and initializes a fresh store, registering Close as
// cleanup.
func newHarness(t *testing.T, factory StoreFactory, fx Fixture) *harness {
	t.Helper()

	ms := factory(t)
	if ms == nil {
		t.Fatal("factory returned nil MetadataStore")
	}
	if err := ms.Initialize(t.Context(), fx.Identity); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := ms.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})

	resolver, err := pathmeta.NewResolver(fx.Identity)
	if err != nil {
		t.Fatalf("NewResolver() failed: %v", err)
	}

	return &harness{
		ms:           ms,
		fx:           fx,
		resolver:     resolver,
		allowMissing: ms.AllowsMissing(),
	}
}

// key normalizes a path string against the fixture identity.
func (h *harness) key(t *testing.T, p string) string {
	t.Helper()

	key, err := h.resolver.Normalize(p)
	if err != nil {
		t.Fatalf("Normalize(%q) failed: %v", p, err)
	}
	return key
}

// fileEntry builds a file PathEntry with the fixture's attribute constants.
func (h *harness) fileEntry(path string, size int64) pathmeta.PathEntry {
	return pathmeta.PathEntry{
		Path:        path,
		IsDir:       false,
		Length:      size,
		BlockSize:   h.fx.BlockSize,
		Replication: h.fx.Replication,
		AccessTime:  h.fx.AccessTime,
		ModTime:     h.fx.ModTime,
		Owner:       h.fx.Owner,
		Group:       h.fx.Group,
		Mode:        h.fx.Mode,
	}
}

// dirEntry builds a directory PathEntry with the fixture's attribute
// constants.
func (h *harness) dirEntry(path string) pathmeta.PathEntry {
	entry := h.fileEntry(path, 0)
	entry.IsDir = true
	return entry
}

// createDirs puts one directory entry per path.
func (h *harness) createDirs(t *testing.T, paths ...string) {
	t.Helper()

	for _, p := range paths {
		if err := h.ms.Put(t.Context(), h.dirEntry(p)); err != nil {
			t.Fatalf("Put(dir %q) failed: %v", p, err)
		}
	}
}

// putFiles puts one 100-byte file entry per path.
func (h *harness) putFiles(t *testing.T, paths ...string) {
	t.Helper()

	for _, p := range paths {
		if err := h.ms.Put(t.Context(), h.fileEntry(p, 100)); err != nil {
			t.Fatalf("Put(file %q) failed: %v", p, err)
		}
	}
}

// putListingFiles bulk-puts a listing of 100-byte files for dir with the
// given authoritative flag.
func (h *harness) putListingFiles(t *testing.T, dir string, authoritative bool, paths ...string) {
	t.Helper()

	entries := make([]pathmeta.PathEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, h.fileEntry(p, 100))
	}
	listing := pathmeta.DirListing{
		Path:          dir,
		Entries:       entries,
		Authoritative: authoritative,
	}
	if err := h.ms.PutListing(t.Context(), listing); err != nil {
		t.Fatalf("PutListing(%q) failed: %v", dir, err)
	}
}

// ============================================================================
// Assertions
// ============================================================================

// assertDirectorySize asserts the listing for p has exactly size children.
// For stores that allow missing results, an absent listing is accepted.
func (h *harness) assertDirectorySize(t *testing.T, p string, size int) {
	t.Helper()

	listing, err := h.ms.ListChildren(t.Context(), p)
	if err != nil {
		t.Fatalf("ListChildren(%q) failed: %v", p, err)
	}
	if listing == nil {
		if !h.allowMissing {
			t.Fatalf("directory %q not in cache", p)
		}
		return
	}
	if got := len(listing.Entries); got != size {
		t.Fatalf("directory %q has %d entries, want %d", p, got, size)
	}
}

// assertEmptyDirs asserts every listed directory has an empty listing.
func (h *harness) assertEmptyDirs(t *testing.T, paths ...string) {
	t.Helper()

	for _, p := range paths {
		h.assertDirectorySize(t, p, 0)
	}
}

// assertCached asserts p has a cached entry (unless missing is allowed).
func (h *harness) assertCached(t *testing.T, p string) {
	t.Helper()

	entry, err := h.ms.Get(t.Context(), p)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", p, err)
	}
	if entry == nil && !h.allowMissing {
		t.Fatalf("%q should be cached", p)
	}
}

// assertNotCached asserts p has no cached entry. This is never relaxed:
// stale data after a delete is a correctness violation for every store.
func (h *harness) assertNotCached(t *testing.T, p string) {
	t.Helper()

	entry, err := h.ms.Get(t.Context(), p)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", p, err)
	}
	if entry != nil {
		t.Fatalf("%q should not be cached, got %+v", p, entry)
	}
}

// assertListingKeys asserts the listing holds exactly the given paths
// (normalized), ignoring order.
func (h *harness) assertListingKeys(t *testing.T, listing *pathmeta.DirListing, paths ...string) {
	t.Helper()

	want := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		want[h.key(t, p)] = struct{}{}
	}
	got := make(map[string]struct{}, len(listing.Entries))
	for _, e := range listing.Entries {
		got[e.Path] = struct{}{}
	}

	if len(got) != len(want) {
		t.Fatalf("listing of %q has keys %v, want %v", listing.Path, listing.ChildKeys(), paths)
	}
	for k := range want {
		if _, ok := got[k]; !ok {
			t.Fatalf("listing of %q is missing %q (has %v)", listing.Path, k, listing.ChildKeys())
		}
	}
}

// verifyFileEntry checks a cached file entry carries the fixture attributes.
func (h *harness) verifyFileEntry(t *testing.T, entry *pathmeta.PathEntry) {
	t.Helper()

	if entry.IsDir {
		t.Fatal("entry is a directory, want file")
	}
	h.verifyCommonAttrs(t, entry)
}

// verifyDirEntry checks a cached directory entry carries the fixture
// attributes.
func (h *harness) verifyDirEntry(t *testing.T, entry *pathmeta.PathEntry) {
	t.Helper()

	if !entry.IsDir {
		t.Fatal("entry is a file, want directory")
	}
	if entry.Length != 0 {
		t.Fatalf("directory length = %d, want 0", entry.Length)
	}
	h.verifyCommonAttrs(t, entry)
}

func (h *harness) verifyCommonAttrs(t *testing.T, entry *pathmeta.PathEntry) {
	t.Helper()

	if entry.Replication != h.fx.Replication {
		t.Fatalf("replication = %d, want %d", entry.Replication, h.fx.Replication)
	}
	if !entry.AccessTime.Equal(h.fx.AccessTime) {
		t.Fatalf("access time = %v, want %v", entry.AccessTime, h.fx.AccessTime)
	}
	if !entry.ModTime.Equal(h.fx.ModTime) {
		t.Fatalf("mod time = %v, want %v", entry.ModTime, h.fx.ModTime)
	}
	if entry.Owner != h.fx.Owner {
		t.Fatalf("owner = %q, want %q", entry.Owner, h.fx.Owner)
	}
	if entry.Group != h.fx.Group {
		t.Fatalf("group = %q, want %q", entry.Group, h.fx.Group)
	}
	if entry.Mode != h.fx.Mode {
		t.Fatalf("mode = %o, want %o", entry.Mode, h.fx.Mode)
	}
}
