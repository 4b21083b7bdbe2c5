package memory_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/store/memory"
	"github.com/marmos91/metacache/pkg/pathmeta/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) pathmeta.MetadataStore {
		return memory.New(memory.Config{})
	})
}

func TestBoundedMemoryStoreConformance(t *testing.T) {
	// Large enough that the suite never triggers an eviction; the bounded
	// store still reports AllowsMissing, so the suite exercises the relaxed
	// assertion paths.
	storetest.RunConformanceSuite(t, func(t *testing.T) pathmeta.MetadataStore {
		return memory.New(memory.Config{MaxEntries: 1024})
	})
}

func TestAllowsMissing(t *testing.T) {
	require.False(t, memory.New(memory.Config{}).AllowsMissing())
	require.True(t, memory.New(memory.Config{MaxEntries: 1}).AllowsMissing())
}

// newBoundedStore initializes a bounded store against a fixed identity.
func newBoundedStore(t *testing.T, maxEntries int) pathmeta.MetadataStore {
	t.Helper()

	ms := memory.New(memory.Config{MaxEntries: maxEntries})
	err := ms.Initialize(t.Context(), backing.Static{URIScheme: "s3", URIAuthority: "bucket"})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, ms.Close())
	})
	return ms
}

func entry(path string, isDir bool) pathmeta.PathEntry {
	return pathmeta.PathEntry{
		Path:       path,
		IsDir:      isDir,
		Length:     1,
		AccessTime: time.Unix(100, 0),
		ModTime:    time.Unix(100, 0),
	}
}

func TestEvictionDowngradesListing(t *testing.T) {
	ms := newBoundedStore(t, 3)
	ctx := t.Context()

	err := ms.PutListing(ctx, pathmeta.DirListing{
		Path:          "/d",
		Entries:       []pathmeta.PathEntry{entry("/d/f1", false), entry("/d/f2", false)},
		Authoritative: true,
	})
	require.NoError(t, err)

	// A third entry still fits; the fourth evicts /d/f1, the least recently
	// used. No reads happen in between: reads refresh LRU recency and would
	// make the victim nondeterministic. The eviction must surface as a
	// missing child and a no-longer-authoritative listing, never as stale
	// data.
	require.NoError(t, ms.Put(ctx, entry("/d/f3", false)))
	require.NoError(t, ms.Put(ctx, entry("/d/f4", false)))

	got, err := ms.Get(ctx, "/d/f1")
	require.NoError(t, err)
	require.Nil(t, got)

	listing, err := ms.ListChildren(ctx, "/d")
	require.NoError(t, err)
	require.NotNil(t, listing)
	require.False(t, listing.Authoritative, "evicted child must downgrade the listing")
	require.ElementsMatch(t,
		[]string{"s3://bucket/d/f2", "s3://bucket/d/f3", "s3://bucket/d/f4"},
		listing.ChildKeys(),
	)
}

func TestDeleteKeepsAuthoritativeFlag(t *testing.T) {
	// A deliberate delete is not an eviction: the listing stays complete.
	ms := newBoundedStore(t, 100)
	ctx := t.Context()

	err := ms.PutListing(ctx, pathmeta.DirListing{
		Path:          "/d",
		Entries:       []pathmeta.PathEntry{entry("/d/f1", false), entry("/d/f2", false)},
		Authoritative: true,
	})
	require.NoError(t, err)

	require.NoError(t, ms.Delete(ctx, "/d/f1"))

	listing, err := ms.ListChildren(ctx, "/d")
	require.NoError(t, err)
	require.NotNil(t, listing)
	require.True(t, listing.Authoritative)
	require.Equal(t, []string{"s3://bucket/d/f2"}, listing.ChildKeys())
}

func TestConcurrentAccess(t *testing.T) {
	ms := memory.New(memory.Config{})
	err := ms.Initialize(t.Context(), backing.Static{URIScheme: "s3", URIAuthority: "bucket"})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, ms.Close())
	})
	ctx := t.Context()

	const workers = 8
	const iterations = 50

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dir := fmt.Sprintf("/w%d", w)
			for i := range iterations {
				p := fmt.Sprintf("%s/f%d", dir, i)
				if err := ms.Put(ctx, entry(p, false)); err != nil {
					t.Errorf("Put(%q) failed: %v", p, err)
					return
				}
				if _, err := ms.Get(ctx, p); err != nil {
					t.Errorf("Get(%q) failed: %v", p, err)
					return
				}
				if _, err := ms.ListChildren(ctx, dir); err != nil {
					t.Errorf("ListChildren(%q) failed: %v", dir, err)
					return
				}
				if i%10 == 9 {
					if err := ms.Delete(ctx, p); err != nil {
						t.Errorf("Delete(%q) failed: %v", p, err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	for w := range workers {
		listing, err := ms.ListChildren(ctx, fmt.Sprintf("/w%d", w))
		require.NoError(t, err)
		require.NotNil(t, listing)
		require.Len(t, listing.Entries, iterations-iterations/10)
	}
}
