package badger_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/store/badger"
	"github.com/marmos91/metacache/pkg/pathmeta/storetest"
)

func TestConformanceInMemory(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) pathmeta.MetadataStore {
		store, err := badger.New(badger.Config{InMemory: true})
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		return store
	})
}

func TestConformanceOnDisk(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping on-disk conformance in short mode")
	}

	storetest.RunConformanceSuite(t, func(t *testing.T) pathmeta.MetadataStore {
		store, err := badger.New(badger.Config{
			Path: filepath.Join(t.TempDir(), "metadata.db"),
		})
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		return store
	})
}

func TestPersistenceAcrossReopen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping persistence test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "metadata.db")
	id := backing.Static{URIScheme: "s3", URIAuthority: "bucket"}
	ctx := t.Context()

	store, err := badger.New(badger.Config{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, id))

	require.NoError(t, store.Put(ctx, pathmeta.PathEntry{Path: "/d", IsDir: true}))
	require.NoError(t, store.PutListing(ctx, pathmeta.DirListing{
		Path: "/d",
		Entries: []pathmeta.PathEntry{
			{Path: "/d/f1", Length: 1},
			{Path: "/d/f2", Length: 2},
		},
		Authoritative: true,
	}))
	require.NoError(t, store.Close())

	reopened, err := badger.New(badger.Config{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, reopened.Initialize(ctx, id))
	t.Cleanup(func() {
		require.NoError(t, reopened.Close())
	})

	entry, err := reopened.Get(ctx, "/d/f2")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, int64(2), entry.Length)

	listing, err := reopened.ListChildren(ctx, "/d")
	require.NoError(t, err)
	require.NotNil(t, listing)
	require.True(t, listing.Authoritative)
	require.ElementsMatch(t,
		[]string{"s3://bucket/d/f1", "s3://bucket/d/f2"},
		listing.ChildKeys(),
	)
}
