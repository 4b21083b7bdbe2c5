package null_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
	"github.com/marmos91/metacache/pkg/pathmeta/store/null"
)

func newStore(t *testing.T) *null.NullMetadataStore {
	t.Helper()

	ms := null.New()
	err := ms.Initialize(t.Context(), backing.Static{URIScheme: "s3", URIAuthority: "bucket"})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, ms.Close())
	})
	return ms
}

func TestForgetsEverything(t *testing.T) {
	ms := newStore(t)
	ctx := t.Context()

	require.NoError(t, ms.Put(ctx, pathmeta.PathEntry{Path: "/d", IsDir: true}))
	require.NoError(t, ms.PutListing(ctx, pathmeta.DirListing{
		Path:          "/d",
		Entries:       []pathmeta.PathEntry{{Path: "/d/f1"}},
		Authoritative: true,
	}))

	entry, err := ms.Get(ctx, "/d")
	require.NoError(t, err)
	require.Nil(t, entry)

	listing, err := ms.ListChildren(ctx, "/d")
	require.NoError(t, err)
	require.Nil(t, listing)

	require.True(t, ms.AllowsMissing())
}

func TestRootAlwaysListable(t *testing.T) {
	ms := newStore(t)

	listing, err := ms.ListChildren(t.Context(), "/")
	require.NoError(t, err)
	require.NotNil(t, listing)
	require.Empty(t, listing.Entries)
	require.False(t, listing.Authoritative)
}

func TestStillValidates(t *testing.T) {
	ms := newStore(t)
	ctx := t.Context()

	err := ms.Put(ctx, pathmeta.PathEntry{Path: "relative/path"})
	require.True(t, errors.HasCode(err, errors.ErrInvalidPath))

	_, err = ms.Get(ctx, "")
	require.True(t, errors.HasCode(err, errors.ErrInvalidPath))

	require.NoError(t, ms.Delete(ctx, "/missing"))
	require.NoError(t, ms.DeleteSubtree(ctx, "/missing"))
	require.NoError(t, ms.Move(ctx, []string{"/a"}, []pathmeta.PathEntry{{Path: "/b"}}))
}

func TestLifecycle(t *testing.T) {
	ms := null.New()

	_, err := ms.Get(t.Context(), "/x")
	require.True(t, errors.HasCode(err, errors.ErrNotInitialized))

	require.NoError(t, ms.Initialize(t.Context(), backing.Static{URIScheme: "s3", URIAuthority: "bucket"}))
	require.NoError(t, ms.Close())
	require.NoError(t, ms.Close())

	_, err = ms.Get(t.Context(), "/x")
	require.True(t, errors.HasCode(err, errors.ErrNotInitialized))
}
