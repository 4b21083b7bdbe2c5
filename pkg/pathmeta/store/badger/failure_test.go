package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// Database failures must surface as distinguishable backing-store errors
// and must not corrupt previously committed state.
func TestDatabaseFailureSurfacesAsBackingStoreError(t *testing.T) {
	dir := t.TempDir()
	id := backing.Static{URIScheme: "s3", URIAuthority: "bucket"}

	store, err := New(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.Initialize(t.Context(), id))

	committed := pathmeta.PathEntry{Path: "/d/keep", Length: 42, ModTime: time.Now().UTC()}
	require.NoError(t, store.Put(t.Context(), committed))

	// Fail the database underneath a store that still believes it is ready.
	require.NoError(t, store.db.Close())

	err = store.Put(t.Context(), pathmeta.PathEntry{Path: "/d/lost", Length: 7})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBackingStore), "put: %v", err)

	_, err = store.Get(t.Context(), "/d/keep")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBackingStore), "get: %v", err)

	_, err = store.ListChildren(t.Context(), "/d")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBackingStore), "list: %v", err)

	err = store.Delete(t.Context(), "/d/keep")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBackingStore), "delete: %v", err)

	// Committed state survives the failed operations.
	reopened, err := New(Config{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Initialize(t.Context(), id))

	entry, err := reopened.Get(t.Context(), "/d/keep")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(42), entry.Length)

	lost, err := reopened.Get(t.Context(), "/d/lost")
	require.NoError(t, err)
	assert.Nil(t, lost, "failed put must leave no partial state")
}
