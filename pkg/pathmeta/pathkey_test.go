package pathmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()

	r, err := NewResolver(backing.Static{URIScheme: "s3", URIAuthority: "test-bucket"})
	require.NoError(t, err)
	return r
}

func TestNormalize_SchemelessGetsDefaultSchemeAndAuthority(t *testing.T) {
	r := newTestResolver(t)

	key, err := r.Normalize("/a1/b1")
	require.NoError(t, err)
	assert.Equal(t, "s3://test-bucket/a1/b1", key)
}

func TestNormalize_EquivalentSpellingsShareOneKey(t *testing.T) {
	r := newTestResolver(t)

	spellings := []string{
		"/a1/b1",
		"/a1/b1/",
		"/a1//b1",
		"/a1/./b1",
		"/a1/x/../b1",
		"s3://test-bucket/a1/b1",
		"s3://test-bucket/a1/b1/",
	}

	for _, s := range spellings {
		key, err := r.Normalize(s)
		require.NoError(t, err, "spelling %q", s)
		assert.Equal(t, "s3://test-bucket/a1/b1", key, "spelling %q", s)
	}
}

func TestNormalize_ExplicitAuthorityPreserved(t *testing.T) {
	r := newTestResolver(t)

	key, err := r.Normalize("s3://other-bucket/dir/file")
	require.NoError(t, err)
	assert.Equal(t, "s3://other-bucket/dir/file", key)

	key, err = r.Normalize("wasb://container/x")
	require.NoError(t, err)
	assert.Equal(t, "wasb://container/x", key)
}

func TestNormalize_Root(t *testing.T) {
	r := newTestResolver(t)

	for _, s := range []string{"/", "//", "s3://test-bucket/", "s3://test-bucket"} {
		key, err := r.Normalize(s)
		require.NoError(t, err, "spelling %q", s)
		assert.Equal(t, "s3://test-bucket/", key, "spelling %q", s)
	}
}

func TestNormalize_SchemeOnlyAtStart(t *testing.T) {
	r := newTestResolver(t)

	// "://" inside a component is path data; the path is scheme-less and
	// resolves against the default authority. The duplicate slash collapses
	// like any other spelling.
	key, err := r.Normalize("/logs/http://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "s3://test-bucket/logs/http:/example.com/x", key)

	// Same rule when the path carries an explicit scheme up front.
	key, err = r.Normalize("s3://other-bucket/logs/http://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "s3://other-bucket/logs/http:/example.com/x", key)
}

func TestNormalize_PercentBytesAreLiteral(t *testing.T) {
	r := newTestResolver(t)

	// "%2F" is a key byte sequence, not an encoded slash; decoding it would
	// collapse distinct object keys.
	escaped, err := r.Normalize("s3://b/a%2Fb")
	require.NoError(t, err)
	assert.Equal(t, "s3://b/a%2Fb", escaped)

	plain, err := r.Normalize("s3://b/a/b")
	require.NoError(t, err)
	assert.NotEqual(t, escaped, plain)
}

func TestNormalize_InvalidPaths(t *testing.T) {
	r := newTestResolver(t)

	for _, s := range []string{"", "relative/path", "s3://bad host/x"} {
		_, err := r.Normalize(s)
		require.Error(t, err, "spelling %q", s)
		assert.True(t, errors.HasCode(err, errors.ErrInvalidPath), "spelling %q: %v", s, err)
	}
}

func TestNewResolver_RejectsEmptyScheme(t *testing.T) {
	_, err := NewResolver(backing.Static{URIAuthority: "bucket"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestParentKey(t *testing.T) {
	parent, ok := ParentKey("s3://b/a1/b1")
	require.True(t, ok)
	assert.Equal(t, "s3://b/a1", parent)

	parent, ok = ParentKey("s3://b/a1")
	require.True(t, ok)
	assert.Equal(t, "s3://b/", parent)

	_, ok = ParentKey("s3://b/")
	assert.False(t, ok)
}

func TestKeyHelpers(t *testing.T) {
	assert.True(t, IsRootKey("s3://b/"))
	assert.False(t, IsRootKey("s3://b/a"))

	assert.Equal(t, "s3://b/a/", SubtreePrefix("s3://b/a"))
	assert.Equal(t, "s3://b/", SubtreePrefix("s3://b/"))

	assert.True(t, InSubtree("s3://b/a/c", "s3://b/a"))
	assert.True(t, InSubtree("s3://b/a", "s3://b/a"))
	assert.False(t, InSubtree("s3://b/ab", "s3://b/a"))
	assert.True(t, InSubtree("s3://b/a", "s3://b/"))

	assert.Equal(t, "b1", BaseName("s3://b/a1/b1"))
	assert.Equal(t, "/", BaseName("s3://b/"))
	assert.Equal(t, "/a1/b1", KeyPath("s3://b/a1/b1"))
	assert.Equal(t, "/", KeyPath("s3://b/"))
}

func TestLifecycleStateMachine(t *testing.T) {
	var lc Lifecycle

	_, err := lc.Resolver()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNotInitialized))

	require.NoError(t, lc.Bind(backing.Static{URIScheme: "s3", URIAuthority: "b"}))
	assert.Equal(t, StateReady, lc.State())

	_, err = lc.Resolver()
	require.NoError(t, err)

	// Double initialize is rejected.
	err = lc.Bind(backing.Static{URIScheme: "s3", URIAuthority: "b"})
	require.Error(t, err)

	assert.True(t, lc.Shutdown())
	assert.False(t, lc.Shutdown(), "second close is a no-op")
	assert.Equal(t, StateClosed, lc.State())

	_, err = lc.Resolver()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNotInitialized))
}
