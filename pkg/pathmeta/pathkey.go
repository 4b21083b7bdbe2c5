package pathmeta

import (
	gopath "path"
	"sort"
	"strings"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// Resolver converts user-supplied path strings into canonical path keys.
//
// A canonical key has the form "scheme://authority/path" with a cleaned,
// absolute path component; the root of an authority is "scheme://authority/".
// Scheme-less paths are resolved against the backing store's default scheme
// and authority. Paths that already carry a scheme keep it, so a single
// store can hold keys for more than one authority.
type Resolver struct {
	scheme    string
	authority string
}

// NewResolver builds a Resolver from a backing store identity.
func NewResolver(id backing.Identity) (*Resolver, error) {
	scheme := id.Scheme()
	if scheme == "" {
		return nil, errors.NewInvalidArgumentError("backing store identity has no scheme")
	}
	if !validScheme(scheme) {
		return nil, errors.NewInvalidArgumentError("backing store scheme " + scheme + " is not a valid URI scheme")
	}
	return &Resolver{scheme: scheme, authority: id.Authority()}, nil
}

// DefaultRoot returns the canonical key of the default authority's root.
func (r *Resolver) DefaultRoot() string {
	return r.scheme + "://" + r.authority + "/"
}

// Normalize converts p into its canonical path key.
//
// Two spellings that normalize to the same key identify the same entry.
// Returns an InvalidPath error for empty, relative, or unparseable input.
//
// A path is treated as qualified only when it starts with "scheme://".
// Object keys may legally contain "://" further in ("/logs/http://x"), and
// such paths resolve against the default scheme/authority like any other
// scheme-less path, subject to the usual spelling equivalence (duplicate
// slashes collapse). "%2F" is a literal key character here, not an escape.
func (r *Resolver) Normalize(p string) (string, error) {
	if p == "" {
		return "", errors.NewInvalidPathError(p, "empty path")
	}

	scheme, rest, qualified := splitScheme(p)
	if !qualified {
		// Scheme-less: resolve against the default scheme/authority.
		if !strings.HasPrefix(p, "/") {
			return "", errors.NewInvalidPathError(p, "path is not absolute")
		}
		return buildKey(r.scheme, r.authority, p), nil
	}

	authority, pathPart := rest, "/"
	if slash := strings.Index(rest, "/"); slash >= 0 {
		authority, pathPart = rest[:slash], rest[slash:]
	}
	if !validAuthority(authority) {
		return "", errors.NewInvalidPathError(p, "malformed authority")
	}
	return buildKey(scheme, authority, pathPart), nil
}

// splitScheme splits a leading "scheme://" prefix off p. A colon anywhere
// past the first path byte is path data, so only a prefix that is itself a
// valid URI scheme qualifies.
func splitScheme(p string) (scheme, rest string, ok bool) {
	idx := strings.Index(p, "://")
	if idx <= 0 || !validScheme(p[:idx]) {
		return "", "", false
	}
	return p[:idx], p[idx+3:], true
}

// NormalizeEntry returns a copy of entry with Path rewritten to the
// canonical key.
func (r *Resolver) NormalizeEntry(entry PathEntry) (PathEntry, error) {
	key, err := r.Normalize(entry.Path)
	if err != nil {
		return PathEntry{}, err
	}
	entry.Path = key
	return entry, nil
}

func buildKey(scheme, authority, p string) string {
	cleaned := gopath.Clean("/" + strings.TrimPrefix(p, "/"))
	return scheme + "://" + authority + cleaned
}

func validScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// validAuthority rejects whitespace and control bytes in the authority.
// Bucket and host names are otherwise taken as given.
func validAuthority(a string) bool {
	for _, c := range a {
		if c <= ' ' {
			return false
		}
	}
	return true
}

// splitKey splits a canonical key into its authority prefix ("scheme://auth")
// and absolute path component ("/a/b", "/" for root). Keys are assumed
// well-formed since only Normalize produces them.
func splitKey(key string) (prefix, path string) {
	idx := strings.Index(key, "://")
	if idx < 0 {
		return "", key
	}
	rest := key[idx+3:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return key, "/"
	}
	return key[:idx+3+slash], rest[slash:]
}

// KeyPath returns the absolute path component of a canonical key.
func KeyPath(key string) string {
	_, p := splitKey(key)
	return p
}

// BaseName returns the final path element of a canonical key, or "/" for a
// root key.
func BaseName(key string) string {
	_, p := splitKey(key)
	return gopath.Base(p)
}

// IsRootKey reports whether key identifies the root of its authority.
func IsRootKey(key string) bool {
	_, p := splitKey(key)
	return p == "/"
}

// ParentKey returns the canonical key of key's immediate parent directory.
// ok is false for root keys, which have no parent.
func ParentKey(key string) (parent string, ok bool) {
	prefix, p := splitKey(key)
	if p == "/" {
		return "", false
	}
	return prefix + gopath.Dir(p), true
}

// SubtreePrefix returns the key prefix matched by every strict descendant
// of key. Root keys already end in "/" and are their own prefix.
func SubtreePrefix(key string) string {
	if strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

// InSubtree reports whether key is root itself or one of its descendants.
func InSubtree(key, root string) bool {
	return key == root || strings.HasPrefix(key, SubtreePrefix(root))
}

// SortEntries orders entries by canonical key, in place. Listings are sets;
// stores sort before returning them so output is deterministic.
func SortEntries(entries []PathEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
