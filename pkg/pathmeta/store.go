// Package pathmeta defines the path-metadata cache abstraction: the data
// model for cached path entries and directory listings, the canonical path
// key resolver, and the MetadataStore interface implemented by the backends
// under store/.
//
// The cache sits in front of an object store whose listing and status calls
// may be slow or eventually consistent. It answers Get/ListChildren from
// cached state; an absent result means "the cache has no opinion" and the
// caller falls back to the backing store.
package pathmeta

import (
	"context"

	"github.com/marmos91/metacache/pkg/backing"
)

// MetadataStore is a strongly-consistent cache of a filesystem-like
// namespace keyed by canonical path.
//
// Lifecycle: a store starts uninitialized. Initialize binds it to a backing
// store identity (used to resolve default-scheme paths) and must be called
// exactly once before any other operation. Close releases resources and is
// terminal; a second Close is a safe no-op. Operations invoked before
// Initialize or after Close fail with a NotInitialized StoreError.
//
// All implementations are safe for concurrent use. Per-key and per-listing
// mutations are atomic: a Get concurrent with a Put on the same key observes
// either the old or the new value. Move's batch is best-effort, not a
// transaction; concurrent readers may observe some sources removed before
// all destinations are inserted.
//
// Tree invariants preserved by every implementation:
//
//   - A directory listing tracks only direct children. Put never recurses:
//     inserting /a/b/c updates /a/b's listing and nothing above it.
//   - Put of a directory entry lazily creates that directory's own empty,
//     non-authoritative listing.
//   - A listing populated only through individual Put calls is never
//     authoritative; only PutListing sets the flag.
//   - Individual Put/Delete on a child of an authoritative listing update
//     its membership in place and preserve the flag: a complete listing
//     stays complete.
//   - Root keys always "exist": ListChildren on a root key never returns
//     absent, and DeleteSubtree of a root leaves it queryable with an
//     empty, non-authoritative listing.
type MetadataStore interface {
	// Initialize binds the store to the identity of the backing store and
	// transitions it to the ready state. Must be called exactly once.
	Initialize(ctx context.Context, id backing.Identity) error

	// Close releases held resources. The store must not be used afterwards;
	// a second Close is a no-op.
	Close() error

	// Put inserts or replaces the entry at its canonical key and adds the
	// key to the immediate parent's listing. An existing entry at the same
	// key is silently replaced in full.
	Put(ctx context.Context, entry PathEntry) error

	// PutListing replaces the full listing for listing.Path with the
	// supplied children and authoritative flag, and upserts every supplied
	// child entry as Put does.
	PutListing(ctx context.Context, listing DirListing) error

	// Get returns a copy of the cached entry for path, or nil if the cache
	// has no opinion. Absent is not an error. Stores that report
	// AllowsMissing may return nil even for recently written keys.
	Get(ctx context.Context, path string) (*PathEntry, error)

	// ListChildren returns the known listing for a directory, or nil if
	// the store has no record of it. An authoritative empty listing
	// (confirmed zero children) is distinct from nil.
	ListChildren(ctx context.Context, path string) (*DirListing, error)

	// Delete removes the single entry at path, if present, and removes it
	// from its parent's listing. Descendants are untouched. Deleting an
	// absent path is a silent no-op.
	Delete(ctx context.Context, path string) error

	// DeleteSubtree removes the entry at path and every descendant entry
	// and listing, and removes path from its parent's listing. Deleting an
	// absent subtree root is a silent no-op.
	DeleteSubtree(ctx context.Context, path string) error

	// Move deletes every source key (non-recursively, as Delete does) and
	// inserts every destination entry (as Put does). The caller enumerates
	// all moved paths in both sets; no implicit subtree discovery is
	// performed and sources are not cross-checked against destinations.
	Move(ctx context.Context, sources []string, destinations []PathEntry) error

	// AllowsMissing reports whether this store may evict or expire entries,
	// i.e. whether a nil Get result after a successful Put is acceptable.
	// Evicting stores lose data, they never return stale data.
	AllowsMissing() bool
}
