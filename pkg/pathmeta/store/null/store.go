// Package null provides a metadata store that caches nothing.
//
// Every write is accepted and forgotten; every read reports absent. It is
// the "caching disabled" configuration: callers fall back to the backing
// store on every lookup, which is exactly what AllowsMissing signals to the
// conformance suite.
package null

import (
	"context"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
)

// NullMetadataStore is the no-op implementation of pathmeta.MetadataStore.
type NullMetadataStore struct {
	pathmeta.Lifecycle
}

// New creates a null metadata store.
func New() *NullMetadataStore {
	return &NullMetadataStore{}
}

// Initialize binds the store to the backing store identity. Even a no-op
// store enforces the lifecycle and validates paths, so misconfigured
// callers fail the same way against every backend.
func (s *NullMetadataStore) Initialize(ctx context.Context, id backing.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Bind(id)
}

// Close is a no-op beyond the state transition.
func (s *NullMetadataStore) Close() error {
	s.Shutdown()
	return nil
}

// Put validates and discards the entry.
func (s *NullMetadataStore) Put(ctx context.Context, entry pathmeta.PathEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	_, err = resolver.NormalizeEntry(entry)
	return err
}

// PutListing validates and discards the listing.
func (s *NullMetadataStore) PutListing(ctx context.Context, listing pathmeta.DirListing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	if _, err := resolver.Normalize(listing.Path); err != nil {
		return err
	}
	for _, child := range listing.Entries {
		if _, err := resolver.NormalizeEntry(child); err != nil {
			return err
		}
	}
	return nil
}

// Get always reports absent.
func (s *NullMetadataStore) Get(ctx context.Context, path string) (*pathmeta.PathEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolver, err := s.Resolver()
	if err != nil {
		return nil, err
	}
	if _, err := resolver.Normalize(path); err != nil {
		return nil, err
	}
	return nil, nil
}

// ListChildren reports absent for everything except roots, which always
// list as empty.
func (s *NullMetadataStore) ListChildren(ctx context.Context, path string) (*pathmeta.DirListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolver, err := s.Resolver()
	if err != nil {
		return nil, err
	}
	key, err := resolver.Normalize(path)
	if err != nil {
		return nil, err
	}
	if pathmeta.IsRootKey(key) {
		return &pathmeta.DirListing{Path: key, Entries: []pathmeta.PathEntry{}}, nil
	}
	return nil, nil
}

// Delete validates the path and does nothing.
func (s *NullMetadataStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	_, err = resolver.Normalize(path)
	return err
}

// DeleteSubtree validates the path and does nothing.
func (s *NullMetadataStore) DeleteSubtree(ctx context.Context, path string) error {
	return s.Delete(ctx, path)
}

// Move validates both sets and does nothing.
func (s *NullMetadataStore) Move(ctx context.Context, sources []string, destinations []pathmeta.PathEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := resolver.Normalize(src); err != nil {
			return err
		}
	}
	for _, dst := range destinations {
		if _, err := resolver.NormalizeEntry(dst); err != nil {
			return err
		}
	}
	return nil
}

// AllowsMissing reports true: everything is missing here.
func (s *NullMetadataStore) AllowsMissing() bool {
	return true
}
