package memory

import (
	"context"

	"github.com/marmos91/metacache/pkg/pathmeta"
)

// Put inserts or replaces a single entry and updates the immediate parent's
// listing membership. Put never recurses beyond one level.
func (s *MemoryMetadataStore) Put(ctx context.Context, entry pathmeta.PathEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	entry, err = resolver.NormalizeEntry(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.putEntryLocked(entry, true)
	return nil
}

// PutListing replaces the full listing for listing.Path and upserts every
// supplied child entry.
func (s *MemoryMetadataStore) PutListing(ctx context.Context, listing pathmeta.DirListing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	dirKey, err := resolver.Normalize(listing.Path)
	if err != nil {
		return err
	}
	children := make([]pathmeta.PathEntry, 0, len(listing.Entries))
	for _, child := range listing.Entries {
		child, err = resolver.NormalizeEntry(child)
		if err != nil {
			return err
		}
		children = append(children, child)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replacement := newDirListing(listing.Authoritative)
	for _, child := range children {
		replacement.children[child.Path] = struct{}{}
	}
	s.listings.Put(dirKey, replacement)

	// Membership is already exact, so the children skip the parent update.
	for _, child := range children {
		s.putEntryLocked(child, false)
	}
	return nil
}

// Get returns a copy of the cached entry, or nil when the cache has no
// opinion on the path.
func (s *MemoryMetadataStore) Get(ctx context.Context, path string) (*pathmeta.PathEntry, error) {
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// ListChildren returns the known listing for a directory, or nil for an
// unknown directory. Root keys always resolve to a listing.
func (s *MemoryMetadataStore) ListChildren(ctx context.Context, path string) (*pathmeta.DirListing, error) {
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings.Get(key)
	if !ok {
		if pathmeta.IsRootKey(key) {
			// Root conceptually always exists, starting empty.
			return &pathmeta.DirListing{Path: key, Entries: []pathmeta.PathEntry{}}, nil
		}
		return nil, nil
	}

	return s.materializeLocked(key, listing), nil
}

// Delete removes the single entry at path and its listing membership.
// Deleting an absent path is a silent no-op.
func (s *MemoryMetadataStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	key, err := resolver.Normalize(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteEntryLocked(key)
	return nil
}

// DeleteSubtree removes path and every descendant entry and listing.
// Deleting the root key clears the whole tree under that authority while
// leaving the root itself queryable.
func (s *MemoryMetadataStore) DeleteSubtree(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	root, err := resolver.Normalize(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parent, ok := pathmeta.ParentKey(root); ok {
		if listing, ok := s.listings.Get(parent); ok {
			delete(listing.children, root)
		}
	}

	for _, key := range s.entries.Keys() {
		if pathmeta.InSubtree(key, root) {
			s.entries.Delete(key)
		}
	}
	for _, key := range s.listings.Keys() {
		if pathmeta.InSubtree(key, root) {
			s.listings.Delete(key)
		}
	}
	return nil
}

// Move deletes every source key and inserts every destination entry. The
// batch holds the write lock for its whole duration, so readers observe
// either the pre-move or post-move state of this store.
func (s *MemoryMetadataStore) Move(ctx context.Context, sources []string, destinations []pathmeta.PathEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resolver, err := s.Resolver()
	if err != nil {
		return err
	}

	sourceKeys := make([]string, 0, len(sources))
	for _, src := range sources {
		key, err := resolver.Normalize(src)
		if err != nil {
			return err
		}
		sourceKeys = append(sourceKeys, key)
	}
	destEntries := make([]pathmeta.PathEntry, 0, len(destinations))
	for _, dst := range destinations {
		dst, err = resolver.NormalizeEntry(dst)
		if err != nil {
			return err
		}
		destEntries = append(destEntries, dst)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range sourceKeys {
		s.deleteEntryLocked(key)
	}
	for _, entry := range destEntries {
		s.putEntryLocked(entry, true)
	}
	return nil
}

// ============================================================================
// Locked helpers
// ============================================================================

// putEntryLocked stores entry (already canonical) and, when updateParent is
// set, adds it to the immediate parent's listing, lazily creating a
// non-authoritative listing for the parent. An authoritative parent listing
// keeps its flag: adding the child keeps the listing complete.
func (s *MemoryMetadataStore) putEntryLocked(entry pathmeta.PathEntry, updateParent bool) {
	key := entry.Path

	if prev, ok := s.entries.Get(key); ok && prev.IsDir && !entry.IsDir {
		// Directory replaced by a file: its listing is stale.
		s.listings.Delete(key)
	}

	s.entries.Put(key, entry)

	if entry.IsDir {
		if _, ok := s.listings.Get(key); !ok {
			// A freshly put directory lists as empty, not absent.
			s.listings.Put(key, newDirListing(false))
		}
	}

	if !updateParent {
		return
	}
	parent, ok := pathmeta.ParentKey(key)
	if !ok {
		return
	}
	listing, ok := s.listings.Get(parent)
	if !ok {
		listing = newDirListing(false)
		s.listings.Put(parent, listing)
	}
	listing.children[key] = struct{}{}
}

// deleteEntryLocked removes the entry at key, its own listing, and its
// membership in the parent's listing. The membership goes first so that the
// LRU eviction callback sees a deliberate delete, and the parent's
// authoritative flag is preserved: removing a known child keeps a complete
// listing complete.
func (s *MemoryMetadataStore) deleteEntryLocked(key string) {
	if parent, ok := pathmeta.ParentKey(key); ok {
		if listing, ok := s.listings.Get(parent); ok {
			delete(listing.children, key)
		}
	}
	s.entries.Delete(key)
	s.listings.Delete(key)
}

// materializeLocked builds a caller-owned DirListing from the internal
// child-key set. Children whose entries were evicted are skipped; the
// bounded store's eviction callback has already cleared the authoritative
// flag in that case.
func (s *MemoryMetadataStore) materializeLocked(key string, listing *dirListing) *pathmeta.DirListing {
	entries := make([]pathmeta.PathEntry, 0, len(listing.children))
	for child := range listing.children {
		if entry, ok := s.entries.Get(child); ok {
			entries = append(entries, entry)
		}
	}
	pathmeta.SortEntries(entries)

	return &pathmeta.DirListing{
		Path:          key,
		Entries:       entries,
		Authoritative: listing.authoritative,
	}
}
