package badger

import (
	"context"
	goerrors "errors"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// Put inserts or replaces a single entry and updates the immediate parent's
// listing membership. Put never recurses beyond one level.
func (s *BadgerMetadataStore) Put(ctx context.Context, entry pathmeta.PathEntry) error {
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

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return putEntryTx(txn, entry, true)
	})
	return wrapStoreErr("put", err)
}

// PutListing replaces the full listing for listing.Path and upserts every
// supplied child entry.
func (s *BadgerMetadataStore) PutListing(ctx context.Context, listing pathmeta.DirListing) error {
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

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		rec := listingRecord{Authoritative: listing.Authoritative}
		for _, child := range children {
			rec = rec.withChild(child.Path)
		}
		if err := putListingTx(txn, dirKey, rec); err != nil {
			return err
		}

		// Membership is already exact, so the children skip the parent
		// update.
		for _, child := range children {
			if err := putEntryTx(txn, child, false); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapStoreErr("put listing", err)
}

// Get returns the stored entry, or nil when the database has no record of
// the path.
func (s *BadgerMetadataStore) Get(ctx context.Context, path string) (*pathmeta.PathEntry, error) {
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

	var result *pathmeta.PathEntry
	err = s.db.View(func(txn *badgerdb.Txn) error {
		entry, found, err := getEntryTx(txn, key)
		if err != nil || !found {
			return err
		}
		result = &entry
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("get", err)
	}
	return result, nil
}

// ListChildren returns the stored listing for a directory, or nil for an
// unknown directory. Root keys always resolve to a listing.
func (s *BadgerMetadataStore) ListChildren(ctx context.Context, path string) (*pathmeta.DirListing, error) {
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

	var result *pathmeta.DirListing
	err = s.db.View(func(txn *badgerdb.Txn) error {
		rec, found, err := getListingTx(txn, key)
		if err != nil {
			return err
		}
		if !found {
			if pathmeta.IsRootKey(key) {
				// Root conceptually always exists, starting empty.
				result = &pathmeta.DirListing{Path: key, Entries: []pathmeta.PathEntry{}}
			}
			return nil
		}

		entries := make([]pathmeta.PathEntry, 0, len(rec.Children))
		for _, child := range rec.Children {
			entry, found, err := getEntryTx(txn, child)
			if err != nil {
				return err
			}
			if found {
				entries = append(entries, entry)
			}
		}
		pathmeta.SortEntries(entries)

		result = &pathmeta.DirListing{
			Path:          key,
			Entries:       entries,
			Authoritative: rec.Authoritative,
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("list children", err)
	}
	return result, nil
}

// Delete removes the single entry at path and its listing membership.
// Deleting an absent path is a silent no-op.
func (s *BadgerMetadataStore) Delete(ctx context.Context, path string) error {
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

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return deleteEntryTx(txn, key)
	})
	return wrapStoreErr("delete", err)
}

// DeleteSubtree removes path and every descendant entry and listing.
// Deleting the root key clears the whole tree under that authority while
// leaving the root itself queryable.
func (s *BadgerMetadataStore) DeleteSubtree(ctx context.Context, path string) error {
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

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		if parent, ok := pathmeta.ParentKey(root); ok {
			rec, found, err := getListingTx(txn, parent)
			if err != nil {
				return err
			}
			if found {
				if err := putListingTx(txn, parent, rec.withoutChild(root)); err != nil {
					return err
				}
			}
		}

		// Canonical keys sort in tree order, so the subtree is one range
		// scan per namespace. Deletes are collected first: mutating under
		// an open iterator is not allowed.
		doomed, err := subtreeKeysTx(txn, root)
		if err != nil {
			return err
		}
		for _, dbKey := range doomed {
			if err := txn.Delete(dbKey); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapStoreErr("delete subtree", err)
}

// Move deletes every source key and inserts every destination entry inside
// one transaction, so readers observe either the pre-move or post-move
// state of this store.
func (s *BadgerMetadataStore) Move(ctx context.Context, sources []string, destinations []pathmeta.PathEntry) error {
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

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		for _, key := range sourceKeys {
			if err := deleteEntryTx(txn, key); err != nil {
				return err
			}
		}
		for _, entry := range destEntries {
			if err := putEntryTx(txn, entry, true); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapStoreErr("move", err)
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getEntryTx(txn *badgerdb.Txn, key string) (pathmeta.PathEntry, bool, error) {
	item, err := txn.Get(keyEntry(key))
	if err == badgerdb.ErrKeyNotFound {
		return pathmeta.PathEntry{}, false, nil
	}
	if err != nil {
		return pathmeta.PathEntry{}, false, err
	}

	var entry pathmeta.PathEntry
	err = item.Value(func(val []byte) error {
		var decErr error
		entry, decErr = decodeEntry(val)
		return decErr
	})
	if err != nil {
		return pathmeta.PathEntry{}, false, err
	}
	return entry, true, nil
}

func getListingTx(txn *badgerdb.Txn, key string) (listingRecord, bool, error) {
	item, err := txn.Get(keyListing(key))
	if err == badgerdb.ErrKeyNotFound {
		return listingRecord{}, false, nil
	}
	if err != nil {
		return listingRecord{}, false, err
	}

	var rec listingRecord
	err = item.Value(func(val []byte) error {
		var decErr error
		rec, decErr = decodeListing(val)
		return decErr
	})
	if err != nil {
		return listingRecord{}, false, err
	}
	return rec, true, nil
}

func putListingTx(txn *badgerdb.Txn, key string, rec listingRecord) error {
	val, err := encodeListing(rec)
	if err != nil {
		return err
	}
	return txn.Set(keyListing(key), val)
}

// putEntryTx stores entry (already canonical) and, when updateParent is set,
// adds it to the immediate parent's listing, lazily creating a
// non-authoritative listing for the parent. An authoritative parent listing
// keeps its flag: adding the child keeps the listing complete.
func putEntryTx(txn *badgerdb.Txn, entry pathmeta.PathEntry, updateParent bool) error {
	key := entry.Path

	prev, found, err := getEntryTx(txn, key)
	if err != nil {
		return err
	}
	if found && prev.IsDir && !entry.IsDir {
		// Directory replaced by a file: its listing is stale.
		if err := txn.Delete(keyListing(key)); err != nil {
			return err
		}
	}

	val, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := txn.Set(keyEntry(key), val); err != nil {
		return err
	}

	if entry.IsDir {
		_, found, err := getListingTx(txn, key)
		if err != nil {
			return err
		}
		if !found {
			// A freshly put directory lists as empty, not absent.
			if err := putListingTx(txn, key, listingRecord{}); err != nil {
				return err
			}
		}
	}

	if !updateParent {
		return nil
	}
	parent, ok := pathmeta.ParentKey(key)
	if !ok {
		return nil
	}
	rec, _, err := getListingTx(txn, parent)
	if err != nil {
		return err
	}
	return putListingTx(txn, parent, rec.withChild(key))
}

// deleteEntryTx removes the entry at key, its own listing, and its
// membership in the parent's listing. The parent's authoritative flag is
// preserved: removing a known child keeps a complete listing complete.
func deleteEntryTx(txn *badgerdb.Txn, key string) error {
	if parent, ok := pathmeta.ParentKey(key); ok {
		rec, found, err := getListingTx(txn, parent)
		if err != nil {
			return err
		}
		if found {
			if err := putListingTx(txn, parent, rec.withoutChild(key)); err != nil {
				return err
			}
		}
	}
	if err := txn.Delete(keyEntry(key)); err != nil {
		return err
	}
	return txn.Delete(keyListing(key))
}

// subtreeKeysTx collects every database key in both namespaces whose path
// key lies in root's subtree, root included.
func subtreeKeysTx(txn *badgerdb.Txn, root string) ([][]byte, error) {
	var doomed [][]byte

	for _, prefix := range []string{prefixEntry, prefixListing} {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		scanPrefix := []byte(prefix + pathmeta.SubtreePrefix(root))
		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			doomed = append(doomed, it.Item().KeyCopy(nil))
		}
		it.Close()

		// The scan prefix ends in "/" so it misses the root records
		// themselves.
		exact := []byte(prefix + root)
		if _, err := txn.Get(exact); err == nil {
			doomed = append(doomed, exact)
		} else if err != badgerdb.ErrKeyNotFound {
			return nil, err
		}
	}
	return doomed, nil
}

// wrapStoreErr wraps internal database failures as backing-store errors
// while passing domain StoreErrors and context errors through unchanged.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *errors.StoreError
	if goerrors.As(err, &storeErr) {
		return err
	}
	if goerrors.Is(err, context.Canceled) || goerrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.NewBackingStoreError(op, err)
}
