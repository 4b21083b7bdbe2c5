package postgres

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// Put inserts or replaces a single entry and updates the immediate parent's
// listing membership. Put never recurses beyond one level.
func (s *PostgresMetadataStore) Put(ctx context.Context, entry pathmeta.PathEntry) error {
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

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		return putEntryTx(ctx, tx, entry, true)
	})
	return wrapStoreErr("put", err)
}

// PutListing replaces the full listing for listing.Path and upserts every
// supplied child entry.
func (s *PostgresMetadataStore) PutListing(ctx context.Context, listing pathmeta.DirListing) error {
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

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO dir_listings (dir_key, authoritative)
			VALUES ($1, $2)
			ON CONFLICT (dir_key) DO UPDATE SET authoritative = EXCLUDED.authoritative
		`, dirKey, listing.Authoritative)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM dir_children WHERE dir_key = $1`, dirKey); err != nil {
			return err
		}

		// Membership is already exact, so the children skip the parent
		// update.
		for _, child := range children {
			if _, err := tx.Exec(ctx, `
				INSERT INTO dir_children (dir_key, child_key)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, dirKey, child.Path); err != nil {
				return err
			}
			if err := putEntryTx(ctx, tx, child, false); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapStoreErr("put listing", err)
}

// Get returns the stored entry, or nil when the database has no record of
// the path.
func (s *PostgresMetadataStore) Get(ctx context.Context, path string) (*pathmeta.PathEntry, error) {
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

	row := s.pool.QueryRow(ctx, `
		SELECT path_key, is_dir, length, block_size, replication,
		       access_time_ns, mod_time_ns, owner_name, group_name, mode, tombstoned
		FROM path_entries
		WHERE path_key = $1
	`, key)

	entry, err := scanEntry(row)
	if goerrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("get", err)
	}
	return &entry, nil
}

// ListChildren returns the stored listing for a directory, or nil for an
// unknown directory. Root keys always resolve to a listing.
func (s *PostgresMetadataStore) ListChildren(ctx context.Context, path string) (*pathmeta.DirListing, error) {
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
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		var authoritative bool
		err := tx.QueryRow(ctx,
			`SELECT authoritative FROM dir_listings WHERE dir_key = $1`, key,
		).Scan(&authoritative)
		if goerrors.Is(err, pgx.ErrNoRows) {
			if pathmeta.IsRootKey(key) {
				// Root conceptually always exists, starting empty.
				result = &pathmeta.DirListing{Path: key, Entries: []pathmeta.PathEntry{}}
			}
			return nil
		}
		if err != nil {
			return err
		}

		// Membership rows without a matching entry drop out of the join,
		// matching the other backends' skip-on-missing behavior.
		rows, err := tx.Query(ctx, `
			SELECT e.path_key, e.is_dir, e.length, e.block_size, e.replication,
			       e.access_time_ns, e.mod_time_ns, e.owner_name, e.group_name, e.mode, e.tombstoned
			FROM dir_children c
			JOIN path_entries e ON e.path_key = c.child_key
			WHERE c.dir_key = $1
			ORDER BY e.path_key
		`, key)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries := []pathmeta.PathEntry{}
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		result = &pathmeta.DirListing{
			Path:          key,
			Entries:       entries,
			Authoritative: authoritative,
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
func (s *PostgresMetadataStore) Delete(ctx context.Context, path string) error {
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

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		return deleteEntryTx(ctx, tx, key)
	})
	return wrapStoreErr("delete", err)
}

// DeleteSubtree removes path and every descendant entry and listing.
// Deleting the root key clears the whole tree under that authority while
// leaving the root itself queryable.
func (s *PostgresMetadataStore) DeleteSubtree(ctx context.Context, path string) error {
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
	prefix := pathmeta.SubtreePrefix(root)

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		// Parent membership first, then both namespaces by prefix. The
		// dir_children rows inside the subtree go away with their listings
		// via the cascade.
		if _, err := tx.Exec(ctx, `DELETE FROM dir_children WHERE child_key = $1`, root); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM path_entries WHERE path_key = $1 OR starts_with(path_key, $2)
		`, root, prefix); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM dir_listings WHERE dir_key = $1 OR starts_with(dir_key, $2)
		`, root, prefix)
		return err
	})
	return wrapStoreErr("delete subtree", err)
}

// Move deletes every source key and inserts every destination entry inside
// one transaction, so readers observe either the pre-move or post-move
// state of this store.
func (s *PostgresMetadataStore) Move(ctx context.Context, sources []string, destinations []pathmeta.PathEntry) error {
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

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		for _, key := range sourceKeys {
			if err := deleteEntryTx(ctx, tx, key); err != nil {
				return err
			}
		}
		for _, entry := range destEntries {
			if err := putEntryTx(ctx, tx, entry, true); err != nil {
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

// withTx runs fn in a transaction, committing on success.
func (s *PostgresMetadataStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// putEntryTx stores entry (already canonical) and, when updateParent is set,
// adds it to the immediate parent's listing, lazily creating a
// non-authoritative listing for the parent. An authoritative parent listing
// keeps its flag: adding the child keeps the listing complete.
func putEntryTx(ctx context.Context, tx pgx.Tx, entry pathmeta.PathEntry, updateParent bool) error {
	key := entry.Path

	var prevIsDir bool
	err := tx.QueryRow(ctx,
		`SELECT is_dir FROM path_entries WHERE path_key = $1`, key,
	).Scan(&prevIsDir)
	if err != nil && !goerrors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err == nil && prevIsDir && !entry.IsDir {
		// Directory replaced by a file: its listing is stale.
		if _, err := tx.Exec(ctx, `DELETE FROM dir_listings WHERE dir_key = $1`, key); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO path_entries (
			path_key, is_dir, length, block_size, replication,
			access_time_ns, mod_time_ns, owner_name, group_name, mode, tombstoned
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (path_key) DO UPDATE SET
			is_dir = EXCLUDED.is_dir,
			length = EXCLUDED.length,
			block_size = EXCLUDED.block_size,
			replication = EXCLUDED.replication,
			access_time_ns = EXCLUDED.access_time_ns,
			mod_time_ns = EXCLUDED.mod_time_ns,
			owner_name = EXCLUDED.owner_name,
			group_name = EXCLUDED.group_name,
			mode = EXCLUDED.mode,
			tombstoned = EXCLUDED.tombstoned
	`,
		key, entry.IsDir, entry.Length, entry.BlockSize, entry.Replication,
		encodeTimeNs(entry.AccessTime), encodeTimeNs(entry.ModTime),
		entry.Owner, entry.Group, int64(entry.Mode), entry.Tombstoned,
	); err != nil {
		return err
	}

	if entry.IsDir {
		// A freshly put directory lists as empty, not absent.
		if _, err := tx.Exec(ctx, `
			INSERT INTO dir_listings (dir_key, authoritative)
			VALUES ($1, FALSE)
			ON CONFLICT (dir_key) DO NOTHING
		`, key); err != nil {
			return err
		}
	}

	if !updateParent {
		return nil
	}
	parent, ok := pathmeta.ParentKey(key)
	if !ok {
		return nil
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO dir_listings (dir_key, authoritative)
		VALUES ($1, FALSE)
		ON CONFLICT (dir_key) DO NOTHING
	`, parent); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO dir_children (dir_key, child_key)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, parent, key)
	return err
}

// deleteEntryTx removes the entry at key, its own listing, and its
// membership in the parent's listing. The parent's authoritative flag is
// preserved: removing a known child keeps a complete listing complete.
func deleteEntryTx(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM dir_children WHERE child_key = $1`, key); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM path_entries WHERE path_key = $1`, key); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `DELETE FROM dir_listings WHERE dir_key = $1`, key)
	return err
}

// scanEntry maps one path_entries row onto a PathEntry.
func scanEntry(row pgx.Row) (pathmeta.PathEntry, error) {
	var entry pathmeta.PathEntry
	var mode int64
	var accessNs, modNs *int64
	err := row.Scan(
		&entry.Path, &entry.IsDir, &entry.Length, &entry.BlockSize, &entry.Replication,
		&accessNs, &modNs, &entry.Owner, &entry.Group, &mode, &entry.Tombstoned,
	)
	if err != nil {
		return pathmeta.PathEntry{}, err
	}
	entry.Mode = uint32(mode)
	entry.AccessTime = decodeTimeNs(accessNs)
	entry.ModTime = decodeTimeNs(modNs)
	return entry, nil
}

// encodeTimeNs maps a timestamp to epoch nanoseconds, NULL for the zero
// time, so values round-trip bit-exactly through the BIGINT column.
func encodeTimeNs(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ns := t.UnixNano()
	return &ns
}

func decodeTimeNs(ns *int64) time.Time {
	if ns == nil {
		return time.Time{}
	}
	return time.Unix(0, *ns).UTC()
}

// wrapStoreErr wraps database failures as backing-store errors while
// passing domain StoreErrors and context errors through unchanged.
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
