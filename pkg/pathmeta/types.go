package pathmeta

import (
	"time"
)

// PathEntry is a single path's cached attributes.
//
// An entry is identified by its canonical path key (see Resolver). Put
// replaces an entry wholesale; there is no field-level merge. Entries are
// plain values: stores hand out copies, never references into their own
// state.
type PathEntry struct {
	// Path is the canonical path key. Stores rewrite this field to the
	// canonical form on Put, so a caller-supplied scheme-less spelling is
	// accepted.
	Path string `json:"path"`

	// IsDir reports whether this entry describes a directory.
	IsDir bool `json:"is_dir"`

	// Length is the file length in bytes. Zero for directories.
	Length int64 `json:"length"`

	// BlockSize is the block size reported by the backing store.
	BlockSize int64 `json:"block_size"`

	// Replication is the replication factor reported by the backing store.
	Replication int `json:"replication"`

	// AccessTime is the last access time.
	AccessTime time.Time `json:"access_time"`

	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time"`

	// Owner and Group are the owning user and group names.
	Owner string `json:"owner"`
	Group string `json:"group"`

	// Mode holds the permission bits (e.g. 0755).
	Mode uint32 `json:"mode"`

	// Tombstoned marks a logical deletion that may not yet have propagated
	// to the backing store. Reserved for delete-tracking; no operation in
	// this package sets it.
	Tombstoned bool `json:"tombstoned,omitempty"`
}

// DirListing is the set of known direct children of one directory.
//
// A listing tracks direct children only, never descendants. Authoritative
// is true only when the listing is known to be complete: every live child
// of the directory is present. Listings populated incrementally through
// individual Put calls are never authoritative.
type DirListing struct {
	// Path is the directory's canonical path key.
	Path string `json:"path"`

	// Entries holds one PathEntry per known direct child. Order is not
	// significant; stores return entries sorted by path for determinism.
	Entries []PathEntry `json:"entries"`

	// Authoritative reports whether Entries is known to be the complete
	// set of live children.
	Authoritative bool `json:"authoritative"`
}

// ChildKeys returns the canonical keys of the listing's entries.
func (l *DirListing) ChildKeys() []string {
	keys := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		keys = append(keys, e.Path)
	}
	return keys
}
