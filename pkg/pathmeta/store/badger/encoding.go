package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/metacache/pkg/pathmeta"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// BadgerDB is a key-value store, so prefixed keys organize the two record
// types into namespaces. Canonical path keys sort byte-wise in tree order,
// which makes a subtree exactly one prefix range scan.
//
// Record Type    Prefix   Key Format      Value Type
// =======================================================================
// Path Entry     "e:"     e:<pathKey>     pathmeta.PathEntry (JSON)
// Dir Listing    "d:"     d:<dirKey>      listingRecord (JSON)

const (
	prefixEntry   = "e:"
	prefixListing = "d:"
)

// listingRecord is the stored listing representation: the child-key set plus
// the completeness flag. Child attributes live in the entry records and are
// materialized on read.
type listingRecord struct {
	Children      []string `json:"children"`
	Authoritative bool     `json:"authoritative"`
}

func keyEntry(pathKey string) []byte {
	return []byte(prefixEntry + pathKey)
}

func keyListing(dirKey string) []byte {
	return []byte(prefixListing + dirKey)
}

func encodeEntry(entry pathmeta.PathEntry) ([]byte, error) {
	bytes, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode path entry: %w", err)
	}
	return bytes, nil
}

func decodeEntry(val []byte) (pathmeta.PathEntry, error) {
	var entry pathmeta.PathEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return pathmeta.PathEntry{}, fmt.Errorf("failed to decode path entry: %w", err)
	}
	return entry, nil
}

func encodeListing(rec listingRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dir listing: %w", err)
	}
	return bytes, nil
}

func decodeListing(val []byte) (listingRecord, error) {
	var rec listingRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return listingRecord{}, fmt.Errorf("failed to decode dir listing: %w", err)
	}
	return rec, nil
}

// withChild returns the record's child set with key added, without
// duplicates.
func (r listingRecord) withChild(key string) listingRecord {
	for _, c := range r.Children {
		if c == key {
			return r
		}
	}
	r.Children = append(r.Children, key)
	return r
}

// withoutChild returns the record's child set with key removed.
func (r listingRecord) withoutChild(key string) listingRecord {
	kept := r.Children[:0:0]
	for _, c := range r.Children {
		if c != key {
			kept = append(kept, c)
		}
	}
	r.Children = kept
	return r
}
