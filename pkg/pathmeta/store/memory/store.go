// Package memory provides an in-memory metadata store implementation.
//
// The store keeps entries and listings in maps guarded by a single RWMutex.
// With MaxEntries set it switches to LRU-bounded tables: evicting an entry
// also removes its listing membership and downgrades the parent listing to
// non-authoritative, so eviction produces missing data, never stale data.
// A bounded store reports AllowsMissing.
package memory

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/marmos91/metacache/internal/logger"
	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
)

// Config holds configuration for the in-memory metadata store.
type Config struct {
	// MaxEntries bounds the number of cached path entries and the number
	// of cached listings (each bounded separately). Zero means unbounded.
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries"`
}

// MemoryMetadataStore is an in-memory implementation of
// pathmeta.MetadataStore.
type MemoryMetadataStore struct {
	pathmeta.Lifecycle

	cfg Config
	log *slog.Logger

	// mu guards entries and listings. All table mutation happens under the
	// write lock, so LRU eviction callbacks run with the lock held and must
	// not lock again.
	mu       sync.RWMutex
	entries  table[pathmeta.PathEntry]
	listings table[*dirListing]
}

// dirListing is the internal listing representation: a set of child keys
// plus the completeness flag. Child attributes live in the entries table
// and are materialized on read.
type dirListing struct {
	children      map[string]struct{}
	authoritative bool
}

func newDirListing(authoritative bool) *dirListing {
	return &dirListing{
		children:      make(map[string]struct{}),
		authoritative: authoritative,
	}
}

// New creates an in-memory metadata store. The store must be initialized
// with a backing store identity before use.
func New(cfg Config) *MemoryMetadataStore {
	s := &MemoryMetadataStore{
		cfg: cfg,
		log: logger.With(logger.KeyStore, "memory"),
	}

	if cfg.MaxEntries > 0 {
		// Entry eviction removes the key from its parent's listing and
		// clears the parent's authoritative flag: the listing is no longer
		// known to be complete. Deliberate deletes remove the membership
		// before removing the entry, so the callback only fires work for
		// genuine evictions.
		entryCache, _ := lru.NewWithEvict(cfg.MaxEntries, func(key string, _ pathmeta.PathEntry) {
			s.dropMembershipOnEvict(key)
		})
		listingCache, _ := lru.New[string, *dirListing](cfg.MaxEntries)
		s.entries = lruTable[pathmeta.PathEntry]{entryCache}
		s.listings = lruTable[*dirListing]{listingCache}
	} else {
		s.entries = mapTable[pathmeta.PathEntry]{m: make(map[string]pathmeta.PathEntry)}
		s.listings = mapTable[*dirListing]{m: make(map[string]*dirListing)}
	}

	return s
}

// Initialize binds the store to the backing store identity.
func (s *MemoryMetadataStore) Initialize(ctx context.Context, id backing.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Bind(id); err != nil {
		return err
	}

	s.log.Debug("memory metadata store initialized",
		logger.KeyBacking, id.Scheme()+"://"+id.Authority(),
		"max_entries", s.cfg.MaxEntries,
	)
	return nil
}

// Close releases the cached state. A second Close is a no-op.
func (s *MemoryMetadataStore) Close() error {
	if !s.Shutdown() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Purge()
	s.listings.Purge()

	s.log.Debug("memory metadata store closed")
	return nil
}

// AllowsMissing reports whether the store may evict entries.
func (s *MemoryMetadataStore) AllowsMissing() bool {
	return s.cfg.MaxEntries > 0
}

// dropMembershipOnEvict runs inside the LRU eviction callback with s.mu
// already held by the mutating operation.
func (s *MemoryMetadataStore) dropMembershipOnEvict(key string) {
	parent, ok := pathmeta.ParentKey(key)
	if !ok {
		return
	}
	listing, ok := s.listings.Get(parent)
	if !ok {
		return
	}
	if _, member := listing.children[key]; !member {
		return
	}
	delete(listing.children, key)
	listing.authoritative = false
}

// ============================================================================
// Internal key/value tables
// ============================================================================
//
// The store logic is written once against this small table interface; the
// two implementations are a plain map (unbounded) and a hashicorp LRU cache
// (bounded). LRU Purge fires the eviction callback per key, which is
// harmless on Close: membership cleanup on state being discarded wholesale.

type table[V any] interface {
	Get(key string) (V, bool)
	Put(key string, value V)
	Delete(key string)
	Keys() []string
	Purge()
}

type mapTable[V any] struct {
	m map[string]V
}

func (t mapTable[V]) Get(key string) (V, bool) {
	v, ok := t.m[key]
	return v, ok
}

func (t mapTable[V]) Put(key string, value V) {
	t.m[key] = value
}

func (t mapTable[V]) Delete(key string) {
	delete(t.m, key)
}

func (t mapTable[V]) Keys() []string {
	keys := make([]string, 0, len(t.m))
	for k := range t.m {
		keys = append(keys, k)
	}
	return keys
}

func (t mapTable[V]) Purge() {
	clear(t.m)
}

type lruTable[V any] struct {
	c *lru.Cache[string, V]
}

func (t lruTable[V]) Get(key string) (V, bool) {
	return t.c.Get(key)
}

func (t lruTable[V]) Put(key string, value V) {
	t.c.Add(key, value)
}

func (t lruTable[V]) Delete(key string) {
	t.c.Remove(key)
}

func (t lruTable[V]) Keys() []string {
	return t.c.Keys()
}

func (t lruTable[V]) Purge() {
	t.c.Purge()
}
