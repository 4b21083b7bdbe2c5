// Package instrumented wraps any metadata store with per-operation
// metrics.
package instrumented

import (
	"context"
	"time"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
)

// Store decorates a pathmeta.MetadataStore with operation counters and
// latency observations. A nil StoreMetrics disables recording, so callers
// can wrap unconditionally.
type Store struct {
	inner   pathmeta.MetadataStore
	metrics pathmeta.StoreMetrics
}

// Wrap decorates inner with m. When m is nil the inner store is returned
// unwrapped.
func Wrap(inner pathmeta.MetadataStore, m pathmeta.StoreMetrics) pathmeta.MetadataStore {
	if m == nil {
		return inner
	}
	return &Store{inner: inner, metrics: m}
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOp(op, time.Since(start), err)
}

func (s *Store) Initialize(ctx context.Context, id backing.Identity) error {
	start := time.Now()
	err := s.inner.Initialize(ctx, id)
	s.observe("initialize", start, err)
	return err
}

func (s *Store) Close() error {
	start := time.Now()
	err := s.inner.Close()
	s.observe("close", start, err)
	return err
}

func (s *Store) Put(ctx context.Context, entry pathmeta.PathEntry) error {
	start := time.Now()
	err := s.inner.Put(ctx, entry)
	s.observe("put", start, err)
	return err
}

func (s *Store) PutListing(ctx context.Context, listing pathmeta.DirListing) error {
	start := time.Now()
	err := s.inner.PutListing(ctx, listing)
	s.observe("put_listing", start, err)
	return err
}

func (s *Store) Get(ctx context.Context, path string) (*pathmeta.PathEntry, error) {
	start := time.Now()
	entry, err := s.inner.Get(ctx, path)
	s.observe("get", start, err)
	return entry, err
}

func (s *Store) ListChildren(ctx context.Context, path string) (*pathmeta.DirListing, error) {
	start := time.Now()
	listing, err := s.inner.ListChildren(ctx, path)
	s.observe("list_children", start, err)
	return listing, err
}

func (s *Store) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, path)
	s.observe("delete", start, err)
	return err
}

func (s *Store) DeleteSubtree(ctx context.Context, path string) error {
	start := time.Now()
	err := s.inner.DeleteSubtree(ctx, path)
	s.observe("delete_subtree", start, err)
	return err
}

func (s *Store) Move(ctx context.Context, sources []string, destinations []pathmeta.PathEntry) error {
	start := time.Now()
	err := s.inner.Move(ctx, sources, destinations)
	s.observe("move", start, err)
	return err
}

func (s *Store) AllowsMissing() bool {
	return s.inner.AllowsMissing()
}
