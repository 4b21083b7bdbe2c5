package storetest

import (
	"fmt"
	"sync"
	"testing"
)

// runConcurrencyTests hammers one store from several goroutines at once.
// Every MetadataStore implementation must be safe for concurrent use, so
// this runs with -race against each backend, not just the in-memory one.
func runConcurrencyTests(t *testing.T, factory StoreFactory, fx Fixture) {
	t.Helper()

	t.Run("ParallelWorkers", func(t *testing.T) {
		h := newHarness(t, factory, fx)
		ctx := t.Context()

		const workers = 8
		const iterations = 50

		// Each worker owns a directory; the mix of puts, reads, listings,
		// and periodic deletes exercises cross-goroutine interleavings
		// without making the final state ambiguous.
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				dir := fmt.Sprintf("/w%d", w)
				for i := range iterations {
					p := fmt.Sprintf("%s/f%d", dir, i)
					if err := h.ms.Put(ctx, h.fileEntry(p, 100)); err != nil {
						t.Errorf("Put(%q) failed: %v", p, err)
						return
					}
					if _, err := h.ms.Get(ctx, p); err != nil {
						t.Errorf("Get(%q) failed: %v", p, err)
						return
					}
					if _, err := h.ms.ListChildren(ctx, dir); err != nil {
						t.Errorf("ListChildren(%q) failed: %v", dir, err)
						return
					}
					if i%10 == 9 {
						if err := h.ms.Delete(ctx, p); err != nil {
							t.Errorf("Delete(%q) failed: %v", p, err)
							return
						}
					}
				}
			}()
		}
		wg.Wait()

		for w := range workers {
			dir := fmt.Sprintf("/w%d", w)

			// A deleted entry must stay gone even for evicting stores.
			for i := 9; i < iterations; i += 10 {
				h.assertNotCached(t, fmt.Sprintf("%s/f%d", dir, i))
			}

			listing, err := h.ms.ListChildren(ctx, dir)
			if err != nil {
				t.Fatalf("ListChildren(%q) failed: %v", dir, err)
			}
			if listing == nil {
				if !h.allowMissing {
					t.Fatalf("directory %q not in cache", dir)
				}
				continue
			}
			deleted := make(map[string]struct{}, iterations/10)
			for i := 9; i < iterations; i += 10 {
				deleted[h.key(t, fmt.Sprintf("%s/f%d", dir, i))] = struct{}{}
			}
			for _, child := range listing.Entries {
				if _, ok := deleted[child.Path]; ok {
					t.Fatalf("directory %q still lists deleted child %q", dir, child.Path)
				}
			}
			if !h.allowMissing {
				want := iterations - iterations/10
				if got := len(listing.Entries); got != want {
					t.Fatalf("directory %q has %d entries, want %d", dir, got, want)
				}
			}
		}
	})
}
