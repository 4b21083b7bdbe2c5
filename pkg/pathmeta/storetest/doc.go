// Package storetest provides a conformance test suite for metadata store
// implementations.
//
// All metadata store backends (memory, badger, postgres) should pass these
// tests. The suite verifies that every store implementation satisfies the
// MetadataStore behavioral contract, catching regressions when store code
// changes.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) pathmeta.MetadataStore {
//	        return memory.New(memory.Config{})
//	    })
//	}
//
// The factory returns an uninitialized store; the suite performs the
// Initialize/Close lifecycle itself so it can also verify state-machine
// behavior. The factory receives *testing.T so it can call t.TempDir() for
// stores that need filesystem paths (e.g. BadgerDB) and t.Cleanup for
// teardown.
//
// Stores that may evict recently written entries (AllowsMissing) get the
// same relaxation the original contract offers: assertions on recently
// written state accept an absent result, but never an incorrect one.
package storetest
