// Package storetest provides a conformance test suite for session store
// implementations.
//
// All session store backends (memory, badger, redis) should pass these
// tests. The suite verifies that every implementation satisfies the Store
// behavioral contract, in particular the atomicity of ApplyChunk that the
// upload protocol's exactly-once finalization depends on.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) store.Store {
//	        return store.NewMemoryStore(0)
//	    })
//	}
//
// The factory function receives *testing.T so it can call t.TempDir() for
// stores that need filesystem paths (e.g., Badger) and t.Cleanup for
// teardown.
package storetest
