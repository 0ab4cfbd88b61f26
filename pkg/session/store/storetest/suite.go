package storetest

import (
	"testing"
	"time"

	"github.com/vingest/vingest/pkg/session"
	"github.com/vingest/vingest/pkg/session/store"
)

// StoreFactory creates a fresh Store instance for each test.
// The factory receives *testing.T so it can use t.TempDir() for stores
// that need filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) store.Store

// RunConformanceSuite runs the full conformance test suite against the
// provided store factory. Each test gets a fresh store instance to ensure
// isolation.
//
// The suite covers four categories:
//   - Lifecycle: create, load, delete, fail, list, health
//   - Apply: chunk accounting, duplicates, range and terminal guards
//   - Concurrency: the exactly-one completion election under parallel applies
//   - Random: generated apply sequences checked against the session model
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("Lifecycle", func(t *testing.T) {
		runLifecycleTests(t, factory)
	})

	t.Run("Apply", func(t *testing.T) {
		runApplyTests(t, factory)
	})

	t.Run("Concurrency", func(t *testing.T) {
		runConcurrencyTests(t, factory)
	})

	t.Run("Random", func(t *testing.T) {
		runRandomTests(t, factory)
	})
}

// newTestSession builds a session whose chunks are all exactly chunkSize
// bytes except the last, which carries remainder bytes.
func newTestSession(t *testing.T, totalSize, chunkSize int64) *session.Session {
	t.Helper()

	sess, err := session.New("conformance.bin", totalSize, chunkSize, time.Now())
	if err != nil {
		t.Fatalf("session.New() failed: %v", err)
	}
	return sess
}

// createTestSession stores a fresh session and returns it.
func createTestSession(t *testing.T, st store.Store, totalSize, chunkSize int64) *session.Session {
	t.Helper()

	sess := newTestSession(t, totalSize, chunkSize)
	if err := st.Create(t.Context(), sess); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return sess
}
