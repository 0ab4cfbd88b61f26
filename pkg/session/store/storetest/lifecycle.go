package storetest

import (
	"testing"

	"github.com/vingest/vingest/pkg/session"
	"github.com/vingest/vingest/pkg/session/store"
)

// runLifecycleTests runs all session lifecycle conformance tests.
func runLifecycleTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateAndLoad", func(t *testing.T) { testCreateAndLoad(t, factory) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, factory) })
	t.Run("LoadNotFound", func(t *testing.T) { testLoadNotFound(t, factory) })
	t.Run("LoadIsolated", func(t *testing.T) { testLoadIsolated(t, factory) })
	t.Run("Fail", func(t *testing.T) { testFail(t, factory) })
	t.Run("FailNotFound", func(t *testing.T) { testFailNotFound(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, factory) })
	t.Run("List", func(t *testing.T) { testList(t, factory) })
	t.Run("HealthCheck", func(t *testing.T) { testHealthCheck(t, factory) })
}

// testCreateAndLoad verifies a created session loads back field for field.
func testCreateAndLoad(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 3_000_000, 1<<20)

	loaded, err := st.Load(t.Context(), sess.FileID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if loaded.FileID != sess.FileID {
		t.Errorf("FileID = %q, want %q", loaded.FileID, sess.FileID)
	}
	if loaded.FileName != sess.FileName {
		t.Errorf("FileName = %q, want %q", loaded.FileName, sess.FileName)
	}
	if loaded.TotalChunks != 3 {
		t.Errorf("TotalChunks = %d, want 3", loaded.TotalChunks)
	}
	if loaded.Status != session.StatusInitializing {
		t.Errorf("Status = %s, want %s", loaded.Status, session.StatusInitializing)
	}
	if loaded.ChunkStatus.String() != "000" {
		t.Errorf("ChunkStatus = %q, want %q", loaded.ChunkStatus, "000")
	}
}

// testCreateDuplicate verifies Create refuses an existing file ID.
func testCreateDuplicate(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 500, 1<<20)

	err := st.Create(t.Context(), sess)
	if err != store.ErrAlreadyExists {
		t.Fatalf("Create() on existing session = %v, want ErrAlreadyExists", err)
	}
}

// testLoadNotFound verifies loads of unknown IDs fail with ErrNotFound.
func testLoadNotFound(t *testing.T, factory StoreFactory) {
	st := factory(t)

	_, err := st.Load(t.Context(), "ffffffffffffffffffffffffffffffff")
	if err != store.ErrNotFound {
		t.Fatalf("Load() of unknown session = %v, want ErrNotFound", err)
	}
}

// testLoadIsolated verifies mutating a loaded copy does not write through
// to the stored record.
func testLoadIsolated(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 3_000_000, 1<<20)

	loaded, err := st.Load(t.Context(), sess.FileID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	loaded.ChunkStatus.Set(0)
	loaded.UploadedChunks = 99

	again, err := st.Load(t.Context(), sess.FileID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if again.UploadedChunks != 0 {
		t.Errorf("UploadedChunks = %d, want 0", again.UploadedChunks)
	}
	if again.ChunkStatus.IsSet(0) {
		t.Error("chunk 0 marked received after mutating a loaded copy")
	}
}

// testFail verifies Fail moves the session to the failed status and keeps
// the record readable.
func testFail(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 500, 1<<20)

	if err := st.Fail(t.Context(), sess.FileID); err != nil {
		t.Fatalf("Fail() failed: %v", err)
	}

	loaded, err := st.Load(t.Context(), sess.FileID)
	if err != nil {
		t.Fatalf("Load() after Fail() failed: %v", err)
	}
	if loaded.Status != session.StatusFailed {
		t.Errorf("Status = %s, want %s", loaded.Status, session.StatusFailed)
	}

	// Terminal sessions accept no further chunk mutations
	_, _, err = st.ApplyChunk(t.Context(), sess.FileID, 0, 500)
	if err == nil {
		t.Fatal("ApplyChunk() on failed session succeeded, want error")
	}
}

// testFailNotFound verifies Fail on an unknown session reports ErrNotFound.
func testFailNotFound(t *testing.T, factory StoreFactory) {
	st := factory(t)

	err := st.Fail(t.Context(), "ffffffffffffffffffffffffffffffff")
	if err != store.ErrNotFound {
		t.Fatalf("Fail() of unknown session = %v, want ErrNotFound", err)
	}
}

// testDelete verifies a deleted session is gone.
func testDelete(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 500, 1<<20)

	if err := st.Delete(t.Context(), sess.FileID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	_, err := st.Load(t.Context(), sess.FileID)
	if err != store.ErrNotFound {
		t.Fatalf("Load() after Delete() = %v, want ErrNotFound", err)
	}
}

// testDeleteIdempotent verifies deleting an absent session succeeds.
func testDeleteIdempotent(t *testing.T, factory StoreFactory) {
	st := factory(t)

	if err := st.Delete(t.Context(), "ffffffffffffffffffffffffffffffff"); err != nil {
		t.Fatalf("Delete() of unknown session = %v, want nil", err)
	}
}

// testList verifies List returns every live session.
func testList(t *testing.T, factory StoreFactory) {
	st := factory(t)

	want := map[string]bool{}
	for i := 0; i < 3; i++ {
		sess := createTestSession(t, st, 500, 1<<20)
		want[sess.FileID] = true
	}

	sessions, err := st.List(t.Context())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(sessions) != len(want) {
		t.Fatalf("List() returned %d sessions, want %d", len(sessions), len(want))
	}
	for _, s := range sessions {
		if !want[s.FileID] {
			t.Errorf("List() returned unexpected session %s", s.FileID)
		}
	}
}

// testHealthCheck verifies a freshly opened store reports healthy.
func testHealthCheck(t *testing.T, factory StoreFactory) {
	st := factory(t)

	if err := st.HealthCheck(t.Context()); err != nil {
		t.Fatalf("HealthCheck() failed: %v", err)
	}
}
