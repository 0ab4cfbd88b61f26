package storetest

import (
	"errors"
	"testing"

	"github.com/vingest/vingest/pkg/session"
	"github.com/vingest/vingest/pkg/session/store"
)

// runApplyTests runs all chunk application conformance tests.
func runApplyTests(t *testing.T, factory StoreFactory) {
	t.Run("Ordered", func(t *testing.T) { testApplyOrdered(t, factory) })
	t.Run("OutOfOrder", func(t *testing.T) { testApplyOutOfOrder(t, factory) })
	t.Run("Duplicate", func(t *testing.T) { testApplyDuplicate(t, factory) })
	t.Run("IndexOutOfRange", func(t *testing.T) { testApplyIndexOutOfRange(t, factory) })
	t.Run("NotFound", func(t *testing.T) { testApplyNotFound(t, factory) })
	t.Run("SingleChunk", func(t *testing.T) { testApplySingleChunk(t, factory) })
}

// testApplyOrdered walks chunks 0..N-1 and checks accounting after each.
func testApplyOrdered(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 3_000_000, 1<<20)
	ctx := t.Context()

	for i := 0; i < 3; i++ {
		size := sess.ExpectedChunkSize(i)
		updated, res, err := st.ApplyChunk(ctx, sess.FileID, i, size)
		if err != nil {
			t.Fatalf("ApplyChunk(%d) failed: %v", i, err)
		}
		if !res.Applied {
			t.Fatalf("ApplyChunk(%d) not applied", i)
		}
		if updated.UploadedChunks != i+1 {
			t.Errorf("UploadedChunks = %d, want %d", updated.UploadedChunks, i+1)
		}
		if got := updated.ChunkStatus.Count(); got != updated.UploadedChunks {
			t.Errorf("bitmap count %d != uploaded chunks %d", got, updated.UploadedChunks)
		}

		wantJust := i == 2
		if res.JustCompleted != wantJust {
			t.Errorf("ApplyChunk(%d) JustCompleted = %v, want %v", i, res.JustCompleted, wantJust)
		}
		if wantJust {
			if updated.Status != session.StatusFinalizing {
				t.Errorf("Status = %s, want %s", updated.Status, session.StatusFinalizing)
			}
			if updated.UploadedSize != updated.TotalSize {
				t.Errorf("UploadedSize = %d, want %d", updated.UploadedSize, updated.TotalSize)
			}
		} else if updated.Status != session.StatusUploading {
			t.Errorf("Status = %s, want %s", updated.Status, session.StatusUploading)
		}
	}
}

// testApplyOutOfOrder applies indices in reverse.
func testApplyOutOfOrder(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 3_000_000, 1<<20)
	ctx := t.Context()

	completions := 0
	for _, i := range []int{2, 0, 1} {
		updated, res, err := st.ApplyChunk(ctx, sess.FileID, i, sess.ExpectedChunkSize(i))
		if err != nil {
			t.Fatalf("ApplyChunk(%d) failed: %v", i, err)
		}
		if res.JustCompleted {
			completions++
			if updated.ChunkStatus.String() != "111" {
				t.Errorf("completing apply saw bitmap %q", updated.ChunkStatus)
			}
		}
	}
	if completions != 1 {
		t.Fatalf("observed %d completions, want 1", completions)
	}
}

// testApplyDuplicate verifies re-application leaves the session unchanged.
func testApplyDuplicate(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 3_000_000, 1<<20)
	ctx := t.Context()

	first, res, err := st.ApplyChunk(ctx, sess.FileID, 1, sess.ExpectedChunkSize(1))
	if err != nil {
		t.Fatalf("ApplyChunk() failed: %v", err)
	}
	if !res.Applied {
		t.Fatal("first apply not applied")
	}

	second, res, err := st.ApplyChunk(ctx, sess.FileID, 1, sess.ExpectedChunkSize(1))
	if err != nil {
		t.Fatalf("duplicate ApplyChunk() failed: %v", err)
	}
	if res.Applied || res.JustCompleted {
		t.Fatalf("duplicate apply reported %+v, want neither applied nor completed", res)
	}
	if second.UploadedChunks != first.UploadedChunks {
		t.Errorf("UploadedChunks = %d, want %d", second.UploadedChunks, first.UploadedChunks)
	}
	if second.UploadedSize != first.UploadedSize {
		t.Errorf("UploadedSize = %d, want %d", second.UploadedSize, first.UploadedSize)
	}
	if second.ChunkStatus.String() != first.ChunkStatus.String() {
		t.Errorf("ChunkStatus = %q, want %q", second.ChunkStatus, first.ChunkStatus)
	}
}

// testApplyIndexOutOfRange verifies range guards.
func testApplyIndexOutOfRange(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 3_000_000, 1<<20)
	ctx := t.Context()

	for _, idx := range []int{-1, 3, 100} {
		_, _, err := st.ApplyChunk(ctx, sess.FileID, idx, 100)
		if err == nil {
			t.Fatalf("ApplyChunk(%d) succeeded, want range error", idx)
		}
	}

	// The failed applies must not have touched the session
	loaded, err := st.Load(ctx, sess.FileID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.UploadedChunks != 0 {
		t.Errorf("UploadedChunks = %d, want 0", loaded.UploadedChunks)
	}
}

// testApplyNotFound verifies applying to an unknown session fails.
func testApplyNotFound(t *testing.T, factory StoreFactory) {
	st := factory(t)

	_, _, err := st.ApplyChunk(t.Context(), "ffffffffffffffffffffffffffffffff", 0, 100)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ApplyChunk() on unknown session = %v, want ErrNotFound", err)
	}
}

// testApplySingleChunk verifies the one-chunk fast path completes at once.
func testApplySingleChunk(t *testing.T, factory StoreFactory) {
	st := factory(t)
	sess := createTestSession(t, st, 500, 1<<20)

	updated, res, err := st.ApplyChunk(t.Context(), sess.FileID, 0, 500)
	if err != nil {
		t.Fatalf("ApplyChunk() failed: %v", err)
	}
	if !res.Applied || !res.JustCompleted {
		t.Fatalf("ApplyChunk() = %+v, want applied and completed", res)
	}
	if updated.Status != session.StatusFinalizing {
		t.Errorf("Status = %s, want %s", updated.Status, session.StatusFinalizing)
	}
	if updated.Progress() != 100 {
		t.Errorf("Progress() = %d, want 100", updated.Progress())
	}
}
