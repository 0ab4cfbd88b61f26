package storetest

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vingest/vingest/pkg/session"
)

// runConcurrencyTests runs the atomicity conformance tests. These are the
// tests that distinguish a correct store from a fetch-then-set one.
func runConcurrencyTests(t *testing.T, factory StoreFactory) {
	t.Run("DistinctIndices", func(t *testing.T) { testConcurrentDistinct(t, factory) })
	t.Run("WithDuplicates", func(t *testing.T) { testConcurrentDuplicates(t, factory) })
}

// testConcurrentDistinct fires one goroutine per chunk index and asserts no
// update is lost and exactly one caller observes completion.
func testConcurrentDistinct(t *testing.T, factory StoreFactory) {
	st := factory(t)
	ctx := t.Context()

	const chunks = 16
	chunkSize := int64(1024)
	sess := createTestSession(t, st, chunks*chunkSize, chunkSize)

	var (
		wg          sync.WaitGroup
		completions int64
	)
	errs := make(chan error, chunks)

	for i := 0; i < chunks; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, res, err := st.ApplyChunk(ctx, sess.FileID, idx, chunkSize)
			if err != nil {
				errs <- err
				return
			}
			if !res.Applied {
				errs <- nil // flagged below via completion count mismatch
				return
			}
			if res.JustCompleted {
				atomic.AddInt64(&completions, 1)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ApplyChunk failed: %v", err)
		} else {
			t.Fatal("concurrent ApplyChunk for a distinct index reported not applied")
		}
	}

	if completions != 1 {
		t.Fatalf("observed %d completions, want exactly 1", completions)
	}

	final, err := st.Load(ctx, sess.FileID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if final.UploadedChunks != chunks {
		t.Errorf("UploadedChunks = %d, want %d", final.UploadedChunks, chunks)
	}
	if !final.ChunkStatus.Full() {
		t.Errorf("bitmap %q not full", final.ChunkStatus)
	}
	if final.UploadedSize != final.TotalSize {
		t.Errorf("UploadedSize = %d, want %d", final.UploadedSize, final.TotalSize)
	}
	if final.Status != session.StatusFinalizing {
		t.Errorf("Status = %s, want %s", final.Status, session.StatusFinalizing)
	}
}

// testConcurrentDuplicates has several workers race over the full index set
// so every index is delivered multiple times.
func testConcurrentDuplicates(t *testing.T, factory StoreFactory) {
	st := factory(t)
	ctx := t.Context()

	const (
		chunks  = 8
		workers = 4
	)
	chunkSize := int64(512)
	sess := createTestSession(t, st, chunks*chunkSize, chunkSize)

	var (
		wg          sync.WaitGroup
		completions int64
		applied     int64
	)
	errs := make(chan error, workers*chunks)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := 0; idx < chunks; idx++ {
				_, res, err := st.ApplyChunk(ctx, sess.FileID, idx, chunkSize)
				if err != nil {
					errs <- err
					return
				}
				if res.Applied {
					atomic.AddInt64(&applied, 1)
				}
				if res.JustCompleted {
					atomic.AddInt64(&completions, 1)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent ApplyChunk failed: %v", err)
	}

	if applied != chunks {
		t.Errorf("%d applies reported, want %d distinct", applied, chunks)
	}
	if completions != 1 {
		t.Fatalf("observed %d completions, want exactly 1", completions)
	}

	final, err := st.Load(ctx, sess.FileID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if final.UploadedChunks != chunks {
		t.Errorf("UploadedChunks = %d, want %d", final.UploadedChunks, chunks)
	}
	if final.UploadedSize != final.TotalSize {
		t.Errorf("UploadedSize = %d, want %d (duplicates double counted)", final.UploadedSize, final.TotalSize)
	}
}
