package storetest

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vingest/vingest/pkg/session"
)

// runRandomTests drives the backend with generated apply sequences and
// checks it against the in-memory session model.
func runRandomTests(t *testing.T, factory StoreFactory) {
	st := factory(t)
	ctx := t.Context()

	rapid.Check(t, func(rt *rapid.T) {
		chunkSize := int64(1 << 10)
		totalChunks := rapid.IntRange(1, 12).Draw(rt, "total_chunks")
		tail := rapid.Int64Range(1, chunkSize).Draw(rt, "tail_bytes")
		totalSize := chunkSize*int64(totalChunks-1) + tail

		sess, err := session.New("random.bin", totalSize, chunkSize, time.Now())
		if err != nil {
			rt.Fatalf("session.New() failed: %v", err)
		}
		if err := st.Create(ctx, sess); err != nil {
			rt.Fatalf("Create() failed: %v", err)
		}

		model := sess.Clone()
		sequence := rapid.SliceOfN(rapid.IntRange(0, totalChunks-1), 1, totalChunks*3).Draw(rt, "sequence")

		completions := 0
		for _, idx := range sequence {
			size := sess.ExpectedChunkSize(idx)

			wantApplied, wantJust, err := model.Apply(idx, size, time.Now())
			if err != nil {
				rt.Fatalf("model Apply(%d) failed: %v", idx, err)
			}

			updated, res, err := st.ApplyChunk(ctx, sess.FileID, idx, size)
			if err != nil {
				rt.Fatalf("ApplyChunk(%d) failed: %v", idx, err)
			}
			if res.Applied != wantApplied || res.JustCompleted != wantJust {
				rt.Fatalf("ApplyChunk(%d) = %+v, model says applied=%v just=%v",
					idx, res, wantApplied, wantJust)
			}
			if res.JustCompleted {
				completions++
			}
			if updated.ChunkStatus.String() != model.ChunkStatus.String() {
				rt.Fatalf("bitmap %q diverged from model %q", updated.ChunkStatus, model.ChunkStatus)
			}
		}

		final, err := st.Load(ctx, sess.FileID)
		if err != nil {
			rt.Fatalf("Load() failed: %v", err)
		}
		if final.UploadedChunks != model.UploadedChunks {
			rt.Fatalf("UploadedChunks = %d, model %d", final.UploadedChunks, model.UploadedChunks)
		}
		if final.UploadedSize != model.UploadedSize {
			rt.Fatalf("UploadedSize = %d, model %d", final.UploadedSize, model.UploadedSize)
		}
		if final.Status != model.Status {
			rt.Fatalf("Status = %s, model %s", final.Status, model.Status)
		}
		if completions > 1 {
			rt.Fatalf("observed %d completions, want at most 1", completions)
		}

		if err := st.Delete(ctx, sess.FileID); err != nil {
			rt.Fatalf("Delete() failed: %v", err)
		}
	})
}
