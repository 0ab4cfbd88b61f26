package session

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestNewID(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)
	assert.Regexp(t, hexID, id)

	other, err := NewID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestNew(t *testing.T) {
	now := time.Unix(1700000000, 0)

	s, err := New("video.mp4", 3_000_000, 1<<20, now)
	require.NoError(t, err)

	assert.Regexp(t, hexID, s.FileID)
	assert.Equal(t, "video.mp4", s.FileName)
	assert.Equal(t, int64(3_000_000), s.TotalSize)
	assert.Equal(t, int64(1<<20), s.ChunkSize)
	assert.Equal(t, 3, s.TotalChunks)
	assert.Equal(t, 0, s.UploadedChunks)
	assert.Equal(t, int64(0), s.UploadedSize)
	assert.Equal(t, 3, s.ChunkStatus.Len())
	assert.Equal(t, 0, s.ChunkStatus.Count())
	assert.Equal(t, StatusInitializing, s.Status)
	assert.Equal(t, now.Unix(), s.CreatedAt)
	assert.Equal(t, now.Unix(), s.UpdatedAt)
}

func TestNewSingleChunk(t *testing.T) {
	s, err := New("a.txt", 500, 1<<20, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalChunks)
	assert.Equal(t, int64(500), s.ExpectedChunkSize(0))
}

func TestNewExactMultiple(t *testing.T) {
	s, err := New("b.bin", 2<<20, 1<<20, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalChunks)
	assert.Equal(t, int64(1<<20), s.ExpectedChunkSize(1))
}

func TestNewValidation(t *testing.T) {
	now := time.Now()

	_, err := New("", 100, 1<<20, now)
	assert.Error(t, err)

	_, err = New("a.txt", 0, 1<<20, now)
	assert.Error(t, err)

	_, err = New("a.txt", -5, 1<<20, now)
	assert.Error(t, err)

	_, err = New("a.txt", 100, 0, now)
	assert.Error(t, err)
}

func TestApplyOrdered(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, err := New("video.mp4", 3_000_000, 1<<20, now)
	require.NoError(t, err)

	applied, just, err := s.Apply(0, s.ExpectedChunkSize(0), now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.False(t, just)
	assert.Equal(t, 1, s.UploadedChunks)
	assert.Equal(t, StatusUploading, s.Status)
	assert.Equal(t, now.Add(time.Second).Unix(), s.UpdatedAt)

	applied, just, err = s.Apply(1, s.ExpectedChunkSize(1), now.Add(2*time.Second))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.False(t, just)
	assert.Equal(t, 2, s.UploadedChunks)

	applied, just, err = s.Apply(2, s.ExpectedChunkSize(2), now.Add(3*time.Second))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, just)
	assert.Equal(t, 3, s.UploadedChunks)
	assert.Equal(t, int64(3_000_000), s.UploadedSize)
	assert.Equal(t, StatusFinalizing, s.Status)
	assert.True(t, s.Complete())
	assert.Equal(t, 100, s.Progress())
}

func TestApplyDuplicate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, err := New("video.mp4", 3_000_000, 1<<20, now)
	require.NoError(t, err)

	_, _, err = s.Apply(1, s.ExpectedChunkSize(1), now)
	require.NoError(t, err)
	before := s.Clone()

	applied, just, err := s.Apply(1, s.ExpectedChunkSize(1), now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, just)
	assert.Equal(t, before, s)
}

func TestApplyOutOfRange(t *testing.T) {
	s, err := New("video.mp4", 3_000_000, 1<<20, time.Now())
	require.NoError(t, err)

	_, _, err = s.Apply(3, 100, time.Now())
	assert.ErrorIs(t, err, ErrChunkIndexOutOfRange)

	_, _, err = s.Apply(-1, 100, time.Now())
	assert.ErrorIs(t, err, ErrChunkIndexOutOfRange)
}

func TestApplyTerminal(t *testing.T) {
	s, err := New("video.mp4", 3_000_000, 1<<20, time.Now())
	require.NoError(t, err)

	s.MarkFailed(time.Now())
	_, _, err = s.Apply(0, 100, time.Now())
	assert.ErrorIs(t, err, ErrTerminalStatus)

	s.Status = StatusCompleted
	_, _, err = s.Apply(0, 100, time.Now())
	assert.ErrorIs(t, err, ErrTerminalStatus)
}

func TestExpectedChunkSize(t *testing.T) {
	s, err := New("video.mp4", 3_000_000, 1<<20, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(1<<20), s.ExpectedChunkSize(0))
	assert.Equal(t, int64(1<<20), s.ExpectedChunkSize(1))
	assert.Equal(t, int64(3_000_000-2*(1<<20)), s.ExpectedChunkSize(2))
	assert.Equal(t, int64(0), s.ExpectedChunkSize(3))
	assert.Equal(t, int64(0), s.ExpectedChunkSize(-1))
}

func TestProgressFloor(t *testing.T) {
	s := &Session{TotalSize: 3, UploadedSize: 1}
	assert.Equal(t, 33, s.Progress())

	s.UploadedSize = 2
	assert.Equal(t, 66, s.Progress())

	s.UploadedSize = 3
	assert.Equal(t, 100, s.Progress())
}

func TestCloneIsDeep(t *testing.T) {
	s, err := New("video.mp4", 3_000_000, 1<<20, time.Now())
	require.NoError(t, err)

	c := s.Clone()
	_, _, err = c.Apply(0, c.ExpectedChunkSize(0), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, s.UploadedChunks)
	assert.False(t, s.ChunkStatus.IsSet(0))
	assert.True(t, c.ChunkStatus.IsSet(0))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusInitializing.Terminal())
	assert.False(t, StatusUploading.Terminal())
	assert.False(t, StatusFinalizing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, Status("bogus").Valid())
}

// Applying any sequence of chunk indices, with duplicates, keeps the bitmap
// population equal to the uploaded chunk count and the uploaded size within
// the declared total. Exactly one application observes completion.
func TestApplyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chunkSize := int64(rapid.IntRange(1, 4096).Draw(t, "chunkSize"))
		totalChunks := rapid.IntRange(1, 64).Draw(t, "totalChunks")
		lastSize := int64(rapid.IntRange(1, int(chunkSize)).Draw(t, "lastSize"))
		totalSize := chunkSize*int64(totalChunks-1) + lastSize

		s, err := New("f.bin", totalSize, chunkSize, time.Unix(1700000000, 0))
		if err != nil {
			t.Fatal(err)
		}
		if s.TotalChunks != totalChunks {
			t.Fatalf("derived %d chunks, want %d", s.TotalChunks, totalChunks)
		}

		indices := rapid.SliceOfN(rapid.IntRange(0, totalChunks-1), 1, 4*totalChunks).Draw(t, "indices")
		completions := 0
		for _, idx := range indices {
			_, just, err := s.Apply(idx, s.ExpectedChunkSize(idx), time.Now())
			if err != nil {
				t.Fatal(err)
			}
			if just {
				completions++
			}

			if got := s.ChunkStatus.Count(); got != s.UploadedChunks {
				t.Fatalf("bitmap count %d != uploaded chunks %d", got, s.UploadedChunks)
			}
			if s.UploadedSize > s.TotalSize {
				t.Fatalf("uploaded size %d exceeds total %d", s.UploadedSize, s.TotalSize)
			}
		}

		if s.Complete() {
			if completions != 1 {
				t.Fatalf("completion observed %d times", completions)
			}
			if s.UploadedSize != s.TotalSize {
				t.Fatalf("complete session uploaded %d of %d bytes", s.UploadedSize, s.TotalSize)
			}
			if s.Status != StatusFinalizing {
				t.Fatalf("complete session in status %s", s.Status)
			}
		} else if completions != 0 {
			t.Fatalf("incomplete session observed %d completions", completions)
		}
	})
}
