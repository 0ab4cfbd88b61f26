package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeDecode(t *testing.T) {
	s, err := New("video.mp4", 3_000_000, 1<<20, time.Unix(1700000000, 0))
	require.NoError(t, err)
	_, _, err = s.Apply(1, s.ExpectedChunkSize(1), time.Unix(1700000010, 0))
	require.NoError(t, err)

	data, err := Encode(s)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s, out)
}

func TestEncodeWireFields(t *testing.T) {
	s := &Session{
		FileID:      "00112233445566778899aabbccddeeff",
		FileName:    "a.txt",
		TotalSize:   500,
		ChunkSize:   1 << 20,
		TotalChunks: 1,
		ChunkStatus: NewBitmap(1),
		Status:      StatusInitializing,
		CreatedAt:   1700000000,
		UpdatedAt:   1700000000,
	}

	data, err := Encode(s)
	require.NoError(t, err)

	js := string(data)
	for _, field := range []string{
		`"file_id"`, `"file_name"`, `"total_size"`, `"chunk_size"`,
		`"total_chunks"`, `"uploaded_chunks"`, `"uploaded_size"`,
		`"chunk_status":"0"`, `"status":"initializing"`,
		`"created_at"`, `"updated_at"`,
	} {
		assert.Contains(t, js, field)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"file_id":"x","total_chunks":2,"chunk_status":"0","status":"uploading"}`))
	assert.Error(t, err, "bitmap length mismatch")

	_, err = Decode([]byte(`{"file_id":"x","total_chunks":1,"chunk_status":"0","status":"sideways"}`))
	assert.Error(t, err, "unknown status")
}

func TestCodecRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chunkSize := int64(rapid.IntRange(1, 1<<20).Draw(t, "chunkSize"))
		totalChunks := rapid.IntRange(1, 32).Draw(t, "totalChunks")
		lastSize := int64(rapid.IntRange(1, int(chunkSize)).Draw(t, "lastSize"))

		s, err := New("f.bin", chunkSize*int64(totalChunks-1)+lastSize, chunkSize, time.Unix(1700000000, 0))
		if err != nil {
			t.Fatal(err)
		}
		for _, idx := range rapid.SliceOfN(rapid.IntRange(0, totalChunks-1), 0, totalChunks).Draw(t, "applied") {
			if _, _, err := s.Apply(idx, s.ExpectedChunkSize(idx), time.Now()); err != nil {
				t.Fatal(err)
			}
		}

		data, err := Encode(s)
		if err != nil {
			t.Fatal(err)
		}
		out, err := Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if out.ChunkStatus.String() != s.ChunkStatus.String() ||
			out.UploadedChunks != s.UploadedChunks ||
			out.UploadedSize != s.UploadedSize ||
			out.Status != s.Status {
			t.Fatalf("round trip mismatch: %+v != %+v", out, s)
		}
	})
}
