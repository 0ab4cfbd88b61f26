// Package session defines the upload session record shared by all replicas
// and the mutation rules applied to it.
//
// A session tracks one chunked upload from initialization to assembly. The
// wire encoding is JSON with stable snake_case field names; every store
// backend (and the Redis server-side script) operates on the same shape.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an upload session.
type Status string

const (
	// StatusInitializing is set at session creation, before any chunk arrives.
	StatusInitializing Status = "initializing"

	// StatusUploading is set once at least one chunk has been accepted.
	StatusUploading Status = "uploading"

	// StatusFinalizing is set by the chunk that completes the session and
	// elects the assembling replica.
	StatusFinalizing Status = "finalizing"

	// StatusCompleted marks a fully assembled upload.
	StatusCompleted Status = "completed"

	// StatusFailed marks an upload whose assembly failed. The staging
	// directory is retained for inspection.
	StatusFailed Status = "failed"
)

// Terminal reports whether no further mutation is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusInitializing, StatusUploading, StatusFinalizing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

var (
	// ErrChunkIndexOutOfRange is returned when a chunk index is negative or
	// not below the session's total chunk count.
	ErrChunkIndexOutOfRange = errors.New("chunk index out of range")

	// ErrTerminalStatus is returned when a mutation is attempted on a
	// completed or failed session.
	ErrTerminalStatus = errors.New("session status is terminal")
)

// Session is the per-upload record stored in the shared session store.
//
// All timestamps are Unix seconds so the record can be manipulated by
// server-side store scripts without date parsing.
type Session struct {
	FileID         string `json:"file_id"`
	FileName       string `json:"file_name"`
	TotalSize      int64  `json:"total_size"`
	ChunkSize      int64  `json:"chunk_size"`
	TotalChunks    int    `json:"total_chunks"`
	UploadedChunks int    `json:"uploaded_chunks"`
	UploadedSize   int64  `json:"uploaded_size"`
	ChunkStatus    Bitmap `json:"chunk_status"`
	Status         Status `json:"status"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// NewID generates a session identifier: the lowercase hex encoding of
// 16 cryptographically random bytes.
func NewID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate file id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// New creates a session for a file of totalSize bytes split into chunkSize
// slices. The chunk count is derived here; client-supplied hints are not
// trusted.
func New(fileName string, totalSize, chunkSize int64, now time.Time) (*Session, error) {
	if fileName == "" {
		return nil, errors.New("file name must not be empty")
	}
	if totalSize <= 0 {
		return nil, fmt.Errorf("total size must be positive, got %d", totalSize)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	id, err := NewID()
	if err != nil {
		return nil, err
	}

	totalChunks := int((totalSize + chunkSize - 1) / chunkSize)
	ts := now.Unix()

	return &Session{
		FileID:      id,
		FileName:    fileName,
		TotalSize:   totalSize,
		ChunkSize:   chunkSize,
		TotalChunks: totalChunks,
		ChunkStatus: NewBitmap(totalChunks),
		Status:      StatusInitializing,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// Apply marks chunk index as received with size bytes.
//
// Re-applying an index whose bit is already set leaves the session unchanged
// and reports applied=false; duplicate deliveries from client retries or
// proxy retries must not double-count. justCompleted is true for exactly the
// mutation that sets the last missing bit; that call also moves the session
// to StatusFinalizing and elects the caller to run assembly.
func (s *Session) Apply(index int, size int64, now time.Time) (applied, justCompleted bool, err error) {
	if s.Status.Terminal() {
		return false, false, ErrTerminalStatus
	}
	if index < 0 || index >= s.TotalChunks {
		return false, false, fmt.Errorf("%w: %d of %d", ErrChunkIndexOutOfRange, index, s.TotalChunks)
	}

	if !s.ChunkStatus.Set(index) {
		return false, false, nil
	}

	s.UploadedChunks++
	s.UploadedSize += size
	s.UpdatedAt = now.Unix()

	if s.UploadedChunks == s.TotalChunks {
		s.Status = StatusFinalizing
		return true, true, nil
	}

	s.Status = StatusUploading
	return true, false, nil
}

// MarkFailed moves the session to StatusFailed.
func (s *Session) MarkFailed(now time.Time) {
	s.Status = StatusFailed
	s.UpdatedAt = now.Unix()
}

// Complete reports whether every chunk has been received.
func (s *Session) Complete() bool {
	return s.UploadedChunks == s.TotalChunks
}

// Progress returns the upload progress as a whole percentage, rounded down.
func (s *Session) Progress() int {
	if s.TotalSize <= 0 {
		return 0
	}
	return int(100 * s.UploadedSize / s.TotalSize)
}

// ExpectedChunkSize returns the byte length chunk index must carry: the
// fixed chunk size for every index except the last, which carries the
// remainder.
func (s *Session) ExpectedChunkSize(index int) int64 {
	if index < 0 || index >= s.TotalChunks {
		return 0
	}
	remaining := s.TotalSize - int64(index)*s.ChunkSize
	if remaining > s.ChunkSize {
		return s.ChunkSize
	}
	return remaining
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.ChunkStatus = s.ChunkStatus.Clone()
	return &out
}
