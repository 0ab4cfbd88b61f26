package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/vingest/vingest/pkg/bufpool"
)

// FSConfig holds configuration for the filesystem chunk store.
type FSConfig struct {
	// UploadDir is the root directory. Staged chunks live in
	// <UploadDir>/<file_id>/, assembled artifacts directly in <UploadDir>.
	UploadDir string

	// CreateDir creates the upload directory if it doesn't exist.
	// Default: true
	CreateDir bool

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for created files.
	// Default: 0644
	FileMode os.FileMode
}

// DefaultFSConfig returns the default configuration for the given root.
func DefaultFSConfig(uploadDir string) FSConfig {
	return FSConfig{
		UploadDir: uploadDir,
		CreateDir: true,
		DirMode:   0755,
		FileMode:  0644,
	}
}

// FSStore is a filesystem-backed chunk store. Every replica of a
// multi-host fleet must mount the same upload directory.
type FSStore struct {
	mu        sync.RWMutex
	uploadDir string
	dirMode   os.FileMode
	fileMode  os.FileMode
	closed    bool
}

// NewFSStore creates a filesystem chunk store with the given configuration.
func NewFSStore(cfg FSConfig) (*FSStore, error) {
	if cfg.UploadDir == "" {
		return nil, errors.New("upload directory is required")
	}

	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	if cfg.CreateDir {
		if err := os.MkdirAll(cfg.UploadDir, cfg.DirMode); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("upload directory is not a directory")
	}

	return &FSStore{
		uploadDir: cfg.UploadDir,
		dirMode:   cfg.DirMode,
		fileMode:  cfg.FileMode,
	}, nil
}

// NewFSStoreWithDir creates a filesystem chunk store with default
// configuration.
func NewFSStoreWithDir(uploadDir string) (*FSStore, error) {
	return NewFSStore(DefaultFSConfig(uploadDir))
}

func (s *FSStore) stagingDir(fileID string) string {
	return filepath.Join(s.uploadDir, fileID)
}

func (s *FSStore) chunkPath(fileID string, index int) string {
	return filepath.Join(s.uploadDir, fileID, "chunk_"+strconv.Itoa(index))
}

// FinalPath returns the publish path for an artifact. Path components in
// the file name are stripped so the artifact always lands directly in the
// upload directory.
func (s *FSStore) FinalPath(fileName string) string {
	return filepath.Join(s.uploadDir, filepath.Base(fileName))
}

// ChunkLocation returns the staging path of a chunk blob.
func (s *FSStore) ChunkLocation(fileID string, index int) string {
	return s.chunkPath(fileID, index)
}

// Prepare creates the staging directory for a file.
func (s *FSStore) Prepare(ctx context.Context, fileID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fileID == "" {
		return errors.New("file id is required")
	}

	return os.MkdirAll(s.stagingDir(fileID), s.dirMode)
}

// WriteChunk stores one chunk blob, truncating any previous content so a
// retried chunk overwrites with identical bytes.
func (s *FSStore) WriteChunk(ctx context.Context, fileID string, index int, r io.Reader) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if fileID == "" {
		return 0, errors.New("file id is required")
	}

	path := s.chunkPath(fileID, index)
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.fileMode)
	if err != nil {
		return 0, err
	}

	buf := bufpool.Get(bufpool.DefaultLargeSize)
	written, err := io.CopyBuffer(f, r, buf)
	bufpool.Put(buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, fmt.Errorf("failed to write chunk %d: %w", index, err)
	}
	return written, nil
}

// Assemble concatenates chunks 0..totalChunks-1 into a pending file next
// to the final path and renames it into place. On any failure the pending
// file is discarded and the staged chunks stay where they are.
func (s *FSStore) Assemble(ctx context.Context, fileID, fileName string, totalChunks int) (string, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", 0, ErrStoreClosed
	}
	if fileID == "" {
		return "", 0, errors.New("file id is required")
	}

	final := s.FinalPath(fileName)
	pending, err := renameio.NewPendingFile(final,
		renameio.WithTempDir(s.uploadDir),
		renameio.WithPermissions(s.fileMode))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	var size int64
	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		n, err := s.appendChunk(pending, fileID, i)
		if err != nil {
			return "", 0, err
		}
		size += n
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", 0, fmt.Errorf("failed to publish %s: %w", final, err)
	}
	return final, size, nil
}

func (s *FSStore) appendChunk(w io.Writer, fileID string, index int) (int64, error) {
	f, err := os.Open(s.chunkPath(fileID, index))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("chunk %d of %s: %w", index, fileID, ErrChunkMissing)
		}
		return 0, err
	}
	defer func() { _ = f.Close() }()

	buf := bufpool.Get(bufpool.DefaultLargeSize)
	defer bufpool.Put(buf)

	n, err := io.CopyBuffer(w, f, buf)
	if err != nil {
		return n, fmt.Errorf("failed to append chunk %d: %w", index, err)
	}
	return n, nil
}

// RemoveStaging deletes the staging directory and everything in it.
func (s *FSStore) RemoveStaging(ctx context.Context, fileID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fileID == "" {
		return errors.New("file id is required")
	}

	return os.RemoveAll(s.stagingDir(fileID))
}

// HealthCheck verifies the upload directory is accessible.
func (s *FSStore) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := os.Stat(s.uploadDir)
	return err
}

// Close marks the store as closed.
func (s *FSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// UploadDir returns the root directory of the store.
func (s *FSStore) UploadDir() string {
	return s.uploadDir
}

var _ Store = (*FSStore)(nil)
