// Package chunkstore stages uploaded chunk blobs and assembles them into
// the final artifact.
//
// During ingest every chunk lives under a per-file staging area
// (<upload_dir>/<file_id>/chunk_<n> on the filesystem backend). Assembly
// concatenates the chunks in index order and publishes the result
// atomically: no reader ever observes a partially written artifact under
// the final name. Staging is removed separately after a successful
// publish, so a failed assembly leaves the blobs in place for inspection
// and retry.
//
// Two backends exist. The filesystem backend requires every replica to
// mount the same upload directory; the s3 backend stores blobs as objects
// and is the way to run a multi-host fleet without a shared volume.
package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

var (
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("chunk store is closed")

	// ErrChunkMissing is returned by Assemble when a staged chunk blob
	// cannot be found. Staging is left untouched.
	ErrChunkMissing = errors.New("chunk blob is missing")
)

// Store stages chunk blobs and assembles final artifacts.
type Store interface {
	// Prepare creates the staging area for a file. It is idempotent.
	Prepare(ctx context.Context, fileID string) error

	// WriteChunk stores the blob for one chunk index, overwriting any
	// previous blob for the same index so a retried chunk converges.
	WriteChunk(ctx context.Context, fileID string, index int, r io.Reader) (int64, error)

	// ChunkLocation returns the location string recorded in the catalog
	// and search index for a staged chunk.
	ChunkLocation(fileID string, index int) string

	// Assemble concatenates chunks 0..totalChunks-1 in order and publishes
	// the artifact atomically under the final name. It returns the
	// artifact location and its size. A missing blob yields
	// ErrChunkMissing and leaves staging intact.
	Assemble(ctx context.Context, fileID, fileName string, totalChunks int) (string, int64, error)

	// RemoveStaging deletes the staged blobs and the staging area itself.
	// It is idempotent.
	RemoveStaging(ctx context.Context, fileID string) error

	// FinalPath returns the location the assembled artifact will be
	// published under.
	FinalPath(fileName string) string

	// HealthCheck verifies the backing storage is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources. Operations after Close fail with
	// ErrStoreClosed.
	Close() error
}

// Config selects and configures a chunk store backend.
type Config struct {
	// Backend is one of "fs" or "s3". Empty selects "fs".
	Backend string

	// UploadDir is the staging and publish directory for the fs backend.
	UploadDir string

	// S3 configures the s3 backend.
	S3 S3Config
}

// S3Config holds settings for the s3 backend.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// DefaultConfig returns the default chunk store configuration.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendFS,
		UploadDir: "uploads",
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Open creates the chunk store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFS, "":
		return NewFSStore(DefaultFSConfig(cfg.UploadDir))
	case BackendS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported chunk store backend: %q", cfg.Backend)
	}
}
