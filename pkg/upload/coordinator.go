package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/internal/telemetry"
	"github.com/vingest/vingest/pkg/chunkstore"
	"github.com/vingest/vingest/pkg/indexer"
	"github.com/vingest/vingest/pkg/session"
	"github.com/vingest/vingest/pkg/session/store"
)

// Protocol constants. Sessions remember the chunk size they were created
// with, so changing the configured size never breaks in-flight uploads.
const (
	// ChunkSize is the fixed chunk size: every chunk except the last
	// carries exactly this many bytes.
	ChunkSize int64 = 1 << 20

	// MaxFileSize bounds the total size accepted at initialization.
	MaxFileSize int64 = 1000 << 20
)

// idAttempts is how many file IDs are generated before giving up on a
// create collision.
const idAttempts = 3

var (
	// ErrInvalidRequest means the initialize parameters were unusable.
	ErrInvalidRequest = errors.New("invalid upload request")

	// ErrFileTooLarge means the announced file size exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file size exceeds the maximum allowed")

	// ErrSessionUnknown means no session exists for the file ID.
	ErrSessionUnknown = errors.New("unknown upload session")

	// ErrChunkOutOfRange means the chunk index is outside the session.
	ErrChunkOutOfRange = errors.New("chunk index out of range")

	// ErrChunkSizeMismatch means the chunk body length does not match the
	// size the session expects at that index.
	ErrChunkSizeMismatch = errors.New("chunk size does not match expected size")
)

// Cataloger records ingest facts durably. Failures are logged and never
// fail the upload.
type Cataloger interface {
	UpsertChunk(ctx context.Context, fileID string, totalChunks, chunkID int, chunkPath string) error
	UpsertFinal(ctx context.Context, fileID string, fileSize int64, filePath string) error
}

// Config holds coordinator settings.
type Config struct {
	// UploadDir is reported as the directory in lifecycle index documents.
	UploadDir string

	// ChunkSize is the protocol chunk size for new sessions.
	ChunkSize int64

	// MaxFileSize bounds accepted file sizes.
	MaxFileSize int64

	// MaxWorkers caps concurrent chunk persistence on this replica.
	MaxWorkers int
}

// DefaultConfig returns the protocol defaults.
func DefaultConfig(uploadDir string) Config {
	return Config{
		UploadDir:   uploadDir,
		ChunkSize:   ChunkSize,
		MaxFileSize: MaxFileSize,
		MaxWorkers:  4,
	}
}

// Deps are the collaborators a coordinator composes. Sessions and Chunks
// are required; Catalog, Indexer and Metrics may be nil.
type Deps struct {
	Sessions store.Store
	Chunks   chunkstore.Store
	Catalog  Cataloger
	Indexer  *indexer.Client
	Metrics  UploadMetrics
}

// Coordinator drives the upload protocol. It keeps no per-upload state in
// replica memory: every mutation goes through the shared session store, so
// any replica can serve any request for any file.
type Coordinator struct {
	cfg      Config
	sessions store.Store
	chunks   chunkstore.Store
	catalog  Cataloger
	index    *indexer.Client
	metrics  UploadMetrics
	workers  chan struct{}
}

// New creates a coordinator.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Chunks == nil {
		return nil, errors.New("chunk store is required")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = ChunkSize
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = MaxFileSize
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}

	return &Coordinator{
		cfg:      cfg,
		sessions: deps.Sessions,
		chunks:   deps.Chunks,
		catalog:  deps.Catalog,
		index:    deps.Indexer,
		metrics:  deps.Metrics,
		workers:  make(chan struct{}, cfg.MaxWorkers),
	}, nil
}

// InitializeResult is the response to a session initialization.
type InitializeResult struct {
	FileID      string
	FileName    string
	FileSize    int64
	TotalChunks int
	ChunkSize   int64
}

// Initialize creates an upload session. The chunk count is derived from
// the announced size; any client-supplied hint is ignored.
func (c *Coordinator) Initialize(ctx context.Context, fileName string, fileSize int64) (res *InitializeResult, err error) {
	ctx, span := telemetry.StartUploadSpan(ctx, "initialize", "",
		telemetry.FileName(fileName),
		telemetry.TotalSize(fileSize))
	defer span.End()

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveInitialize(time.Since(start), err)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	if fileSize > c.cfg.MaxFileSize {
		if c.metrics != nil {
			c.metrics.RecordRejected("file_too_large")
		}
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, fileSize, c.cfg.MaxFileSize)
	}

	var sess *session.Session
	for attempt := 0; attempt < idAttempts; attempt++ {
		sess, err = session.New(fileName, fileSize, c.cfg.ChunkSize, time.Now())
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordRejected("invalid_request")
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}

		err = c.sessions.Create(ctx, sess)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		logger.WarnCtx(ctx, "File id collision, regenerating", logger.FileID(sess.FileID))
	}
	if err != nil {
		return nil, fmt.Errorf("could not allocate a unique file id after %d attempts", idAttempts)
	}

	if err = c.chunks.Prepare(ctx, sess.FileID); err != nil {
		return nil, fmt.Errorf("failed to prepare staging for %s: %w", sess.FileID, err)
	}

	c.index.IndexInitialize(ctx, sess.FileID, c.cfg.UploadDir, sess.FileName, sess.TotalSize)

	if c.metrics != nil {
		c.metrics.RecordSessionStatus(string(session.StatusInitializing))
	}
	logger.InfoCtx(ctx, "Upload session created",
		logger.FileID(sess.FileID),
		logger.FileName(sess.FileName),
		logger.Size(sess.TotalSize),
		"total_chunks", sess.TotalChunks)

	return &InitializeResult{
		FileID:      sess.FileID,
		FileName:    sess.FileName,
		FileSize:    sess.TotalSize,
		TotalChunks: sess.TotalChunks,
		ChunkSize:   sess.ChunkSize,
	}, nil
}

// ChunkResult is the response to a chunk upload.
type ChunkResult struct {
	Received     bool
	Status       session.Status
	Progress     int
	UploadedSize int64
	TotalSize    int64
	Message      string
}

// HandleChunk ingests one chunk. Duplicates are accepted and change
// nothing. The call that marks the final missing chunk is elected to run
// assembly on this replica before returning; its response reports the
// completed state.
func (c *Coordinator) HandleChunk(ctx context.Context, fileID string, index int, body []byte) (res *ChunkResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case c.workers <- struct{}{}:
		defer func() { <-c.workers }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ctx, span := telemetry.StartUploadSpan(ctx, "chunk", fileID,
		telemetry.ChunkIndex(index),
		telemetry.ChunkSize(int64(len(body))))
	defer span.End()

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveChunk(int64(len(body)), time.Since(start), err)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	sess, err := c.sessions.Load(ctx, fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionUnknown, fileID)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", fileID, err)
	}

	if sess.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", session.ErrTerminalStatus, fileID, sess.Status)
	}
	if index < 0 || index >= sess.TotalChunks {
		if c.metrics != nil {
			c.metrics.RecordRejected("chunk_out_of_range")
		}
		return nil, fmt.Errorf("%w: %d of %d", ErrChunkOutOfRange, index, sess.TotalChunks)
	}
	if expected := sess.ExpectedChunkSize(index); int64(len(body)) != expected {
		if c.metrics != nil {
			c.metrics.RecordRejected("chunk_size_mismatch")
		}
		return nil, fmt.Errorf("%w: chunk %d carries %d bytes, expected %d",
			ErrChunkSizeMismatch, index, len(body), expected)
	}

	// A chunk whose bit is already set has its bytes staged; rewriting
	// it could truncate a file the elected assembler is reading.
	if !sess.ChunkStatus.IsSet(index) {
		if _, err = c.chunks.WriteChunk(ctx, fileID, index, bytes.NewReader(body)); err != nil {
			return nil, fmt.Errorf("failed to store chunk %d of %s: %w", index, fileID, err)
		}

		if c.catalog != nil {
			location := c.chunks.ChunkLocation(fileID, index)
			if cerr := c.catalog.UpsertChunk(ctx, fileID, sess.TotalChunks, index, location); cerr != nil {
				logger.WarnCtx(ctx, "Failed to record chunk in catalog",
					logger.FileID(fileID),
					logger.ChunkIndex(index),
					logger.Err(cerr))
			}
		}
	}

	updated, applied, err := c.sessions.ApplyChunk(ctx, fileID, index, int64(len(body)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionUnknown, fileID)
		}
		if errors.Is(err, session.ErrChunkIndexOutOfRange) {
			return nil, fmt.Errorf("%w: %d of %d", ErrChunkOutOfRange, index, sess.TotalChunks)
		}
		if errors.Is(err, session.ErrTerminalStatus) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply chunk %d of %s: %w", index, fileID, err)
	}

	c.index.IndexChunk(ctx, fileID, index, c.chunks.ChunkLocation(fileID, index), updated.FileName)

	if !applied.Applied {
		logger.DebugCtx(ctx, "Duplicate chunk ignored",
			logger.FileID(fileID),
			logger.ChunkIndex(index))
	}

	if applied.JustCompleted {
		if c.metrics != nil {
			c.metrics.RecordSessionStatus(string(session.StatusFinalizing))
		}
		// Winning the completion election pins assembly to this replica.
		// It runs detached from the request deadline: once elected, it
		// finishes or fails on its own terms.
		if err = c.assemble(context.WithoutCancel(ctx), updated); err != nil {
			return nil, err
		}
		return &ChunkResult{
			Received:     true,
			Status:       session.StatusCompleted,
			Progress:     100,
			UploadedSize: updated.UploadedSize,
			TotalSize:    updated.TotalSize,
			Message:      "upload completed",
		}, nil
	}

	return &ChunkResult{
		Received:     true,
		Status:       updated.Status,
		Progress:     updated.Progress(),
		UploadedSize: updated.UploadedSize,
		TotalSize:    updated.TotalSize,
		Message:      "chunk received",
	}, nil
}

// StatusResult is the response to a status query.
type StatusResult struct {
	Status         session.Status
	Progress       int
	UploadedSize   int64
	TotalSize      int64
	TotalChunks    int
	UploadedChunks int
}

// Status reports the progress of a session. Pure read.
func (c *Coordinator) Status(ctx context.Context, fileID string) (*StatusResult, error) {
	ctx, span := telemetry.StartUploadSpan(ctx, "status", fileID)
	defer span.End()

	sess, err := c.sessions.Load(ctx, fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionUnknown, fileID)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", fileID, err)
	}

	return &StatusResult{
		Status:         sess.Status,
		Progress:       sess.Progress(),
		UploadedSize:   sess.UploadedSize,
		TotalSize:      sess.TotalSize,
		TotalChunks:    sess.TotalChunks,
		UploadedChunks: sess.UploadedChunks,
	}, nil
}
