// Package store provides the shared session store used by every replica.
//
// All per-upload state lives here; replicas keep nothing in process memory.
// The critical operation is ApplyChunk, which must be atomic per file ID so
// that concurrent chunk deliveries across replicas cannot lose updates and
// exactly one caller observes session completion.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vingest/vingest/pkg/session"
)

var (
	// ErrNotFound is returned when no session exists for a file ID.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists is returned by Create when the file ID is taken.
	ErrAlreadyExists = errors.New("session already exists")

	// ErrCorrupt is returned when a stored payload cannot be decoded.
	ErrCorrupt = errors.New("session record corrupt")
)

// Key returns the store key for a file ID.
func Key(fileID string) string {
	return "upload:" + fileID
}

// ApplyResult reports what an ApplyChunk call did.
type ApplyResult struct {
	// Applied is false when the chunk bit was already set and the session
	// was left unchanged.
	Applied bool

	// JustCompleted is true for exactly the call that set the last missing
	// bit. That caller is elected to run assembly.
	JustCompleted bool
}

// Store is the session store contract.
//
// Implementations must serialize ApplyChunk per file ID across all replicas
// sharing the store. A per-process mutex is not sufficient for backends
// reachable from more than one replica.
type Store interface {
	// Create stores a new session. Fails with ErrAlreadyExists if a session
	// with the same file ID is present.
	Create(ctx context.Context, s *session.Session) error

	// Load returns the session for fileID, ErrNotFound if absent, or
	// ErrCorrupt if the stored payload cannot be decoded.
	Load(ctx context.Context, fileID string) (*session.Session, error)

	// ApplyChunk atomically marks chunkIndex received with size bytes and
	// returns the updated session. Re-applying a received index returns the
	// session unchanged with Applied=false.
	ApplyChunk(ctx context.Context, fileID string, chunkIndex int, size int64) (*session.Session, ApplyResult, error)

	// Fail marks the session failed. The record is kept for inspection
	// until deleted or expired.
	Fail(ctx context.Context, fileID string) error

	// Delete removes the session. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, fileID string) error

	// List returns all live sessions. Records that no longer decode are
	// skipped.
	List(ctx context.Context) ([]*session.Session, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Open creates the session store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, cfg.TTL)
	case BackendBadger:
		return NewBadgerStore(cfg.Badger, cfg.TTL)
	case BackendMemory:
		return NewMemoryStore(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Backend)
	}
}
