package store

import (
	"context"
	"sync"
	"time"

	"github.com/vingest/vingest/pkg/session"
)

// MemoryStore keeps sessions in process memory.
//
// Intended for development and tests. It cannot coordinate more than one
// replica: the mutex serializing ApplyChunk lives in this process only.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration

	// nowFunc is replaced by tests exercising expiry.
	nowFunc func() time.Time
}

type memoryEntry struct {
	sess      *session.Session
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// Create stores a new session.
func (s *MemoryStore) Create(ctx context.Context, sess *session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[sess.FileID]; ok && !s.expired(e) {
		return ErrAlreadyExists
	}

	s.sessions[sess.FileID] = &memoryEntry{
		sess:      sess.Clone(),
		expiresAt: s.deadline(),
	}
	return nil
}

// Load returns a copy of the session for fileID.
func (s *MemoryStore) Load(ctx context.Context, fileID string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.get(fileID)
	if err != nil {
		return nil, err
	}
	return e.sess.Clone(), nil
}

// ApplyChunk mutates the session under the store mutex.
func (s *MemoryStore) ApplyChunk(ctx context.Context, fileID string, chunkIndex int, size int64) (*session.Session, ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, ApplyResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.get(fileID)
	if err != nil {
		return nil, ApplyResult{}, err
	}

	applied, just, err := e.sess.Apply(chunkIndex, size, s.nowFunc())
	if err != nil {
		return nil, ApplyResult{}, err
	}

	e.expiresAt = s.deadline()
	return e.sess.Clone(), ApplyResult{Applied: applied, JustCompleted: just}, nil
}

// Fail marks the session failed.
func (s *MemoryStore) Fail(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.get(fileID)
	if err != nil {
		return err
	}
	e.sess.MarkFailed(s.nowFunc())
	e.expiresAt = s.deadline()
	return nil
}

// Delete removes the session. Idempotent.
func (s *MemoryStore) Delete(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, fileID)
	return nil
}

// List returns copies of all live sessions.
func (s *MemoryStore) List(ctx context.Context) ([]*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*session.Session
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			continue
		}
		out = append(out, e.sess.Clone())
	}
	return out, nil
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Close discards all sessions.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*memoryEntry)
	return nil
}

// get returns the live entry for fileID, expiring it lazily.
func (s *MemoryStore) get(fileID string) (*memoryEntry, error) {
	e, ok := s.sessions[fileID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(e) {
		delete(s.sessions, fileID)
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) expired(e *memoryEntry) bool {
	return !e.expiresAt.IsZero() && s.nowFunc().After(e.expiresAt)
}

func (s *MemoryStore) deadline() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.nowFunc().Add(s.ttl)
}
