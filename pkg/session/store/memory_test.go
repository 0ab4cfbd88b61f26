package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vingest/vingest/pkg/session"
)

func TestMemoryStoreExpiry(t *testing.T) {
	st := NewMemoryStore(time.Hour)
	now := time.Unix(1700000000, 0)
	st.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	sess, err := session.New("a.txt", 500, 1<<20, now)
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, sess))

	_, err = st.Load(ctx, sess.FileID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)

	_, err = st.Load(ctx, sess.FileID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The slot is reusable once expired
	require.NoError(t, st.Create(ctx, sess))
}

func TestMemoryStoreApplySlidesExpiry(t *testing.T) {
	st := NewMemoryStore(time.Hour)
	now := time.Unix(1700000000, 0)
	st.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	sess, err := session.New("a.txt", 3_000_000, 1<<20, now)
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, sess))

	// 50 minutes in, an apply pushes the deadline another hour out
	now = now.Add(50 * time.Minute)
	_, _, err = st.ApplyChunk(ctx, sess.FileID, 0, sess.ExpectedChunkSize(0))
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	_, err = st.Load(ctx, sess.FileID)
	require.NoError(t, err, "session expired despite recent activity")

	now = now.Add(2 * time.Hour)
	_, err = st.Load(ctx, sess.FileID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreZeroTTL(t *testing.T) {
	st := NewMemoryStore(0)
	now := time.Unix(1700000000, 0)
	st.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	sess, err := session.New("a.txt", 500, 1<<20, now)
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, sess))

	now = now.Add(1000 * time.Hour)
	_, err = st.Load(ctx, sess.FileID)
	assert.NoError(t, err, "zero TTL must disable expiry")
}

func TestOpenFactory(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	bdg, err := Open(ctx, Config{
		Backend: BackendBadger,
		Badger:  BadgerConfig{Dir: filepath.Join(t.TempDir(), "sessions.db")},
	})
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, bdg)
	require.NoError(t, bdg.Close())

	_, err = Open(ctx, Config{Backend: "etcd"})
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, 24*time.Hour, cfg.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}
