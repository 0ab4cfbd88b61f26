package store_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vingest/vingest/pkg/session"
	"github.com/vingest/vingest/pkg/session/store"
)

func TestRedisSessionExpiry(t *testing.T) {
	st := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	sess, err := session.New("a.txt", 3_000_000, 1<<20, time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, sess))

	client := goredis.NewClient(&goredis.Options{Addr: sharedRedisAddr})
	defer func() { _ = client.Close() }()

	ttl, err := client.TTL(ctx, store.Key(sess.FileID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute, "create must set the session TTL")

	// Let the TTL decay, then verify a chunk apply slides it back up
	require.NoError(t, client.Expire(ctx, store.Key(sess.FileID), time.Minute).Err())

	_, _, err = st.ApplyChunk(ctx, sess.FileID, 0, sess.ExpectedChunkSize(0))
	require.NoError(t, err)

	ttl, err = client.TTL(ctx, store.Key(sess.FileID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute, "apply must slide the session TTL")

	// Duplicate deliveries slide it as well
	require.NoError(t, client.Expire(ctx, store.Key(sess.FileID), time.Minute).Err())

	_, res, err := st.ApplyChunk(ctx, sess.FileID, 0, sess.ExpectedChunkSize(0))
	require.NoError(t, err)
	assert.False(t, res.Applied)

	ttl, err = client.TTL(ctx, store.Key(sess.FileID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute, "duplicate apply must slide the session TTL")
}

func TestRedisApplyTerminalSession(t *testing.T) {
	st := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	sess, err := session.New("a.txt", 500, 1<<20, time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, sess))
	require.NoError(t, st.Fail(ctx, sess.FileID))

	_, _, err = st.ApplyChunk(ctx, sess.FileID, 0, 500)
	assert.ErrorIs(t, err, session.ErrTerminalStatus)
}

func TestRedisApplyScriptErrors(t *testing.T) {
	st := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	_, _, err := st.ApplyChunk(ctx, "ffffffffffffffffffffffffffffffff", 0, 100)
	assert.ErrorIs(t, err, store.ErrNotFound)

	sess, err := session.New("a.txt", 3_000_000, 1<<20, time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, sess))

	_, _, err = st.ApplyChunk(ctx, sess.FileID, 99, 100)
	assert.ErrorIs(t, err, session.ErrChunkIndexOutOfRange)
}

func TestRedisLoadCorrupt(t *testing.T) {
	st := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	client := goredis.NewClient(&goredis.Options{Addr: sharedRedisAddr})
	defer func() { _ = client.Close() }()

	require.NoError(t, client.Set(ctx, store.Key("deadbeefdeadbeefdeadbeefdeadbeef"), "{not json", 0).Err())

	_, err := st.Load(ctx, "deadbeefdeadbeefdeadbeefdeadbeef")
	assert.ErrorIs(t, err, store.ErrCorrupt)
}
