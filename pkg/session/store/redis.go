package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/session"
)

// applyChunkScript mutates a session record in one atomic server-side step.
//
// The script is the Lua mirror of session.Apply: it flips the chunk bit,
// bumps the counters and performs the finalizing transition. Running it
// server-side serializes concurrent ApplyChunk calls from every replica on
// the single Redis command loop, which is what makes the JUST_COMPLETED
// election exact.
//
// KEYS[1] = session key
// ARGV[1] = chunk index (0-based)
// ARGV[2] = chunk byte length
// ARGV[3] = ttl seconds (0 = no expiry)
// ARGV[4] = current unix time
//
// Returns {payload, applied, just_completed}.
const applyChunkScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('session not found')
end

local sess = cjson.decode(raw)
local idx = tonumber(ARGV[1])
local size = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

if sess.status == 'completed' or sess.status == 'failed' then
  return redis.error_reply('session status is terminal')
end

if idx < 0 or idx >= sess.total_chunks then
  return redis.error_reply('chunk index out of range')
end

local pos = idx + 1
if string.sub(sess.chunk_status, pos, pos) == '1' then
  if ttl > 0 then
    redis.call('EXPIRE', KEYS[1], ttl)
  end
  return {raw, 0, 0}
end

sess.chunk_status = string.sub(sess.chunk_status, 1, pos - 1) .. '1' .. string.sub(sess.chunk_status, pos + 1)
sess.uploaded_chunks = sess.uploaded_chunks + 1
sess.uploaded_size = sess.uploaded_size + size
sess.updated_at = tonumber(ARGV[4])

local just = 0
if sess.uploaded_chunks == sess.total_chunks then
  sess.status = 'finalizing'
  just = 1
else
  sess.status = 'uploading'
end

local out = cjson.encode(sess)
if ttl > 0 then
  redis.call('SET', KEYS[1], out, 'EX', ttl)
else
  redis.call('SET', KEYS[1], out)
end

return {out, 1, just}
`

var applyChunk = redis.NewScript(applyChunkScript)

// RedisStore is the Redis-backed session store. This is the production
// backend: any number of replicas may share it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Debug("connected to redis session store", logger.Store(BackendRedis))

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Create stores a new session with NX semantics.
func (s *RedisStore) Create(ctx context.Context, sess *session.Session) error {
	data, err := session.Encode(sess)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, Key(sess.FileID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// Load returns the session for fileID.
func (s *RedisStore) Load(ctx context.Context, fileID string) (*session.Session, error) {
	raw, err := s.client.Get(ctx, Key(fileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess, err := session.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return sess, nil
}

// ApplyChunk runs the server-side apply script.
func (s *RedisStore) ApplyChunk(ctx context.Context, fileID string, chunkIndex int, size int64) (*session.Session, ApplyResult, error) {
	ttlSec := int64(s.ttl / time.Second)

	res, err := applyChunk.Run(ctx, s.client,
		[]string{Key(fileID)},
		chunkIndex, size, ttlSec, time.Now().Unix(),
	).Result()
	if err != nil {
		return nil, ApplyResult{}, mapScriptError(err)
	}

	reply, ok := res.([]interface{})
	if !ok || len(reply) != 3 {
		return nil, ApplyResult{}, fmt.Errorf("unexpected apply script reply %T", res)
	}

	payload, ok := reply[0].(string)
	if !ok {
		return nil, ApplyResult{}, fmt.Errorf("unexpected apply script payload %T", reply[0])
	}

	sess, err := session.Decode([]byte(payload))
	if err != nil {
		return nil, ApplyResult{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	result := ApplyResult{
		Applied:       asInt(reply[1]) == 1,
		JustCompleted: asInt(reply[2]) == 1,
	}
	return sess, result, nil
}

// Fail marks the session failed.
//
// Only the replica elected by ApplyChunk calls this, and only after every
// chunk bit is set, so a plain read-modify-write cannot race a concurrent
// mutation of the payload.
func (s *RedisStore) Fail(ctx context.Context, fileID string) error {
	sess, err := s.Load(ctx, fileID)
	if err != nil {
		return err
	}

	sess.MarkFailed(time.Now())
	data, err := session.Encode(sess)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, Key(fileID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark session failed: %w", err)
	}
	return nil
}

// Delete removes the session. Idempotent.
func (s *RedisStore) Delete(ctx context.Context, fileID string) error {
	if err := s.client.Del(ctx, Key(fileID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List scans all session keys and returns their decoded records.
func (s *RedisStore) List(ctx context.Context) ([]*session.Session, error) {
	var out []*session.Session

	iter := s.client.Scan(ctx, 0, Key("*"), 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}

		sess, err := session.Decode(raw)
		if err != nil {
			logger.Warn("skipping corrupt session record",
				logger.Store(BackendRedis), logger.Path(iter.Val()), logger.Err(err))
			continue
		}
		out = append(out, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	return out, nil
}

// HealthCheck pings the server.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis session store unreachable: %w", err)
	}
	return nil
}

// Close releases the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// mapScriptError converts script error replies to store errors.
func mapScriptError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "session not found"):
		return ErrNotFound
	case strings.Contains(msg, "chunk index out of range"):
		return session.ErrChunkIndexOutOfRange
	case strings.Contains(msg, "terminal"):
		return session.ErrTerminalStatus
	}
	return fmt.Errorf("failed to apply chunk: %w", err)
}

func asInt(v interface{}) int64 {
	n, _ := v.(int64)
	return n
}
