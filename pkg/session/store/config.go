package store

import (
	"time"
)

// Store backend names accepted by Open.
const (
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects and configures the session store backend.
type Config struct {
	// Backend is one of redis, badger or memory.
	Backend string

	// TTL bounds how long an abandoned session survives. Every mutation
	// slides the expiry. Zero disables expiry.
	TTL time.Duration

	Redis  RedisConfig
	Badger BadgerConfig
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password authenticates the connection; empty for none.
	Password string

	// DB is the logical database number.
	DB int

	// PoolSize caps the connection pool. Zero lets the client default
	// (10 per CPU).
	PoolSize int

	// DialTimeout bounds connection establishment. Zero lets the client
	// default (5s).
	DialTimeout time.Duration
}

// BadgerConfig configures the embedded Badger session store.
type BadgerConfig struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in process memory; used by tests.
	InMemory bool
}

// DefaultConfig returns a development-friendly store configuration.
func DefaultConfig() Config {
	return Config{
		Backend: BackendRedis,
		TTL:     24 * time.Hour,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}
