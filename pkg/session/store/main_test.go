package store_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/vingest/vingest/pkg/session/store"
)

// Shared Redis container for all tests in this package. Empty address means
// the container was not started (short mode) and Redis tests skip.
var sharedRedisAddr string

// TestMain sets up a shared Redis container for the Redis store tests.
// Run with -short to skip the container and test only the embedded backends.
func TestMain(m *testing.M) {
	flag.Parse()

	ctx := context.Background()

	var container *tcredis.RedisContainer
	if !testing.Short() {
		var err error
		container, err = tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
			os.Exit(1)
		}

		uri, err := container.ConnectionString(ctx)
		if err != nil {
			_ = testcontainers.TerminateContainer(container)
			fmt.Fprintf(os.Stderr, "failed to get redis connection string: %v\n", err)
			os.Exit(1)
		}

		opt, err := goredis.ParseURL(uri)
		if err != nil {
			_ = testcontainers.TerminateContainer(container)
			fmt.Fprintf(os.Stderr, "failed to parse redis connection string: %v\n", err)
			os.Exit(1)
		}
		sharedRedisAddr = opt.Addr
	}

	exitCode := m.Run()

	if container != nil {
		if err := testcontainers.TerminateContainer(container); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
		}
	}

	os.Exit(exitCode)
}

// setupRedisStore creates a Redis session store against the shared container
// with a flushed database, so each test starts from an empty keyspace.
func setupRedisStore(t *testing.T, ttl time.Duration) *store.RedisStore {
	t.Helper()

	if sharedRedisAddr == "" {
		t.Skip("redis container not started in short mode")
	}

	ctx := context.Background()

	client := goredis.NewClient(&goredis.Options{Addr: sharedRedisAddr})
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
	_ = client.Close()

	st, err := store.NewRedisStore(ctx, store.RedisConfig{Addr: sharedRedisAddr}, ttl)
	if err != nil {
		t.Fatalf("NewRedisStore() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}
