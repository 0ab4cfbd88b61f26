package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, maxConns int, idleTimeout time.Duration) *Catalog {
	t.Helper()

	c, err := Open(Config{
		Path:           filepath.Join(t.TempDir(), "catalog.db"),
		MaxConnections: maxConns,
		IdleTimeout:    idleTimeout,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func TestPoolFailsFastAtCap(t *testing.T) {
	c := newTestCatalog(t, 3, time.Minute)
	ctx := context.Background()

	var held []*pooledConn
	for i := 0; i < 3; i++ {
		pc, err := c.pool.acquire(ctx)
		require.NoError(t, err)
		held = append(held, pc)
	}
	assert.Equal(t, 3, c.pool.size())

	_, err := c.pool.acquire(ctx)
	assert.ErrorIs(t, err, ErrNoAvailableConnections)
	assert.Equal(t, 3, c.pool.size())

	c.pool.release(held[0])
	pc, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.pool.size())

	c.pool.release(pc)
	c.pool.release(held[1])
	c.pool.release(held[2])
}

func TestPoolReusesReleasedConnections(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)
	ctx := context.Background()

	pc, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	c.pool.release(pc)

	again, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, pc, again)
	assert.Equal(t, 1, c.pool.size())
	c.pool.release(again)
}

func TestPoolReapsIdleConnections(t *testing.T) {
	c := newTestCatalog(t, 4, time.Minute)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.pool.nowFunc = func() time.Time { return now }

	var held []*pooledConn
	for i := 0; i < 3; i++ {
		pc, err := c.pool.acquire(ctx)
		require.NoError(t, err)
		held = append(held, pc)
	}
	for _, pc := range held {
		c.pool.release(pc)
	}
	assert.Equal(t, 3, c.pool.size())

	// All three idle past the timeout; the reaper runs on the next acquire
	// and keeps one alive.
	now = now.Add(2 * time.Minute)
	pc, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.pool.size())
	c.pool.release(pc)
}

func TestPoolNeverReapsLastConnection(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.pool.nowFunc = func() time.Time { return now }

	pc, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	c.pool.release(pc)

	now = now.Add(time.Hour)
	again, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, pc, again, "sole idle connection must survive the reaper")
	c.pool.release(again)
}

func TestPoolZeroIdleTimeoutDisablesReaper(t *testing.T) {
	c := newTestCatalog(t, 3, 0)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.pool.nowFunc = func() time.Time { return now }

	a, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	b, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	c.pool.release(a)
	c.pool.release(b)

	now = now.Add(24 * time.Hour)
	pc, err := c.pool.acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, c.pool.size())
	c.pool.release(pc)
}

func TestPoolClosed(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)

	require.NoError(t, c.pool.Close())
	_, err := c.pool.acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	// Close is idempotent
	assert.NoError(t, c.pool.Close())
}

// The pool must never exceed its cap, no matter how callers race.
func TestPoolBoundUnderContention(t *testing.T) {
	c := newTestCatalog(t, 3, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				pc, err := c.pool.acquire(ctx)
				if err != nil {
					if err != ErrNoAvailableConnections {
						t.Errorf("acquire failed: %v", err)
					}
					continue
				}
				if n := c.pool.size(); n > 3 {
					t.Errorf("pool grew to %d connections, cap is 3", n)
				}
				c.pool.release(pc)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.pool.size(), 3)
}
