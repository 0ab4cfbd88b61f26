package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenValidatesConfig(t *testing.T) {
	_, err := Open(Config{Path: "x.db", MaxConnections: 0}, nil)
	assert.Error(t, err)
}

func TestOpenRunsMigrations(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)

	version, dirty, err := MigrationVersion(c.Path())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestUpsertChunkIdempotent(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.UpsertChunk(ctx, "abc123", 4, 0, "/data/abc123/chunk_0"))
	require.NoError(t, c.UpsertChunk(ctx, "abc123", 4, 0, "/data/abc123/chunk_0"))

	rows, err := c.ChunksForFile(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "abc123", rows[0].FileID)
	assert.Equal(t, 4, rows[0].TotalChunks)
	assert.Equal(t, 0, rows[0].ChunkID)
	assert.Equal(t, "/data/abc123/chunk_0", rows[0].ChunkLocations)
	assert.True(t, rows[0].IsComplete)
	assert.False(t, rows[0].CreatedAt.IsZero())
}

func TestChunksForFileOrdering(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)
	ctx := context.Background()

	// Insert out of order, read back sorted by chunk index.
	for _, idx := range []int{2, 0, 1} {
		path := fmt.Sprintf("/data/f1/chunk_%d", idx)
		require.NoError(t, c.UpsertChunk(ctx, "f1", 3, idx, path))
	}
	require.NoError(t, c.UpsertChunk(ctx, "f2", 1, 0, "/data/f2/chunk_0"))

	rows, err := c.ChunksForFile(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i, row.ChunkID)
	}
}

func TestUpsertFinal(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.UpsertFinal(ctx, "abc123", 1048576, "/data/movie.mp4"))
	require.NoError(t, c.UpsertFinal(ctx, "abc123", 1048576, "/data/movie.mp4"))
	require.NoError(t, c.UpsertFinal(ctx, "def456", 2048, "/data/clip.mp4"))

	rows, err := c.ListFinal(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]FinalRow{}
	for _, row := range rows {
		byID[row.FileID] = row
	}
	assert.Equal(t, int64(1048576), byID["abc123"].FileSize)
	assert.Equal(t, "/data/movie.mp4", byID["abc123"].FileLocations)
	assert.Equal(t, int64(2048), byID["def456"].FileSize)
	assert.False(t, byID["def456"].CreatedAt.IsZero())
}

func TestFinalForFile(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.UpsertFinal(ctx, "abc123", 4096, "/data/movie.mp4"))

	row, err := c.FinalForFile(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), row.FileSize)
	assert.Equal(t, "/data/movie.mp4", row.FileLocations)

	_, err = c.FinalForFile(ctx, "missing")
	assert.ErrorIs(t, err, ErrFinalNotFound)
}

func TestChunksForFileEmpty(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)

	rows, err := c.ChunksForFile(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHealthCheck(t *testing.T) {
	c := newTestCatalog(t, 2, time.Minute)
	assert.NoError(t, c.HealthCheck(context.Background()))
}

func TestConcurrentUpserts(t *testing.T) {
	c := newTestCatalog(t, 4, time.Minute)
	ctx := context.Background()

	errs := make(chan error, 16)
	for w := 0; w < 16; w++ {
		go func(idx int) {
			path := fmt.Sprintf("/data/big/chunk_%d", idx)
			errs <- c.UpsertChunk(ctx, "big", 16, idx, path)
		}(w)
	}
	for i := 0; i < 16; i++ {
		require.NoError(t, <-errs)
	}

	rows, err := c.ChunksForFile(ctx, "big")
	require.NoError(t, err)
	assert.Len(t, rows, 16)
}

func TestMigrateStandalone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	require.NoError(t, Migrate(path))
	// Re-running against an up-to-date database is a no-op.
	require.NoError(t, Migrate(path))

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestMigrationVersionFreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}
