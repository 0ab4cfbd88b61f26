package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vingest/vingest/internal/logger"
)

// ErrFinalNotFound is returned by FinalForFile when no final row exists.
var ErrFinalNotFound = errors.New("final file not recorded")

// Config configures the catalog database and its connection pool.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// MaxConnections caps the pool. Acquisition beyond the cap fails
	// immediately with ErrNoAvailableConnections.
	MaxConnections int

	// IdleTimeout reaps connections unused for this long. The pool keeps
	// at least one connection alive.
	IdleTimeout time.Duration
}

// DefaultConfig returns the default catalog configuration.
func DefaultConfig() Config {
	return Config{
		Path:           "catalog.db",
		MaxConnections: 5,
		IdleTimeout:    60 * time.Second,
	}
}

// Catalog is the durable audit record of chunk arrivals and final files.
//
// Writes are best-effort from the protocol's point of view: the session
// store carries correctness, the catalog carries history. Callers log
// upsert failures and keep serving.
type Catalog struct {
	db   *sql.DB
	pool *pool
	path string
}

// Open opens (creating if needed) the catalog database, applies pending
// migrations and builds the connection pool. metrics may be nil.
func Open(cfg Config, metrics PoolMetrics) (*Catalog, error) {
	if cfg.MaxConnections <= 0 {
		return nil, fmt.Errorf("catalog pool needs at least one connection, got %d", cfg.MaxConnections)
	}

	db, err := sql.Open("sqlite3", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("opened catalog database", logger.Path(cfg.Path))

	return &Catalog{
		db:   db,
		pool: newPool(db, cfg.MaxConnections, cfg.IdleTimeout, metrics),
		path: cfg.Path,
	}, nil
}

// dsn builds the connection string: serialized threading mode, WAL
// journaling and a 5 second busy timeout on every connection.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_mutex=full&_fk=1", path)
}

const upsertChunkSQL = `
INSERT OR REPLACE INTO video_chunk_data (file_id, total_chunks, chunk_id, chunk_locations, is_complete)
VALUES (?, ?, ?, ?, ?)`

const upsertFinalSQL = `
INSERT OR REPLACE INTO video_final_data (file_id, file_size, file_locations)
VALUES (?, ?, ?)`

// UpsertChunk records one chunk arrival.
func (c *Catalog) UpsertChunk(ctx context.Context, fileID string, totalChunks, chunkID int, chunkPath string) error {
	return c.exec(ctx, "upsert_chunk", upsertChunkSQL, fileID, totalChunks, chunkID, chunkPath, true)
}

// UpsertFinal records the assembled file.
func (c *Catalog) UpsertFinal(ctx context.Context, fileID string, fileSize int64, filePath string) error {
	return c.exec(ctx, "upsert_final", upsertFinalSQL, fileID, fileSize, filePath)
}

// exec runs one write through a scoped statement.
func (c *Catalog) exec(ctx context.Context, op, query string, args ...any) error {
	start := time.Now()

	stmt, err := c.pool.Prepare(ctx, query)
	if err != nil {
		c.observe(op, start, err)
		return err
	}
	defer func() { _ = stmt.Close() }()

	_, err = stmt.Exec(ctx, args...)
	c.observe(op, start, err)
	if err != nil {
		return fmt.Errorf("catalog %s failed: %w", op, err)
	}
	return nil
}

func (c *Catalog) observe(op string, start time.Time, err error) {
	if c.pool.metrics != nil {
		c.pool.metrics.ObserveExec(op, time.Since(start), err)
	}
}

// ChunkRow mirrors one video_chunk_data record.
type ChunkRow struct {
	FileID         string
	TotalChunks    int
	ChunkID        int
	ChunkLocations string
	IsComplete     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FinalRow mirrors one video_final_data record.
type FinalRow struct {
	FileID        string
	FileSize      int64
	FileLocations string
	CreatedAt     time.Time
}

const chunksForFileSQL = `
SELECT file_id, total_chunks, chunk_id, chunk_locations, is_complete, created_at, updated_at
FROM video_chunk_data WHERE file_id = ? ORDER BY chunk_id`

const listFinalSQL = `
SELECT file_id, file_size, file_locations, created_at
FROM video_final_data ORDER BY created_at DESC, file_id`

const finalForFileSQL = `
SELECT file_id, file_size, file_locations, created_at
FROM video_final_data WHERE file_id = ?`

// ChunksForFile returns the chunk rows recorded for a file, ordered by
// chunk index.
func (c *Catalog) ChunksForFile(ctx context.Context, fileID string) ([]ChunkRow, error) {
	start := time.Now()

	stmt, err := c.pool.Prepare(ctx, chunksForFileSQL)
	if err != nil {
		c.observe("chunks_for_file", start, err)
		return nil, err
	}
	defer func() { _ = stmt.Close() }()

	rows, err := stmt.Query(ctx, fileID)
	if err != nil {
		c.observe("chunks_for_file", start, err)
		return nil, fmt.Errorf("catalog chunk query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		if err := rows.Scan(&r.FileID, &r.TotalChunks, &r.ChunkID, &r.ChunkLocations,
			&r.IsComplete, &r.CreatedAt, &r.UpdatedAt); err != nil {
			c.observe("chunks_for_file", start, err)
			return nil, fmt.Errorf("catalog chunk scan failed: %w", err)
		}
		out = append(out, r)
	}
	err = rows.Err()
	c.observe("chunks_for_file", start, err)
	if err != nil {
		return nil, fmt.Errorf("catalog chunk query failed: %w", err)
	}
	return out, nil
}

// FinalForFile returns the final file row for a file ID, or
// ErrFinalNotFound when the file was never assembled.
func (c *Catalog) FinalForFile(ctx context.Context, fileID string) (*FinalRow, error) {
	start := time.Now()

	stmt, err := c.pool.Prepare(ctx, finalForFileSQL)
	if err != nil {
		c.observe("final_for_file", start, err)
		return nil, err
	}
	defer func() { _ = stmt.Close() }()

	var r FinalRow
	err = stmt.QueryRow(ctx, fileID).Scan(&r.FileID, &r.FileSize, &r.FileLocations, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.observe("final_for_file", start, nil)
		return nil, fmt.Errorf("%w: %s", ErrFinalNotFound, fileID)
	}
	c.observe("final_for_file", start, err)
	if err != nil {
		return nil, fmt.Errorf("catalog final query failed: %w", err)
	}
	return &r, nil
}

// ListFinal returns all final file rows, newest first.
func (c *Catalog) ListFinal(ctx context.Context) ([]FinalRow, error) {
	start := time.Now()

	stmt, err := c.pool.Prepare(ctx, listFinalSQL)
	if err != nil {
		c.observe("list_final", start, err)
		return nil, err
	}
	defer func() { _ = stmt.Close() }()

	rows, err := stmt.Query(ctx)
	if err != nil {
		c.observe("list_final", start, err)
		return nil, fmt.Errorf("catalog final query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FinalRow
	for rows.Next() {
		var r FinalRow
		if err := rows.Scan(&r.FileID, &r.FileSize, &r.FileLocations, &r.CreatedAt); err != nil {
			c.observe("list_final", start, err)
			return nil, fmt.Errorf("catalog final scan failed: %w", err)
		}
		out = append(out, r)
	}
	err = rows.Err()
	c.observe("list_final", start, err)
	if err != nil {
		return nil, fmt.Errorf("catalog final query failed: %w", err)
	}
	return out, nil
}

// HealthCheck verifies the database answers a trivial query.
func (c *Catalog) HealthCheck(ctx context.Context) error {
	stmt, err := c.pool.Prepare(ctx, "SELECT 1")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	var one int
	if err := stmt.QueryRow(ctx).Scan(&one); err != nil {
		return fmt.Errorf("catalog unhealthy: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

// Close closes the pool and the database.
func (c *Catalog) Close() error {
	poolErr := c.pool.Close()
	dbErr := c.db.Close()
	if poolErr != nil {
		return poolErr
	}
	return dbErr
}
