package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Statement is a scoped (connection, prepared statement) pair.
//
// Close finalizes the statement and returns the connection to the pool;
// every path out of a caller must Close. The usual shape is
//
//	stmt, err := pool.Prepare(ctx, query)
//	if err != nil { ... }
//	defer stmt.Close()
type Statement struct {
	pool *pool
	pc   *pooledConn
	stmt *sql.Stmt
}

// Prepare acquires a connection and prepares query on it.
func (p *pool) Prepare(ctx context.Context, query string) (*Statement, error) {
	pc, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}

	stmt, err := pc.conn.PrepareContext(ctx, query)
	if err != nil {
		p.release(pc)
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	return &Statement{pool: p, pc: pc, stmt: stmt}, nil
}

// Exec runs the statement with positional arguments.
func (s *Statement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	return s.stmt.ExecContext(ctx, args...)
}

// Query runs the statement and returns its rows. The caller must close the
// rows before closing the statement.
func (s *Statement) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	return s.stmt.QueryContext(ctx, args...)
}

// QueryRow runs the statement expecting at most one row.
func (s *Statement) QueryRow(ctx context.Context, args ...any) *sql.Row {
	return s.stmt.QueryRowContext(ctx, args...)
}

// Close finalizes the statement and releases the connection. Safe to call
// once per statement on every exit path.
func (s *Statement) Close() error {
	err := s.stmt.Close()
	s.pool.release(s.pc)
	return err
}
