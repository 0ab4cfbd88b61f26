package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNoAvailableConnections is returned by acquire when every pooled
	// connection is in use and the pool is at its cap. Callers fail fast
	// rather than queue; catalog writes are best-effort.
	ErrNoAvailableConnections = errors.New("no available connections")

	// ErrPoolClosed is returned after Close.
	ErrPoolClosed = errors.New("connection pool closed")
)

// pool hands out dedicated database connections up to a fixed cap.
//
// database/sql's built-in pool blocks when exhausted; the catalog contract
// wants an immediate failure instead, plus idle reaping on a fixed timeout.
// So the pool pins *sql.Conn handles out of one shared *sql.DB and manages
// them under its own mutex.
type pool struct {
	mu          sync.Mutex
	db          *sql.DB
	conns       []*pooledConn
	max         int
	idleTimeout time.Duration
	closed      bool
	metrics     PoolMetrics

	// nowFunc is replaced by tests exercising the reaper.
	nowFunc func() time.Time
}

type pooledConn struct {
	conn     *sql.Conn
	inUse    bool
	lastUsed time.Time
}

func newPool(db *sql.DB, max int, idleTimeout time.Duration, metrics PoolMetrics) *pool {
	return &pool{
		db:          db,
		max:         max,
		idleTimeout: idleTimeout,
		metrics:     metrics,
		nowFunc:     time.Now,
	}
}

// acquire returns an unused connection, creating one while under the cap.
// Idle connections past the timeout are reaped first, always leaving at
// least one live connection in the pool.
func (p *pool) acquire(ctx context.Context) (*pooledConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	p.reapIdleLocked()

	for _, pc := range p.conns {
		if !pc.inUse {
			pc.inUse = true
			p.recordAcquireLocked(nil)
			return pc, nil
		}
	}

	if len(p.conns) >= p.max {
		p.recordAcquireLocked(ErrNoAvailableConnections)
		return nil, ErrNoAvailableConnections
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.recordAcquireLocked(err)
		return nil, fmt.Errorf("failed to open catalog connection: %w", err)
	}

	pc := &pooledConn{conn: conn, inUse: true, lastUsed: p.nowFunc()}
	p.conns = append(p.conns, pc)
	p.recordAcquireLocked(nil)
	return pc, nil
}

// release marks the connection unused and stamps its last-used time.
func (p *pool) release(pc *pooledConn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pc.inUse = false
	pc.lastUsed = p.nowFunc()

	if p.metrics != nil {
		p.metrics.RecordRelease()
		inUse, idle := p.stateLocked()
		p.metrics.SetPoolState(inUse, idle)
	}
}

// reapIdleLocked closes connections idle past the timeout. The last live
// connection is never reaped.
func (p *pool) reapIdleLocked() {
	if p.idleTimeout <= 0 {
		return
	}

	now := p.nowFunc()
	reaped := 0
	kept := p.conns[:0]
	for _, pc := range p.conns {
		expired := !pc.inUse && now.Sub(pc.lastUsed) > p.idleTimeout
		if expired && len(p.conns)-reaped > 1 {
			_ = pc.conn.Close()
			reaped++
			continue
		}
		kept = append(kept, pc)
	}
	p.conns = kept

	if reaped > 0 && p.metrics != nil {
		p.metrics.RecordReap(reaped)
	}
}

// Close closes every pooled connection. In-use connections are closed too;
// the catalog is shutting down.
func (p *pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for _, pc := range p.conns {
		if err := pc.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.conns = nil
	return firstErr
}

func (p *pool) recordAcquireLocked(err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordAcquire(err)
	inUse, idle := p.stateLocked()
	p.metrics.SetPoolState(inUse, idle)
}

func (p *pool) stateLocked() (inUse, idle int) {
	for _, pc := range p.conns {
		if pc.inUse {
			inUse++
		} else {
			idle++
		}
	}
	return inUse, idle
}

// size returns the current number of pooled connections.
func (p *pool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}
