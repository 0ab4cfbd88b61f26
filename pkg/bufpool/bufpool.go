// Package bufpool provides a tiered buffer pool for I/O copy loops.
//
// Chunk ingest moves same-sized byte blobs over and over: staging a
// chunk to disk, appending staged chunks during assembly, streaming a
// proxied response. Pooling the copy buffers keeps those loops from
// allocating per request.
//
// The pool keeps three size tiers. Requests above the large tier are
// allocated directly and never pooled, so an oversized one-off does not
// pin memory.
//
// Usage:
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
)

// Default size classes. The large tier matches the protocol chunk size,
// so one buffer covers a full chunk copy.
const (
	// DefaultSmallSize covers headers and small metadata reads (4KB).
	DefaultSmallSize = 4 << 10

	// DefaultMediumSize covers proxy response streaming (64KB).
	DefaultMediumSize = 64 << 10

	// DefaultLargeSize covers whole-chunk copies (1MB).
	DefaultLargeSize = 1 << 20
)

// Pool manages byte slices organized by size class. Get picks the
// smallest tier that fits; Put routes the buffer back by capacity.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config sets the tier sizes for a custom pool.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default tier sizes.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// NewPool creates a buffer pool. A nil config selects the defaults; zero
// fields fall back per tier.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}
	if cfg.SmallSize <= 0 {
		cfg.SmallSize = DefaultSmallSize
	}
	if cfg.MediumSize <= 0 {
		cfg.MediumSize = DefaultMediumSize
	}
	if cfg.LargeSize <= 0 {
		cfg.LargeSize = DefaultLargeSize
	}

	p := &Pool{
		smallSize:  cfg.SmallSize,
		mediumSize: cfg.MediumSize,
		largeSize:  cfg.LargeSize,
	}

	p.small = sync.Pool{
		New: func() any {
			buf := make([]byte, p.smallSize)
			return &buf
		},
	}
	p.medium = sync.Pool{
		New: func() any {
			buf := make([]byte, p.mediumSize)
			return &buf
		},
	}
	p.large = sync.Pool{
		New: func() any {
			buf := make([]byte, p.largeSize)
			return &buf
		},
	}

	return p
}

// Get returns a byte slice of at least the requested size. The slice is
// backed by a pooled buffer whose capacity may exceed size; pair every
// Get with a Put. Sizes above the large tier are allocated directly and
// will not be pooled.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.mediumSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	buf := *bufPtr
	return buf[:size]
}

// Put returns a buffer to the pool. The buffer must come from Get and
// must not be used afterwards. Buffers whose capacity matches no tier
// are left for the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	switch cap(buf) {
	case p.smallSize:
		fullBuf := buf[:cap(buf)]
		p.small.Put(&fullBuf)
	case p.mediumSize:
		fullBuf := buf[:cap(buf)]
		p.medium.Put(&fullBuf)
	case p.largeSize:
		fullBuf := buf[:cap(buf)]
		p.large.Put(&fullBuf)
	}
}

// globalPool backs the package-level Get and Put.
var globalPool = NewPool(nil)

// Get returns a byte slice of at least the requested size from the
// shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}

// Sized hands out fixed-size buffers from the shared pool. It satisfies
// interfaces that want size-less Get/Put pairs, like
// httputil.ReverseProxy's BufferPool.
type Sized struct {
	size int
}

// NewSized returns a fixed-size view over the shared pool.
func NewSized(size int) *Sized {
	return &Sized{size: size}
}

// Get returns a buffer of the configured size.
func (s *Sized) Get() []byte {
	return globalPool.Get(s.size)
}

// Put returns a buffer to the shared pool.
func (s *Sized) Put(buf []byte) {
	globalPool.Put(buf)
}
