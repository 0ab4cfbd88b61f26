package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so the fleet's logs
// aggregate cleanly by upload, request, and backend.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Upload Protocol
	// ========================================================================
	KeyFileID      = "file_id"      // 32-hex upload session identifier
	KeyFileName    = "file_name"    // Client-supplied file name
	KeyChunkIndex  = "chunk_index"  // Zero-based chunk index
	KeyTotalChunks = "total_chunks" // Chunk count for the session
	KeySize        = "size"         // Byte size (file, chunk, or artifact)
	KeyStatus      = "status"       // Session status tag
	KeyProgress    = "progress"     // Upload progress percent

	// ========================================================================
	// Storage & Infrastructure
	// ========================================================================
	KeyPath    = "path"    // Filesystem or object path
	KeyStore   = "store"   // Store backend name: redis, badger, memory, fs, s3
	KeyBackend = "backend" // Edge router backend address

	// ========================================================================
	// Client & Request
	// ========================================================================
	KeyClientIP  = "client_ip"  // Client IP address
	KeyRequestID = "request_id" // HTTP request ID
	KeyMethod    = "method"     // HTTP method
	KeyCode      = "code"       // HTTP status code

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// ============================================================================
// Typed attribute helpers
// ============================================================================

// TraceID returns a trace ID attribute.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a span ID attribute.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// FileID returns an upload session ID attribute.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// FileName returns a file name attribute.
func FileName(name string) slog.Attr {
	return slog.String(KeyFileName, name)
}

// ChunkIndex returns a chunk index attribute.
func ChunkIndex(i int) slog.Attr {
	return slog.Int(KeyChunkIndex, i)
}

// Size returns a byte size attribute.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// Path returns a path attribute.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Store returns a store backend attribute.
func Store(name string) slog.Attr {
	return slog.String(KeyStore, name)
}

// Backend returns an edge backend attribute.
func Backend(addr string) slog.Attr {
	return slog.String(KeyBackend, addr)
}

// ClientIP returns a client IP attribute.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// RequestID returns a request ID attribute.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// DurationMs returns a duration attribute in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns an error attribute. Nil errors produce an empty string.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
