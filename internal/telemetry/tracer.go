package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names for upload operations
const (
	SpanChunk = "upload.chunk"
)

// Attribute keys used across upload spans
const (
	AttrFileID      = "upload.file_id"
	AttrFileName    = "upload.file_name"
	AttrChunkIndex  = "upload.chunk_index"
	AttrChunkSize   = "upload.chunk_size"
	AttrTotalChunks = "upload.total_chunks"
	AttrTotalSize   = "upload.total_size"
	AttrStatus      = "upload.status"
	AttrStore       = "store.backend"
	AttrClientIP    = "client.ip"
	AttrBackendURL  = "edge.backend_url"
	AttrIndexName   = "indexer.index"
	AttrDuration    = "media.duration_seconds"
)

// StartUploadSpan starts a span for an upload operation on one file.
func StartUploadSpan(ctx context.Context, operation string, fileID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		FileID(fileID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "upload."+operation, trace.WithAttributes(allAttrs...))
}

// StartMediaSpan starts a span for a media operation.
func StartMediaSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "media."+operation, trace.WithAttributes(attrs...))
}

// FileID returns a file ID attribute
func FileID(id string) attribute.KeyValue {
	return attribute.String(AttrFileID, id)
}

// FileName returns a file name attribute
func FileName(name string) attribute.KeyValue {
	return attribute.String(AttrFileName, name)
}

// ChunkIndex returns a chunk index attribute
func ChunkIndex(index int) attribute.KeyValue {
	return attribute.Int(AttrChunkIndex, index)
}

// ChunkSize returns a chunk size attribute
func ChunkSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrChunkSize, size)
}

// TotalChunks returns a total chunk count attribute
func TotalChunks(n int) attribute.KeyValue {
	return attribute.Int(AttrTotalChunks, n)
}

// TotalSize returns a total size attribute
func TotalSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrTotalSize, size)
}

// Status returns an upload status attribute
func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

// Store returns a session store backend attribute
func Store(backend string) attribute.KeyValue {
	return attribute.String(AttrStore, backend)
}

// ClientIP returns a client IP attribute
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// BackendURL returns an edge backend URL attribute
func BackendURL(url string) attribute.KeyValue {
	return attribute.String(AttrBackendURL, url)
}

// IndexName returns a search index name attribute
func IndexName(name string) attribute.KeyValue {
	return attribute.String(AttrIndexName, name)
}

// MediaDuration returns a media duration attribute
func MediaDuration(seconds float64) attribute.KeyValue {
	return attribute.Float64(AttrDuration, seconds)
}
