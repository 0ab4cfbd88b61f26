// Package indexer posts upload lifecycle documents to an
// Elasticsearch-style search engine.
//
// Indexing is best effort: a failed request is logged and swallowed, never
// surfaced to the upload path. The process owns at most one Client (see
// Init and Default); handlers receive it as an explicit dependency.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vingest/vingest/internal/logger"
)

// Lifecycle index names. Each upload event is written to its own index.
const (
	IndexInitializeUpload = "initialize_upload"
	IndexChunkUpload      = "chunk_upload"
	IndexCompleteUpload   = "complete_upload"
)

// InitializeDoc is the document indexed when an upload session is created.
type InitializeDoc struct {
	Directory string `json:"directory"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
}

// ChunkDoc is the document indexed for every received chunk.
type ChunkDoc struct {
	ChunkPath  string `json:"chunk_path"`
	FileName   string `json:"file_name"`
	ChunkIndex int    `json:"chunk_index"`
}

// CompleteDoc is the document indexed when the final artifact is assembled.
type CompleteDoc struct {
	Directory   string `json:"directory"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	TotalChunks int    `json:"total_chunks"`
}

// Client indexes lifecycle documents over HTTP. A nil *Client is valid and
// ignores every call, which is how a disabled configuration behaves.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

// New creates a client from cfg. It returns nil when indexing is disabled.
func New(cfg Config) *Client {
	if !cfg.Enabled {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		prefix:  cfg.IndexPrefix,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Index writes doc under the given index and document id. It returns an
// error on transport failure or any non-2xx response. Most callers want
// the typed methods instead, which log and swallow failures.
func (c *Client) Index(ctx context.Context, index, docID string, doc any) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	url := fmt.Sprintf("%s/%s%s/_doc/%s", c.baseURL, c.prefix, index, docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if err != nil {
		return fmt.Errorf("failed to read index response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("index request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// IndexInitialize records a freshly created upload session.
func (c *Client) IndexInitialize(ctx context.Context, fileID, directory, fileName string, fileSize int64) {
	if c == nil {
		return
	}
	doc := InitializeDoc{Directory: directory, FileName: fileName, FileSize: fileSize}
	if err := c.Index(ctx, IndexInitializeUpload, fileID, doc); err != nil {
		logger.WarnCtx(ctx, "Failed to index upload initialization",
			logger.FileID(fileID),
			logger.Err(err))
	}
}

// IndexChunk records a received chunk. The document id combines the file id
// and chunk index so retried chunks overwrite their own document.
func (c *Client) IndexChunk(ctx context.Context, fileID string, chunkIndex int, chunkPath, fileName string) {
	if c == nil {
		return
	}
	doc := ChunkDoc{ChunkPath: chunkPath, FileName: fileName, ChunkIndex: chunkIndex}
	docID := fmt.Sprintf("%s_%d", fileID, chunkIndex)
	if err := c.Index(ctx, IndexChunkUpload, docID, doc); err != nil {
		logger.WarnCtx(ctx, "Failed to index chunk upload",
			logger.FileID(fileID),
			logger.ChunkIndex(chunkIndex),
			logger.Err(err))
	}
}

// IndexComplete records a fully assembled artifact.
func (c *Client) IndexComplete(ctx context.Context, fileID, directory, fileName string, fileSize int64, totalChunks int) {
	if c == nil {
		return
	}
	doc := CompleteDoc{Directory: directory, FileName: fileName, FileSize: fileSize, TotalChunks: totalChunks}
	if err := c.Index(ctx, IndexCompleteUpload, fileID, doc); err != nil {
		logger.WarnCtx(ctx, "Failed to index upload completion",
			logger.FileID(fileID),
			logger.Err(err))
	}
}
