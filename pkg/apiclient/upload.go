package apiclient

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

// Protocol headers for chunk and status requests.
const (
	headerFileID     = "X-File-Id"
	headerChunkIndex = "X-Chunk-Index"
)

// UploadInit is the session handed out by InitializeUpload. Chunk
// requests must honor ChunkSize: every chunk except the last is exactly
// that many bytes.
type UploadInit struct {
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TotalChunks int    `json:"totalChunks"`
	ChunkSize   int64  `json:"chunkSize"`
}

// ChunkResult reports how the server accounted one chunk.
type ChunkResult struct {
	Received     bool   `json:"received"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	UploadedSize int64  `json:"uploadedSize"`
	TotalSize    int64  `json:"totalSize"`
	Message      string `json:"message,omitempty"`
}

// UploadStatus is the progress snapshot of a session.
type UploadStatus struct {
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	UploadedSize   int64  `json:"uploadedSize"`
	TotalSize      int64  `json:"totalSize"`
	TotalChunks    int    `json:"totalChunks"`
	UploadedChunks int    `json:"uploadedChunks"`
}

// Completed returns true once the artifact is assembled and published.
func (s *UploadStatus) Completed() bool {
	return s.Status == "completed"
}

// InitializeUpload creates an upload session for a file of the given
// name and size.
func (c *Client) InitializeUpload(ctx context.Context, fileName string, fileSize int64) (*UploadInit, error) {
	req := struct {
		FileName string `json:"fileName"`
		FileSize int64  `json:"fileSize"`
	}{FileName: fileName, FileSize: fileSize}

	var init UploadInit
	if err := c.postJSON(ctx, "/api/upload/initialize", req, &init); err != nil {
		return nil, err
	}
	return &init, nil
}

// UploadChunk sends the chunk at index. Chunks may be sent in any order,
// concurrently, and to different replicas of the same fleet; resending a
// chunk is harmless.
func (c *Client) UploadChunk(ctx context.Context, fileID string, index int, chunk []byte) (*ChunkResult, error) {
	headers := map[string]string{
		headerFileID:     fileID,
		headerChunkIndex: strconv.Itoa(index),
	}

	var res ChunkResult
	if err := c.postRaw(ctx, "/api/upload/chunk", headers, chunk, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UploadStatus reports the progress of a session. Use it to find which
// chunks still need sending after an interruption.
func (c *Client) UploadStatus(ctx context.Context, fileID string) (*UploadStatus, error) {
	headers := map[string]string{headerFileID: fileID}

	var status UploadStatus
	if err := c.getJSON(ctx, "/api/upload/status", headers, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UploadFile runs the whole protocol for one file: initialize, send every
// chunk in order, return the final chunk's accounting. The reader must
// yield exactly size bytes.
func (c *Client) UploadFile(ctx context.Context, fileName string, size int64, r io.Reader) (*ChunkResult, error) {
	init, err := c.InitializeUpload(ctx, fileName, size)
	if err != nil {
		return nil, err
	}

	var last *ChunkResult
	buf := make([]byte, init.ChunkSize)
	for index := 0; index < init.TotalChunks; index++ {
		n, err := io.ReadFull(r, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			if index != init.TotalChunks-1 || n == 0 && err == io.EOF {
				return nil, fmt.Errorf("short read: file smaller than the declared %d bytes", size)
			}
		} else if err != nil {
			return nil, fmt.Errorf("read chunk %d: %w", index, err)
		}

		last, err = c.UploadChunk(ctx, init.FileID, index, buf[:n])
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", index, err)
		}
	}

	return last, nil
}
