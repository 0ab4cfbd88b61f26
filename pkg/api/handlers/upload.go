package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/session"
	"github.com/vingest/vingest/pkg/upload"
)

// Protocol headers for chunk and status requests.
const (
	HeaderFileID     = "X-File-Id"
	HeaderChunkIndex = "X-Chunk-Index"
)

// UploadHandler handles the chunked upload endpoints.
type UploadHandler struct {
	coordinator *upload.Coordinator
	chunkSize   int64
}

// NewUploadHandler creates an upload handler. chunkSize bounds chunk
// request bodies.
func NewUploadHandler(coordinator *upload.Coordinator, chunkSize int64) *UploadHandler {
	if chunkSize <= 0 {
		chunkSize = upload.ChunkSize
	}
	return &UploadHandler{coordinator: coordinator, chunkSize: chunkSize}
}

// InitializeRequest is the request body for POST /api/upload/initialize.
//
// TotalChunks is accepted for wire compatibility but the server derives
// the authoritative count from FileSize.
type InitializeRequest struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TotalChunks int    `json:"totalChunks"`
}

// InitializeResponse is the response body for POST /api/upload/initialize.
type InitializeResponse struct {
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TotalChunks int    `json:"totalChunks"`
	ChunkSize   int64  `json:"chunkSize"`
}

// Initialize handles POST /api/upload/initialize.
func (h *UploadHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	res, err := h.coordinator.Initialize(r.Context(), req.FileName, req.FileSize)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrFileTooLarge):
			BadRequest(w, "File too large")
		case errors.Is(err, upload.ErrInvalidRequest):
			BadRequest(w, "Invalid request body")
		default:
			logger.ErrorCtx(r.Context(), "Initialize failed", logger.Err(err))
			InternalServerError(w, "Failed to initialize upload")
		}
		return
	}

	WriteJSONOK(w, InitializeResponse{
		FileID:      res.FileID,
		FileName:    res.FileName,
		FileSize:    res.FileSize,
		TotalChunks: res.TotalChunks,
		ChunkSize:   res.ChunkSize,
	})
}

// ChunkResponse is the response body for POST /api/upload/chunk.
type ChunkResponse struct {
	Received     bool   `json:"received"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	UploadedSize int64  `json:"uploadedSize"`
	TotalSize    int64  `json:"totalSize"`
	Message      string `json:"message,omitempty"`
}

// Chunk handles POST /api/upload/chunk. The chunk bytes travel as the raw
// request body; file ID and index travel as headers.
func (h *UploadHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	fileID := r.Header.Get(HeaderFileID)
	if fileID == "" {
		BadRequest(w, "Missing X-File-Id header")
		return
	}

	indexValue := r.Header.Get(HeaderChunkIndex)
	if indexValue == "" {
		BadRequest(w, "Missing X-Chunk-Index header")
		return
	}
	index, err := strconv.Atoi(indexValue)
	if err != nil || index < 0 {
		BadRequest(w, "Invalid X-Chunk-Index header")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.chunkSize+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			BadRequest(w, "Chunk exceeds the maximum chunk size")
			return
		}
		BadRequest(w, "Failed to read chunk body")
		return
	}

	res, err := h.coordinator.HandleChunk(r.Context(), fileID, index, body)
	if err != nil {
		h.writeChunkError(w, r, fileID, index, err)
		return
	}

	WriteJSONOK(w, ChunkResponse{
		Received:     res.Received,
		Status:       string(res.Status),
		Progress:     res.Progress,
		UploadedSize: res.UploadedSize,
		TotalSize:    res.TotalSize,
		Message:      res.Message,
	})
}

func (h *UploadHandler) writeChunkError(w http.ResponseWriter, r *http.Request, fileID string, index int, err error) {
	switch {
	case errors.Is(err, upload.ErrSessionUnknown):
		BadRequest(w, "Invalid or unknown upload session")
	case errors.Is(err, upload.ErrChunkOutOfRange):
		BadRequest(w, "Chunk index out of range")
	case errors.Is(err, upload.ErrChunkSizeMismatch):
		BadRequest(w, "Chunk size does not match the expected size")
	case errors.Is(err, session.ErrTerminalStatus):
		BadRequest(w, "Upload already finished")
	default:
		logger.ErrorCtx(r.Context(), "Chunk upload failed",
			logger.FileID(fileID),
			logger.ChunkIndex(index),
			logger.Err(err))
		InternalServerError(w, "Failed to process chunk")
	}
}

// StatusResponse is the response body for GET /api/upload/status.
type StatusResponse struct {
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	UploadedSize   int64  `json:"uploadedSize"`
	TotalSize      int64  `json:"totalSize"`
	TotalChunks    int    `json:"totalChunks"`
	UploadedChunks int    `json:"uploadedChunks"`
}

// Status handles GET /api/upload/status.
func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	fileID := r.Header.Get(HeaderFileID)
	if fileID == "" {
		BadRequest(w, "Missing X-File-Id header")
		return
	}

	res, err := h.coordinator.Status(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, upload.ErrSessionUnknown) {
			BadRequest(w, "Invalid or unknown upload session")
			return
		}
		logger.ErrorCtx(r.Context(), "Status query failed",
			logger.FileID(fileID),
			logger.Err(err))
		InternalServerError(w, "Failed to query upload status")
		return
	}

	WriteJSONOK(w, StatusResponse{
		Status:         string(res.Status),
		Progress:       res.Progress,
		UploadedSize:   res.UploadedSize,
		TotalSize:      res.TotalSize,
		TotalChunks:    res.TotalChunks,
		UploadedChunks: res.UploadedChunks,
	})
}
