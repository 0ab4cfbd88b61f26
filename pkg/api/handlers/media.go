package handlers

import (
	"errors"
	"net/http"

	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/media"
)

// MediaHandler handles the video trim and join endpoints.
//
// The processor may be nil when media processing is disabled; both
// endpoints then answer 503.
type MediaHandler struct {
	processor *media.Processor
}

// NewMediaHandler creates a media handler.
func NewMediaHandler(processor *media.Processor) *MediaHandler {
	return &MediaHandler{processor: processor}
}

// TrimRequest is the request body for POST /api/video/trim. StartTime and
// Duration are whole seconds.
type TrimRequest struct {
	FileName   string `json:"fileName"`
	StartTime  int    `json:"start_time"`
	Duration   int    `json:"duration"`
	OutputFile string `json:"outputFile"`
}

// Trim handles POST /api/video/trim. Success is an empty 200.
func (h *MediaHandler) Trim(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		ServiceUnavailable(w, "Media processing is not enabled")
		return
	}

	var req TrimRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	err := h.processor.Trim(r.Context(), media.TrimRequest{
		FileName:   req.FileName,
		StartTime:  req.StartTime,
		Duration:   req.Duration,
		OutputFile: req.OutputFile,
	})
	if err != nil {
		h.writeTrimError(w, r, err)
		return
	}

	WriteEmptyOK(w)
}

func (h *MediaHandler) writeTrimError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, media.ErrInvalidDuration):
		BadRequest(w, "Invalid duration")
	case errors.Is(err, media.ErrDurationTooLong):
		BadRequest(w, "Duration exceeds the maximum allowed")
	case errors.Is(err, media.ErrInvalidTrimRange):
		BadRequest(w, "Invalid trim range")
	case errors.Is(err, media.ErrVideoInfo):
		BadRequest(w, "Failed to read video duration")
	case errors.Is(err, media.ErrTrim):
		BadRequest(w, "Failed to trim video")
	default:
		logger.ErrorCtx(r.Context(), "Trim failed", logger.Err(err))
		InternalServerError(w, "Failed to trim video")
	}
}

// JoinRequest is the request body for POST /api/video/join.
type JoinRequest struct {
	Parts      []string `json:"parts"`
	OutputFile string   `json:"outputFile"`
}

// Join handles POST /api/video/join. Success is an empty 200.
func (h *MediaHandler) Join(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		ServiceUnavailable(w, "Media processing is not enabled")
		return
	}

	var req JoinRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.processor.Join(r.Context(), req.Parts, req.OutputFile); err != nil {
		if errors.Is(err, media.ErrJoin) {
			BadRequest(w, "Failed to join videos")
			return
		}
		logger.ErrorCtx(r.Context(), "Join failed", logger.Err(err))
		InternalServerError(w, "Failed to join videos")
		return
	}

	WriteEmptyOK(w)
}
