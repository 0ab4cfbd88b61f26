package apiclient

import (
	"errors"
	"net/http"
)

// APIError is the error body every vingest endpoint answers with.
type APIError struct {
	Status  string `json:"status"`
	Message string `json:"error"`
	Code    int    `json:"code"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// IsAuthError returns true when the token was missing or rejected.
func (e *APIError) IsAuthError() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// IsBadRequest returns true for protocol violations (unknown session,
// out-of-range chunk, oversized body and the like).
func (e *APIError) IsBadRequest() bool {
	return e.Code == http.StatusBadRequest
}

// IsUnavailable returns true when the server cannot serve the request
// right now, such as the video endpoints with media processing disabled
// or a router with no healthy backends.
func (e *APIError) IsUnavailable() bool {
	return e.Code == http.StatusServiceUnavailable || e.Code == http.StatusBadGateway
}

// AsAPIError unwraps err into an *APIError when there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
