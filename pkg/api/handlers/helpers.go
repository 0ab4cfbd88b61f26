package handlers

import (
	"encoding/json"
	"net/http"
)

// maxJSONBody bounds JSON request bodies. Chunk payloads do not go
// through this path.
const maxJSONBody = 1 << 20

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is
// written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}
