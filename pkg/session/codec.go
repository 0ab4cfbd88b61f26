package session

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a session to its wire form.
func Encode(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

// Decode deserializes a session from its wire form.
//
// A payload that parses but violates basic shape (unknown status, bitmap
// length not matching the chunk count) is rejected; store backends surface
// this as a corrupt record.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if !s.Status.Valid() {
		return nil, fmt.Errorf("unknown session status %q", s.Status)
	}
	if s.ChunkStatus.Len() != s.TotalChunks {
		return nil, fmt.Errorf("chunk status length %d does not match total chunks %d",
			s.ChunkStatus.Len(), s.TotalChunks)
	}
	return &s, nil
}
