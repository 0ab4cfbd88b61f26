package session

import (
	"encoding/json"
	"fmt"
)

// Bitmap records which chunk indices have been received.
//
// The in-memory and wire representations are the same: one ASCII '0' or '1'
// per chunk index. A character string keeps the encoded size linear in the
// chunk count and lets server-side store scripts flip bits with plain string
// operations.
type Bitmap []byte

// NewBitmap returns an all-zero bitmap of length n.
func NewBitmap(n int) Bitmap {
	b := make(Bitmap, n)
	for i := range b {
		b[i] = '0'
	}
	return b
}

// Set marks index as received. Returns false if the bit was already set or
// the index is out of range.
func (b Bitmap) Set(index int) bool {
	if index < 0 || index >= len(b) || b[index] == '1' {
		return false
	}
	b[index] = '1'
	return true
}

// IsSet reports whether index has been received.
func (b Bitmap) IsSet(index int) bool {
	return index >= 0 && index < len(b) && b[index] == '1'
}

// Count returns the number of set bits.
func (b Bitmap) Count() int {
	n := 0
	for _, c := range b {
		if c == '1' {
			n++
		}
	}
	return n
}

// Len returns the bitmap length.
func (b Bitmap) Len() int {
	return len(b)
}

// Full reports whether every bit is set.
func (b Bitmap) Full() bool {
	for _, c := range b {
		if c != '1' {
			return false
		}
	}
	return true
}

// Clone returns a copy of the bitmap.
func (b Bitmap) Clone() Bitmap {
	if b == nil {
		return nil
	}
	out := make(Bitmap, len(b))
	copy(out, b)
	return out
}

// String returns the bitmap as a string of '0' and '1' characters.
func (b Bitmap) String() string {
	return string(b)
}

// MarshalJSON encodes the bitmap as a JSON string of '0' and '1' characters.
func (b Bitmap) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(b))
}

// UnmarshalJSON decodes a JSON string of '0' and '1' characters.
func (b *Bitmap) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("chunk status must be a string: %w", err)
	}
	out := make(Bitmap, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '0' && c != '1' {
			return fmt.Errorf("invalid chunk status character %q at index %d", c, i)
		}
		out[i] = c
	}
	*b = out
	return nil
}
