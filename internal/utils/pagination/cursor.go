package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
//
// MemberID is the last row's member and is always set on a real cursor.
// Incoming-request listings pair it with UpdatedUnix (millis); ranked match
// listings pair it with Similarity and Common.
type Cursor struct {
	MemberID    uint64 `json:"member_id"`
	UpdatedUnix int64  `json:"updated_unix,omitempty"`
	Similarity  int    `json:"similarity,omitempty"`
	Common      int    `json:"common,omitempty"`
}

// IsZero reports whether this is the first page.
func (c Cursor) IsZero() bool { return c.MemberID == 0 }

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}

// ClampLimit keeps page sizes within [1, max], using def for non-positive input.
func ClampLimit(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	}
	return limit
}
