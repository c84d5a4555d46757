package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the position of the last row of a page: rows strictly before
// (Timestamp, ID) in descending order come next.
type Cursor struct {
	Timestamp int64
	ID        string
}

// Limits carries configurable bounds; the zero value uses the package defaults.
type Limits struct {
	Default int
	Max     int
}

// Normalize applies the bounds to limit.
func (l Limits) Normalize(limit int) int {
	def, ceiling := l.Default, l.Max
	if def <= 0 {
		def = DefaultLimit
	}
	if ceiling <= 0 {
		ceiling = MaxLimit
	}
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit int) int {
	return Limits{}.Normalize(limit)
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor builds an opaque, URL-safe cursor string.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%d|%s", cursor.Timestamp, cursor.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string back into its components. An empty
// value means the first page and yields nil.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || ts < 0 {
		return nil, fmt.Errorf("invalid cursor timestamp %q", parts[0])
	}
	return &Cursor{
		Timestamp: ts,
		ID:        parts[1],
	}, nil
}
