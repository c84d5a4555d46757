// Package ids mints record identifiers.
package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 9

// Suffix is a short random token.
func Suffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
}

// Timed returns "<unixMillis>-<random>", which sorts roughly by creation.
func Timed(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), Suffix())
}

// New is a plain random id for records that need no ordering.
func New() string {
	return uuid.NewString()
}
