// Package instance names the running process in logs and lock ownership.
package instance

import (
	"fmt"
	"os"
)

// EnvInstanceID overrides the derived identifier.
const EnvInstanceID = "STUDIOVAULT_INSTANCE_ID"

// GetID returns the configured instance id, or host:pid when none is set.
func GetID() string {
	if id := os.Getenv(EnvInstanceID); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}
