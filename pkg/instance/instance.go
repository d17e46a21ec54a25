// Package instance names the running process for locks and logs.
package instance

import (
	"os"

	"github.com/angelmondragon/tradein-backend/pkg/env"
)

// GetID returns TRADEIN_WORKER_ID (or WORKER_ID), then the host name, then "worker-0".
func GetID() string {
	if id := env.First("", "TRADEIN_WORKER_ID", "WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
