package cmd

import (
	"log/slog"

	"github.com/fimbul-io/sporing/pkg/needs"
)

// NewNeedsStore picks the needs side table backend: Redis when a URL is
// configured, otherwise process-local memory. The store is best effort
// either way, so a missing Redis is a degradation and not an error.
func NewNeedsStore(redisURL string, logger *slog.Logger) (needs.Store, error) {
	if redisURL == "" {
		logger.Warn("No redis-url configured, need lookups will not survive restarts")

		return needs.NewMemoryStore(), nil
	}

	return needs.NewRedisStore(redisURL)
}
