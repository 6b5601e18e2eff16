// Package needs keeps a best-effort side table of message id to need types,
// fed by "behov" events. The transition rivers consult it when a causing
// message is a need aggregation but the envelope itself does not carry the
// need list (older message shapes).
package needs

import (
	"context"

	"github.com/google/uuid"
)

// Store records and looks up the need types of a message. Find returns
// (nil, nil) when the mapping is unknown; lookups are best effort and
// callers fall back to the raw cause name.
type Store interface {
	Save(ctx context.Context, messageID uuid.UUID, needTypes []string) error
	Find(ctx context.Context, messageID uuid.UUID) ([]string, error)
}
