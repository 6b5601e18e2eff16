package stream

import (
	"context"
	"log/slog"

	"github.com/fimbul-io/sporing/pkg/needs"
	"github.com/fimbul-io/sporing/pkg/reason"
	"github.com/fimbul-io/sporing/pkg/transition"
)

// resolveCause extracts the causing-message metadata from the envelope and
// resolves the reason label. When the cause is a need aggregation whose need
// list is not on the envelope, the needs side table is consulted best
// effort; a miss falls back to the raw cause name.
func resolveCause(ctx context.Context, envelope *Envelope, needsStore needs.Store, logger *slog.Logger) (transition.Cause, error) {
	causeID, err := envelope.UUID("@forårsaket_av", "id")
	if err != nil {
		return transition.Cause{}, err
	}

	causeName, err := envelope.String("@forårsaket_av", "event_name")
	if err != nil {
		return transition.Cause{}, err
	}

	causeCreatedAt, err := envelope.Time("@forårsaket_av", "opprettet")
	if err != nil {
		return transition.Cause{}, err
	}

	needTypes, err := envelope.StringSlice("@forårsaket_av", "behov")
	if err != nil {
		return transition.Cause{}, err
	}

	if causeName == reason.NeedsMarker && len(needTypes) == 0 && needsStore != nil {
		found, err := needsStore.Find(ctx, causeID)
		if err != nil {
			logger.WarnContext(ctx, "Needs lookup failed, falling back to raw cause name",
				"cause_id", causeID, "error", err)
		} else {
			needTypes = found
		}
	}

	return transition.Cause{
		ID:        causeID,
		Name:      reason.Resolve(causeName, needTypes),
		CreatedAt: causeCreatedAt,
	}, nil
}
