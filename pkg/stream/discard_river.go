package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fimbul-io/sporing/pkg/needs"
	"github.com/fimbul-io/sporing/pkg/transition"
)

const discardEventName = "vedtaksperiode_forkastet"

// DiscardedState is the synthetic terminal state an abandoned
// vedtaksperiode transitions into.
const DiscardedState = "Søppelbøtte"

const discardSchemaJSON = `{
	"type": "object",
	"required": ["@id", "@opprettet", "vedtaksperiodeId", "tilstand", "@forårsaket_av"],
	"properties": {
		"@id": {"type": "string"},
		"@opprettet": {"type": "string"},
		"vedtaksperiodeId": {"type": "string"},
		"tilstand": {"type": "string"},
		"@forårsaket_av": {
			"type": "object",
			"required": ["id", "event_name", "opprettet"],
			"properties": {
				"id": {"type": "string"},
				"event_name": {"type": "string"},
				"opprettet": {"type": "string"},
				"behov": {"type": "array", "items": {"type": "string"}}
			}
		}
	}
}`

var discardSchema = mustSchema(discardSchemaJSON)

// DiscardRiver records vedtaksperiode_forkastet events as transitions into
// the synthetic terminal state.
type DiscardRiver struct {
	repository transition.Repository
	needsStore needs.Store
	logger     *slog.Logger
	restricted *slog.Logger
}

func NewDiscardRiver(repository transition.Repository, needsStore needs.Store, logger *slog.Logger, restricted *slog.Logger) *DiscardRiver {
	return &DiscardRiver{
		repository: repository,
		needsStore: needsStore,
		logger:     logger.With("river", discardEventName),
		restricted: restricted.With("river", discardEventName),
	}
}

func (r *DiscardRiver) EventName() string {
	return discardEventName
}

func (r *DiscardRiver) Handle(ctx context.Context, envelope *Envelope) error {
	rec, err := r.decode(ctx, envelope)
	if err != nil {
		r.logger.ErrorContext(ctx, "Did not understand vedtaksperiode_forkastet (see restricted log for details)")
		r.restricted.ErrorContext(ctx, "Did not understand vedtaksperiode_forkastet",
			"error", err, "message", string(envelope.Raw()))

		return nil
	}

	r.logger.InfoContext(ctx, "Recording discard",
		"tilstand", rec.FromState,
		"fordi", rec.Reason,
		"vedtaksperiode_id", rec.VedtaksperiodeID)

	return r.repository.Record(ctx, rec)
}

func (r *DiscardRiver) decode(ctx context.Context, envelope *Envelope) (transition.Record, error) {
	result, err := discardSchema.Validate(gojsonschema.NewBytesLoader(envelope.Raw()))
	if err != nil {
		return transition.Record{}, fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		return transition.Record{}, fmt.Errorf("message does not match discard shape: %v", schemaErrors(result))
	}

	messageID, err := envelope.UUID("@id")
	if err != nil {
		return transition.Record{}, err
	}

	vedtaksperiodeID, err := envelope.UUID("vedtaksperiodeId")
	if err != nil {
		return transition.Record{}, err
	}

	currentState, err := envelope.String("tilstand")
	if err != nil {
		return transition.Record{}, err
	}

	occurredAt, err := envelope.Time("@opprettet")
	if err != nil {
		return transition.Record{}, err
	}

	cause, err := resolveCause(ctx, envelope, r.needsStore, r.logger)
	if err != nil {
		return transition.Record{}, err
	}

	return transition.Record{
		MessageID:        messageID,
		VedtaksperiodeID: vedtaksperiodeID,
		FromState:        currentState,
		ToState:          DiscardedState,
		Reason:           cause.Name,
		OccurredAt:       occurredAt,
		Cause:            cause,
	}, nil
}
