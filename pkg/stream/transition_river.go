package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fimbul-io/sporing/pkg/needs"
	"github.com/fimbul-io/sporing/pkg/transition"
)

const transitionEventName = "vedtaksperiode_endret"

const transitionSchemaJSON = `{
	"type": "object",
	"required": ["@id", "@opprettet", "vedtaksperiodeId", "forrigeTilstand", "gjeldendeTilstand", "@forårsaket_av"],
	"properties": {
		"@id": {"type": "string"},
		"@opprettet": {"type": "string"},
		"vedtaksperiodeId": {"type": "string"},
		"forrigeTilstand": {"type": "string"},
		"gjeldendeTilstand": {"type": "string"},
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

var transitionSchema = mustSchema(transitionSchemaJSON)

// TransitionRiver records vedtaksperiode_endret events.
type TransitionRiver struct {
	repository transition.Repository
	needsStore needs.Store
	logger     *slog.Logger
	restricted *slog.Logger
}

func NewTransitionRiver(repository transition.Repository, needsStore needs.Store, logger *slog.Logger, restricted *slog.Logger) *TransitionRiver {
	return &TransitionRiver{
		repository: repository,
		needsStore: needsStore,
		logger:     logger.With("river", transitionEventName),
		restricted: restricted.With("river", transitionEventName),
	}
}

func (r *TransitionRiver) EventName() string {
	return transitionEventName
}

func (r *TransitionRiver) Handle(ctx context.Context, envelope *Envelope) error {
	rec, err := r.decode(ctx, envelope)
	if err != nil {
		r.logger.ErrorContext(ctx, "Did not understand vedtaksperiode_endret (see restricted log for details)")
		r.restricted.ErrorContext(ctx, "Did not understand vedtaksperiode_endret",
			"error", err, "message", string(envelope.Raw()))

		return nil
	}

	r.logger.InfoContext(ctx, "Recording transition",
		"fra_tilstand", rec.FromState,
		"til_tilstand", rec.ToState,
		"fordi", rec.Reason,
		"vedtaksperiode_id", rec.VedtaksperiodeID)

	return r.repository.Record(ctx, rec)
}

func (r *TransitionRiver) decode(ctx context.Context, envelope *Envelope) (transition.Record, error) {
	result, err := transitionSchema.Validate(gojsonschema.NewBytesLoader(envelope.Raw()))
	if err != nil {
		return transition.Record{}, fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		return transition.Record{}, fmt.Errorf("message does not match transition shape: %v", schemaErrors(result))
	}

	messageID, err := envelope.UUID("@id")
	if err != nil {
		return transition.Record{}, err
	}

	vedtaksperiodeID, err := envelope.UUID("vedtaksperiodeId")
	if err != nil {
		return transition.Record{}, err
	}

	fromState, err := envelope.String("forrigeTilstand")
	if err != nil {
		return transition.Record{}, err
	}

	toState, err := envelope.String("gjeldendeTilstand")
	if err != nil {
		return transition.Record{}, err
	}

	// a transition to the same state carries no information and is noise
	// at the boundary
	if fromState == toState {
		return transition.Record{}, fmt.Errorf("no-op transition %s -> %s rejected", fromState, toState)
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
		FromState:        fromState,
		ToState:          toState,
		Reason:           cause.Name,
		OccurredAt:       occurredAt,
		Cause:            cause,
	}, nil
}
