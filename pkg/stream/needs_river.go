package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fimbul-io/sporing/pkg/needs"
)

const needsEventName = "behov"

const needsSchemaJSON = `{
	"type": "object",
	"required": ["@id", "@behov"],
	"properties": {
		"@id": {"type": "string"},
		"@behov": {"type": "array", "items": {"type": "string"}}
	}
}`

var needsSchema = mustSchema(needsSchemaJSON)

// NeedsRiver feeds the needs side table so later transitions caused by a
// need aggregation can resolve a composite reason label.
type NeedsRiver struct {
	store      needs.Store
	logger     *slog.Logger
	restricted *slog.Logger
}

func NewNeedsRiver(store needs.Store, logger *slog.Logger, restricted *slog.Logger) *NeedsRiver {
	return &NeedsRiver{
		store:      store,
		logger:     logger.With("river", needsEventName),
		restricted: restricted.With("river", needsEventName),
	}
}

func (r *NeedsRiver) EventName() string {
	return needsEventName
}

func (r *NeedsRiver) Handle(ctx context.Context, envelope *Envelope) error {
	result, err := needsSchema.Validate(gojsonschema.NewBytesLoader(envelope.Raw()))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		r.logger.ErrorContext(ctx, "Did not understand behov (see restricted log for details)")
		r.restricted.ErrorContext(ctx, "Did not understand behov",
			"errors", schemaErrors(result), "message", string(envelope.Raw()))

		return nil
	}

	messageID, err := envelope.UUID("@id")
	if err != nil {
		r.restricted.ErrorContext(ctx, "Did not understand behov", "error", err, "message", string(envelope.Raw()))

		return nil
	}

	needTypes, err := envelope.StringSlice("@behov")
	if err != nil {
		r.restricted.ErrorContext(ctx, "Did not understand behov", "error", err, "message", string(envelope.Raw()))

		return nil
	}

	// the side table is best effort, a failed save is not worth a redelivery
	if err := r.store.Save(ctx, messageID, needTypes); err != nil {
		r.logger.WarnContext(ctx, "Failed to save needs mapping", "message_id", messageID, "error", err)
	}

	return nil
}
