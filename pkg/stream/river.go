// Package stream consumes the inbound message stream and folds recognized
// events into the transition store. Each river owns one event shape:
// validation, extraction and handling. Messages that fail validation are
// dropped with diagnostics; redelivery is the transport's responsibility.
package stream

import (
	"context"

	"github.com/xeipuuv/gojsonschema"
)

// River handles one event type from the stream. Handle returns an error
// only for transient failures (storage unavailable) where redelivery should
// retry the message; decode rejections are logged and swallowed.
type River interface {
	EventName() string
	Handle(ctx context.Context, envelope *Envelope) error
}

func mustSchema(document string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
	if err != nil {
		panic(err)
	}

	return schema
}

func schemaErrors(result *gojsonschema.Result) []string {
	details := make([]string, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		details = append(details, resultError.String())
	}

	return details
}
