// Package transition maintains the deduplicated state-transition model: one
// edge per (fraTilstand, tilTilstand, fordi) triple, one immutable link per
// consumed message tying a vedtaksperiode to an edge, and one cause row per
// upstream message identified as the trigger.
package transition

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transition is one edge of the state machine as exposed to readers. In the
// aggregated view FirstSeen/LastSeen span every observation and Count is the
// number of links referencing the edge; in a per-vedtaksperiode history both
// timestamps carry the single observation time and Count is 1.
type Transition struct {
	FromState string    `json:"fraTilstand"`
	ToState   string    `json:"tilTilstand"`
	Reason    string    `json:"fordi"`
	FirstSeen time.Time `json:"førstegang"`
	LastSeen  time.Time `json:"sistegang"`
	Count     int64     `json:"antall"`
}

// Cause identifies the upstream message that triggered a transition.
type Cause struct {
	ID        uuid.UUID `json:"meldingId"`
	Name      string    `json:"navn"`
	CreatedAt time.Time `json:"opprettet"`
}

// Record is one decoded transition event ready to be folded into the store.
type Record struct {
	MessageID        uuid.UUID
	VedtaksperiodeID uuid.UUID
	FromState        string
	ToState          string
	Reason           string
	OccurredAt       time.Time
	Cause            Cause
}

// PersonTransition is one raw link row used for cross-vedtaksperiode
// timeline reconstruction. Cause is nil for rows recorded before cause
// capture existed.
type PersonTransition struct {
	VedtaksperiodeID uuid.UUID `json:"vedtaksperiodeId"`
	FromState        string    `json:"fraTilstand"`
	ToState          string    `json:"tilTilstand"`
	Reason           string    `json:"fordi"`
	OccurredAt       time.Time `json:"når"`
	Cause            *Cause    `json:"årsak,omitempty"`
}

// Repository is the durable transition store. Record is atomic and
// idempotent under redelivery of the same message id; the read side is
// side-effect free and safe for concurrent use.
type Repository interface {
	Record(ctx context.Context, rec Record) error
	Transitions(ctx context.Context, filter Filter) ([]Transition, error)
	History(ctx context.Context, vedtaksperiodeID uuid.UUID) ([]Transition, error)
	HistoryForVedtaksperioder(ctx context.Context, vedtaksperiodeIDs []uuid.UUID) ([]PersonTransition, error)
}
