package person_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fimbul-io/sporing/pkg/person"
	"github.com/fimbul-io/sporing/pkg/transition"
)

func TestBuildTimelineGroupsByCause(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 4, 12, 10, 0, 0, 0, time.UTC)
	causeID := uuid.New()
	cause := &transition.Cause{ID: causeID, Name: "sendt_søknad_nav", CreatedAt: base.Add(-time.Second)}

	vedtaksperiodeA := uuid.New()
	vedtaksperiodeB := uuid.New()

	rows := []transition.PersonTransition{
		{VedtaksperiodeID: vedtaksperiodeA, ToState: "AVVENTER_GAP", Reason: "sendt_søknad_nav", OccurredAt: base, Cause: cause},
		{VedtaksperiodeID: vedtaksperiodeB, ToState: "AVVENTER_FORLENGELSE", Reason: "sendt_søknad_nav", OccurredAt: base.Add(time.Millisecond), Cause: cause},
	}

	timeline := person.BuildTimeline(rows)

	require.Len(t, timeline, 1)
	assert.Equal(t, causeID, timeline[0].MeldingID)
	assert.Equal(t, "sendt_søknad_nav", timeline[0].Navn)
	assert.False(t, timeline[0].Synthetic)
	require.Len(t, timeline[0].Endringer, 2)
	assert.Equal(t, vedtaksperiodeA, timeline[0].Endringer[0].VedtaksperiodeID)
	assert.Equal(t, vedtaksperiodeB, timeline[0].Endringer[1].VedtaksperiodeID)
}

func TestBuildTimelineSeparatesDistinctCauses(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 4, 12, 10, 0, 0, 0, time.UTC)

	rows := []transition.PersonTransition{
		{VedtaksperiodeID: uuid.New(), ToState: "AVVENTER_GAP", OccurredAt: base,
			Cause: &transition.Cause{ID: uuid.New(), Name: "sendt_søknad_nav", CreatedAt: base}},
		{VedtaksperiodeID: uuid.New(), ToState: "AVVENTER_HISTORIKK", OccurredAt: base.Add(time.Minute),
			Cause: &transition.Cause{ID: uuid.New(), Name: "Sykepengehistorikk", CreatedAt: base.Add(time.Minute)}},
	}

	timeline := person.BuildTimeline(rows)

	require.Len(t, timeline, 2)
	assert.Equal(t, "sendt_søknad_nav", timeline[0].Navn)
	assert.Equal(t, "Sykepengehistorikk", timeline[1].Navn)
}

func TestBuildTimelineReconstructsMissingCauses(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 4, 12, 10, 0, 0, 500*int(time.Millisecond), time.UTC)

	// same reason within the same second folds into one synthetic bucket
	rows := []transition.PersonTransition{
		{VedtaksperiodeID: uuid.New(), ToState: "AVVENTER_GAP", Reason: "påminnelse", OccurredAt: base},
		{VedtaksperiodeID: uuid.New(), ToState: "AVVENTER_FORLENGELSE", Reason: "påminnelse", OccurredAt: base.Add(100 * time.Millisecond)},
		// different second, separate bucket
		{VedtaksperiodeID: uuid.New(), ToState: "TIL_INFOTRYGD", Reason: "påminnelse", OccurredAt: base.Add(time.Second)},
		// different reason, separate bucket
		{VedtaksperiodeID: uuid.New(), ToState: "AVSLUTTET", Reason: "utbetaling", OccurredAt: base.Add(200 * time.Millisecond)},
	}

	timeline := person.BuildTimeline(rows)

	require.Len(t, timeline, 3)

	first := timeline[0]
	assert.True(t, first.Synthetic)
	assert.Equal(t, uuid.Nil, first.MeldingID)
	assert.Equal(t, "påminnelse", first.Navn)
	assert.Len(t, first.Endringer, 2)

	assert.Equal(t, "utbetaling", timeline[1].Navn)
	assert.Len(t, timeline[2].Endringer, 1)
}

func TestBuildTimelineMixesGenuineAndSynthetic(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 4, 12, 10, 0, 0, 0, time.UTC)
	causeID := uuid.New()

	rows := []transition.PersonTransition{
		{VedtaksperiodeID: uuid.New(), ToState: "AVVENTER_GAP", Reason: "sendt_søknad_nav", OccurredAt: base.Add(time.Minute),
			Cause: &transition.Cause{ID: causeID, Name: "sendt_søknad_nav", CreatedAt: base.Add(time.Minute)}},
		{VedtaksperiodeID: uuid.New(), ToState: "TIL_INFOTRYGD", Reason: "påminnelse", OccurredAt: base},
	}

	timeline := person.BuildTimeline(rows)

	require.Len(t, timeline, 2)

	// ordered by earliest change, synthetic first here
	assert.True(t, timeline[0].Synthetic)
	assert.Equal(t, "påminnelse", timeline[0].Navn)

	assert.False(t, timeline[1].Synthetic)
	assert.Equal(t, causeID, timeline[1].MeldingID)
}

func TestBuildTimelineEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, person.BuildTimeline(nil))
}
