package person_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fimbul-io/sporing/pkg/person"
)

func TestRenderTimelineHTML(t *testing.T) {
	t.Parallel()

	base := time.Date(2023, 4, 12, 10, 0, 0, 0, time.UTC)

	gapID := uuid.New()
	forkastetID := uuid.New()

	p := &person.Person{
		Fødselsnummer: "12345678910",
		Arbeidsgivere: []person.Arbeidsgiver{{
			Organisasjonsnummer: "987654321",
			Vedtaksperioder: []person.Vedtaksperiode{
				{ID: gapID, Fom: "2023-01-01", Tom: "2023-01-31", Periodetype: person.PeriodetypeGapSiste},
				{ID: forkastetID, Fom: "2023-02-01", Tom: "2023-02-28", Periodetype: person.PeriodetypeForlengelse, Forkastet: true},
			},
		}},
	}

	timeline := []person.TimelineEntry{
		{
			MeldingID: uuid.New(),
			Navn:      "sendt_søknad_nav",
			Opprettet: base,
			Endringer: []person.TimelineChange{
				{VedtaksperiodeID: gapID, TilTilstand: "AVVENTER_GAP", Når: base},
				{VedtaksperiodeID: forkastetID, TilTilstand: "TIL_INFOTRYGD", Når: base},
			},
		},
		{
			MeldingID: uuid.Nil,
			Navn:      "påminnelse",
			Opprettet: base.Add(time.Minute),
			Synthetic: true,
			Endringer: []person.TimelineChange{
				{VedtaksperiodeID: gapID, TilTilstand: "AVSLUTTET", Når: base.Add(time.Minute)},
			},
		},
	}

	page := person.RenderTimelineHTML(p, timeline)

	assert.Contains(t, page, "<div class='tabell tidslinje'>")
	assert.Contains(t, page, "sendt_søknad_nav")
	assert.Contains(t, page, "påminnelse (rekonstruert)")

	// periodetype styling classes
	assert.Contains(t, page, "class='celle vedtaksperiode gap siste'")
	assert.Contains(t, page, "class='celle vedtaksperiode forlengelse forkastet'")

	// states are humanized
	assert.Contains(t, page, ">Avventer Gap</span>")
	assert.Contains(t, page, ">Til Infotrygd</span>")
}

func TestRenderTimelineHTMLEscapesContent(t *testing.T) {
	t.Parallel()

	p := &person.Person{Fødselsnummer: "12345678910"}

	timeline := []person.TimelineEntry{{
		MeldingID: uuid.New(),
		Navn:      "<script>alert(1)</script>",
		Opprettet: time.Now(),
	}}

	page := person.RenderTimelineHTML(p, timeline)

	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "&lt;script&gt;")
}
