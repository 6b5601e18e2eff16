// Package person resolves which vedtaksperioder belong to a person and
// reconstructs a cross-vedtaksperiode timeline from stored transitions.
package person

import (
	"github.com/google/uuid"
)

// Periodetype values as reported by the directory service.
const (
	PeriodetypeGap              = "GAP"
	PeriodetypeForlengelse      = "FORLENGELSE"
	PeriodetypeGapSiste         = "GAP_SISTE"
	PeriodetypeForlengelseSiste = "FORLENGELSE_SISTE"
)

type Person struct {
	Fødselsnummer string         `json:"fødselsnummer" validate:"required"`
	Arbeidsgivere []Arbeidsgiver `json:"arbeidsgivere" validate:"dive"`
}

type Arbeidsgiver struct {
	Organisasjonsnummer string           `json:"organisasjonsnummer" validate:"required"`
	Vedtaksperioder     []Vedtaksperiode `json:"vedtaksperioder" validate:"dive"`
}

type Vedtaksperiode struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Fom         string    `json:"fom" validate:"required,datetime=2006-01-02"`
	Tom         string    `json:"tom" validate:"required,datetime=2006-01-02"`
	Periodetype string    `json:"periodetype" validate:"required,oneof=GAP FORLENGELSE GAP_SISTE FORLENGELSE_SISTE"`
	Forkastet   bool      `json:"forkastet"`
}

// VedtaksperiodeIDs returns every vedtaksperiode id across all
// arbeidsgivere, in directory order.
func (p *Person) VedtaksperiodeIDs() []uuid.UUID {
	var ids []uuid.UUID

	for _, arbeidsgiver := range p.Arbeidsgivere {
		for _, vedtaksperiode := range arbeidsgiver.Vedtaksperioder {
			ids = append(ids, vedtaksperiode.ID)
		}
	}

	return ids
}
