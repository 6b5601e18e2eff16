// Package graphviz renders transition sets as Graphviz DOT documents.
//
// States are partitioned into fixed visual clusters purely for layout;
// states matching no cluster are rendered ungrouped. Start and terminal
// states get a distinct shape, and a lookup table maps a few long composite
// reason labels to readable aliases.
package graphviz

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fimbul-io/sporing/pkg/transition"
)

const timestampLayout = "02.01 2006 15:04:05.000"

type cluster struct {
	color  string
	states map[string]bool
}

// Formatter renders a list of transitions. Specific labels every occurrence
// with an ordinal and timestamp (single-vedtaksperiode view); General emits
// one label per aggregated edge (global view).
type Formatter struct {
	perOccurrence bool
}

var (
	Specific = &Formatter{perOccurrence: true}
	General  = &Formatter{perOccurrence: false}
)

var clusters = []cluster{
	{color: "blue", states: stateSet(
		"MOTTATT_SYKMELDING_UFERDIG_FORLENGELSE", "MOTTATT_SYKMELDING_FERDIG_FORLENGELSE",
		"AVVENTER_INNTEKTSMELDING_UFERDIG_FORLENGELSE", "AVVENTER_SØKNAD_UFERDIG_FORLENGELSE",
		"AVVENTER_UFERDIG_FORLENGELSE", "AVVENTER_SØKNAD_FERDIG_FORLENGELSE",
		"AVVENTER_INNTEKTSMELDING_FERDIG_FORLENGELSE",
	)},
	{color: "green", states: stateSet(
		"MOTTATT_SYKMELDING_FERDIG_GAP", "MOTTATT_SYKMELDING_UFERDIG_GAP", "AVVENTER_SØKNAD_FERDIG_GAP",
		"AVVENTER_SØKNAD_UFERDIG_GAP", "AVVENTER_INNTEKTSMELDING_UFERDIG_GAP", "AVVENTER_GAP",
		"AVVENTER_INNTEKTSMELDING_FERDIG_GAP", "AVVENTER_UFERDIG_GAP", "AVVENTER_VILKÅRSPRØVING_GAP",
		"AVVENTER_INNTEKTSMELDING_ELLER_HISTORIKK_FERDIG_GAP", "AVVENTER_ARBEIDSGIVERSØKNAD_UFERDIG_GAP",
		"AVVENTER_ARBEIDSGIVERSØKNAD_FERDIG_GAP",
	)},
	{color: "orange", states: stateSet(
		"AVVENTER_HISTORIKK", "AVVENTER_SIMULERING", "AVVENTER_GODKJENNING", "AVVENTER_ARBEIDSGIVERE",
		"TIL_UTBETALING",
	)},
	{color: "yellow", states: stateSet(
		"AVSLUTTET", "TIL_INFOTRYGD", "AVSLUTTET_UTEN_UTBETALING",
		"AVSLUTTET_UTEN_UTBETALING_MED_INNTEKTSMELDING",
		"UTEN_UTBETALING_MED_INNTEKTSMELDING_UFERDIG_FORLENGELSE",
		"UTEN_UTBETALING_MED_INNTEKTSMELDING_UFERDIG_GAP",
	)},
}

// start and terminal states rendered with a distinct shape
var endStates = stateSet(
	"START", "TIL_INFOTRYGD", "AVSLUTTET", "AVSLUTTET_UTEN_UTBETALING",
	"AVSLUTTET_UTEN_UTBETALING_MED_INNTEKTSMELDING", "Søppelbøtte",
)

// readable aliases for known composite need labels
var reasonAliases = map[string]string{
	"ArbeidsavklaringspengerDagpengerDødsinfoForeldrepengerInstitusjonsoppholdOmsorgspengerOpplæringspengerPleiepengerSykepengehistorikk": "Ytelser (med sykepengehistorikk)",
	"ArbeidsavklaringspengerDagpengerDødsinfoForeldrepengerInstitusjonsoppholdOmsorgspengerOpplæringspengerPleiepenger":                   "Ytelser (uten sykepengehistorikk)",
	"InntekterforsammenligningsgrunnlagMedlemskapOpptjening":                                                                              "Vilkårsgrunnlag",
}

func stateSet(states ...string) map[string]bool {
	set := make(map[string]bool, len(states))
	for _, state := range states {
		set[state] = true
	}

	return set
}

func (f *Formatter) Format(transitions []transition.Transition) string {
	var sb strings.Builder

	sb.WriteString("digraph {\n")

	clustered := make([][]string, len(clusters))
	var ungrouped []string

	for _, state := range distinctStates(transitions) {
		placed := false

		for i, c := range clusters {
			if c.states[state] {
				clustered[i] = append(clustered[i], state)
				placed = true

				break
			}
		}

		if !placed {
			ungrouped = append(ungrouped, state)
		}
	}

	for i, c := range clusters {
		fmt.Fprintf(&sb, "\tsubgraph cluster_%d {\n", i+1)
		fmt.Fprintf(&sb, "\t\tcolor=%s;\n", c.color)
		sb.WriteString("\t\trankdir=\"LR\";\n\n")

		for _, state := range clustered[i] {
			sb.WriteString("\t\t")
			sb.WriteString(formatNode(state))
			sb.WriteString("\n")
		}

		sb.WriteString("\t}\n")
	}

	for _, state := range ungrouped {
		sb.WriteString("\t\t")
		sb.WriteString(formatNode(state))
		sb.WriteString("\n")
	}

	for i, t := range transitions {
		if f.perOccurrence {
			fmt.Fprintf(&sb, "\t%s -> %s [label=\"#%d %s (%s)\"];\n",
				t.FromState, t.ToState, i+1, ReadableReason(t.Reason), t.LastSeen.Format(timestampLayout))
		} else {
			fmt.Fprintf(&sb, "\t%s -> %s [label=\"%s\"];\n",
				t.FromState, t.ToState, ReadableReason(t.Reason))
		}
	}

	sb.WriteString("}\n")

	return sb.String()
}

func distinctStates(transitions []transition.Transition) []string {
	seen := make(map[string]bool, len(transitions)*2)

	var states []string

	for _, t := range transitions {
		for _, state := range []string{t.FromState, t.ToState} {
			if !seen[state] {
				seen[state] = true
				states = append(states, state)
			}
		}
	}

	return states
}

func formatNode(state string) string {
	if endStates[state] {
		return fmt.Sprintf("%s [shape=Mdiamond,label=\"%s\"];", state, ReadableState(state))
	}

	return fmt.Sprintf("%s [label=\"%s\"];", state, ReadableState(state))
}

// ReadableState turns SCREAMING_SNAKE state names into readable labels.
func ReadableState(state string) string {
	titler := cases.Title(language.Und, cases.NoLower)

	words := strings.Split(state, "_")
	for i, word := range words {
		words[i] = titler.String(strings.ToLower(word))
	}

	return strings.Join(words, " ")
}

// ReadableReason maps known composite need labels to their readable alias;
// unmapped labels pass through unchanged.
func ReadableReason(reason string) string {
	if alias, ok := reasonAliases[reason]; ok {
		return alias
	}

	return reason
}
