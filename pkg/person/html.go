package person

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/fimbul-io/sporing/pkg/graphviz"
)

// RenderTimelineHTML renders the timeline as a simple table, one row per
// triggering message. Period metadata from the directory decorates each
// cell with gap/forlengelse styling classes.
func RenderTimelineHTML(p *Person, timeline []TimelineEntry) string {
	perioder := make(map[uuid.UUID]Vedtaksperiode)
	for _, arbeidsgiver := range p.Arbeidsgivere {
		for _, vedtaksperiode := range arbeidsgiver.Vedtaksperioder {
			perioder[vedtaksperiode.ID] = vedtaksperiode
		}
	}

	var sb strings.Builder

	sb.WriteString("<div class='tabell tidslinje'>\n")

	for _, entry := range timeline {
		sb.WriteString("<div class='rad'>\n")

		title := fmt.Sprintf("%s opprettet %s", entry.MeldingID, entry.Opprettet.Format("2006-01-02 15:04:05"))
		name := graphviz.ReadableReason(entry.Navn)

		if entry.Synthetic {
			name += " (rekonstruert)"
		}

		fmt.Fprintf(&sb, "<div class='celle hendelse'><span title='%s'>%s</span></div>\n",
			html.EscapeString(title), html.EscapeString(name))
		sb.WriteString("<div class='celle endringer'>\n")

		for _, change := range entry.Endringer {
			classes := []string{"celle", "vedtaksperiode"}

			if periode, ok := perioder[change.VedtaksperiodeID]; ok {
				switch periode.Periodetype {
				case PeriodetypeGap:
					classes = append(classes, "gap")
				case PeriodetypeGapSiste:
					classes = append(classes, "gap", "siste")
				case PeriodetypeForlengelse:
					classes = append(classes, "forlengelse")
				case PeriodetypeForlengelseSiste:
					classes = append(classes, "forlengelse", "siste")
				}

				if periode.Forkastet {
					classes = append(classes, "forkastet")
				}
			}

			cellTitle := fmt.Sprintf("Endret %s | Vedtaksperiode %s",
				change.Når.Format("2006-01-02 15:04:05"), change.VedtaksperiodeID)

			fmt.Fprintf(&sb, "<div class='%s'><span title='%s'>%s</span></div>\n",
				strings.Join(classes, " "),
				html.EscapeString(cellTitle),
				html.EscapeString(graphviz.ReadableState(change.TilTilstand)))
		}

		sb.WriteString("</div>\n</div>\n")
	}

	sb.WriteString("</div>\n")

	return sb.String()
}
