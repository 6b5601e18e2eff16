package person

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fimbul-io/sporing/pkg/transition"
)

// TimelineEntry is one group of changes with a common trigger. Entries with
// Synthetic set were reconstructed from rows that lack a recorded cause:
// their identity is the nil UUID sentinel and their grouping is a
// best-effort heuristic, never authoritative.
type TimelineEntry struct {
	MeldingID uuid.UUID        `json:"meldingId"`
	Navn      string           `json:"navn"`
	Opprettet time.Time        `json:"opprettet"`
	Synthetic bool             `json:"syntetisk"`
	Endringer []TimelineChange `json:"endringer"`
}

// TimelineChange is one vedtaksperiode reaching a state.
type TimelineChange struct {
	VedtaksperiodeID uuid.UUID `json:"vedtaksperiodeId"`
	TilTilstand      string    `json:"tilTilstand"`
	Når              time.Time `json:"når"`
}

// BuildTimeline groups transition rows by their triggering message. Rows
// with a recorded cause group by cause id. Rows without one are merged into
// a synthetic bucket when an earlier synthetic bucket has the same reason
// name and a timestamp within the same second; otherwise a new synthetic
// bucket is opened. Entries come out ordered by their earliest change.
func BuildTimeline(rows []transition.PersonTransition) []TimelineEntry {
	sorted := make([]transition.PersonTransition, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	var entries []*TimelineEntry

	genuine := make(map[uuid.UUID]*TimelineEntry)

	for _, row := range sorted {
		change := TimelineChange{
			VedtaksperiodeID: row.VedtaksperiodeID,
			TilTilstand:      row.ToState,
			Når:              row.OccurredAt,
		}

		entry := findEntry(entries, genuine, row)
		if entry == nil {
			entry = newEntry(row)
			entries = append(entries, entry)

			if row.Cause != nil {
				genuine[row.Cause.ID] = entry
			}
		}

		entry.Endringer = append(entry.Endringer, change)
	}

	result := make([]TimelineEntry, len(entries))
	for i, entry := range entries {
		result[i] = *entry
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].earliest().Before(result[j].earliest())
	})

	return result
}

func findEntry(entries []*TimelineEntry, genuine map[uuid.UUID]*TimelineEntry, row transition.PersonTransition) *TimelineEntry {
	if row.Cause != nil {
		return genuine[row.Cause.ID]
	}

	second := row.OccurredAt.Truncate(time.Second)

	for _, entry := range entries {
		if entry.Synthetic && entry.Navn == row.Reason && entry.Opprettet.Truncate(time.Second).Equal(second) {
			return entry
		}
	}

	return nil
}

func newEntry(row transition.PersonTransition) *TimelineEntry {
	if row.Cause != nil {
		return &TimelineEntry{
			MeldingID: row.Cause.ID,
			Navn:      row.Cause.Name,
			Opprettet: row.Cause.CreatedAt,
		}
	}

	return &TimelineEntry{
		MeldingID: uuid.Nil,
		Navn:      row.Reason,
		Opprettet: row.OccurredAt,
		Synthetic: true,
	}
}

func (e TimelineEntry) earliest() time.Time {
	earliest := e.Opprettet

	for _, change := range e.Endringer {
		if change.Når.Before(earliest) {
			earliest = change.Når
		}
	}

	return earliest
}
