// Package reason resolves the causal label attached to a state transition.
//
// Most transitions are caused by a named event and the label is that name
// verbatim. When the direct cause is the generic "behov" aggregation the
// label is instead composed from the individual need types, sorted so that
// redeliveries with a permuted need list resolve to the same label.
package reason

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NeedsMarker is the event name upstream uses for need aggregations.
const NeedsMarker = "behov"

// Resolve computes the reason label for a transition caused by causeName.
// needs is the list of need types carried by the causing message; it may
// be nil when the message shape predates need capture or a side-table
// lookup came up empty, in which case the raw cause name is used as-is.
func Resolve(causeName string, needs []string) string {
	if causeName != NeedsMarker || len(needs) == 0 {
		return causeName
	}

	lowered := make([]string, len(needs))
	for i, need := range needs {
		lowered[i] = strings.ToLower(need)
	}

	sort.Strings(lowered)

	// a Caser carries internal state and is not safe for concurrent use
	titler := cases.Title(language.Und, cases.NoLower)

	var label strings.Builder
	for _, need := range lowered {
		label.WriteString(titler.String(need))
	}

	return label.String()
}
