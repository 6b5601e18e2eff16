package transition

import (
	"strings"
	"time"
)

// Filter narrows the aggregated transition view. Reasons is disjunctive
// inclusion (empty means all); ExcludeStates and ExcludeReasons are
// subtractive; Since keeps edges whose last observation is at or after the
// bound. All string comparisons are case-insensitive.
type Filter struct {
	Reasons        []string
	Since          *time.Time
	ExcludeStates  []string
	ExcludeReasons []string
}

// Apply filters transitions in memory. Both store implementations aggregate
// first and filter here so the policy cannot drift between them.
func (f Filter) Apply(transitions []Transition) []Transition {
	include := lowered(f.Reasons)
	excludeStates := lowered(f.ExcludeStates)
	excludeReasons := lowered(f.ExcludeReasons)

	kept := make([]Transition, 0, len(transitions))

	for _, t := range transitions {
		reason := strings.ToLower(t.Reason)

		if len(include) > 0 && !include[reason] {
			continue
		}

		if excludeReasons[reason] {
			continue
		}

		if excludeStates[strings.ToLower(t.ToState)] {
			continue
		}

		if f.Since != nil && t.LastSeen.Before(*f.Since) {
			continue
		}

		kept = append(kept, t)
	}

	return kept
}

func lowered(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}

	return set
}
