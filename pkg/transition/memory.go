package transition

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type edgeKey struct {
	fromState string
	toState   string
	reason    string
}

type memoryEdge struct {
	firstSeen time.Time
	lastSeen  time.Time
}

type memoryLink struct {
	order            int64
	vedtaksperiodeID uuid.UUID
	edge             edgeKey
	causeID          *uuid.UUID
	occurredAt       time.Time
}

// MemoryRepository implements Repository in process memory with the same
// conflict semantics as the Postgres store: edges never move their last-seen
// timestamp backward, links are unique per message id, and a redelivered
// message can only backfill a missing cause reference. Used by tests and
// local development.
type MemoryRepository struct {
	mu        sync.RWMutex
	edges     map[edgeKey]*memoryEdge
	links     map[uuid.UUID]*memoryLink
	causes    map[uuid.UUID]Cause
	nextOrder int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		edges:  make(map[edgeKey]*memoryEdge),
		links:  make(map[uuid.UUID]*memoryLink),
		causes: make(map[uuid.UUID]Cause),
	}
}

func (r *MemoryRepository) Record(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// cause upserts apply even when the transition itself turns out stale
	if existing, ok := r.causes[rec.Cause.ID]; ok {
		existing.Name = rec.Cause.Name
		r.causes[rec.Cause.ID] = existing
	} else {
		r.causes[rec.Cause.ID] = rec.Cause
	}

	key := edgeKey{fromState: rec.FromState, toState: rec.ToState, reason: rec.Reason}

	edge, ok := r.edges[key]
	if !ok {
		edge = &memoryEdge{firstSeen: rec.OccurredAt, lastSeen: rec.OccurredAt}
		r.edges[key] = edge
	} else {
		if rec.OccurredAt.Before(edge.lastSeen) {
			// stale out-of-order delivery, nothing new to record
			return nil
		}

		edge.lastSeen = rec.OccurredAt
	}

	if link, ok := r.links[rec.MessageID]; ok {
		if link.causeID == nil {
			causeID := rec.Cause.ID
			link.causeID = &causeID
		}

		return nil
	}

	r.nextOrder++
	causeID := rec.Cause.ID
	r.links[rec.MessageID] = &memoryLink{
		order:            r.nextOrder,
		vedtaksperiodeID: rec.VedtaksperiodeID,
		edge:             key,
		causeID:          &causeID,
		occurredAt:       rec.OccurredAt,
	}

	return nil
}

func (r *MemoryRepository) Transitions(_ context.Context, filter Filter) ([]Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[edgeKey]int64, len(r.edges))
	for _, link := range r.links {
		counts[link.edge]++
	}

	transitions := make([]Transition, 0, len(r.edges))

	for key, edge := range r.edges {
		count := counts[key]
		if count == 0 {
			// edge without links, matches the inner join in the SQL store
			continue
		}

		transitions = append(transitions, Transition{
			FromState: key.fromState,
			ToState:   key.toState,
			Reason:    key.reason,
			FirstSeen: edge.firstSeen,
			LastSeen:  edge.lastSeen,
			Count:     count,
		})
	}

	sort.Slice(transitions, func(i, j int) bool {
		if !transitions[i].FirstSeen.Equal(transitions[j].FirstSeen) {
			return transitions[i].FirstSeen.Before(transitions[j].FirstSeen)
		}

		if transitions[i].FromState != transitions[j].FromState {
			return transitions[i].FromState < transitions[j].FromState
		}

		return transitions[i].ToState < transitions[j].ToState
	})

	return filter.Apply(transitions), nil
}

func (r *MemoryRepository) History(_ context.Context, vedtaksperiodeID uuid.UUID) ([]Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := r.sortedLinks(func(link *memoryLink) bool {
		return link.vedtaksperiodeID == vedtaksperiodeID
	})

	transitions := make([]Transition, 0, len(links))
	for _, link := range links {
		transitions = append(transitions, Transition{
			FromState: link.edge.fromState,
			ToState:   link.edge.toState,
			Reason:    link.edge.reason,
			FirstSeen: link.occurredAt,
			LastSeen:  link.occurredAt,
			Count:     1,
		})
	}

	return transitions, nil
}

func (r *MemoryRepository) HistoryForVedtaksperioder(_ context.Context, vedtaksperiodeIDs []uuid.UUID) ([]PersonTransition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(vedtaksperiodeIDs))
	for _, id := range vedtaksperiodeIDs {
		wanted[id] = true
	}

	links := r.sortedLinks(func(link *memoryLink) bool {
		return wanted[link.vedtaksperiodeID]
	})

	transitions := make([]PersonTransition, 0, len(links))

	for _, link := range links {
		t := PersonTransition{
			VedtaksperiodeID: link.vedtaksperiodeID,
			FromState:        link.edge.fromState,
			ToState:          link.edge.toState,
			Reason:           link.edge.reason,
			OccurredAt:       link.occurredAt,
		}

		if link.causeID != nil {
			if cause, ok := r.causes[*link.causeID]; ok {
				c := cause
				t.Cause = &c
			}
		}

		transitions = append(transitions, t)
	}

	return transitions, nil
}

func (r *MemoryRepository) sortedLinks(keep func(*memoryLink) bool) []*memoryLink {
	links := make([]*memoryLink, 0, len(r.links))

	for _, link := range r.links {
		if keep(link) {
			links = append(links, link)
		}
	}

	sort.Slice(links, func(i, j int) bool {
		if !links[i].occurredAt.Equal(links[j].occurredAt) {
			return links[i].occurredAt.Before(links[j].occurredAt)
		}

		return links[i].order < links[j].order
	})

	return links
}
