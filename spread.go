package atomspace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SpreadLimits bounds an activation-spreading run. Both bounds are
// mandatory because the underlying graph may be cyclic: whichever is hit
// first terminates the propagation.
type SpreadLimits struct {
	// Threshold is the residual contribution below which propagation stops.
	Threshold float64

	// MaxHops is the maximum number of hops away from the source that
	// activation may travel.
	MaxHops int
}

// DefaultSpreadLimits returns the standard termination bounds: a residual
// threshold of 0.01 and a maximum of 3 hops.
func DefaultSpreadLimits() SpreadLimits {
	return SpreadLimits{Threshold: 0.01, MaxHops: 3}
}

// SpreadActivation raises the source atom's attention by intensity and
// propagates a decaying share of it breadth-first across the undirected
// adjacency implied by links: an atom is adjacent to every link it appears
// in the outgoing list of, and to that link's other endpoints. At hop h the
// contribution is intensity*decay^h, added to each newly reached atom's
// attention and clamped to 1.0.
//
// Every atom is visited at most once per call, so propagation terminates on
// cyclic graphs and never double-counts. The run stops when the residual
// contribution falls below the configured threshold or the hop bound is
// reached, whichever comes first.
//
// The returned map holds the new attention value of every atom whose
// attention actually changed; an atom already saturated at 1.0 is not
// reported. Spreading is additive, not idempotent: two identical calls
// accumulate attention, subject to the clamp.
//
// Intensity and decay outside [0, 1] are clamped, matching the leniency of
// the truth and attention setters.
func (s *Space) SpreadActivation(sourceID string, intensity, decay float64) (map[string]float64, error) {
	_, span := s.tracer.Start(context.Background(), "atomspace.spread_activation",
		trace.WithAttributes(
			attribute.String("space", s.name),
			attribute.String("atom.id", sourceID),
			attribute.Float64("spread.intensity", intensity),
			attribute.Float64("spread.decay", decay),
		))
	defer span.End()

	intensity = clamp01(intensity)
	decay = clamp01(decay)

	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.atoms[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrAtomNotFound, sourceID)
	}
	if s.spreadsRun != nil {
		s.spreadsRun.Add(context.Background(), 1)
	}

	changed := make(map[string]float64)
	visited := map[string]struct{}{sourceID: {}}

	s.applyActivation(source, intensity, changed)

	frontier := []string{sourceID}
	contribution := intensity
	for hop := 1; hop <= s.spreadLimits.MaxHops && len(frontier) > 0; hop++ {
		contribution *= decay
		if contribution < s.spreadLimits.Threshold {
			break
		}

		var next []string
		for _, id := range frontier {
			for _, neighbor := range s.neighbors(id) {
				if _, seen := visited[neighbor]; seen {
					continue
				}
				visited[neighbor] = struct{}{}
				s.applyActivation(s.atoms[neighbor], contribution, changed)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	span.SetAttributes(attribute.Int("spread.changed", len(changed)))
	return changed, nil
}

// neighbors returns the undirected adjacency of an atom: for every link it
// participates in, the link itself and the link's other endpoints, plus,
// when the atom is itself a link, everything in its outgoing list.
// Caller holds the lock.
func (s *Space) neighbors(id string) []string {
	var out []string
	seen := map[string]struct{}{id: {}}
	add := func(candidate string) {
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	for linkID := range s.incoming[id] {
		add(linkID)
		for _, endpoint := range s.atoms[linkID].Outgoing {
			add(endpoint)
		}
	}
	for _, endpoint := range s.atoms[id].Outgoing {
		add(endpoint)
	}
	return out
}

func (s *Space) applyActivation(atom *Atom, amount float64, changed map[string]float64) {
	if amount <= 0 {
		return
	}
	after := clamp01(atom.Attention + amount)
	if after == atom.Attention {
		return
	}
	atom.Attention = after
	atom.UpdatedAt = time.Now()
	changed[atom.ID] = atom.Attention
}
