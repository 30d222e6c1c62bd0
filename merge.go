package atomspace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MergeFrom copies every atom of src into s, preserving kind, name, truth,
// attention, and metadata exactly. Atom ids are only unique within their
// owning space, so every copied atom receives a fresh id in s; the returned
// table maps each source id to the id it now carries in s. Copied links have
// their outgoing lists rewritten through that table before insertion.
//
// Named nodes keep idempotent-creation semantics: when s already holds a
// node with the same (kind, name), the source atom is mapped onto it and the
// existing atom is left unchanged.
//
// Both spaces stay locked for the duration (src on the read side, s on the
// write side), acquired in lexicographic name order so that two merges
// running in opposite directions cannot deadlock. Spaces managed by an
// orchestrator always have distinct names; on a name tie the target is
// locked first.
func (s *Space) MergeFrom(src *Space) (map[string]string, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: merge source is nil", ErrInvalidReference)
	}
	if src == s {
		return nil, fmt.Errorf("%w: cannot merge space %q into itself", ErrInvalidReference, s.name)
	}

	_, span := s.tracer.Start(context.Background(), "atomspace.merge",
		trace.WithAttributes(
			attribute.String("merge.source", src.name),
			attribute.String("merge.target", s.name),
		))
	defer span.End()

	if src.name < s.name {
		src.mu.RLock()
		defer src.mu.RUnlock()
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.Lock()
		defer s.mu.Unlock()
		src.mu.RLock()
		defer src.mu.RUnlock()
	}

	remap := make(map[string]string, len(src.order))
	for _, oldID := range src.order {
		atom := src.atoms[oldID]

		if atom.IsNode() && atom.Name != "" {
			if existing, ok := s.names[nameKey{kind: atom.Kind, name: atom.Name}]; ok {
				remap[oldID] = existing
				continue
			}
		}

		copied := atom.clone()
		copied.ID = uuid.NewString()
		remap[oldID] = copied.ID

		if atom.IsLink() {
			rewritten := make([]string, len(atom.Outgoing))
			for i, ref := range atom.Outgoing {
				mapped, ok := remap[ref]
				if !ok {
					// src.order is a valid creation order, so this cannot
					// happen unless the source indices are corrupt.
					return nil, fmt.Errorf("%w: source link %q references unmapped id %q", ErrInvalidReference, oldID, ref)
				}
				rewritten[i] = mapped
			}
			copied.Outgoing = rewritten
		}

		s.atoms[copied.ID] = copied
		s.order = append(s.order, copied.ID)
		if copied.IsNode() && copied.Name != "" {
			s.names[nameKey{kind: copied.Kind, name: copied.Name}] = copied.ID
		}
		for _, ref := range copied.Outgoing {
			s.addIncoming(ref, copied.ID)
		}
		s.countCreated(copied.Kind)
	}

	span.SetAttributes(attribute.Int("merge.atoms", len(remap)))
	return remap, nil
}
