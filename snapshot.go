package atomspace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Record is one atom in a portable snapshot. The field set is sufficient to
// recreate the atom exactly, ids included.
type Record struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Name      string         `json:"name,omitempty"`
	Truth     TruthValue     `json:"truth"`
	Attention float64        `json:"attention"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Outgoing  []string       `json:"outgoing,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Snapshot is the portable form of a space: an ordered record list in which
// every atom appears before any link that references it, i.e. a valid
// creation order. It marshals to JSON and is the only wire format this
// store defines, suitable for persistence or cross-process transfer.
type Snapshot struct {
	// Space is the name of the space the snapshot was taken from.
	Space string `json:"space"`

	// Records lists every atom in creation order.
	Records []Record `json:"records"`

	// TakenAt is when the snapshot was produced.
	TakenAt time.Time `json:"taken_at"`
}

// Export produces a snapshot sufficient to fully reconstruct the space.
// Records appear in insertion order, which is a valid creation order because
// AddLink validates its references at creation time.
func (s *Space) Export() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Space:   s.name,
		Records: make([]Record, 0, len(s.order)),
		TakenAt: time.Now(),
	}
	for _, id := range s.order {
		atom := s.atoms[id].clone()
		snap.Records = append(snap.Records, Record{
			ID:        atom.ID,
			Kind:      atom.Kind,
			Name:      atom.Name,
			Truth:     atom.Truth,
			Attention: atom.Attention,
			Metadata:  atom.Metadata,
			Outgoing:  atom.Outgoing,
			CreatedAt: atom.CreatedAt,
			UpdatedAt: atom.UpdatedAt,
		})
	}
	return snap
}

// Import rebuilds the space from a snapshot. The operation is atomic:
// either every record is applied and the previous contents are replaced, or
// the space is left exactly as it was.
//
// Ids are preserved verbatim, so Export of the rebuilt space reproduces the
// imported records (the round-trip law). A record is rejected, failing the
// whole import with ErrImportInconsistent, when it is malformed (missing id
// or kind), reuses an earlier id, duplicates a named node's (kind, name)
// pair, or references an id that does not appear earlier in the list. A nil
// snapshot (the JSON null a decoded envelope may carry) is rejected the same
// way rather than panicking.
func (s *Space) Import(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrImportInconsistent)
	}

	_, span := s.tracer.Start(context.Background(), "atomspace.import",
		trace.WithAttributes(
			attribute.String("space", s.name),
			attribute.Int("snapshot.records", len(snap.Records)),
		))
	defer span.End()

	atoms := make(map[string]*Atom, len(snap.Records))
	names := make(map[nameKey]string)
	incoming := make(map[string]map[string]struct{})
	order := make([]string, 0, len(snap.Records))

	for i, rec := range snap.Records {
		if rec.ID == "" || rec.Kind == "" {
			return fmt.Errorf("%w: record %d is missing id or kind", ErrImportInconsistent, i)
		}
		if _, dup := atoms[rec.ID]; dup {
			return fmt.Errorf("%w: record %d reuses id %q", ErrImportInconsistent, i, rec.ID)
		}

		atom := &Atom{
			ID:        rec.ID,
			Kind:      rec.Kind,
			Name:      rec.Name,
			Truth:     rec.Truth.clamped(),
			Attention: clamp01(rec.Attention),
			Metadata:  rec.Metadata,
			Outgoing:  append([]string(nil), rec.Outgoing...),
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		}
		for _, ref := range rec.Outgoing {
			if _, ok := atoms[ref]; !ok {
				return fmt.Errorf("%w: record %d references %q before it is created", ErrImportInconsistent, i, ref)
			}
			set, ok := incoming[ref]
			if !ok {
				set = make(map[string]struct{})
				incoming[ref] = set
			}
			set[rec.ID] = struct{}{}
		}
		if atom.IsNode() && atom.Name != "" {
			key := nameKey{kind: atom.Kind, name: atom.Name}
			if _, dup := names[key]; dup {
				return fmt.Errorf("%w: record %d duplicates node %s %q", ErrImportInconsistent, i, atom.Kind, atom.Name)
			}
			names[key] = atom.ID
		}

		atoms[atom.ID] = atom
		order = append(order, atom.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.atoms = atoms
	s.names = names
	s.incoming = incoming
	s.order = order

	s.logger.Debug("imported snapshot", "space", s.name, "atoms", len(order))
	return nil
}
