package atomspace

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/noetic-sh/atomspace/taxonomy"
)

// nameKey indexes named nodes by their (kind, name) pair.
type nameKey struct {
	kind string
	name string
}

// Space is one isolated hypergraph store. It exclusively owns its atoms and
// the two indices over them: by id (primary) and by (kind, name) for named
// nodes (secondary). The incoming index (which links reference a given
// atom) is maintained by the space on every mutation, never reconstructed.
//
// A single reader/writer lock guards the space: every mutating operation is
// one atomic critical section, readers may run concurrently with each other.
// All methods are safe for concurrent use.
type Space struct {
	name string

	logger       *slog.Logger
	tracer       trace.Tracer
	meter        metric.Meter
	taxonomy     *taxonomy.Taxonomy
	spreadLimits SpreadLimits

	atomsCreated metric.Int64Counter
	spreadsRun   metric.Int64Counter

	mu       sync.RWMutex
	atoms    map[string]*Atom
	names    map[nameKey]string
	incoming map[string]map[string]struct{}
	order    []string // atom ids in insertion order; a valid creation order
}

// NewSpace creates an empty space with the given name.
func NewSpace(name string, opts ...Option) *Space {
	s := &Space{
		name:         name,
		spreadLimits: DefaultSpreadLimits(),
		atoms:        make(map[string]*Atom),
		names:        make(map[nameKey]string),
		incoming:     make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracenoop.NewTracerProvider().Tracer("atomspace")
	}
	if s.meter == nil {
		s.meter = metricnoop.NewMeterProvider().Meter("atomspace")
	}
	if s.taxonomy == nil {
		s.taxonomy = taxonomy.Current()
	}
	s.atomsCreated = s.newCounter("atomspace.atoms.created",
		"Number of atoms created in this space.")
	s.spreadsRun = s.newCounter("atomspace.spread.calls",
		"Number of activation spreading calls executed.")
	return s
}

func (s *Space) newCounter(name, description string) metric.Int64Counter {
	counter, err := s.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		s.logger.Warn("failed to create counter", "name", name, "error", err)
		return nil
	}
	return counter
}

// Name returns the space's registered name.
func (s *Space) Name() string {
	return s.name
}

// AddNode creates a node of the given kind, or returns the existing node if
// a (kind, name) match is already present; creation is idempotent for named
// nodes, and the existing atom is returned unchanged, options ignored.
//
// Kind must be non-empty and must not be a known link kind. Kinds outside
// the taxonomy are allowed (the taxonomy is open-ended) but logged.
func (s *Space) AddNode(kind, name string, opts ...AtomOption) (*Atom, error) {
	_, span := s.tracer.Start(context.Background(), "atomspace.add_node",
		trace.WithAttributes(
			attribute.String("space", s.name),
			attribute.String("atom.kind", kind),
			attribute.String("atom.name", name),
		))
	defer span.End()

	if err := s.checkKind(kind, taxonomy.FamilyNode); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if name != "" {
		if id, ok := s.names[nameKey{kind: kind, name: name}]; ok {
			return s.atoms[id].clone(), nil
		}
	}

	atom := s.newAtom(kind, opts)
	atom.Name = name
	s.atoms[atom.ID] = atom
	s.order = append(s.order, atom.ID)
	if name != "" {
		s.names[nameKey{kind: kind, name: name}] = atom.ID
	}
	s.countCreated(kind)
	return atom.clone(), nil
}

// AddLink creates a link of the given kind referencing the atoms named by
// outgoing, in order. Every referenced id must already exist in this space;
// otherwise the add is rejected with ErrInvalidReference and the space is
// unchanged. On success the new link's id is appended to the incoming set of
// every referenced atom.
//
// Links may carry a name via WithName as a label; link names are not
// deduplicated and do not enter the (kind, name) node index.
func (s *Space) AddLink(kind string, outgoing []string, opts ...AtomOption) (*Atom, error) {
	_, span := s.tracer.Start(context.Background(), "atomspace.add_link",
		trace.WithAttributes(
			attribute.String("space", s.name),
			attribute.String("atom.kind", kind),
			attribute.Int("atom.outgoing", len(outgoing)),
		))
	defer span.End()

	if err := s.checkKind(kind, taxonomy.FamilyLink); err != nil {
		return nil, err
	}
	if len(outgoing) == 0 {
		return nil, fmt.Errorf("%w: a link requires at least one outgoing atom", ErrInvalidReference)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range outgoing {
		if _, ok := s.atoms[ref]; !ok {
			return nil, fmt.Errorf("%w: outgoing id %q not in space %q", ErrInvalidReference, ref, s.name)
		}
	}

	atom := s.newAtom(kind, opts)
	atom.Outgoing = append([]string(nil), outgoing...)
	s.atoms[atom.ID] = atom
	s.order = append(s.order, atom.ID)
	for _, ref := range outgoing {
		s.addIncoming(ref, atom.ID)
	}
	s.countCreated(kind)
	return atom.clone(), nil
}

// Atom returns a copy of the atom with the given id, or ErrAtomNotFound.
func (s *Space) Atom(id string) (*Atom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	atom, ok := s.atoms[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}
	return atom.clone(), nil
}

// AtomByName returns the named node for the (kind, name) pair. An empty kind
// acts as a wildcard: the first node (in insertion order) with the given name
// is returned. Fails with ErrAtomNotFound if no such node exists.
func (s *Space) AtomByName(kind, name string) (*Atom, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrAtomNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if kind != "" {
		id, ok := s.names[nameKey{kind: kind, name: name}]
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", ErrAtomNotFound, kind, name)
		}
		return s.atoms[id].clone(), nil
	}
	for _, id := range s.order {
		atom := s.atoms[id]
		if atom.IsNode() && atom.Name == name {
			return atom.clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: name %q", ErrAtomNotFound, name)
}

// Incoming returns the ids of every link whose outgoing list contains the
// given atom. The result is sorted for determinism; incoming has set
// semantics, no order is maintained.
func (s *Space) Incoming(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.atoms[id]; !ok {
		return nil, fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}
	set := s.incoming[id]
	ids := make([]string, 0, len(set))
	for linkID := range set {
		ids = append(ids, linkID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Outgoing returns the literal stored outgoing list of the given atom, in
// order. Nodes return an empty list.
func (s *Space) Outgoing(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	atom, ok := s.atoms[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}
	return append([]string(nil), atom.Outgoing...), nil
}

// SetTruth replaces the atom's truth value, clamping both components.
func (s *Space) SetTruth(id string, truth TruthValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	atom, ok := s.atoms[id]
	if !ok {
		return fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}
	atom.Truth = truth.clamped()
	atom.UpdatedAt = time.Now()
	return nil
}

// SetAttention replaces the atom's attention value, clamped to [0, 1].
func (s *Space) SetAttention(id string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	atom, ok := s.atoms[id]
	if !ok {
		return fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}
	atom.Attention = clamp01(value)
	atom.UpdatedAt = time.Now()
	return nil
}

// UpdateAttention adds delta to the atom's attention value, clamping the
// result to [0, 1]. Delta may be negative.
func (s *Space) UpdateAttention(id string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	atom, ok := s.atoms[id]
	if !ok {
		return fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}
	atom.Attention = clamp01(atom.Attention + delta)
	atom.UpdatedAt = time.Now()
	return nil
}

// MergeMetadata applies patch onto the atom's metadata bag, key by key.
// Existing keys not named in the patch are kept.
func (s *Space) MergeMetadata(id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	atom, ok := s.atoms[id]
	if !ok {
		return fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}
	if atom.Metadata == nil {
		atom.Metadata = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		atom.Metadata[k] = v
	}
	atom.UpdatedAt = time.Now()
	return nil
}

// RemoveAtom deletes the atom and cascades: every link whose outgoing list
// references it is removed too, recursively, and the removed ids are
// scrubbed from the incoming sets of everything they pointed to. No dangling
// reference survives in either index.
//
// Cascade is the chosen removal policy for this store; it is never mixed
// with refuse-while-referenced semantics.
//
// Returns the number of atoms removed, including cascaded links.
func (s *Space) RemoveAtom(id string) (int, error) {
	_, span := s.tracer.Start(context.Background(), "atomspace.remove_atom",
		trace.WithAttributes(
			attribute.String("space", s.name),
			attribute.String("atom.id", id),
		))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.atoms[id]; !ok {
		return 0, fmt.Errorf("%w: id %q", ErrAtomNotFound, id)
	}

	doomed := make(map[string]struct{})
	stack := []string{id}
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := doomed[next]; seen {
			continue
		}
		doomed[next] = struct{}{}
		for linkID := range s.incoming[next] {
			stack = append(stack, linkID)
		}
	}

	for victim := range doomed {
		atom := s.atoms[victim]
		for _, ref := range atom.Outgoing {
			if set, ok := s.incoming[ref]; ok {
				delete(set, victim)
				if len(set) == 0 {
					delete(s.incoming, ref)
				}
			}
		}
		if atom.IsNode() && atom.Name != "" {
			delete(s.names, nameKey{kind: atom.Kind, name: atom.Name})
		}
		delete(s.atoms, victim)
		delete(s.incoming, victim)
	}

	kept := make([]string, 0, len(s.order)-len(doomed))
	for _, oid := range s.order {
		if _, dead := doomed[oid]; !dead {
			kept = append(kept, oid)
		}
	}
	s.order = kept

	s.logger.Debug("removed atom", "space", s.name, "id", id, "cascaded", len(doomed)-1)
	return len(doomed), nil
}

// Stats summarizes a space: atom counts partitioned by node/link and by
// kind, plus a graph-density figure.
type Stats struct {
	// Space is the owning space's name.
	Space string `json:"space"`

	// TotalAtoms is the number of atoms currently stored.
	TotalAtoms int `json:"total_atoms"`

	// Nodes and Links partition TotalAtoms.
	Nodes int `json:"nodes"`
	Links int `json:"links"`

	// Kinds maps each kind to the number of atoms carrying it.
	Kinds map[string]int `json:"kinds"`

	// Density is sum(len(outgoing)) / max(1, n*(n-1)) for n = TotalAtoms.
	Density float64 `json:"density"`
}

// Stats returns a summary of the space's current contents.
func (s *Space) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Space:      s.name,
		TotalAtoms: len(s.atoms),
		Kinds:      make(map[string]int),
	}
	edges := 0
	for _, atom := range s.atoms {
		stats.Kinds[atom.Kind]++
		if atom.IsLink() {
			stats.Links++
			edges += len(atom.Outgoing)
		} else {
			stats.Nodes++
		}
	}
	n := stats.TotalAtoms
	denominator := n * (n - 1)
	if denominator < 1 {
		denominator = 1
	}
	stats.Density = float64(edges) / float64(denominator)
	return stats
}

// SelfAtom returns the node under which this space represents itself inside
// its own atom table. The self-reference is purely logical: the node's
// metadata carries the space name, and nothing structural points back at the
// Space object. The node is created on first call and returned thereafter.
func (s *Space) SelfAtom() (*Atom, error) {
	return s.AddNode(taxonomy.KindConcept, "self:"+s.name,
		WithMetadataValue("space", s.name),
		WithMetadataValue("self_reference", true),
	)
}

// newAtom builds an atom with defaults, applies creation options, and clamps
// the numeric fields. Caller holds the write lock where required.
func (s *Space) newAtom(kind string, opts []AtomOption) *Atom {
	now := time.Now()
	atom := &Atom{
		ID:        uuid.NewString(),
		Kind:      kind,
		Truth:     DefaultTruth(),
		Attention: DefaultAttention,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(atom)
	}
	atom.Truth = atom.Truth.clamped()
	atom.Attention = clamp01(atom.Attention)
	atom.Outgoing = nil // set by AddLink only
	return atom
}

// checkKind validates a kind at the API edge. Kinds from the wrong family
// are rejected; unknown kinds are allowed with a warning, keeping the
// taxonomy open-ended while catching typos in well-known names.
func (s *Space) checkKind(kind string, want taxonomy.Family) error {
	if kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidKind)
	}
	family, known := s.taxonomy.Family(kind)
	if !known {
		s.logger.Warn("kind not in taxonomy", "space", s.name, "kind", kind)
		return nil
	}
	if family != want {
		return fmt.Errorf("%w: %q is a %s kind", ErrInvalidKind, kind, family)
	}
	return nil
}

func (s *Space) addIncoming(target, linkID string) {
	set, ok := s.incoming[target]
	if !ok {
		set = make(map[string]struct{})
		s.incoming[target] = set
	}
	set[linkID] = struct{}{}
}

func (s *Space) countCreated(kind string) {
	if s.atomsCreated != nil {
		s.atomsCreated.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("atom.kind", kind)))
	}
}
