package atomspace

import (
	"encoding/json"
	"time"
)

// Default values applied to newly created atoms when the caller does not
// supply them.
const (
	// DefaultAttention is the initial attention value of a new atom.
	DefaultAttention = 0.5

	// DefaultStrength and DefaultConfidence form the initial truth value.
	DefaultStrength   = 1.0
	DefaultConfidence = 1.0
)

// TruthValue expresses caller-assigned probabilistic certainty as a
// (strength, confidence) pair. Both components are kept within [0, 1];
// out-of-range inputs are clamped rather than rejected, since truth values
// often arrive from approximate upstream computations.
type TruthValue struct {
	// Strength is the degree to which the statement holds.
	Strength float64 `json:"strength"`

	// Confidence is how certain the caller is about Strength.
	Confidence float64 `json:"confidence"`
}

// NewTruthValue creates a TruthValue with both components clamped to [0, 1].
func NewTruthValue(strength, confidence float64) TruthValue {
	return TruthValue{
		Strength:   clamp01(strength),
		Confidence: clamp01(confidence),
	}
}

// DefaultTruth returns the truth value assigned to atoms created without an
// explicit one.
func DefaultTruth() TruthValue {
	return TruthValue{Strength: DefaultStrength, Confidence: DefaultConfidence}
}

// clamped returns the truth value with both components forced into [0, 1].
func (t TruthValue) clamped() TruthValue {
	return NewTruthValue(t.Strength, t.Confidence)
}

// Atom is the unit of stored knowledge: either a node (no outgoing
// references) or a link (an ordered outgoing list referencing other atoms in
// the same space).
//
// Atoms are owned by their Space. Methods on Space return defensive copies;
// mutate truth, attention, and metadata through the Space setters so that
// the per-space locking discipline holds.
type Atom struct {
	// ID is the space-assigned identifier. It is unique within the owning
	// space, stable for the atom's lifetime, and never reused.
	ID string `json:"id"`

	// Kind is an open-ended type tag, e.g. "Concept" or "Inheritance".
	// Node kinds and link kinds form two disjoint families; see the
	// taxonomy package.
	Kind string `json:"kind"`

	// Name is an optional identifier, primarily used by nodes. Named nodes
	// are unique per (kind, name) pair within a space.
	Name string `json:"name,omitempty"`

	// Truth is the caller-assigned (strength, confidence) pair.
	Truth TruthValue `json:"truth"`

	// Attention is the cognitive-focus weight in [0, 1]. It is raised by
	// activation spreading and by the Space setters.
	Attention float64 `json:"attention"`

	// Metadata is an open key-value bag, opaque to the store.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Outgoing is the ordered list of atom ids this link references.
	// Empty for nodes, non-empty for links.
	Outgoing []string `json:"outgoing,omitempty"`

	// CreatedAt is when the atom was added to its space.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when truth, attention, or metadata last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNode reports whether the atom is a leaf with no outgoing references.
func (a *Atom) IsNode() bool {
	return len(a.Outgoing) == 0
}

// IsLink reports whether the atom references other atoms.
func (a *Atom) IsLink() bool {
	return len(a.Outgoing) > 0
}

// GetMetadata retrieves a metadata value by key, returning the value and
// whether it was found.
//
// Example:
//
//	if src, ok := atom.GetMetadata("source"); ok {
//	    fmt.Printf("Source: %v\n", src)
//	}
func (a *Atom) GetMetadata(key string) (any, bool) {
	if a.Metadata == nil {
		return nil, false
	}
	val, ok := a.Metadata[key]
	return val, ok
}

// SetMetadata stores a metadata value, initializing the map if needed.
// It mutates the receiver only; use Space.MergeMetadata to update a
// stored atom.
func (a *Atom) SetMetadata(key string, value any) {
	if a.Metadata == nil {
		a.Metadata = make(map[string]any)
	}
	a.Metadata[key] = value
}

// String returns a human-readable representation of the atom.
func (a *Atom) String() string {
	data, _ := json.MarshalIndent(a, "", "  ")
	return string(data)
}

// clone returns an independent copy of the atom. The metadata map and
// outgoing slice are copied; metadata values are shared, since the store
// treats them as opaque.
func (a *Atom) clone() *Atom {
	dup := *a
	if a.Metadata != nil {
		dup.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			dup.Metadata[k] = v
		}
	}
	if a.Outgoing != nil {
		dup.Outgoing = append([]string(nil), a.Outgoing...)
	}
	return &dup
}

// AtomOption customizes an atom at creation time.
type AtomOption func(*Atom)

// WithTruth sets the atom's initial truth value. Components outside [0, 1]
// are clamped.
func WithTruth(strength, confidence float64) AtomOption {
	return func(a *Atom) {
		a.Truth = NewTruthValue(strength, confidence)
	}
}

// WithAttention sets the atom's initial attention value, clamped to [0, 1].
func WithAttention(v float64) AtomOption {
	return func(a *Atom) {
		a.Attention = clamp01(v)
	}
}

// WithMetadata sets the atom's metadata bag. This replaces any metadata set
// by earlier options.
func WithMetadata(meta map[string]any) AtomOption {
	return func(a *Atom) {
		a.Metadata = meta
	}
}

// WithMetadataValue sets a single metadata key, initializing the bag if
// needed.
func WithMetadataValue(key string, value any) AtomOption {
	return func(a *Atom) {
		if a.Metadata == nil {
			a.Metadata = make(map[string]any)
		}
		a.Metadata[key] = value
	}
}

// WithName assigns a name to a link created via AddLink. Link names are
// labels only and do not participate in the (kind, name) node index.
// AddNode takes its name directly and ignores this option.
func WithName(name string) AtomOption {
	return func(a *Atom) {
		a.Name = name
	}
}

// clamp01 forces v into [0, 1]. NaN is treated as 0.
func clamp01(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < 0, v != v:
		return 0
	default:
		return v
	}
}
