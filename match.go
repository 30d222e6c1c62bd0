package atomspace

import "strings"

// Wildcard is the trailing marker in a pattern name that turns the rest of
// the name into a literal prefix match, e.g. "Agent_*".
const Wildcard = "*"

// Pattern selects atoms by kind and name. Zero-valued fields act as
// wildcards matching anything.
type Pattern struct {
	// Kind, if non-empty, must match the atom's kind exactly.
	Kind string `json:"kind,omitempty"`

	// Name, if non-empty, matches the atom's name exactly, unless it ends
	// with the Wildcard marker, in which case the part before the marker
	// is matched as a literal prefix.
	Name string `json:"name,omitempty"`
}

// Matches reports whether the atom satisfies both constraints.
func (p Pattern) Matches(atom *Atom) bool {
	if p.Kind != "" && atom.Kind != p.Kind {
		return false
	}
	if p.Name != "" && !matchName(atom.Name, p.Name) {
		return false
	}
	return true
}

// Match returns every atom satisfying the pattern, in insertion order.
// The scan is linear over the space, which is the intended complexity for
// corpora in the low thousands of atoms; no extra index is kept.
func (s *Space) Match(pattern Pattern) []*Atom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Atom
	for _, id := range s.order {
		atom := s.atoms[id]
		if pattern.Matches(atom) {
			matched = append(matched, atom.clone())
		}
	}
	return matched
}

func matchName(name, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, Wildcard); ok {
		return strings.HasPrefix(name, prefix)
	}
	return name == pattern
}
