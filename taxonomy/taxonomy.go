// Package taxonomy defines the open-ended kind vocabulary for atoms.
//
// Kinds are plain strings partitioned into two families: node kinds, which
// are leaves with no outgoing references, and link kinds, which reference
// other atoms. The taxonomy is an allow-list consulted at the store's API
// edge: it catches family mix-ups and typos in well-known names without
// closing the vocabulary, so deployments can introduce new kinds freely.
//
// A default taxonomy ships with the canonical kinds. Deployments extend it
// by loading a YAML document:
//
//	version: "2"
//	node_kinds:
//	  - Concept
//	  - Sensor
//	link_kinds:
//	  - Inheritance
//	  - Observes
package taxonomy

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Canonical node kinds.
const (
	KindConcept   = "Concept"
	KindPredicate = "Predicate"
	KindNumber    = "Number"
	KindVariable  = "Variable"
)

// Canonical link kinds.
const (
	KindInheritance = "Inheritance"
	KindEvaluation  = "Evaluation"
	KindExecution   = "Execution"
	KindSimilarity  = "Similarity"
	KindMember      = "Member"
	KindState       = "State"
)

// Family partitions kinds into nodes and links.
type Family string

const (
	// FamilyNode marks kinds whose atoms are leaves.
	FamilyNode Family = "node"

	// FamilyLink marks kinds whose atoms reference other atoms.
	FamilyLink Family = "link"
)

// String returns the family name.
func (f Family) String() string {
	return string(f)
}

// Taxonomy is an immutable kind allow-list. Build one with Default or
// FromYAML; a Taxonomy is safe for concurrent use.
type Taxonomy struct {
	version string
	kinds   map[string]Family
}

// Default returns the taxonomy holding the canonical kinds.
func Default() *Taxonomy {
	return &Taxonomy{
		version: "1",
		kinds: map[string]Family{
			KindConcept:   FamilyNode,
			KindPredicate: FamilyNode,
			KindNumber:    FamilyNode,
			KindVariable:  FamilyNode,

			KindInheritance: FamilyLink,
			KindEvaluation:  FamilyLink,
			KindExecution:   FamilyLink,
			KindSimilarity:  FamilyLink,
			KindMember:      FamilyLink,
			KindState:       FamilyLink,
		},
	}
}

// document is the YAML shape of a taxonomy file.
type document struct {
	Version   string   `yaml:"version"`
	NodeKinds []string `yaml:"node_kinds"`
	LinkKinds []string `yaml:"link_kinds"`
}

// FromYAML parses a taxonomy document. A kind listed under both families is
// an error, as is an empty document.
func FromYAML(data []byte) (*Taxonomy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(doc.NodeKinds) == 0 && len(doc.LinkKinds) == 0 {
		return nil, fmt.Errorf("taxonomy document declares no kinds")
	}

	kinds := make(map[string]Family, len(doc.NodeKinds)+len(doc.LinkKinds))
	for _, kind := range doc.NodeKinds {
		if kind == "" {
			return nil, fmt.Errorf("taxonomy document contains an empty node kind")
		}
		kinds[kind] = FamilyNode
	}
	for _, kind := range doc.LinkKinds {
		if kind == "" {
			return nil, fmt.Errorf("taxonomy document contains an empty link kind")
		}
		if kinds[kind] == FamilyNode {
			return nil, fmt.Errorf("kind %q declared as both node and link", kind)
		}
		kinds[kind] = FamilyLink
	}

	version := doc.Version
	if version == "" {
		version = "custom"
	}
	return &Taxonomy{version: version, kinds: kinds}, nil
}

// Version returns the taxonomy version string.
func (t *Taxonomy) Version() string {
	return t.version
}

// Family returns the family a kind belongs to and whether the kind is known
// to the taxonomy at all.
func (t *Taxonomy) Family(kind string) (Family, bool) {
	family, ok := t.kinds[kind]
	return family, ok
}

// IsNodeKind reports whether the kind is a known node kind.
func (t *Taxonomy) IsNodeKind(kind string) bool {
	return t.kinds[kind] == FamilyNode
}

// IsLinkKind reports whether the kind is a known link kind.
func (t *Taxonomy) IsLinkKind(kind string) bool {
	return t.kinds[kind] == FamilyLink
}

// NodeKinds returns all known node kinds, sorted.
func (t *Taxonomy) NodeKinds() []string {
	return t.kindsOf(FamilyNode)
}

// LinkKinds returns all known link kinds, sorted.
func (t *Taxonomy) LinkKinds() []string {
	return t.kindsOf(FamilyLink)
}

func (t *Taxonomy) kindsOf(family Family) []string {
	var out []string
	for kind, f := range t.kinds {
		if f == family {
			out = append(out, kind)
		}
	}
	sort.Strings(out)
	return out
}

var (
	currentMu sync.RWMutex
	current   = Default()
)

// Set installs the process-wide taxonomy used by spaces created without an
// explicit one. Call during initialization, before spaces are created.
func Set(t *Taxonomy) {
	if t == nil {
		return
	}
	currentMu.Lock()
	defer currentMu.Unlock()
	current = t
}

// Current returns the process-wide taxonomy. It is never nil.
func Current() *Taxonomy {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}
