package taxonomy

import "testing"

func TestDefault_CanonicalKinds(t *testing.T) {
	tax := Default()

	nodeKinds := []string{KindConcept, KindPredicate, KindNumber, KindVariable}
	for _, kind := range nodeKinds {
		if !tax.IsNodeKind(kind) {
			t.Errorf("expected %q to be a node kind", kind)
		}
		if tax.IsLinkKind(kind) {
			t.Errorf("did not expect %q to be a link kind", kind)
		}
	}

	linkKinds := []string{KindInheritance, KindEvaluation, KindExecution, KindSimilarity, KindMember, KindState}
	for _, kind := range linkKinds {
		if !tax.IsLinkKind(kind) {
			t.Errorf("expected %q to be a link kind", kind)
		}
	}
}

func TestFamily_UnknownKind(t *testing.T) {
	tax := Default()

	if _, known := tax.Family("Wibble"); known {
		t.Error("unknown kind reported as known")
	}
	if family, known := tax.Family(KindConcept); !known || family != FamilyNode {
		t.Errorf("Family(Concept) = %v, %v; want node, true", family, known)
	}
}

func TestKindLists_Sorted(t *testing.T) {
	tax := Default()

	nodes := tax.NodeKinds()
	if len(nodes) != 4 {
		t.Fatalf("NodeKinds length = %d, want 4", len(nodes))
	}
	for i := 1; i < len(nodes); i++ {
		if nodes[i-1] >= nodes[i] {
			t.Errorf("NodeKinds not sorted: %q before %q", nodes[i-1], nodes[i])
		}
	}

	if got := len(tax.LinkKinds()); got != 6 {
		t.Errorf("LinkKinds length = %d, want 6", got)
	}
}

func TestFromYAML(t *testing.T) {
	doc := []byte(`
version: "2"
node_kinds:
  - Concept
  - Sensor
link_kinds:
  - Inheritance
  - Observes
`)

	tax, err := FromYAML(doc)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}

	if tax.Version() != "2" {
		t.Errorf("Version = %q, want 2", tax.Version())
	}
	if !tax.IsNodeKind("Sensor") {
		t.Error("expected Sensor to be a node kind")
	}
	if !tax.IsLinkKind("Observes") {
		t.Error("expected Observes to be a link kind")
	}
	if tax.IsNodeKind("Predicate") {
		t.Error("a loaded taxonomy replaces the defaults, it does not extend them")
	}
}

func TestFromYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "{{{"},
		{name: "empty document", doc: "version: \"3\""},
		{name: "both families", doc: "node_kinds: [Dual]\nlink_kinds: [Dual]"},
		{name: "empty node kind", doc: "node_kinds: [\"\"]"},
		{name: "empty link kind", doc: "link_kinds: [\"\"]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromYAML([]byte(tt.doc)); err == nil {
				t.Errorf("expected error for %q", tt.doc)
			}
		})
	}
}

func TestGlobalAccessor(t *testing.T) {
	original := Current()
	defer Set(original)

	custom, err := FromYAML([]byte("node_kinds: [Thing]\nlink_kinds: [Relates]"))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}

	Set(custom)
	if got := Current(); got != custom {
		t.Error("Current did not return the installed taxonomy")
	}

	Set(nil)
	if got := Current(); got != custom {
		t.Error("Set(nil) must be a no-op")
	}
}
