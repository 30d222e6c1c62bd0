package atomspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFrom_RemapsIds(t *testing.T) {
	source := NewSpace("source")
	a, _ := source.AddNode("Concept", "a", WithTruth(0.7, 0.8), WithMetadataValue("k", "v"))
	b, _ := source.AddNode("Concept", "b")
	link, err := source.AddLink("Inheritance", []string{a.ID, b.ID})
	require.NoError(t, err)

	target := NewSpace("target")
	_, _ = target.AddNode("Concept", "existing")
	_, _ = target.AddNode("Predicate", "alive")

	remap, err := target.MergeFrom(source)
	require.NoError(t, err)
	require.Len(t, remap, 3)

	assert.Equal(t, 5, target.Stats().TotalAtoms)

	// Fresh ids in the target, since ids are only unique per store.
	for oldID, newID := range remap {
		assert.NotEqual(t, oldID, newID)
	}

	// The copied link resolves, through the remap table, to atoms matching
	// the originals' kind and name.
	outgoing, err := target.Outgoing(remap[link.ID])
	require.NoError(t, err)
	require.Equal(t, []string{remap[a.ID], remap[b.ID]}, outgoing)

	copiedA, err := target.Atom(remap[a.ID])
	require.NoError(t, err)
	assert.Equal(t, "Concept", copiedA.Kind)
	assert.Equal(t, "a", copiedA.Name)
	assert.Equal(t, TruthValue{Strength: 0.7, Confidence: 0.8}, copiedA.Truth)
	assert.Equal(t, "v", copiedA.Metadata["k"])

	// Source is untouched.
	assert.Equal(t, 3, source.Stats().TotalAtoms)
}

func TestMergeFrom_ReusesNamedNodes(t *testing.T) {
	source := NewSpace("source")
	shared, _ := source.AddNode("Concept", "shared")
	other, _ := source.AddNode("Concept", "other")
	_, err := source.AddLink("Similarity", []string{shared.ID, other.ID})
	require.NoError(t, err)

	target := NewSpace("target")
	existing, _ := target.AddNode("Concept", "shared", WithTruth(0.2, 0.3))

	remap, err := target.MergeFrom(source)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, remap[shared.ID], "named nodes keep idempotent-creation semantics")
	assert.Equal(t, 3, target.Stats().TotalAtoms, "the shared node is not duplicated")

	kept, err := target.Atom(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, TruthValue{Strength: 0.2, Confidence: 0.3}, kept.Truth, "the existing atom is left unchanged")

	incoming, err := target.Incoming(existing.ID)
	require.NoError(t, err)
	assert.Len(t, incoming, 1, "the merged link lands on the existing node")
}

func TestMergeFrom_SelfAndNil(t *testing.T) {
	s := NewSpace("s")

	_, err := s.MergeFrom(s)
	assert.Error(t, err)

	_, err = s.MergeFrom(nil)
	assert.Error(t, err)
}
