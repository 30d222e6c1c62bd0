package orchestrator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noetic-sh/atomspace"
)

func TestOrchestrator_CreateAndLookup(t *testing.T) {
	o := New()

	created, err := o.CreateSpace("s1")
	require.NoError(t, err)

	got, err := o.Space("s1")
	require.NoError(t, err)
	assert.Same(t, created, got)

	_, err = o.CreateSpace("s1")
	assert.ErrorIs(t, err, ErrDuplicateSpace)

	_, err = o.Space("nope")
	assert.ErrorIs(t, err, ErrSpaceNotFound)

	_, err = o.CreateSpace("")
	assert.ErrorIs(t, err, ErrInvalidSpaceName)
}

func TestOrchestrator_RemoveSpace(t *testing.T) {
	o := New()

	_, err := o.CreateSpace("s1")
	require.NoError(t, err)
	require.NoError(t, o.AssignAgent("agent-7", "s1"))

	require.NoError(t, o.RemoveSpace("s1"))

	_, err = o.Space("s1")
	assert.ErrorIs(t, err, ErrSpaceNotFound)

	_, err = o.AgentSpace("agent-7")
	assert.ErrorIs(t, err, ErrAgentNotAssigned, "assignments die with their space")

	assert.ErrorIs(t, o.RemoveSpace("s1"), ErrSpaceNotFound)

	// The name is free again.
	_, err = o.CreateSpace("s1")
	assert.NoError(t, err)
}

func TestOrchestrator_AgentAssignment(t *testing.T) {
	o := New()

	space, err := o.CreateSpace("workers")
	require.NoError(t, err)

	assert.ErrorIs(t, o.AssignAgent("agent-1", "missing"), ErrSpaceNotFound)

	require.NoError(t, o.AssignAgent("agent-1", "workers"))
	got, err := o.AgentSpace("agent-1")
	require.NoError(t, err)
	assert.Same(t, space, got)

	_, err = o.AgentSpace("agent-2")
	assert.ErrorIs(t, err, ErrAgentNotAssigned)
}

func TestOrchestrator_GlobalStats(t *testing.T) {
	o := New()

	s1, err := o.CreateSpace("s1")
	require.NoError(t, err)
	s2, err := o.CreateSpace("s2")
	require.NoError(t, err)

	a, _ := s1.AddNode("Concept", "a")
	b, _ := s1.AddNode("Concept", "b")
	_, err = s1.AddLink("Inheritance", []string{a.ID, b.ID})
	require.NoError(t, err)
	_, _ = s2.AddNode("Predicate", "p")

	global := o.GlobalStats()
	assert.Equal(t, 2, global.TotalSpaces)
	assert.Equal(t, 4, global.TotalAtoms)
	assert.Equal(t, 3, global.Spaces["s1"].TotalAtoms)
	assert.Equal(t, 1, global.Spaces["s2"].TotalAtoms)
	assert.Equal(t, 1, global.Spaces["s1"].Links)
}

func TestOrchestrator_Spaces(t *testing.T) {
	o := New()
	for _, name := range []string{"c", "a", "b"} {
		_, err := o.CreateSpace(name)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, o.Spaces())
}

func TestOrchestrator_Merge(t *testing.T) {
	o := New()

	source, err := o.CreateSpace("scout")
	require.NoError(t, err)
	target, err := o.CreateSpace("base")
	require.NoError(t, err)

	a, _ := source.AddNode("Concept", "sighting", atomspace.WithTruth(0.8, 0.6))
	b, _ := source.AddNode("Concept", "location")
	link, err := source.AddLink("Evaluation", []string{a.ID, b.ID})
	require.NoError(t, err)

	_, _ = target.AddNode("Concept", "hq")
	_, _ = target.AddNode("Predicate", "known")

	remap, err := o.Merge("scout", "base")
	require.NoError(t, err)

	// 3 atoms into a 2-atom store yields 5.
	assert.Equal(t, 5, target.Stats().TotalAtoms)

	outgoing, err := target.Outgoing(remap[link.ID])
	require.NoError(t, err)
	assert.Equal(t, []string{remap[a.ID], remap[b.ID]}, outgoing)

	merged, err := target.Atom(remap[a.ID])
	require.NoError(t, err)
	assert.Equal(t, "sighting", merged.Name)
	assert.Equal(t, atomspace.TruthValue{Strength: 0.8, Confidence: 0.6}, merged.Truth)
}

func TestOrchestrator_MergeErrors(t *testing.T) {
	o := New()
	_, err := o.CreateSpace("only")
	require.NoError(t, err)

	_, err = o.Merge("only", "only")
	assert.ErrorIs(t, err, ErrSelfMerge)

	_, err = o.Merge("only", "missing")
	assert.ErrorIs(t, err, ErrSpaceNotFound)

	_, err = o.Merge("missing", "only")
	assert.ErrorIs(t, err, ErrSpaceNotFound)
}

func TestOrchestrator_ConcurrentMergesOppositeDirections(t *testing.T) {
	o := New()

	s1, err := o.CreateSpace("alpha")
	require.NoError(t, err)
	s2, err := o.CreateSpace("beta")
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, _ = s1.AddNode("Concept", fmt.Sprintf("alpha_%d", i))
		_, _ = s2.AddNode("Concept", fmt.Sprintf("beta_%d", i))
	}

	// Lock ordering by space name keeps these from deadlocking.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := o.Merge("alpha", "beta")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := o.Merge("beta", "alpha")
		assert.NoError(t, err)
	}()
	wg.Wait()

	// Both directions copied everything visible when they ran; each space
	// now holds at least its own 20 atoms plus the other's original 20.
	assert.GreaterOrEqual(t, s1.Stats().TotalAtoms, 40)
	assert.GreaterOrEqual(t, s2.Stats().TotalAtoms, 40)
}

func TestOrchestrator_CreateSpacesConcurrently(t *testing.T) {
	o := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.CreateSpace(fmt.Sprintf("space_%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, o.GlobalStats().TotalSpaces)
}

func TestOrchestrator_SpaceOptionsPropagate(t *testing.T) {
	o := New(WithSpaceOptions(
		atomspace.WithSpreadLimits(atomspace.SpreadLimits{Threshold: 0.5, MaxHops: 1}),
	))

	s, err := o.CreateSpace("tuned")
	require.NoError(t, err)

	a, _ := s.AddNode("Concept", "a")
	b, _ := s.AddNode("Concept", "b")
	_, err = s.AddLink("Inheritance", []string{a.ID, b.ID})
	require.NoError(t, err)

	// 0.9 * 0.5 = 0.45 falls below the configured 0.5 threshold.
	changed, err := s.SpreadActivation(a.ID, 0.9, 0.5)
	require.NoError(t, err)
	assert.Len(t, changed, 1, "only the source is touched under the tightened limits")
}
