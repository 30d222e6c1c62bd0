// Package atomspace implements an in-memory hypergraph knowledge store for
// cooperating agents.
//
// The store manages Atoms, the nodes and links of a hypergraph, with truth
// values, attention values, and open metadata. Each Space exclusively owns
// its atoms and maintains the forward (outgoing) and reverse (incoming)
// reference indices, so the logical graph may be cyclic while the Go object
// graph stays acyclic.
//
// # Core Concepts
//
//   - Atom: the unit of knowledge. A node (Concept, Predicate, ...) is a
//     leaf; a link (Inheritance, Evaluation, ...) references other atoms
//     through its ordered outgoing list.
//   - Space: one isolated hypergraph store, typically owned by one agent.
//     All mutation goes through the Space so that reference integrity holds
//     at every externally observable point.
//   - Snapshot: a portable, ordered record list sufficient to rebuild a
//     Space, used for persistence and cross-process transfer.
//
// # Getting Started
//
//	space := atomspace.NewSpace("s1")
//
//	agent, _ := space.AddNode("Concept", "Agent_0",
//	    atomspace.WithTruth(0.9, 0.95))
//	task, _ := space.AddNode("Predicate", "Reasoning")
//
//	link, _ := space.AddLink("Inheritance", []string{agent.ID, task.ID})
//
//	changed, _ := space.SpreadActivation(agent.ID, 0.1, 0.5)
//	for id, attention := range changed {
//	    fmt.Println(id, attention)
//	}
//
// Multiple spaces are managed by the orchestrator package, which also
// performs cross-space merges. The exchange package moves snapshots between
// processes over Redis, and the discovery package announces spaces to etcd.
//
// # Concurrency
//
// Every Space is guarded by a single reader/writer lock. Mutating
// operations (AddNode, AddLink, RemoveAtom, the setters, SpreadActivation,
// Import) execute as one critical section; readers may run concurrently
// with each other. All operations are bounded and synchronous, so no
// cancellation mechanism exists inside the core.
package atomspace
