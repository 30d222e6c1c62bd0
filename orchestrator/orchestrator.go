// Package orchestrator manages the lifecycle of named atom spaces for a
// hierarchy of cooperating agents.
//
// The orchestrator is the process-wide registry mapping space names to
// spaces. Agents obtain their space here, then issue add/query/spread/export
// calls directly against it. The orchestrator also drives cross-space merges
// when agents hand knowledge off to each other, and aggregates per-space
// statistics into a global view.
//
// The registry is guarded by its own lock, independent of any space's lock:
// creating or looking up a space never blocks on another space's mutation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/noetic-sh/atomspace"
)

// Sentinel errors for orchestrator operations.
var (
	// ErrDuplicateSpace indicates that CreateSpace was called with a name
	// that is already registered.
	ErrDuplicateSpace = errors.New("space already exists")

	// ErrSpaceNotFound indicates a lookup of an unregistered space name.
	ErrSpaceNotFound = errors.New("space not found")

	// ErrAgentNotAssigned indicates that AgentSpace was called for an agent
	// that has not been assigned a space.
	ErrAgentNotAssigned = errors.New("agent not assigned to a space")

	// ErrInvalidSpaceName indicates that CreateSpace was called with an
	// empty name.
	ErrInvalidSpaceName = errors.New("invalid space name")

	// ErrSelfMerge indicates that Merge was asked to merge a space into
	// itself.
	ErrSelfMerge = errors.New("cannot merge a space into itself")
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for orchestrator operations.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithSpaceOptions sets options applied to every space the orchestrator
// creates, e.g. a shared taxonomy, logger, or tracer.
func WithSpaceOptions(opts ...atomspace.Option) Option {
	return func(o *Orchestrator) {
		o.spaceOpts = opts
	}
}

// Orchestrator is the registry of named spaces. Create one at process start;
// destroying it (letting it go out of scope) tears down every space with it.
// All methods are safe for concurrent use.
type Orchestrator struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	spaceOpts []atomspace.Option

	mu     sync.RWMutex
	spaces map[string]*atomspace.Space
	agents map[string]string // agent id -> space name
}

// New creates an empty orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		spaces: make(map[string]*atomspace.Space),
		agents: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = tracenoop.NewTracerProvider().Tracer("atomspace/orchestrator")
	}
	return o
}

// CreateSpace registers a new empty space under the given name. Fails with
// ErrInvalidSpaceName if the name is empty and with ErrDuplicateSpace if it
// is already registered.
func (o *Orchestrator) CreateSpace(name string) (*atomspace.Space, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSpaceName)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.spaces[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSpace, name)
	}
	space := atomspace.NewSpace(name, o.spaceOpts...)
	o.spaces[name] = space

	o.logger.Info("created space", "space", name)
	return space, nil
}

// Space returns the registered space with the given name, or
// ErrSpaceNotFound.
func (o *Orchestrator) Space(name string) (*atomspace.Space, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	space, ok := o.spaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSpaceNotFound, name)
	}
	return space, nil
}

// RemoveSpace unregisters the space and, with it, destroys every atom it
// owns. Agent assignments pointing at the space are dropped.
func (o *Orchestrator) RemoveSpace(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.spaces[name]; !ok {
		return fmt.Errorf("%w: %q", ErrSpaceNotFound, name)
	}
	delete(o.spaces, name)
	for agentID, spaceName := range o.agents {
		if spaceName == name {
			delete(o.agents, agentID)
		}
	}

	o.logger.Info("removed space", "space", name)
	return nil
}

// Spaces returns the names of all registered spaces, sorted.
func (o *Orchestrator) Spaces() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.spaces))
	for name := range o.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssignAgent records that the given agent works against the named space.
// The space must already be registered.
func (o *Orchestrator) AssignAgent(agentID, spaceName string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.spaces[spaceName]; !ok {
		return fmt.Errorf("%w: %q", ErrSpaceNotFound, spaceName)
	}
	o.agents[agentID] = spaceName
	return nil
}

// AgentSpace returns the space assigned to the given agent.
func (o *Orchestrator) AgentSpace(agentID string) (*atomspace.Space, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	spaceName, ok := o.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotAssigned, agentID)
	}
	space, ok := o.spaces[spaceName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSpaceNotFound, spaceName)
	}
	return space, nil
}

// GlobalStats aggregates every registered space's statistics.
type GlobalStats struct {
	// TotalSpaces is the number of registered spaces.
	TotalSpaces int `json:"total_spaces"`

	// TotalAtoms sums the atom counts of every space.
	TotalAtoms int `json:"total_atoms"`

	// Spaces holds each space's statistics, keyed by space name.
	Spaces map[string]atomspace.Stats `json:"spaces"`
}

// GlobalStats returns per-space statistics plus the registered space count.
func (o *Orchestrator) GlobalStats() GlobalStats {
	o.mu.RLock()
	spaces := make([]*atomspace.Space, 0, len(o.spaces))
	for _, space := range o.spaces {
		spaces = append(spaces, space)
	}
	o.mu.RUnlock()

	global := GlobalStats{
		TotalSpaces: len(spaces),
		Spaces:      make(map[string]atomspace.Stats, len(spaces)),
	}
	for _, space := range spaces {
		stats := space.Stats()
		global.Spaces[space.Name()] = stats
		global.TotalAtoms += stats.TotalAtoms
	}
	return global
}

// Merge copies every atom of the source space into the target space,
// remapping ids as it goes (ids are only unique per space) and rewriting
// every copied link's outgoing list through the remap table. Kind, name,
// truth, attention, and metadata are preserved exactly. The returned table
// maps source ids to their ids in the target.
//
// The registry lock is released before the copy starts; the two spaces'
// own locks are taken in lexicographic name order for the duration.
func (o *Orchestrator) Merge(sourceName, targetName string) (map[string]string, error) {
	_, span := o.tracer.Start(context.Background(), "orchestrator.merge",
		trace.WithAttributes(
			attribute.String("merge.source", sourceName),
			attribute.String("merge.target", targetName),
		))
	defer span.End()

	if sourceName == targetName {
		return nil, fmt.Errorf("%w: %q", ErrSelfMerge, sourceName)
	}

	o.mu.RLock()
	source, sourceOK := o.spaces[sourceName]
	target, targetOK := o.spaces[targetName]
	o.mu.RUnlock()

	if !sourceOK {
		return nil, fmt.Errorf("%w: %q", ErrSpaceNotFound, sourceName)
	}
	if !targetOK {
		return nil, fmt.Errorf("%w: %q", ErrSpaceNotFound, targetName)
	}

	remap, err := target.MergeFrom(source)
	if err != nil {
		return nil, err
	}

	o.logger.Info("merged spaces",
		"source", sourceName, "target", targetName, "atoms", len(remap))
	return remap, nil
}
