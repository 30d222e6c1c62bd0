package atomspace

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noetic-sh/atomspace/taxonomy"
)

// Option configures a Space.
type Option func(*Space)

// WithLogger sets a custom structured logger for the space.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Space) {
		s.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for the space. Mutating
// operations open spans on it. The default is a noop tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Space) {
		s.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for the space, used to count atom
// creations and activation spreads. The default is a noop meter.
func WithMeter(meter metric.Meter) Option {
	return func(s *Space) {
		s.meter = meter
	}
}

// WithTaxonomy sets the kind taxonomy validated at the API edge.
// If not provided, the space uses taxonomy.Current().
func WithTaxonomy(tax *taxonomy.Taxonomy) Option {
	return func(s *Space) {
		s.taxonomy = tax
	}
}

// WithSpreadLimits overrides the activation-spreading termination bounds.
func WithSpreadLimits(limits SpreadLimits) Option {
	return func(s *Space) {
		s.spreadLimits = limits
	}
}
