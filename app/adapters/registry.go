package adapters

import (
	"fmt"

	"archscout/app/database"
	"archscout/app/dates"
	"archscout/app/sources"
	"archscout/app/vision"
)

// Deps carries the collaborators adapters may need. Not every strategy
// uses every field.
type Deps struct {
	Repo       database.SeenRepository
	Extractor  vision.HeadlineExtractor
	Normalizer *dates.Normalizer
}

// Factory builds an adapter bound to one source configuration.
type Factory func(cfg *sources.Config, deps Deps) (SiteAdapter, error)

// Registry maps strategies to adapter factories. It is a plain value
// handed to whoever needs it; callers may register additional
// strategies before building adapters.
type Registry struct {
	factories map[sources.Strategy]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[sources.Strategy]Factory)}
}

// DefaultRegistry returns a registry with the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(sources.StrategyPattern, NewListingAdapter)
	r.Register(sources.StrategyPlain, NewListingAdapter)
	r.Register(sources.StrategyVision, NewVisionAdapter)
	r.Register(sources.StrategyFeed, NewFeedAdapter)
	return r
}

func (r *Registry) Register(strategy sources.Strategy, factory Factory) {
	r.factories[strategy] = factory
}

func (r *Registry) Strategies() []sources.Strategy {
	strategies := make([]sources.Strategy, 0, len(r.factories))
	for s := range r.factories {
		strategies = append(strategies, s)
	}
	return strategies
}

// Build constructs the adapter for the source's configured strategy.
func (r *Registry) Build(cfg *sources.Config, deps Deps) (SiteAdapter, error) {
	factory, ok := r.factories[cfg.Source.Strategy]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for strategy %q", cfg.Source.Strategy)
	}
	return factory(cfg, deps)
}
