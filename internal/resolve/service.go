// Package resolve is the public entry point of the geocoding service: it
// consults the cache, drives the provider chain on a miss, disambiguates the
// candidates, and stores the outcome.
package resolve

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/place-resolver/internal/cache"
	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/observability"
	"github.com/couchcryptid/place-resolver/internal/provider/chain"
)

// Resolver gathers candidate batches for a query. Implemented by chain.Chain.
type Resolver interface {
	Resolve(ctx context.Context, query string, opts chain.Options) ([]chain.Batch, error)
	Enabled() int
}

// Options control a single resolution.
type Options struct {
	// IncludeAlternatives asks every provider for candidates instead of
	// stopping at the first acceptable match.
	IncludeAlternatives bool
	// MaxResults caps per-provider matches; zero selects the default.
	MaxResults int
}

// Service owns the cache and the provider chain. One instance per process;
// no global state.
type Service struct {
	chain        Resolver
	store        *cache.Store
	disambiguate *Disambiguator
	logger       *slog.Logger
	metrics      *observability.Metrics

	// coalesce merges concurrent in-flight resolutions of the same
	// normalized query into one provider round. Off by default: redundant
	// concurrent lookups are wasteful but converge to the same result.
	coalesce bool
	group    singleflight.Group
}

// New creates a Service.
func New(chain Resolver, store *cache.Store, disambiguate *Disambiguator, coalesce bool, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		chain:        chain,
		store:        store,
		disambiguate: disambiguate,
		coalesce:     coalesce,
		logger:       logger,
		metrics:      metrics,
	}
}

// Resolve returns the best geographic match for a free-text place query.
// Fails with domain.ErrEmptyQuery, domain.ErrNoResults, or
// domain.ErrAllProvidersFailed; every failure is scoped to this call and a
// later call may succeed.
func (s *Service) Resolve(ctx context.Context, query string, opts Options) (domain.GeocodeResult, error) {
	key := domain.Normalize(query)
	if key == "" {
		s.metrics.ResolveRequests.WithLabelValues("empty_query").Inc()
		return domain.GeocodeResult{}, domain.ErrEmptyQuery
	}

	if result, ok := s.store.Get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		s.metrics.ResolveRequests.WithLabelValues("success").Inc()
		return result, nil
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	if !s.coalesce {
		return s.resolveUncached(ctx, key, query, opts)
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.resolveUncached(ctx, key, query, opts)
	})
	if err != nil {
		return domain.GeocodeResult{}, err
	}
	if shared {
		s.logger.Debug("coalesced concurrent resolution", "key", key)
	}
	return v.(domain.GeocodeResult), nil
}

func (s *Service) resolveUncached(ctx context.Context, key, query string, opts Options) (domain.GeocodeResult, error) {
	batches, err := s.chain.Resolve(ctx, key, chain.Options{
		IncludeAlternatives: opts.IncludeAlternatives,
		MaxResults:          opts.MaxResults,
	})
	if err != nil {
		s.metrics.ResolveRequests.WithLabelValues("all_failed").Inc()
		s.logger.Error("resolution failed", "query", query, "error", err)
		return domain.GeocodeResult{}, err
	}

	result, err := s.disambiguate.Select(query, batches)
	if err != nil {
		s.metrics.ResolveRequests.WithLabelValues("no_results").Inc()
		s.logger.Info("no matches for query", "query", query)
		return domain.GeocodeResult{}, err
	}

	s.store.Put(key, result)
	s.metrics.CacheSize.Set(float64(s.store.Stats().Size))
	s.metrics.ResolveRequests.WithLabelValues("success").Inc()
	s.logger.Debug("resolved query",
		"query", query,
		"display_name", result.DisplayName,
		"confidence", result.Confidence,
		"provider", result.Providers[0],
	)
	return result, nil
}

// CacheStats exposes read-only cache observability to external callers.
func (s *Service) CacheStats() cache.Stats {
	return s.store.Stats()
}

// CheckReadiness reports whether the service can serve traffic: at least one
// provider must be enabled.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.chain.Enabled() == 0 {
		return errors.New("no geocoding providers enabled")
	}
	return nil
}
