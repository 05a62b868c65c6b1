// Package chain drives an ordered fallback sequence of geocoding providers.
// The chain's only job is to gather candidate batches under per-call
// timeouts; picking the winner is the disambiguator's concern.
package chain

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/observability"
	"github.com/couchcryptid/place-resolver/internal/provider"
)

// Entry pairs an adapter with its chain settings.
type Entry struct {
	Adapter  provider.Adapter
	Settings provider.Settings
}

// Batch holds one provider's candidates, best match first. Batches returned
// by Resolve are ordered by ascending provider priority and are never empty.
type Batch struct {
	Provider   string
	Priority   int
	Candidates []domain.Candidate
}

// Options control one resolution pass.
type Options struct {
	// IncludeAlternatives queries every enabled provider concurrently and
	// merges results instead of stopping at the first acceptable match, so
	// alternatives can span providers.
	IncludeAlternatives bool
	// MaxResults caps how many matches each provider is asked for.
	// Zero selects the chain default.
	MaxResults int
}

// Chain iterates enabled adapters in ascending priority order, treating
// every adapter failure as soft: log, count, move on. A single provider
// being down must never fail a resolution that another provider can serve.
type Chain struct {
	entries      []Entry // enabled only, sorted by ascending priority
	timeout      time.Duration
	accept       float64
	defaultLimit int
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// New builds a chain from entries, dropping disabled ones and sorting the
// rest by priority (1 first). timeout bounds each provider call; accept is
// the confidence at which the sequential pass stops early.
func New(entries []Entry, timeout time.Duration, accept float64, defaultLimit int, logger *slog.Logger, metrics *observability.Metrics) *Chain {
	enabled := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Settings.Enabled {
			enabled = append(enabled, e)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Settings.Priority < enabled[j].Settings.Priority
	})

	return &Chain{
		entries:      enabled,
		timeout:      timeout,
		accept:       accept,
		defaultLimit: defaultLimit,
		logger:       logger,
		metrics:      metrics,
	}
}

// Enabled reports how many providers participate in the chain.
func (c *Chain) Enabled() int { return len(c.entries) }

// Resolve gathers candidate batches for query. It returns
// domain.ErrAllProvidersFailed when every enabled provider errored (or none
// is enabled); an empty batch list with a nil error means providers were
// consulted but found nothing.
func (c *Chain) Resolve(ctx context.Context, query string, opts Options) ([]Batch, error) {
	if len(c.entries) == 0 {
		return nil, domain.ErrAllProvidersFailed
	}

	qopts := provider.QueryOptions{Limit: opts.MaxResults}
	if qopts.Limit <= 0 {
		qopts.Limit = c.defaultLimit
	}

	if opts.IncludeAlternatives {
		return c.resolveAll(ctx, query, qopts)
	}
	return c.resolveSequential(ctx, query, qopts)
}

// resolveSequential walks providers in priority order, stopping once a
// provider's best match meets the acceptance confidence.
func (c *Chain) resolveSequential(ctx context.Context, query string, qopts provider.QueryOptions) ([]Batch, error) {
	var batches []Batch
	failed := 0

	for _, e := range c.entries {
		candidates, err := c.queryOne(ctx, e, query, qopts)
		if err != nil {
			failed++
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		batches = append(batches, Batch{
			Provider:   e.Adapter.Name(),
			Priority:   e.Settings.Priority,
			Candidates: candidates,
		})
		if candidates[0].Confidence >= c.accept {
			break
		}
	}

	if len(batches) == 0 && failed == len(c.entries) {
		return nil, domain.ErrAllProvidersFailed
	}
	return batches, nil
}

// resolveAll queries every enabled provider concurrently so worst-case
// latency is the slowest provider's timeout, not the sum of all of them.
func (c *Chain) resolveAll(ctx context.Context, query string, qopts provider.QueryOptions) ([]Batch, error) {
	results := make([][]domain.Candidate, len(c.entries))
	errs := make([]error, len(c.entries))

	var wg sync.WaitGroup
	for i, e := range c.entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.queryOne(ctx, e, query, qopts)
		}()
	}
	wg.Wait()

	var batches []Batch
	failed := 0
	for i, e := range c.entries {
		if errs[i] != nil {
			failed++
			continue
		}
		if len(results[i]) == 0 {
			continue
		}
		batches = append(batches, Batch{
			Provider:   e.Adapter.Name(),
			Priority:   e.Settings.Priority,
			Candidates: results[i],
		})
	}

	if len(batches) == 0 && failed == len(c.entries) {
		return nil, domain.ErrAllProvidersFailed
	}
	return batches, nil
}

// queryOne invokes a single adapter under the per-call timeout, recording
// metrics and logging soft failures.
func (c *Chain) queryOne(ctx context.Context, e Entry, query string, qopts provider.QueryOptions) ([]domain.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name := e.Adapter.Name()
	start := time.Now()
	candidates, err := e.Adapter.Query(callCtx, query, qopts)
	c.metrics.ProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := provider.KindOf(err)
		c.metrics.ProviderRequests.WithLabelValues(name, string(kind)).Inc()
		c.logger.Warn("provider query failed",
			"provider", name,
			"kind", kind,
			"error", err,
		)
		return nil, err
	}

	if len(candidates) == 0 {
		c.metrics.ProviderRequests.WithLabelValues(name, "empty").Inc()
		c.logger.Debug("provider returned no matches", "provider", name, "query", query)
		return nil, nil
	}

	c.metrics.ProviderRequests.WithLabelValues(name, "success").Inc()
	return candidates, nil
}
