package chain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/observability"
	"github.com/couchcryptid/place-resolver/internal/provider"
)

// --- stub adapter ---

type stubAdapter struct {
	name       string
	candidates []domain.Candidate
	err        error
	blockOnCtx bool
	calls      atomic.Int32
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Query(ctx context.Context, _ string, _ provider.QueryOptions) ([]domain.Candidate, error) {
	s.calls.Add(1)
	if s.blockOnCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.candidates, s.err
}

func candidate(name string, confidence float64) domain.Candidate {
	return domain.Candidate{DisplayName: name, Confidence: confidence}
}

func entry(a *stubAdapter, priority int) Entry {
	return Entry{Adapter: a, Settings: provider.Settings{Enabled: true, Priority: priority}}
}

func testChain(accept float64, entries ...Entry) *Chain {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(entries, time.Second, accept, 5, logger, observability.NewMetricsForTesting())
}

// --- tests ---

func TestResolve_ContinuesPastLowConfidence(t *testing.T) {
	a := &stubAdapter{name: "a", candidates: []domain.Candidate{candidate("A", 0.4)}}
	b := &stubAdapter{name: "b", candidates: []domain.Candidate{candidate("B", 0.9)}}
	c := testChain(0.5, entry(a, 1), entry(b, 2))

	batches, err := c.Resolve(context.Background(), "tahoe", Options{})
	require.NoError(t, err)

	require.Len(t, batches, 2, "low-confidence result must not stop the chain")
	assert.Equal(t, "a", batches[0].Provider)
	assert.Equal(t, "b", batches[1].Provider)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestResolve_StopsEarlyOnAcceptableConfidence(t *testing.T) {
	a := &stubAdapter{name: "a", candidates: []domain.Candidate{candidate("A", 0.9)}}
	b := &stubAdapter{name: "b", candidates: []domain.Candidate{candidate("B", 0.95)}}
	c := testChain(0.7, entry(a, 1), entry(b, 2))

	batches, err := c.Resolve(context.Background(), "tahoe", Options{})
	require.NoError(t, err)

	require.Len(t, batches, 1)
	assert.Equal(t, "a", batches[0].Provider)
	assert.Equal(t, int32(0), b.calls.Load(), "chain should not consult b after an acceptable match")
}

func TestResolve_SoftFailureContinues(t *testing.T) {
	a := &stubAdapter{name: "a", err: provider.NewError("a", provider.KindUnavailable, errors.New("connection refused"))}
	b := &stubAdapter{name: "b", candidates: []domain.Candidate{candidate("B", 0.9)}}
	c := testChain(0.7, entry(a, 1), entry(b, 2))

	batches, err := c.Resolve(context.Background(), "tahoe", Options{})
	require.NoError(t, err)

	require.Len(t, batches, 1)
	assert.Equal(t, "b", batches[0].Provider)
}

func TestResolve_AllProvidersFailed(t *testing.T) {
	a := &stubAdapter{name: "a", err: errors.New("boom")}
	b := &stubAdapter{name: "b", err: errors.New("boom")}
	c := testChain(0.7, entry(a, 1), entry(b, 2))

	_, err := c.Resolve(context.Background(), "tahoe", Options{})
	assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
}

func TestResolve_AllEmptyIsNotFailure(t *testing.T) {
	a := &stubAdapter{name: "a"}
	b := &stubAdapter{name: "b"}
	c := testChain(0.7, entry(a, 1), entry(b, 2))

	batches, err := c.Resolve(context.Background(), "xyzzy", Options{})
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestResolve_MixedFailureAndEmptyIsNotFailure(t *testing.T) {
	a := &stubAdapter{name: "a", err: errors.New("boom")}
	b := &stubAdapter{name: "b"} // consulted fine, zero matches
	c := testChain(0.7, entry(a, 1), entry(b, 2))

	batches, err := c.Resolve(context.Background(), "xyzzy", Options{})
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestResolve_NoEnabledProviders(t *testing.T) {
	a := &stubAdapter{name: "a", candidates: []domain.Candidate{candidate("A", 0.9)}}
	disabled := Entry{Adapter: a, Settings: provider.Settings{Enabled: false, Priority: 1}}
	c := testChain(0.7, disabled)

	_, err := c.Resolve(context.Background(), "tahoe", Options{})
	assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
	assert.Equal(t, int32(0), a.calls.Load(), "disabled adapter must never be invoked")
}

func TestResolve_SortsEntriesByPriority(t *testing.T) {
	a := &stubAdapter{name: "low-priority", candidates: []domain.Candidate{candidate("A", 0.2)}}
	b := &stubAdapter{name: "high-priority", candidates: []domain.Candidate{candidate("B", 0.2)}}
	// Registered out of order; priority 1 must still be consulted first.
	c := testChain(0.99, entry(a, 5), entry(b, 1))

	batches, err := c.Resolve(context.Background(), "tahoe", Options{})
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Equal(t, "high-priority", batches[0].Provider)
	assert.Equal(t, "low-priority", batches[1].Provider)
}

func TestResolve_PerCallTimeout(t *testing.T) {
	slow := &stubAdapter{name: "slow", blockOnCtx: true}
	fast := &stubAdapter{name: "fast", candidates: []domain.Candidate{candidate("F", 0.9)}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New([]Entry{entry(slow, 1), entry(fast, 2)}, 20*time.Millisecond, 0.7, 5, logger, observability.NewMetricsForTesting())

	batches, err := c.Resolve(context.Background(), "tahoe", Options{})
	require.NoError(t, err)

	require.Len(t, batches, 1)
	assert.Equal(t, "fast", batches[0].Provider)
}

func TestResolve_IncludeAlternativesQueriesAllProviders(t *testing.T) {
	a := &stubAdapter{name: "a", candidates: []domain.Candidate{candidate("A", 0.95)}}
	b := &stubAdapter{name: "b", candidates: []domain.Candidate{candidate("B", 0.8), candidate("B2", 0.6)}}
	c := testChain(0.5, entry(a, 1), entry(b, 2))

	batches, err := c.Resolve(context.Background(), "tahoe", Options{IncludeAlternatives: true})
	require.NoError(t, err)

	require.Len(t, batches, 2, "alternatives mode must not short-circuit")
	assert.Equal(t, "a", batches[0].Provider)
	assert.Equal(t, "b", batches[1].Provider)
	assert.Len(t, batches[1].Candidates, 2)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestResolve_IncludeAlternativesAllFailed(t *testing.T) {
	a := &stubAdapter{name: "a", err: errors.New("boom")}
	b := &stubAdapter{name: "b", err: errors.New("boom")}
	c := testChain(0.7, entry(a, 1), entry(b, 2))

	_, err := c.Resolve(context.Background(), "tahoe", Options{IncludeAlternatives: true})
	assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
}

func TestEnabled(t *testing.T) {
	a := &stubAdapter{name: "a"}
	b := &stubAdapter{name: "b"}
	c := testChain(0.7,
		entry(a, 1),
		Entry{Adapter: b, Settings: provider.Settings{Enabled: false, Priority: 2}},
	)
	assert.Equal(t, 1, c.Enabled())
}
