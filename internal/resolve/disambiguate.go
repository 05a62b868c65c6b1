package resolve

import (
	"sort"

	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/provider/chain"
)

// confidenceEpsilon is the margin within which two candidates are considered
// equally confident; the higher-priority provider then wins.
const confidenceEpsilon = 0.05

// Disambiguator selects the winning candidate from the chain's batches and
// assembles the alternatives list.
type Disambiguator struct {
	minConfidence   float64
	maxAlternatives int
}

// NewDisambiguator creates a Disambiguator. Alternatives below minConfidence
// are dropped unless that would leave none; maxAlternatives caps the list.
func NewDisambiguator(minConfidence float64, maxAlternatives int) *Disambiguator {
	return &Disambiguator{
		minConfidence:   minConfidence,
		maxAlternatives: maxAlternatives,
	}
}

// Select picks the best candidate across batches and builds the final
// result. Batches must be ordered by ascending provider priority with at
// least one candidate each, as the chain guarantees. Returns
// domain.ErrNoResults when batches is empty.
func (d *Disambiguator) Select(query string, batches []chain.Batch) (domain.GeocodeResult, error) {
	if len(batches) == 0 {
		return domain.GeocodeResult{}, domain.ErrNoResults
	}

	// Each batch's first candidate is that provider's primary match; they
	// compete for the win. Walking in priority order and requiring a win by
	// more than epsilon means near-ties resolve to the higher-priority
	// provider.
	winner := 0
	for i := 1; i < len(batches); i++ {
		if batches[i].Candidates[0].Confidence > batches[winner].Candidates[0].Confidence+confidenceEpsilon {
			winner = i
		}
	}
	best := batches[winner].Candidates[0]

	// Everything else — losing primaries and extra matches from
	// disambiguation lists — feeds the alternatives pool.
	var pool []domain.Candidate
	for i, b := range batches {
		for j, cand := range b.Candidates {
			if i == winner && j == 0 {
				continue
			}
			pool = append(pool, cand)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Confidence > pool[j].Confidence
	})

	alternatives := make([]domain.Alternative, 0, d.maxAlternatives)
	for _, cand := range pool {
		if cand.Confidence < d.minConfidence {
			continue
		}
		alternatives = append(alternatives, toAlternative(cand))
		if len(alternatives) == d.maxAlternatives {
			break
		}
	}
	// An empty list would mask a low-quality match; keep the single best
	// alternative even below the threshold.
	if len(alternatives) == 0 && len(pool) > 0 {
		alternatives = append(alternatives, toAlternative(pool[0]))
	}

	providers := make([]string, 0, len(batches))
	providers = append(providers, batches[winner].Provider)
	for i, b := range batches {
		if i != winner {
			providers = append(providers, b.Provider)
		}
	}

	return domain.GeocodeResult{
		Query:        query,
		DisplayName:  best.DisplayName,
		Coordinates:  best.Coordinates,
		Confidence:   best.Confidence,
		Type:         best.Type,
		Components:   best.Components,
		Providers:    providers,
		Alternatives: alternatives,
	}, nil
}

func toAlternative(c domain.Candidate) domain.Alternative {
	return domain.Alternative{
		DisplayName: c.DisplayName,
		Coordinates: c.Coordinates,
		Confidence:  c.Confidence,
	}
}
