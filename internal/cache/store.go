// Package cache provides a bounded, time-expiring, frequency-tracked store
// for geocode results. TTL alone is not enough: popular but rarely-changing
// queries (major cities) should survive capacity pressure longer than one-off
// queries, so eviction is hybrid — expired entries go first, then the least
// frequently hit.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/place-resolver/internal/domain"
)

// Stats is a read-only snapshot of the store.
type Stats struct {
	// Size counts live (unexpired) entries.
	Size int `json:"size"`
	// TotalHits sums hit counts across live entries.
	TotalHits int `json:"totalHits"`
}

type entry struct {
	result    domain.GeocodeResult
	timestamp time.Time
	hitCount  int
	// seq orders entries by insertion so eviction ties on hitCount are
	// broken deterministically, oldest insert first.
	seq uint64
}

// Store is a thread-safe key→result map with TTL expiry and
// least-frequently-used eviction under capacity pressure.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	maxSize int
	ttl     time.Duration
	clock   clockwork.Clock
	nextSeq uint64

	// cleanupAt is the size past which Put triggers a proactive cleanup,
	// 80% of maxSize.
	cleanupAt int
}

// New creates a Store holding at most maxSize entries, each valid for ttl
// after insertion. Pass a nil clock to use real time; tests inject a fake
// for deterministic expiry.
func New(maxSize int, ttl time.Duration, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		entries:   make(map[string]*entry),
		maxSize:   maxSize,
		ttl:       ttl,
		clock:     clock,
		cleanupAt: int(float64(maxSize) * 0.8),
	}
}

// Get returns the result for key if present and not expired, bumping its hit
// count. Expired entries are logically absent: a miss, with no mutation.
func (s *Store) Get(key string) (domain.GeocodeResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		return domain.GeocodeResult{}, false
	}
	e.hitCount++
	return e.result, true
}

// Put inserts or overwrites the entry for key with a fresh timestamp and a
// zero hit count. An overwrite counts as a new insertion for eviction
// ordering. If the store has grown past 80% of capacity, a cleanup pass runs
// before returning.
func (s *Store) Put(key string, result domain.GeocodeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{
		result:    result,
		timestamp: s.clock.Now(),
		seq:       s.nextSeq,
	}
	s.nextSeq++

	if len(s.entries) > s.cleanupAt {
		s.cleanupLocked()
	}
}

// Cleanup removes expired entries, then evicts the least frequently used
// entries if the store still exceeds capacity.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

// Stats reports the current size and cumulative hit count over live entries.
// Read-only; expired-but-unswept entries are not counted.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, e := range s.entries {
		if s.expired(e) {
			continue
		}
		st.Size++
		st.TotalHits += e.hitCount
	}
	return st
}

func (s *Store) expired(e *entry) bool {
	return s.clock.Now().Sub(e.timestamp) >= s.ttl
}

func (s *Store) cleanupLocked() {
	// Phase 1: TTL sweep.
	for key, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, key)
		}
	}

	if len(s.entries) <= s.maxSize {
		return
	}

	// Phase 2: evict lowest hit counts until at capacity, insertion order
	// breaking ties.
	type keyed struct {
		key string
		e   *entry
	}
	remaining := make([]keyed, 0, len(s.entries))
	for key, e := range s.entries {
		remaining = append(remaining, keyed{key, e})
	}
	sort.Slice(remaining, func(i, j int) bool {
		if remaining[i].e.hitCount != remaining[j].e.hitCount {
			return remaining[i].e.hitCount < remaining[j].e.hitCount
		}
		return remaining[i].e.seq < remaining[j].e.seq
	})

	for _, k := range remaining[:len(s.entries)-s.maxSize] {
		delete(s.entries, k.key)
	}
}
