package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/place-resolver/internal/domain"
)

const testTTL = time.Hour

func result(name string) domain.GeocodeResult {
	return domain.GeocodeResult{Query: name, DisplayName: name}
}

func testStore(maxSize int) (*Store, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return New(maxSize, testTTL, clock), clock
}

func TestStore_GetMiss(t *testing.T) {
	s, _ := testStore(10)

	_, ok := s.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, s.Stats())
}

func TestStore_PutGet(t *testing.T) {
	s, _ := testStore(10)

	s.Put("tahoe", result("Tahoe"))

	got, ok := s.Get("tahoe")
	require.True(t, ok)
	assert.Equal(t, "Tahoe", got.DisplayName)
}

func TestStore_HitCountFeedsTotalHits(t *testing.T) {
	s, _ := testStore(10)

	s.Put("tahoe", result("Tahoe"))
	assert.Equal(t, Stats{Size: 1, TotalHits: 0}, s.Stats())

	s.Get("tahoe")
	assert.Equal(t, Stats{Size: 1, TotalHits: 1}, s.Stats())

	s.Get("tahoe")
	s.Get("tahoe")
	assert.Equal(t, Stats{Size: 1, TotalHits: 3}, s.Stats())
}

func TestStore_TTLExpiry(t *testing.T) {
	s, clock := testStore(10)

	s.Put("tahoe", result("Tahoe"))

	clock.Advance(testTTL - time.Second)
	_, ok := s.Get("tahoe")
	assert.True(t, ok, "entry within TTL should hit")

	clock.Advance(time.Second)
	_, ok = s.Get("tahoe")
	assert.False(t, ok, "entry at exactly TTL should miss")
}

func TestStore_ExpiredEntriesAbsentFromStats(t *testing.T) {
	s, clock := testStore(10)

	s.Put("tahoe", result("Tahoe"))
	s.Get("tahoe")
	clock.Advance(testTTL)

	assert.Equal(t, Stats{}, s.Stats())
}

func TestStore_ExpiredMissDoesNotMutate(t *testing.T) {
	s, clock := testStore(10)

	s.Put("tahoe", result("Tahoe"))
	clock.Advance(testTTL)

	_, ok := s.Get("tahoe")
	assert.False(t, ok)

	// The expired entry is logically absent but a miss must not sweep it;
	// re-inserting makes it live again with a fresh hit count.
	s.Put("tahoe", result("Tahoe"))
	assert.Equal(t, Stats{Size: 1, TotalHits: 0}, s.Stats())
}

func TestStore_SizeNeverExceedsMax(t *testing.T) {
	const maxSize = 5
	s, _ := testStore(maxSize)

	for i := 0; i < 20; i++ {
		s.Put(fmt.Sprintf("key-%d", i), result("r"))
		assert.LessOrEqual(t, s.Stats().Size, maxSize)
	}
}

func TestStore_EvictionPrefersLowHitCount(t *testing.T) {
	s, _ := testStore(3)

	s.Put("a", result("A"))
	s.Put("b", result("B"))
	s.Put("c", result("C"))

	// a: 2 hits, b: 1 hit, c: 0 hits.
	s.Get("a")
	s.Get("a")
	s.Get("b")

	// 4 entries > max 3 triggers eviction; c and the fresh d are both at
	// zero hits, and c is the older insert.
	s.Put("d", result("D"))

	_, ok := s.Get("c")
	assert.False(t, ok, "least-frequently-hit entry should be evicted")
	for _, key := range []string{"a", "b", "d"} {
		_, ok := s.Get(key)
		assert.True(t, ok, "key %q should survive", key)
	}
}

func TestStore_EvictionTieBreaksByInsertionOrder(t *testing.T) {
	s, _ := testStore(2)

	s.Put("first", result("F"))
	s.Put("second", result("S"))
	s.Put("third", result("T")) // all zero hits; "first" is oldest

	_, ok := s.Get("first")
	assert.False(t, ok, "oldest insert should lose the tie")
	_, ok = s.Get("second")
	assert.True(t, ok)
	_, ok = s.Get("third")
	assert.True(t, ok)
}

func TestStore_OverwriteResetsEntry(t *testing.T) {
	s, _ := testStore(10)

	s.Put("tahoe", result("Old"))
	s.Get("tahoe")
	s.Put("tahoe", result("New"))

	got, ok := s.Get("tahoe")
	require.True(t, ok)
	assert.Equal(t, "New", got.DisplayName)
	// Overwrite resets the hit count; only the single Get above counts.
	assert.Equal(t, Stats{Size: 1, TotalHits: 1}, s.Stats())
}

func TestStore_PutSweepsExpiredPastThreshold(t *testing.T) {
	s, clock := testStore(5) // proactive cleanup once size exceeds 4

	s.Put("old-1", result("O1"))
	s.Put("old-2", result("O2"))
	clock.Advance(testTTL)

	s.Put("new-1", result("N1"))
	s.Put("new-2", result("N2"))
	s.Put("new-3", result("N3")) // size 5 > threshold: TTL sweep removes the old pair

	assert.Equal(t, 3, s.Stats().Size)
	_, ok := s.Get("old-1")
	assert.False(t, ok)
	_, ok = s.Get("new-1")
	assert.True(t, ok)
}

func TestStore_CleanupExplicit(t *testing.T) {
	s, clock := testStore(10)

	s.Put("a", result("A"))
	s.Put("b", result("B"))
	clock.Advance(testTTL)
	s.Put("c", result("C"))

	s.Cleanup()

	assert.Equal(t, 1, s.Stats().Size)
	_, ok := s.Get("c")
	assert.True(t, ok)
}
