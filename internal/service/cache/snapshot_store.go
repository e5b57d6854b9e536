package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"CoinPulse/internal/domain/models"
)

// SnapshotStore is the in-memory aggregate cache. Snapshots are
// treated as immutable once written: Put replaces the whole pointer,
// so concurrent readers never observe a partially updated record.
// Entries are never evicted; staleness is derived at read time.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.AssetSnapshot
	sentiment *models.SentimentIndex
	overview  *models.MarketOverview
	altSeason *models.AltcoinSeasonIndex
	updatedAt time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewSnapshotStore creates an empty aggregate cache.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]*models.AssetSnapshot),
	}
}

// Get returns the latest snapshot for key. A missing key means "not
// yet fetched"; a present-but-stale entry is still returned and the
// caller decides using IsStale.
func (s *SnapshotStore) Get(key string, now time.Time) (*models.AssetSnapshot, bool) {
	s.mu.RLock()
	snap, ok := s.snapshots[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return snap, true
}

// GetAll returns a point-in-time copy of the snapshot set, sorted by
// key. Individual entries may differ in freshness.
func (s *SnapshotStore) GetAll(now time.Time) []*models.AssetSnapshot {
	s.mu.RLock()
	out := make([]*models.AssetSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Put atomically replaces the entry for snapshot.Key. The snapshot
// must not be mutated by the caller after handoff.
func (s *SnapshotStore) Put(snapshot *models.AssetSnapshot) {
	s.mu.Lock()
	s.snapshots[snapshot.Key] = snapshot
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// PutSentiment replaces the market sentiment reading.
func (s *SnapshotStore) PutSentiment(v *models.SentimentIndex) {
	s.mu.Lock()
	s.sentiment = v
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Sentiment returns the latest sentiment reading, if fetched.
func (s *SnapshotStore) Sentiment(now time.Time) (*models.SentimentIndex, bool) {
	s.mu.RLock()
	v := s.sentiment
	s.mu.RUnlock()

	if v == nil {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return v, true
}

// PutOverview replaces the market overview.
func (s *SnapshotStore) PutOverview(v *models.MarketOverview) {
	s.mu.Lock()
	s.overview = v
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Overview returns the latest market overview, if fetched.
func (s *SnapshotStore) Overview(now time.Time) (*models.MarketOverview, bool) {
	s.mu.RLock()
	v := s.overview
	s.mu.RUnlock()

	if v == nil {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return v, true
}

// PutAltcoinSeason replaces the altcoin season index.
func (s *SnapshotStore) PutAltcoinSeason(v *models.AltcoinSeasonIndex) {
	s.mu.Lock()
	s.altSeason = v
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// AltcoinSeason returns the latest altcoin season index, if fetched.
func (s *SnapshotStore) AltcoinSeason(now time.Time) (*models.AltcoinSeasonIndex, bool) {
	s.mu.RLock()
	v := s.altSeason
	s.mu.RUnlock()

	if v == nil {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return v, true
}

// Stats reports entry count, hit/miss counters and per-entry ages.
// Non-blocking relative to writers beyond the map read lock.
func (s *SnapshotStore) Stats(now time.Time) models.CacheStats {
	s.mu.RLock()
	entries := make([]models.EntryStats, 0, len(s.snapshots))
	for key, snap := range s.snapshots {
		entries = append(entries, models.EntryStats{
			Key:       key,
			Age:       snap.Age(now),
			Stale:     snap.IsStale(now),
			FetchedAt: snap.FetchedAt,
		})
	}
	updated := s.updatedAt
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return models.CacheStats{
		Entries:     len(entries),
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		LastUpdated: updated,
		PerEntry:    entries,
	}
}

// Len returns the number of cached snapshots.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
