package cache

import (
	"sync"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
)

func snap(key string, price float64, fetchedAt time.Time, ttl time.Duration) *models.AssetSnapshot {
	return &models.AssetSnapshot{
		Key:       key,
		Price:     price,
		FetchedAt: fetchedAt,
		TTL:       ttl,
		Source:    "test",
	}
}

func TestGetMissingDistinctFromStale(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	if _, ok := s.Get("bitcoin", now); ok {
		t.Fatal("empty store should miss")
	}

	s.Put(snap("bitcoin", 50000, now.Add(-time.Hour), time.Minute))

	got, ok := s.Get("bitcoin", now)
	if !ok {
		t.Fatal("stale entry must still be returned")
	}
	if !got.IsStale(now) {
		t.Error("entry should report stale")
	}
}

func TestPutReplacesWholeSnapshot(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	s.Put(snap("eth", 1000, now.Add(-time.Minute), time.Hour))
	s.Put(snap("eth", 2000, now, time.Hour))

	got, _ := s.Get("eth", now)
	if got.Price != 2000 {
		t.Errorf("price = %v, want last write", got.Price)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestGetAllSorted(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()
	s.Put(snap("solana", 1, now, time.Hour))
	s.Put(snap("bitcoin", 2, now, time.Hour))
	s.Put(snap("ethereum", 3, now, time.Hour))

	all := s.GetAll(now)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Key != "bitcoin" || all[2].Key != "solana" {
		t.Errorf("unexpected order: %v %v %v", all[0].Key, all[1].Key, all[2].Key)
	}
}

func TestStats(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()
	s.Put(snap("bitcoin", 1, now.Add(-2*time.Minute), time.Minute))
	s.Put(snap("ethereum", 2, now, time.Hour))

	s.Get("bitcoin", now)
	s.Get("absent", now)

	stats := s.Stats(now)
	if stats.Entries != 2 {
		t.Errorf("entries = %d, want 2", stats.Entries)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if !stats.PerEntry[0].Stale {
		t.Error("bitcoin entry should be stale")
	}
	if stats.PerEntry[1].Stale {
		t.Error("ethereum entry should be fresh")
	}
}

func TestSentimentAndOverviewSlots(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	if _, ok := s.Sentiment(now); ok {
		t.Fatal("sentiment should start absent")
	}

	s.PutSentiment(&models.SentimentIndex{Value: 61, Classification: "Greed", FetchedAt: now, TTL: time.Hour})
	s.PutOverview(&models.MarketOverview{TotalMarketCap: 2.1e12, FetchedAt: now, TTL: time.Hour})

	if v, ok := s.Sentiment(now); !ok || v.Value != 61 {
		t.Errorf("sentiment read failed: %v %v", v, ok)
	}
	if v, ok := s.Overview(now); !ok || v.TotalMarketCap != 2.1e12 {
		t.Errorf("overview read failed: %v %v", v, ok)
	}
}

// Readers racing a writer must always observe a complete snapshot,
// either wholly old or wholly new.
func TestConcurrentReplaceNeverTorn(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	old := &models.AssetSnapshot{Key: "btc", Price: 1, Volume24h: 1, MarketCap: 1, FetchedAt: now, TTL: time.Hour}
	s.Put(old)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := float64(i%2) + 1
			s.Put(&models.AssetSnapshot{Key: "btc", Price: v, Volume24h: v, MarketCap: v, FetchedAt: now, TTL: time.Hour})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				got, ok := s.Get("btc", now)
				if !ok {
					t.Error("entry vanished")
					return
				}
				if got.Price != got.Volume24h || got.Price != got.MarketCap {
					t.Errorf("torn read: %v %v %v", got.Price, got.Volume24h, got.MarketCap)
					return
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()
}
