package repository

import (
	"context"
	"time"

	"CoinPulse/internal/domain/models"
)

// MarketProvider fetches one asset's current market data plus enough
// price history to derive indicators.
type MarketProvider interface {
	Fetch(ctx context.Context, assetKey string, windowDays int) (*models.AssetSnapshot, []models.PricePoint, error)
}

// SentimentProvider fetches the market-wide sentiment index.
type SentimentProvider interface {
	FetchSentiment(ctx context.Context) (*models.SentimentIndex, error)
}

// OverviewProvider fetches the aggregate market overview.
type OverviewProvider interface {
	FetchOverview(ctx context.Context) (*models.MarketOverview, error)
}

// AltcoinSeasonProvider derives the altcoin season index.
type AltcoinSeasonProvider interface {
	FetchAltcoinSeason(ctx context.Context) (*models.AltcoinSeasonIndex, error)
}

// SnapshotStore is the concurrent aggregate cache. Writers replace
// whole snapshots atomically; readers never observe partial state.
type SnapshotStore interface {
	Get(key string, now time.Time) (*models.AssetSnapshot, bool)
	GetAll(now time.Time) []*models.AssetSnapshot
	Put(snapshot *models.AssetSnapshot)
	PutSentiment(s *models.SentimentIndex)
	Sentiment(now time.Time) (*models.SentimentIndex, bool)
	PutOverview(o *models.MarketOverview)
	Overview(now time.Time) (*models.MarketOverview, bool)
	PutAltcoinSeason(a *models.AltcoinSeasonIndex)
	AltcoinSeason(now time.Time) (*models.AltcoinSeasonIndex, bool)
	Stats(now time.Time) models.CacheStats
}

// Publisher delivers snapshot events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, event *models.SnapshotEvent) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordFetchCycle(asset, result string)
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordRSI(asset string, value float64)
	RecordLatency(op string, seconds float64)
	RecordCacheSize(n int)
	RecordCacheRead(outcome string)
}
