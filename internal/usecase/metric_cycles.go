package usecase

import (
	"context"
	"time"

	drepo "CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/logger"
)

// SentimentCycle refreshes the market-wide sentiment reading.
type SentimentCycle struct {
	provider drepo.SentimentProvider
	store    drepo.SnapshotStore
	ttl      time.Duration
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewSentimentCycle creates the sentiment refresh cycle.
func NewSentimentCycle(provider drepo.SentimentProvider, store drepo.SnapshotStore, ttl time.Duration, metrics drepo.Metrics, log *logger.Logger) *SentimentCycle {
	return &SentimentCycle{provider: provider, store: store, ttl: ttl, metrics: metrics, log: log}
}

func (c *SentimentCycle) Name() string { return "sentiment" }

func (c *SentimentCycle) Run(ctx context.Context) error {
	start := time.Now()
	reading, err := c.provider.FetchSentiment(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("sentiment")
		}
		return err
	}

	reading.TTL = c.ttl
	c.store.PutSentiment(reading)

	if c.metrics != nil {
		c.metrics.RecordLatency("sentiment_cycle", time.Since(start).Seconds())
	}
	if c.log != nil {
		c.log.Debug("sentiment refreshed",
			logger.Int("value", reading.Value),
			logger.String("classification", reading.Classification),
		)
	}
	return nil
}

// AltcoinSeasonCycle refreshes the altcoin season index.
type AltcoinSeasonCycle struct {
	provider drepo.AltcoinSeasonProvider
	store    drepo.SnapshotStore
	ttl      time.Duration
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewAltcoinSeasonCycle creates the altcoin season refresh cycle.
func NewAltcoinSeasonCycle(provider drepo.AltcoinSeasonProvider, store drepo.SnapshotStore, ttl time.Duration, metrics drepo.Metrics, log *logger.Logger) *AltcoinSeasonCycle {
	return &AltcoinSeasonCycle{provider: provider, store: store, ttl: ttl, metrics: metrics, log: log}
}

func (c *AltcoinSeasonCycle) Name() string { return "altcoin_season" }

func (c *AltcoinSeasonCycle) Run(ctx context.Context) error {
	start := time.Now()
	index, err := c.provider.FetchAltcoinSeason(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("altcoin_season")
		}
		return err
	}

	index.TTL = c.ttl
	c.store.PutAltcoinSeason(index)

	if c.metrics != nil {
		c.metrics.RecordLatency("altcoin_season_cycle", time.Since(start).Seconds())
	}
	if c.log != nil {
		c.log.Debug("altcoin season refreshed",
			logger.Int("value", index.Value),
			logger.String("classification", index.Classification),
		)
	}
	return nil
}

// OverviewCycle refreshes the aggregate market overview.
type OverviewCycle struct {
	provider drepo.OverviewProvider
	store    drepo.SnapshotStore
	ttl      time.Duration
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewOverviewCycle creates the market overview refresh cycle.
func NewOverviewCycle(provider drepo.OverviewProvider, store drepo.SnapshotStore, ttl time.Duration, metrics drepo.Metrics, log *logger.Logger) *OverviewCycle {
	return &OverviewCycle{provider: provider, store: store, ttl: ttl, metrics: metrics, log: log}
}

func (c *OverviewCycle) Name() string { return "overview" }

func (c *OverviewCycle) Run(ctx context.Context) error {
	start := time.Now()
	overview, err := c.provider.FetchOverview(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("overview")
		}
		return err
	}

	overview.TTL = c.ttl
	c.store.PutOverview(overview)

	if c.metrics != nil {
		c.metrics.RecordLatency("overview_cycle", time.Since(start).Seconds())
	}
	return nil
}
