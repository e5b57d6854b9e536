package usecase

import (
	"context"
	"errors"
	"time"

	"CoinPulse/internal/domain/models"
	drepo "CoinPulse/internal/domain/repository"
	"CoinPulse/internal/services/indicator"
	"CoinPulse/pkg/logger"
)

// AssetCycle runs one fetch-compute-write pass for a single asset.
// A failed cycle leaves the previous cached snapshot untouched.
type AssetCycle struct {
	asset      string
	windowDays int
	ttl        time.Duration
	provider   drepo.MarketProvider
	engine     *indicator.Engine
	store      drepo.SnapshotStore
	publisher  drepo.Publisher
	notify     func(*models.SnapshotEvent)
	metrics    drepo.Metrics
	log        *logger.Logger
}

// AssetCycleConfig wires one asset's cycle.
type AssetCycleConfig struct {
	Asset      string
	WindowDays int
	TTL        time.Duration
	Provider   drepo.MarketProvider
	Engine     *indicator.Engine
	Store      drepo.SnapshotStore
	Publisher  drepo.Publisher             // optional
	Notify     func(*models.SnapshotEvent) // optional, e.g. WebSocket hub
	Metrics    drepo.Metrics
	Logger     *logger.Logger
}

// NewAssetCycle creates a cycle for one asset.
func NewAssetCycle(cfg AssetCycleConfig) *AssetCycle {
	return &AssetCycle{
		asset:      cfg.Asset,
		windowDays: cfg.WindowDays,
		ttl:        cfg.TTL,
		provider:   cfg.Provider,
		engine:     cfg.Engine,
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		notify:     cfg.Notify,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
	}
}

// Name returns the asset key this cycle owns.
func (c *AssetCycle) Name() string { return c.asset }

// Run executes one full cycle: fetch, compute, atomic cache replace,
// then at most one event emission for the successful write.
func (c *AssetCycle) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordLatency("asset_cycle", time.Since(start).Seconds())
		}
	}()

	snapshot, history, err := c.provider.Fetch(ctx, c.asset, c.windowDays)
	if err != nil {
		c.recordFailure("fetch", err)
		return err
	}

	prices := make([]float64, len(history))
	for i, p := range history {
		prices[i] = p.Price
	}

	ind, err := c.engine.Compute(prices)
	switch {
	case err == nil:
		snapshot.Indicators = ind
	case errors.Is(err, indicator.ErrInsufficientData):
		// Price fields are still worth serving; indicators stay absent.
		snapshot.Indicators = nil
		if c.log != nil {
			c.log.Warn("insufficient history for indicators",
				logger.String("asset", c.asset),
				logger.Int("points", len(prices)),
				logger.Int("required", c.engine.Required()),
			)
		}
	default:
		c.recordFailure("compute", err)
		return err
	}

	snapshot.TTL = c.ttl
	c.store.Put(snapshot)

	if c.metrics != nil {
		c.metrics.RecordFetchCycle(c.asset, "success")
		c.metrics.RecordLastPrice(c.asset, snapshot.Price)
		if snapshot.Indicators != nil {
			c.metrics.RecordRSI(c.asset, snapshot.Indicators.RSI)
		}
		c.metrics.RecordCacheSize(c.store.Stats(time.Now()).Entries)
	}

	c.emit(ctx, snapshot)
	return nil
}

// emit delivers at most one event per successful write.
func (c *AssetCycle) emit(ctx context.Context, snapshot *models.AssetSnapshot) {
	event := &models.SnapshotEvent{
		Type:     "snapshot",
		Snapshot: snapshot,
		At:       time.Now(),
	}

	if c.notify != nil {
		c.notify(event)
	}

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, event); err != nil {
			if c.metrics != nil {
				c.metrics.RecordError("publish")
			}
			if c.log != nil {
				c.log.Error("snapshot event publish failed",
					logger.String("asset", c.asset),
					logger.Error(err),
				)
			}
		}
	}
}

func (c *AssetCycle) recordFailure(stage string, err error) {
	if c.metrics != nil {
		c.metrics.RecordFetchCycle(c.asset, "failure")
		c.metrics.RecordError(stage)
	}
	if c.log != nil {
		c.log.Error("asset cycle failed",
			logger.String("asset", c.asset),
			logger.String("stage", stage),
			logger.Error(err),
		)
	}
}
