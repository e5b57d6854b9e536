package models

import "time"

// SignalState classifies an asset by its current indicator readings.
type SignalState string

const (
	SignalOverbought SignalState = "overbought"
	SignalOversold   SignalState = "oversold"
	SignalNeutral    SignalState = "neutral"
)

// PricePoint is a single observation in an asset's price history,
// ordered oldest to newest.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Indicators holds derived technical indicator values for one asset.
type Indicators struct {
	RSI        float64     `json:"rsi"`
	RSIPeriod  int         `json:"rsi_period"`
	BandUpper  float64     `json:"band_upper"`
	BandMiddle float64     `json:"band_middle"`
	BandLower  float64     `json:"band_lower"`
	BandPeriod int         `json:"band_period"`
	BandStdDev float64     `json:"band_std_dev"`
	Signal     SignalState `json:"signal"`
}

// AssetSnapshot is one asset's aggregated market state as of FetchedAt.
// Indicators is nil when the provider returned too little history to
// compute them.
type AssetSnapshot struct {
	Key        string        `json:"key"`
	Name       string        `json:"name"`
	Symbol     string        `json:"symbol"`
	Price      float64       `json:"price"`
	Change24h  float64       `json:"change_24h"`
	Volume24h  float64       `json:"volume_24h"`
	MarketCap  float64       `json:"market_cap"`
	Indicators *Indicators   `json:"indicators,omitempty"`
	FetchedAt  time.Time     `json:"fetched_at"`
	TTL        time.Duration `json:"-"`
	Source     string        `json:"source"`
}

// IsStale reports whether the snapshot has outlived its TTL at the
// given read time. Staleness is derived, never evicted.
func (s *AssetSnapshot) IsStale(now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return now.Sub(s.FetchedAt) > s.TTL
}

// Age returns how long ago the snapshot was written.
func (s *AssetSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// SentimentIndex is a market-wide fear/greed style reading.
type SentimentIndex struct {
	Value          int           `json:"value"`
	Classification string        `json:"classification"`
	FetchedAt      time.Time     `json:"fetched_at"`
	TTL            time.Duration `json:"-"`
}

// IsStale reports whether the reading has outlived its TTL.
func (s *SentimentIndex) IsStale(now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return now.Sub(s.FetchedAt) > s.TTL
}

// AltcoinSeasonIndex measures how many of the top assets outperformed
// bitcoin over the sample window. Value is the outperforming share on a
// 0-100 scale.
type AltcoinSeasonIndex struct {
	Value              int           `json:"value"`
	Classification     string        `json:"classification"`
	OutperformingCount int           `json:"outperforming_count"`
	TotalCount         int           `json:"total_count"`
	FetchedAt          time.Time     `json:"fetched_at"`
	TTL                time.Duration `json:"-"`
}

// IsStale reports whether the index has outlived its TTL.
func (a *AltcoinSeasonIndex) IsStale(now time.Time) bool {
	if a.TTL <= 0 {
		return false
	}
	return now.Sub(a.FetchedAt) > a.TTL
}

// MarketOverview is an aggregate view across the whole market.
type MarketOverview struct {
	TotalMarketCap float64       `json:"total_market_cap"`
	TotalVolume    float64       `json:"total_volume"`
	BTCDominance   float64       `json:"btc_dominance"`
	ActiveAssets   int           `json:"active_assets"`
	Markets        int           `json:"markets"`
	FetchedAt      time.Time     `json:"fetched_at"`
	TTL            time.Duration `json:"-"`
}

// IsStale reports whether the overview has outlived its TTL.
func (o *MarketOverview) IsStale(now time.Time) bool {
	if o.TTL <= 0 {
		return false
	}
	return now.Sub(o.FetchedAt) > o.TTL
}

// EntryStats describes one cached snapshot for the stats endpoint.
type EntryStats struct {
	Key       string        `json:"key"`
	Age       time.Duration `json:"age_ms"`
	Stale     bool          `json:"stale"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// CacheStats summarizes the aggregate cache at read time.
type CacheStats struct {
	Entries     int          `json:"entries"`
	Hits        uint64       `json:"hits"`
	Misses      uint64       `json:"misses"`
	LastUpdated time.Time    `json:"last_updated"`
	PerEntry    []EntryStats `json:"per_entry"`
}

// SnapshotEvent is emitted after every successful snapshot write.
type SnapshotEvent struct {
	Type     string         `json:"type"`
	Snapshot *AssetSnapshot `json:"snapshot"`
	At       time.Time      `json:"at"`
}
