package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/service/ratelimit"
	xhttp "CoinPulse/pkg/http"
	"CoinPulse/pkg/logger"
)

const (
	pacerKey   = "coingecko"
	sourceName = "coingecko"
)

// Option configures Client.
type Option func(*Client)

// Client fetches market data from the CoinGecko REST API. All outbound
// calls share one pacer so request spacing holds across concurrent
// asset cycles.
type Client struct {
	http            *xhttp.Client
	baseURL         string
	apiKey          string
	pacer           *ratelimit.Pacer
	requestInterval time.Duration
	maxRetries      int
	backoffMin      time.Duration
	backoffMax      time.Duration
	seasonSample    int
	log             *logger.Logger
}

// New creates a CoinGecko client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:            xhttp.NewClient(),
		baseURL:         baseURL,
		pacer:           ratelimit.NewPacer(),
		requestInterval: time.Second,
		maxRetries:      3,
		backoffMin:      500 * time.Millisecond,
		backoffMax:      10 * time.Second,
		seasonSample:    50,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithAPIKey sets the demo/pro API key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRequestInterval sets the minimum spacing between outbound calls.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) { c.requestInterval = d }
}

// WithRetry bounds the per-request retry budget and backoff window.
func WithRetry(maxRetries int, backoffMin, backoffMax time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoffMin = backoffMin
		c.backoffMax = backoffMax
	}
}

// WithSeasonSample sets how many top assets the altcoin season index
// compares against bitcoin.
func WithSeasonSample(n int) Option {
	return func(c *Client) {
		if n > 1 {
			c.seasonSample = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

type marketRow struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	PriceChangePercentage90d float64 `json:"price_change_percentage_90d_in_currency"`
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

type globalData struct {
	Data struct {
		ActiveCryptocurrencies int                `json:"active_cryptocurrencies"`
		Markets                int                `json:"markets"`
		TotalMarketCap         map[string]float64 `json:"total_market_cap"`
		TotalVolume            map[string]float64 `json:"total_volume"`
		MarketCapPercentage    map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

// Fetch retrieves the current market row and a daily price history for
// one asset. The returned history is ordered oldest to newest.
func (c *Client) Fetch(ctx context.Context, assetKey string, windowDays int) (*models.AssetSnapshot, []models.PricePoint, error) {
	if windowDays <= 0 {
		return nil, nil, &FetchError{Kind: KindProvider, Asset: assetKey, Err: fmt.Errorf("window days must be positive, got %d", windowDays)}
	}

	var rows []marketRow
	err := c.doRequest(ctx, assetKey, "/coins/markets", map[string][]string{
		"vs_currency": {"usd"},
		"ids":         {assetKey},
	}, &rows)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, &FetchError{Kind: KindNotFound, Asset: assetKey, Err: fmt.Errorf("asset not in provider response")}
	}
	row := rows[0]

	var chart marketChart
	err = c.doRequest(ctx, assetKey, "/coins/"+assetKey+"/market_chart", map[string][]string{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(windowDays)},
		"interval":    {"daily"},
	}, &chart)
	if err != nil {
		return nil, nil, err
	}

	history := make([]models.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		history = append(history, models.PricePoint{
			Timestamp: time.UnixMilli(int64(p[0])),
			Price:     p[1],
		})
	}

	snapshot := &models.AssetSnapshot{
		Key:       assetKey,
		Name:      row.Name,
		Symbol:    row.Symbol,
		Price:     row.CurrentPrice,
		Change24h: row.PriceChangePercentage24h,
		Volume24h: row.TotalVolume,
		MarketCap: row.MarketCap,
		FetchedAt: time.Now(),
		Source:    sourceName,
	}

	return snapshot, history, nil
}

// FetchOverview retrieves the aggregate market view from /global.
func (c *Client) FetchOverview(ctx context.Context) (*models.MarketOverview, error) {
	var g globalData
	if err := c.doRequest(ctx, "global", "/global", nil, &g); err != nil {
		return nil, err
	}

	return &models.MarketOverview{
		TotalMarketCap: g.Data.TotalMarketCap["usd"],
		TotalVolume:    g.Data.TotalVolume["usd"],
		BTCDominance:   g.Data.MarketCapPercentage["btc"],
		ActiveAssets:   g.Data.ActiveCryptocurrencies,
		Markets:        g.Data.Markets,
		FetchedAt:      time.Now(),
	}, nil
}

// FetchAltcoinSeason ranks the top assets by market cap and reports the
// share whose trailing quarter beat bitcoin's, scaled to 0-100.
func (c *Client) FetchAltcoinSeason(ctx context.Context) (*models.AltcoinSeasonIndex, error) {
	var rows []marketRow
	err := c.doRequest(ctx, "altcoin-season", "/coins/markets", map[string][]string{
		"vs_currency":             {"usd"},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(c.seasonSample + 1)},
		"page":                    {"1"},
		"price_change_percentage": {"90d"},
	}, &rows)
	if err != nil {
		return nil, err
	}

	var btcChange float64
	btcSeen := false
	for _, row := range rows {
		if row.ID == "bitcoin" {
			btcChange = row.PriceChangePercentage90d
			btcSeen = true
			break
		}
	}
	if !btcSeen {
		return nil, &FetchError{Kind: KindProvider, Asset: "altcoin-season", Err: fmt.Errorf("bitcoin missing from market ranking")}
	}

	outperforming, total := 0, 0
	for _, row := range rows {
		if row.ID == "bitcoin" {
			continue
		}
		total++
		if row.PriceChangePercentage90d > btcChange {
			outperforming++
		}
		if total == c.seasonSample {
			break
		}
	}
	if total == 0 {
		return nil, &FetchError{Kind: KindProvider, Asset: "altcoin-season", Err: fmt.Errorf("no altcoins in market ranking")}
	}

	value := int(math.Round(float64(outperforming) / float64(total) * 100))

	return &models.AltcoinSeasonIndex{
		Value:              value,
		Classification:     classifySeason(value),
		OutperformingCount: outperforming,
		TotalCount:         total,
		FetchedAt:          time.Now(),
	}, nil
}

// classifySeason follows the conventional 75/25 season bands.
func classifySeason(value int) string {
	switch {
	case value >= 75:
		return "Altcoin Season"
	case value <= 25:
		return "Bitcoin Season"
	default:
		return "Neutral"
	}
}

// doRequest issues one paced, retried GET and decodes the JSON body.
// NotFound aborts immediately; other failures retry with exponential
// backoff plus jitter until the attempt budget is spent.
func (c *Client) doRequest(ctx context.Context, assetKey, path string, query map[string][]string, dest interface{}) error {
	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["x-cg-demo-api-key"] = c.apiKey
	}

	opts := &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     headers,
		QueryParams: query,
	}

	var lastErr *FetchError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleepBackoff(ctx, attempt); err != nil {
				return lastErr
			}
		}

		if err := c.pacer.Wait(ctx, pacerKey, c.requestInterval); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return &FetchError{Kind: KindTransient, Asset: assetKey, Err: err}
		}

		resp, err := c.http.SendRequest(ctx, opts)
		if err != nil {
			lastErr = &FetchError{Kind: KindTransient, Asset: assetKey, Err: err}
			c.logRetry(assetKey, attempt, lastErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err = json.NewDecoder(resp.Body).Decode(dest)
			resp.Body.Close()
			if err != nil {
				lastErr = &FetchError{Kind: KindProvider, Status: resp.StatusCode, Asset: assetKey, Err: fmt.Errorf("decode response: %w", err)}
				c.logRetry(assetKey, attempt, lastErr)
				continue
			}
			return nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()

		kind := classifyStatus(resp.StatusCode)
		lastErr = &FetchError{
			Kind:   kind,
			Status: resp.StatusCode,
			Asset:  assetKey,
			Err:    fmt.Errorf("%s", body),
		}
		if !lastErr.Retryable() {
			return lastErr
		}
		c.logRetry(assetKey, attempt, lastErr)
	}

	return lastErr
}

// backoffFor derives the sleep before the given retry attempt. Jitter
// is applied before the clamp so the result never exceeds backoffMax.
func (c *Client) backoffFor(attempt int) time.Duration {
	backoff := time.Duration(float64(c.backoffMin) * math.Pow(2, float64(attempt-1)))
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	// Full jitter keeps concurrent cycles from retrying in lockstep.
	backoff = time.Duration(rand.Int63n(int64(backoff)) + int64(backoff)/2)
	if backoff > c.backoffMax {
		backoff = c.backoffMax
	}
	return backoff
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.backoffFor(attempt))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) logRetry(assetKey string, attempt int, err *FetchError) {
	if c.log == nil {
		return
	}
	c.log.Warn("provider request failed",
		logger.String("asset", assetKey),
		logger.Int("attempt", attempt+1),
		logger.String("kind", string(err.Kind)),
		logger.Error(err),
	)
}
