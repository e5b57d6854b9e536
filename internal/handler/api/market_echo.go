package api

import (
	"encoding/json"
	"net/http"
	"time"

	"CoinPulse/internal/domain/models"
	drepo "CoinPulse/internal/domain/repository"
	"CoinPulse/internal/handler/ws"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/usecase"
	pkgcache "CoinPulse/pkg/cache"
	xhttp "CoinPulse/pkg/http"
	xlogger "CoinPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler serves the aggregate cache over REST and exposes
// the WebSocket upgrade endpoint.
type MarketEchoHandler struct {
	logger     *xlogger.Logger
	store      drepo.SnapshotStore
	scheduler  *usecase.Scheduler
	hub        *ws.Hub
	metrics    drepo.Metrics
	respCache  pkgcache.Service
	respTTL    time.Duration
	serveStale bool
	limiter    *ratelimit.Limiter
	burst      float64
	perSec     float64
	startedAt  time.Time
}

// MarketEchoHandlerConfig wires the handler dependencies.
type MarketEchoHandlerConfig struct {
	Logger     *xlogger.Logger
	Store      drepo.SnapshotStore
	Scheduler  *usecase.Scheduler
	Hub        *ws.Hub // optional
	Metrics    drepo.Metrics
	RespCache  pkgcache.Service // optional response cache
	RespTTL    time.Duration
	ServeStale bool
	Limiter    *ratelimit.Limiter // optional per-client admission guard
	Burst      float64
	PerSec     float64
}

func NewMarketEchoHandler(cfg MarketEchoHandlerConfig) *MarketEchoHandler {
	return &MarketEchoHandler{
		logger:     cfg.Logger,
		store:      cfg.Store,
		scheduler:  cfg.Scheduler,
		hub:        cfg.Hub,
		metrics:    cfg.Metrics,
		respCache:  cfg.RespCache,
		respTTL:    cfg.RespTTL,
		serveStale: cfg.ServeStale,
		limiter:    cfg.Limiter,
		burst:      cfg.Burst,
		perSec:     cfg.PerSec,
		startedAt:  time.Now(),
	}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(h.admit)
	}
	g.GET("/health", h.Health)
	g.GET("/assets", h.ListAssets)
	g.GET("/assets/:key", h.GetAsset)
	g.GET("/stats", h.Stats)
	g.GET("/sentiment", h.Sentiment)
	g.GET("/overview", h.Overview)
	g.GET("/altcoin-season", h.AltcoinSeason)

	if h.hub != nil {
		e.GET("/ws", h.hub.HandleWS)
	}
}

// admit applies the per-client token bucket. Callers over budget are
// rejected, not queued; queueing belongs to the provider pacer.
func (h *MarketEchoHandler) admit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP(), h.burst, h.perSec) {
			if h.metrics != nil {
				h.metrics.RecordCacheRead("rate_limited")
			}
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("request budget exceeded"))
		}
		return next(c)
	}
}

// assetView decorates a snapshot with read-time freshness.
type assetView struct {
	*models.AssetSnapshot
	Stale bool  `json:"stale"`
	AgeMs int64 `json:"age_ms"`
}

func (h *MarketEchoHandler) view(s *models.AssetSnapshot, now time.Time) assetView {
	return assetView{
		AssetSnapshot: s,
		Stale:         s.IsStale(now),
		AgeMs:         s.Age(now).Milliseconds(),
	}
}

func (h *MarketEchoHandler) Health(c echo.Context) error {
	data := map[string]interface{}{
		"status":    "ok",
		"uptime_ms": time.Since(h.startedAt).Milliseconds(),
		"entries":   h.scheduler.Entries(),
	}
	if h.hub != nil {
		data["ws_clients"] = h.hub.ClientCount()
	}
	return xhttp.SuccessResponse(c, data)
}

func (h *MarketEchoHandler) ListAssets(c echo.Context) error {
	req := &models.ListAssetsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0)

	cacheKey := pkgcache.GenerateKeyWithParams("assets", req.Signal, req.Fresh, limit)
	if blob, ok := h.cachedResponse(c, cacheKey); ok {
		return c.JSONBlob(http.StatusOK, blob)
	}

	now := time.Now()
	all := h.store.GetAll(now)

	views := make([]assetView, 0, len(all))
	for _, s := range all {
		stale := s.IsStale(now)
		if stale && (!h.serveStale || req.Fresh) {
			continue
		}
		if req.Signal != "" {
			if s.Indicators == nil || string(s.Indicators.Signal) != req.Signal {
				continue
			}
		}
		views = append(views, h.view(s, now))
	}
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}

	if h.metrics != nil {
		h.metrics.RecordCacheRead("list")
	}
	return h.respondCached(c, cacheKey, &xhttp.ListDataResponse{Rows: views, Total: int64(len(views))})
}

func (h *MarketEchoHandler) GetAsset(c echo.Context) error {
	req := &models.GetAssetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now()
	snap, ok := h.store.Get(req.Key, now)
	if !ok {
		if h.metrics != nil {
			h.metrics.RecordCacheRead("miss")
		}
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %q not yet fetched", req.Key))
	}

	stale := snap.IsStale(now)
	if stale && !h.serveStale {
		if h.metrics != nil {
			h.metrics.RecordCacheRead("stale_rejected")
		}
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %q has no fresh data", req.Key))
	}

	if h.metrics != nil {
		if stale {
			h.metrics.RecordCacheRead("stale")
		} else {
			h.metrics.RecordCacheRead("hit")
		}
	}
	return xhttp.SuccessResponse(c, h.view(snap, now))
}

func (h *MarketEchoHandler) Stats(c echo.Context) error {
	stats := h.store.Stats(time.Now())
	data := map[string]interface{}{
		"cache": stats,
	}
	if h.hub != nil {
		data["ws_clients"] = h.hub.ClientCount()
	}
	return xhttp.SuccessResponse(c, data)
}

func (h *MarketEchoHandler) Sentiment(c echo.Context) error {
	now := time.Now()
	reading, ok := h.store.Sentiment(now)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("sentiment not yet fetched"))
	}
	if reading.IsStale(now) && !h.serveStale {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("sentiment has no fresh data"))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"value":          reading.Value,
		"classification": reading.Classification,
		"fetched_at":     reading.FetchedAt,
		"stale":          reading.IsStale(now),
	})
}

func (h *MarketEchoHandler) AltcoinSeason(c echo.Context) error {
	now := time.Now()
	index, ok := h.store.AltcoinSeason(now)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("altcoin season index not yet fetched"))
	}
	if index.IsStale(now) && !h.serveStale {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("altcoin season index has no fresh data"))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"value":               index.Value,
		"classification":      index.Classification,
		"outperforming_count": index.OutperformingCount,
		"total_count":         index.TotalCount,
		"fetched_at":          index.FetchedAt,
		"stale":               index.IsStale(now),
	})
}

func (h *MarketEchoHandler) Overview(c echo.Context) error {
	cacheKey := pkgcache.GenerateKey("overview", "latest")
	if blob, ok := h.cachedResponse(c, cacheKey); ok {
		return c.JSONBlob(http.StatusOK, blob)
	}

	now := time.Now()
	overview, ok := h.store.Overview(now)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("overview not yet fetched"))
	}
	if overview.IsStale(now) && !h.serveStale {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("overview has no fresh data"))
	}

	return h.respondCached(c, cacheKey, overview)
}

// cachedResponse returns a previously rendered response body.
func (h *MarketEchoHandler) cachedResponse(c echo.Context, key string) ([]byte, bool) {
	if h.respCache == nil {
		return nil, false
	}
	var blob []byte
	if err := h.respCache.Get(c.Request().Context(), key, &blob); err != nil {
		return nil, false
	}
	return blob, true
}

// respondCached renders the standard envelope and stores the bytes for
// the short response-cache window.
func (h *MarketEchoHandler) respondCached(c echo.Context, key string, data interface{}) error {
	body := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	}

	if h.respCache != nil {
		if blob, err := json.Marshal(body); err == nil {
			_ = h.respCache.Set(c.Request().Context(), key, blob, h.respTTL)
		}
	}
	return c.JSON(http.StatusOK, body)
}
