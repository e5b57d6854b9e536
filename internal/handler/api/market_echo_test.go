package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
	svccache "CoinPulse/internal/service/cache"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/usecase"

	"github.com/labstack/echo/v4"
)

func newTestHandler(serveStale bool) (*MarketEchoHandler, *svccache.SnapshotStore, *echo.Echo) {
	store := svccache.NewSnapshotStore()
	h := NewMarketEchoHandler(MarketEchoHandlerConfig{
		Store:      store,
		Scheduler:  usecase.NewScheduler(nil),
		ServeStale: serveStale,
	})
	e := echo.New()
	h.RegisterRoutes(e)
	return h, store, e
}

func doGet(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func putSnapshot(store *svccache.SnapshotStore, key string, age time.Duration, ttl time.Duration, signal models.SignalState) {
	s := &models.AssetSnapshot{
		Key:       key,
		Price:     100,
		FetchedAt: time.Now().Add(-age),
		TTL:       ttl,
		Source:    "test",
	}
	if signal != "" {
		s.Indicators = &models.Indicators{RSI: 50, Signal: signal}
	}
	store.Put(s)
}

type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestGetAssetFound(t *testing.T) {
	_, store, e := newTestHandler(true)
	putSnapshot(store, "bitcoin", 0, time.Hour, models.SignalNeutral)

	rec := doGet(e, "/api/assets/bitcoin")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Status != http.StatusOK {
		t.Errorf("envelope status = %d", env.Status)
	}

	var view struct {
		Key   string `json:"key"`
		Stale bool   `json:"stale"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.Key != "bitcoin" || view.Stale {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestGetAssetMissing(t *testing.T) {
	_, _, e := newTestHandler(true)

	rec := doGet(e, "/api/assets/ghost")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusNotFound {
		t.Errorf("envelope status = %d, want 404 for never-fetched asset", env.Status)
	}
}

func TestGetAssetStaleServed(t *testing.T) {
	_, store, e := newTestHandler(true)
	putSnapshot(store, "bitcoin", 2*time.Hour, time.Minute, models.SignalNeutral)

	rec := doGet(e, "/api/assets/bitcoin")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusOK {
		t.Fatalf("stale entries should be served when allowed, status %d", env.Status)
	}

	var view struct {
		Stale bool `json:"stale"`
	}
	_ = json.Unmarshal(env.Data, &view)
	if !view.Stale {
		t.Error("stale flag should be set")
	}
}

func TestGetAssetStaleRejected(t *testing.T) {
	_, store, e := newTestHandler(false)
	putSnapshot(store, "bitcoin", 2*time.Hour, time.Minute, models.SignalNeutral)

	rec := doGet(e, "/api/assets/bitcoin")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when stale serving is disabled", env.Status)
	}
}

func TestListAssetsSignalFilter(t *testing.T) {
	_, store, e := newTestHandler(true)
	putSnapshot(store, "bitcoin", 0, time.Hour, models.SignalOverbought)
	putSnapshot(store, "ethereum", 0, time.Hour, models.SignalNeutral)
	putSnapshot(store, "solana", 0, time.Hour, models.SignalOverbought)

	rec := doGet(e, "/api/assets?signal=overbought")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)

	var list struct {
		Rows  []json.RawMessage `json:"rows"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 2 {
		t.Errorf("total = %d, want 2 overbought assets", list.Total)
	}
}

func TestListAssetsLimit(t *testing.T) {
	_, store, e := newTestHandler(true)
	putSnapshot(store, "bitcoin", 0, time.Hour, models.SignalNeutral)
	putSnapshot(store, "ethereum", 0, time.Hour, models.SignalNeutral)
	putSnapshot(store, "solana", 0, time.Hour, models.SignalNeutral)

	rec := doGet(e, "/api/assets?limit=2")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)

	var list struct {
		Rows  []json.RawMessage `json:"rows"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(list.Rows))
	}
}

func TestListAssetsRejectsBadSignal(t *testing.T) {
	_, _, e := newTestHandler(true)
	rec := doGet(e, "/api/assets?signal=sideways")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid signal filter", env.Status)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, store, e := newTestHandler(true)
	putSnapshot(store, "bitcoin", 0, time.Hour, "")

	rec := doGet(e, "/api/stats")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)

	var data struct {
		Cache models.CacheStats `json:"cache"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Cache.Entries != 1 {
		t.Errorf("entries = %d, want 1", data.Cache.Entries)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, _, e := newTestHandler(true)
	rec := doGet(e, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var data struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Status != "ok" {
		t.Errorf("health status = %q", data.Status)
	}
}

func TestAltcoinSeasonEndpoint(t *testing.T) {
	_, store, e := newTestHandler(true)

	rec := doGet(e, "/api/altcoin-season")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before first fetch", env.Status)
	}

	store.PutAltcoinSeason(&models.AltcoinSeasonIndex{
		Value:              82,
		Classification:     "Altcoin Season",
		OutperformingCount: 41,
		TotalCount:         50,
		FetchedAt:          time.Now(),
		TTL:                time.Hour,
	})

	rec = doGet(e, "/api/altcoin-season")
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d after fetch", env.Status)
	}
	var data struct {
		Value          int    `json:"value"`
		Classification string `json:"classification"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Value != 82 || data.Classification != "Altcoin Season" {
		t.Errorf("unexpected index %+v", data)
	}
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	store := svccache.NewSnapshotStore()
	h := NewMarketEchoHandler(MarketEchoHandlerConfig{
		Store:      store,
		Scheduler:  usecase.NewScheduler(nil),
		ServeStale: true,
		Limiter:    ratelimit.New(),
		Burst:      1,
		PerSec:     0.001,
	})
	e := echo.New()
	h.RegisterRoutes(e)

	rec := doGet(e, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("first request code = %d", rec.Code)
	}

	rec = doGet(e, "/api/health")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 once the bucket is drained", env.Status)
	}
}

func TestSentimentEndpoint(t *testing.T) {
	_, store, e := newTestHandler(true)

	rec := doGet(e, "/api/sentiment")
	var env apiEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before first fetch", env.Status)
	}

	store.PutSentiment(&models.SentimentIndex{Value: 72, Classification: "Greed", FetchedAt: time.Now(), TTL: time.Hour})

	rec = doGet(e, "/api/sentiment")
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d after fetch", env.Status)
	}
	var data struct {
		Value int `json:"value"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Value != 72 {
		t.Errorf("value = %d, want 72", data.Value)
	}
}
