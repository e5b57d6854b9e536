package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func marketsBody(id string) string {
	return fmt.Sprintf(`[{"id":%q,"symbol":"btc","name":"Bitcoin","current_price":50000,"market_cap":1e12,"total_volume":3e10,"price_change_percentage_24h":2.5}]`, id)
}

const chartBody = `{"prices":[[1700000000000,48000],[1700086400000,49000],[1700172800000,50000]]}`

func testClient(url string) *Client {
	return New(url,
		WithRequestInterval(0),
		WithRetry(3, time.Millisecond, 5*time.Millisecond),
	)
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/coins/markets"):
			fmt.Fprint(w, marketsBody("bitcoin"))
		case strings.HasPrefix(r.URL.Path, "/coins/bitcoin/market_chart"):
			if r.URL.Query().Get("days") != "30" {
				t.Errorf("days = %q, want 30", r.URL.Query().Get("days"))
			}
			fmt.Fprint(w, chartBody)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	snap, history, err := testClient(srv.URL).Fetch(context.Background(), "bitcoin", 30)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.Price != 50000 || snap.Symbol != "btc" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(history) != 3 {
		t.Fatalf("history len = %d, want 3", len(history))
	}
	if !history[0].Timestamp.Before(history[2].Timestamp) {
		t.Error("history must be ordered oldest to newest")
	}
}

func TestFetchRetriesRateLimitThenSucceeds(t *testing.T) {
	var marketCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/coins/markets") {
			if marketCalls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, marketsBody("bitcoin"))
			return
		}
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).Fetch(context.Background(), "bitcoin", 30)
	if err != nil {
		t.Fatalf("expected success within retry budget, got %v", err)
	}
	if got := marketCalls.Load(); got != 3 {
		t.Errorf("market calls = %d, want 3", got)
	}
}

func TestFetchNotFoundNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).Fetch(context.Background(), "nope", 30)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Kind != KindNotFound {
		t.Errorf("kind = %v, want not_found", fe.Kind)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retry on NotFound)", got)
	}
}

func TestFetchEmptyMarketsIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).Fetch(context.Background(), "ghost", 30)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindNotFound {
		t.Errorf("expected not_found for empty markets row, got %v", err)
	}
}

func TestFetchExhaustsRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).Fetch(context.Background(), "bitcoin", 30)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Kind != KindProvider {
		t.Errorf("kind = %v, want provider_error", fe.Kind)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 retries)", got)
	}
}

func TestFetchTransientOnConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, _, err := testClient(srv.URL).Fetch(context.Background(), "bitcoin", 30)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindTransient {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestFetchRejectsNonPositiveWindow(t *testing.T) {
	_, _, err := New("http://unused").Fetch(context.Background(), "bitcoin", 0)
	if err == nil {
		t.Error("expected error for windowDays 0")
	}
}

func TestFetchOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/global" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":{"active_cryptocurrencies":9000,"markets":800,"total_market_cap":{"usd":2.3e12},"total_volume":{"usd":9.1e10},"market_cap_percentage":{"btc":52.3}}}`)
	}))
	defer srv.Close()

	ov, err := testClient(srv.URL).FetchOverview(context.Background())
	if err != nil {
		t.Fatalf("FetchOverview: %v", err)
	}
	if ov.BTCDominance != 52.3 || ov.ActiveAssets != 9000 {
		t.Errorf("unexpected overview %+v", ov)
	}
}

func TestFetchAltcoinSeason(t *testing.T) {
	// Bitcoin at +10% over the window; three of four altcoins beat it.
	const body = `[
		{"id":"bitcoin","symbol":"btc","price_change_percentage_90d_in_currency":10},
		{"id":"ethereum","symbol":"eth","price_change_percentage_90d_in_currency":25},
		{"id":"solana","symbol":"sol","price_change_percentage_90d_in_currency":40},
		{"id":"cardano","symbol":"ada","price_change_percentage_90d_in_currency":-5},
		{"id":"dogecoin","symbol":"doge","price_change_percentage_90d_in_currency":11}
	]`

	var gotPerPage, gotChange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPerPage = r.URL.Query().Get("per_page")
		gotChange = r.URL.Query().Get("price_change_percentage")
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRequestInterval(0), WithSeasonSample(4))
	index, err := c.FetchAltcoinSeason(context.Background())
	if err != nil {
		t.Fatalf("FetchAltcoinSeason: %v", err)
	}

	if gotPerPage != "5" {
		t.Errorf("per_page = %q, want sample size plus bitcoin", gotPerPage)
	}
	if gotChange != "90d" {
		t.Errorf("price_change_percentage = %q, want 90d", gotChange)
	}
	if index.OutperformingCount != 3 || index.TotalCount != 4 {
		t.Errorf("counts = %d/%d, want 3/4", index.OutperformingCount, index.TotalCount)
	}
	if index.Value != 75 {
		t.Errorf("value = %d, want 75", index.Value)
	}
	if index.Classification != "Altcoin Season" {
		t.Errorf("classification = %q", index.Classification)
	}
}

func TestFetchAltcoinSeasonWithoutBitcoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"ethereum","price_change_percentage_90d_in_currency":25}]`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchAltcoinSeason(context.Background())

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindProvider {
		t.Errorf("expected provider error when bitcoin is missing, got %v", err)
	}
}

func TestClassifySeasonBands(t *testing.T) {
	cases := []struct {
		value int
		want  string
	}{
		{0, "Bitcoin Season"},
		{25, "Bitcoin Season"},
		{26, "Neutral"},
		{74, "Neutral"},
		{75, "Altcoin Season"},
		{100, "Altcoin Season"},
	}
	for _, tc := range cases {
		if got := classifySeason(tc.value); got != tc.want {
			t.Errorf("classifySeason(%d) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestBackoffNeverExceedsMax(t *testing.T) {
	c := New("http://unused", WithRetry(8, 100*time.Millisecond, 300*time.Millisecond))

	for attempt := 1; attempt <= 8; attempt++ {
		for i := 0; i < 200; i++ {
			got := c.backoffFor(attempt)
			if got <= 0 {
				t.Fatalf("attempt %d: backoff %v not positive", attempt, got)
			}
			if got > 300*time.Millisecond {
				t.Fatalf("attempt %d: backoff %v exceeds configured maximum", attempt, got)
			}
		}
	}
}

func TestAPIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-cg-demo-api-key")
		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("secret"), WithRequestInterval(0))
	_, _ = c.FetchOverview(context.Background())

	if gotKey != "secret" {
		t.Errorf("api key header = %q, want secret", gotKey)
	}
}
