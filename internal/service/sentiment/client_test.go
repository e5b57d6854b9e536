package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fng/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":[{"value":"61","value_classification":"Greed","timestamp":"1700000000"}]}`)
	}))
	defer srv.Close()

	got, err := New(srv.URL).FetchSentiment(context.Background())
	if err != nil {
		t.Fatalf("FetchSentiment: %v", err)
	}
	if got.Value != 61 || got.Classification != "Greed" {
		t.Errorf("unexpected reading %+v", got)
	}
}

func TestFetchSentimentEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).FetchSentiment(context.Background()); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestFetchSentimentBadValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"value":"not-a-number","value_classification":"Fear"}]}`)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).FetchSentiment(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}
