package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"CoinPulse/internal/domain/models"
	xhttp "CoinPulse/pkg/http"
)

// Option configures Client.
type Option func(*Client)

// Client fetches the market fear/greed index.
type Client struct {
	http    *xhttp.Client
	baseURL string
}

// New creates a sentiment index client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    xhttp.NewClient(),
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

type fngResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
}

// FetchSentiment retrieves the latest fear/greed reading.
func (c *Client) FetchSentiment(ctx context.Context) (*models.SentimentIndex, error) {
	var resp fngResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/fng/",
		QueryParams: map[string][]string{
			"limit": {"1"},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch sentiment: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("fetch sentiment: empty response")
	}

	value, err := strconv.Atoi(resp.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("fetch sentiment: parse value %q: %w", resp.Data[0].Value, err)
	}

	return &models.SentimentIndex{
		Value:          value,
		Classification: resp.Data[0].ValueClassification,
		FetchedAt:      time.Now(),
	}, nil
}
