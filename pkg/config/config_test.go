package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
environment: test
server:
  port: 9090
assets:
  ids: [bitcoin, ethereum]
  fetch_interval: 1m
  history_days: 30
indicators:
  rsi_period: 14
  bollinger_period: 20
cache:
  ttl: 10m
  serve_stale_on_error: true
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTemp(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Assets.IDs) != 2 || cfg.Assets.IDs[0] != "bitcoin" {
		t.Errorf("unexpected assets %v", cfg.Assets.IDs)
	}
	if cfg.Assets.FetchInterval != time.Minute {
		t.Errorf("fetch_interval = %v, want 1m", cfg.Assets.FetchInterval)
	}
	if cfg.Cache.ServeStaleOnError == nil || !*cfg.Cache.ServeStaleOnError {
		t.Error("serve_stale_on_error should be true")
	}
}

func TestServeStaleDefault(t *testing.T) {
	cfg, err := Load(writeTemp(t, "environment: test\nassets:\n  ids: [bitcoin]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.ServeStaleOnError == nil || !*cfg.Cache.ServeStaleOnError {
		t.Error("serve_stale_on_error omitted: want default true")
	}

	cfg, err = Load(writeTemp(t, "environment: test\nassets:\n  ids: [bitcoin]\ncache:\n  serve_stale_on_error: false\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.ServeStaleOnError == nil || *cfg.Cache.ServeStaleOnError {
		t.Error("explicit false must survive defaulting")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, "environment: test\nassets:\n  ids: [bitcoin]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.CoinGecko.BaseURL == "" {
		t.Error("expected default provider base url")
	}
	if cfg.Indicators.RSIPeriod != 14 {
		t.Errorf("rsi_period = %d, want default 14", cfg.Indicators.RSIPeriod)
	}
	if cfg.Indicators.BollingerStdDev != 2.0 {
		t.Errorf("bollinger_std_dev = %v, want default 2.0", cfg.Indicators.BollingerStdDev)
	}
	if cfg.Cache.Response.Backend != "memory" {
		t.Errorf("response backend = %q, want memory", cfg.Cache.Response.Backend)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing environment", "assets:\n  ids: [bitcoin]\n"},
		{"no assets", "environment: test\n"},
		{"bad thresholds", "environment: test\nassets:\n  ids: [bitcoin]\nindicators:\n  overbought_threshold: 30\n  oversold_threshold: 70\n"},
		{"kafka without brokers", "environment: test\nassets:\n  ids: [bitcoin]\nkafka:\n  enabled: true\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, tc.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "cg-test-key")
	t.Setenv("ASSETS", "solana, cardano")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadWithEnv(writeTemp(t, testYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Provider.CoinGecko.APIKey != "cg-test-key" {
		t.Errorf("api key = %q", cfg.Provider.CoinGecko.APIKey)
	}
	if len(cfg.Assets.IDs) != 2 || cfg.Assets.IDs[1] != "cardano" {
		t.Errorf("assets = %v", cfg.Assets.IDs)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
}
