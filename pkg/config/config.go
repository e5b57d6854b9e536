package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"CoinPulse/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled"`
			Burst   float64 `yaml:"burst"`
			PerSec  float64 `yaml:"per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Provider struct {
		CoinGecko struct {
			BaseURL         string        `yaml:"base_url"`
			APIKey          string        `yaml:"api_key"`
			RequestInterval time.Duration `yaml:"request_interval"`
			Timeout         time.Duration `yaml:"timeout"`
			MaxRetries      int           `yaml:"max_retries"`
			BackoffMin      time.Duration `yaml:"backoff_min"`
			BackoffMax      time.Duration `yaml:"backoff_max"`
		} `yaml:"coingecko"`
	} `yaml:"provider"`
	Assets struct {
		IDs           []string      `yaml:"ids"`
		FetchInterval time.Duration `yaml:"fetch_interval"`
		HistoryDays   int           `yaml:"history_days"`
	} `yaml:"assets"`
	Indicators struct {
		RSIPeriod           int     `yaml:"rsi_period"`
		BollingerPeriod     int     `yaml:"bollinger_period"`
		BollingerStdDev     float64 `yaml:"bollinger_std_dev"`
		OverboughtThreshold float64 `yaml:"overbought_threshold"`
		OversoldThreshold   float64 `yaml:"oversold_threshold"`
	} `yaml:"indicators"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
		// Pointer so an omitted key defaults to true.
		ServeStaleOnError *bool `yaml:"serve_stale_on_error"`
		Response          struct {
			Enabled bool          `yaml:"enabled"`
			Backend string        `yaml:"backend"` // memory or redis
			TTL     time.Duration `yaml:"ttl"`
			Redis   struct {
				Host     string `yaml:"host"`
				Port     int    `yaml:"port"`
				Password string `yaml:"password"`
				DB       int    `yaml:"db"`
			} `yaml:"redis"`
		} `yaml:"response"`
	} `yaml:"cache"`
	Sentiment struct {
		Enabled  bool          `yaml:"enabled"`
		BaseURL  string        `yaml:"base_url"`
		Interval time.Duration `yaml:"interval"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"sentiment"`
	Overview struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"overview"`
	AltcoinSeason struct {
		Enabled    bool          `yaml:"enabled"`
		Interval   time.Duration `yaml:"interval"`
		SampleSize int           `yaml:"sample_size"`
	} `yaml:"altcoin_season"`
	Stream struct {
		Enabled      bool          `yaml:"enabled"`
		PushInterval time.Duration `yaml:"push_interval"`
	} `yaml:"stream"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.Provider.CoinGecko.APIKey = v
	}
	if v := os.Getenv("ASSETS"); v != "" {
		c.Assets.IDs = util.SplitCSV(v)
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Provider.CoinGecko.BaseURL == "" {
		c.Provider.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Provider.CoinGecko.RequestInterval == 0 {
		c.Provider.CoinGecko.RequestInterval = time.Second
	}
	if c.Provider.CoinGecko.Timeout == 0 {
		c.Provider.CoinGecko.Timeout = 30 * time.Second
	}
	if c.Provider.CoinGecko.MaxRetries == 0 {
		c.Provider.CoinGecko.MaxRetries = 3
	}
	if c.Provider.CoinGecko.BackoffMin == 0 {
		c.Provider.CoinGecko.BackoffMin = 500 * time.Millisecond
	}
	if c.Provider.CoinGecko.BackoffMax == 0 {
		c.Provider.CoinGecko.BackoffMax = 10 * time.Second
	}
	if c.Assets.FetchInterval == 0 {
		c.Assets.FetchInterval = 5 * time.Minute
	}
	if c.Assets.HistoryDays == 0 {
		c.Assets.HistoryDays = 30
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.BollingerPeriod == 0 {
		c.Indicators.BollingerPeriod = 20
	}
	if c.Indicators.BollingerStdDev == 0 {
		c.Indicators.BollingerStdDev = 2.0
	}
	if c.Indicators.OverboughtThreshold == 0 {
		c.Indicators.OverboughtThreshold = 70
	}
	if c.Indicators.OversoldThreshold == 0 {
		c.Indicators.OversoldThreshold = 30
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 20
	}
	if c.Server.RateLimit.PerSec == 0 {
		c.Server.RateLimit.PerSec = 10
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 15 * time.Minute
	}
	if c.Cache.ServeStaleOnError == nil {
		serveStale := true
		c.Cache.ServeStaleOnError = &serveStale
	}
	if c.Cache.Response.TTL == 0 {
		c.Cache.Response.TTL = 5 * time.Second
	}
	if c.Cache.Response.Backend == "" {
		c.Cache.Response.Backend = "memory"
	}
	if c.Sentiment.Interval == 0 {
		c.Sentiment.Interval = time.Hour
	}
	if c.Sentiment.Timeout == 0 {
		c.Sentiment.Timeout = 30 * time.Second
	}
	if c.Sentiment.BaseURL == "" {
		c.Sentiment.BaseURL = "https://api.alternative.me"
	}
	if c.Overview.Interval == 0 {
		c.Overview.Interval = 15 * time.Minute
	}
	if c.AltcoinSeason.Interval == 0 {
		c.AltcoinSeason.Interval = time.Hour
	}
	if c.AltcoinSeason.SampleSize == 0 {
		c.AltcoinSeason.SampleSize = 50
	}
	if c.Stream.PushInterval == 0 {
		c.Stream.PushInterval = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Assets.IDs) == 0 {
		return fmt.Errorf("assets.ids cannot be empty")
	}
	if c.Assets.HistoryDays <= 0 {
		return fmt.Errorf("assets.history_days must be positive")
	}
	if c.Indicators.RSIPeriod < 2 {
		return fmt.Errorf("indicators.rsi_period must be at least 2")
	}
	if c.Indicators.BollingerPeriod < 2 {
		return fmt.Errorf("indicators.bollinger_period must be at least 2")
	}
	if c.Indicators.BollingerStdDev <= 0 {
		return fmt.Errorf("indicators.bollinger_std_dev must be positive")
	}
	if c.Indicators.OversoldThreshold >= c.Indicators.OverboughtThreshold {
		return fmt.Errorf("indicators.oversold_threshold must be below overbought_threshold")
	}
	if c.AltcoinSeason.Enabled && c.AltcoinSeason.SampleSize < 2 {
		return fmt.Errorf("altcoin_season.sample_size must be at least 2")
	}
	if c.Cache.Response.Backend != "memory" && c.Cache.Response.Backend != "redis" {
		return fmt.Errorf("cache.response.backend must be 'memory' or 'redis', got '%s'", c.Cache.Response.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka is enabled")
	}
	return nil
}
