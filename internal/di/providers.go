package di

import (
	"fmt"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	"CoinPulse/internal/handler/api"
	"CoinPulse/internal/handler/ws"
	internalrepo "CoinPulse/internal/repository"
	svccache "CoinPulse/internal/service/cache"
	"CoinPulse/internal/service/coingecko"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/service/sentiment"
	"CoinPulse/internal/services/indicator"
	"CoinPulse/internal/usecase"
	pkgcache "CoinPulse/pkg/cache"
	"CoinPulse/pkg/config"
	xhttp "CoinPulse/pkg/http"
	pkgkafka "CoinPulse/pkg/kafka"
	applogger "CoinPulse/pkg/logger"
	"CoinPulse/pkg/metrics"
	"CoinPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSnapshotStore creates the in-memory snapshot cache.
func ProvideSnapshotStore() repository.SnapshotStore {
	return svccache.NewSnapshotStore()
}

// ProvideMarketProvider creates the CoinGecko client used for both asset
// fetches and the global market overview.
func ProvideMarketProvider(cfg *config.Config, log *applogger.Logger) *coingecko.Client {
	cg := cfg.Provider.CoinGecko
	return coingecko.New(cg.BaseURL,
		coingecko.WithAPIKey(cg.APIKey),
		coingecko.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cg.Timeout))),
		coingecko.WithRequestInterval(cg.RequestInterval),
		coingecko.WithRetry(cg.MaxRetries, cg.BackoffMin, cg.BackoffMax),
		coingecko.WithSeasonSample(cfg.AltcoinSeason.SampleSize),
		coingecko.WithLogger(log),
	)
}

// ProvideSentimentProvider creates the fear-and-greed client, or nil
// when the sentiment cycle is disabled.
func ProvideSentimentProvider(cfg *config.Config) repository.SentimentProvider {
	if !cfg.Sentiment.Enabled {
		return nil
	}
	return sentiment.New(cfg.Sentiment.BaseURL,
		sentiment.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Sentiment.Timeout))),
	)
}

// ProvideIndicatorEngine creates the indicator engine from configured
// periods and thresholds.
func ProvideIndicatorEngine(cfg *config.Config) *indicator.Engine {
	return indicator.New(indicator.Config{
		RSIPeriod:           cfg.Indicators.RSIPeriod,
		BandPeriod:          cfg.Indicators.BollingerPeriod,
		BandStdDev:          cfg.Indicators.BollingerStdDev,
		OverboughtThreshold: cfg.Indicators.OverboughtThreshold,
		OversoldThreshold:   cfg.Indicators.OversoldThreshold,
	})
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSnapshotPublisher creates the Kafka event publisher, or nil
// when no producer exists.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideResponseCache creates the optional API response cache.
func ProvideResponseCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Response.Enabled {
		return nil, nil
	}

	if cfg.Cache.Response.Backend == "redis" {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Cache.Response.Redis.Host),
			pkgcache.WithRedisPort(cfg.Cache.Response.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Cache.Response.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Response.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("response cache: %w", err)
		}
		return pkgcache.NewLayeredCache(rc), nil
	}
	return pkgcache.NewMemoryCache(), nil
}

// ProvideHub creates the WebSocket hub, or nil when streaming is
// disabled.
func ProvideHub(cfg *config.Config, store repository.SnapshotStore, log *applogger.Logger) *ws.Hub {
	if !cfg.Stream.Enabled {
		return nil
	}
	return ws.NewHub(store, cfg.Stream.PushInterval, log)
}

// ProvideScheduler assembles all schedule entries: one fetch cycle per
// configured asset plus the optional sentiment and overview cycles.
func ProvideScheduler(
	cfg *config.Config,
	provider *coingecko.Client,
	sentimentProvider repository.SentimentProvider,
	engine *indicator.Engine,
	store repository.SnapshotStore,
	publisher repository.Publisher,
	hub *ws.Hub,
	rec repository.Metrics,
	log *applogger.Logger,
) *usecase.Scheduler {
	scheduler := usecase.NewScheduler(log)

	var notify func(*models.SnapshotEvent)
	if hub != nil {
		notify = hub.Notify
	}

	for _, asset := range cfg.Assets.IDs {
		cycle := usecase.NewAssetCycle(usecase.AssetCycleConfig{
			Asset:      asset,
			WindowDays: cfg.Assets.HistoryDays,
			TTL:        cfg.Cache.TTL,
			Provider:   provider,
			Engine:     engine,
			Store:      store,
			Publisher:  publisher,
			Notify:     notify,
			Metrics:    rec,
			Logger:     log,
		})
		scheduler.Add(cycle, cfg.Assets.FetchInterval)
	}

	if sentimentProvider != nil {
		scheduler.Add(
			usecase.NewSentimentCycle(sentimentProvider, store, 2*cfg.Sentiment.Interval, rec, log),
			cfg.Sentiment.Interval,
		)
	}

	if cfg.Overview.Enabled {
		scheduler.Add(
			usecase.NewOverviewCycle(provider, store, 2*cfg.Overview.Interval, rec, log),
			cfg.Overview.Interval,
		)
	}

	if cfg.AltcoinSeason.Enabled {
		scheduler.Add(
			usecase.NewAltcoinSeasonCycle(provider, store, 2*cfg.AltcoinSeason.Interval, rec, log),
			cfg.AltcoinSeason.Interval,
		)
	}

	return scheduler
}

// ProvideHandler creates the REST handler serving the snapshot cache.
func ProvideHandler(
	cfg *config.Config,
	store repository.SnapshotStore,
	scheduler *usecase.Scheduler,
	hub *ws.Hub,
	rec repository.Metrics,
	respCache pkgcache.Service,
	log *applogger.Logger,
) *api.MarketEchoHandler {
	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit.Enabled {
		limiter = ratelimit.New()
	}

	return api.NewMarketEchoHandler(api.MarketEchoHandlerConfig{
		Logger:     log,
		Store:      store,
		Scheduler:  scheduler,
		Hub:        hub,
		Metrics:    rec,
		RespCache:  respCache,
		RespTTL:    cfg.Cache.Response.TTL,
		ServeStale: *cfg.Cache.ServeStaleOnError,
		Limiter:    limiter,
		Burst:      cfg.Server.RateLimit.Burst,
		PerSec:     cfg.Server.RateLimit.PerSec,
	})
}

// ProvideHTTPServer creates the Echo server with routes registered.
func ProvideHTTPServer(cfg *config.Config, handler *api.MarketEchoHandler, log *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideApp creates the application. When Kafka is available, error
// logs are aggregated and flushed through the producer.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	scheduler *usecase.Scheduler,
	hub *ws.Hub,
	producer *pkgkafka.Producer,
	respCache pkgcache.Service,
	httpServer *xhttp.Server,
) *server.App {
	if producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      producer,
		})
	}

	return server.New(server.AppConfig{
		Config:     cfg,
		Logger:     log,
		Scheduler:  scheduler,
		Hub:        hub,
		Producer:   producer,
		RespCache:  respCache,
		HTTPServer: httpServer,
	})
}
