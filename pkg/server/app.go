package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CoinPulse/internal/handler/ws"
	"CoinPulse/internal/usecase"
	pkgcache "CoinPulse/pkg/cache"
	"CoinPulse/pkg/config"
	xhttp "CoinPulse/pkg/http"
	pkgkafka "CoinPulse/pkg/kafka"
	applogger "CoinPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scheduler  *usecase.Scheduler
	hub        *ws.Hub
	producer   *pkgkafka.Producer
	respCache  pkgcache.Service
	httpServer *xhttp.Server
}

// AppConfig carries the assembled components. Optional fields are nil
// when the corresponding feature is disabled.
type AppConfig struct {
	Config     *config.Config
	Logger     *applogger.Logger
	Scheduler  *usecase.Scheduler
	Hub        *ws.Hub
	Producer   *pkgkafka.Producer
	RespCache  pkgcache.Service
	HTTPServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg AppConfig) *App {
	return &App{
		cfg:        cfg.Config,
		log:        cfg.Logger,
		scheduler:  cfg.Scheduler,
		hub:        cfg.Hub,
		producer:   cfg.Producer,
		respCache:  cfg.RespCache,
		httpServer: cfg.HTTPServer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stream hub first so the warm-up cycle's events reach subscribers.
	if a.hub != nil {
		go a.hub.Run(ctx)
		a.log.Info("stream hub started",
			applogger.Duration("push_interval", a.cfg.Stream.PushInterval))
	}

	a.scheduler.Start(ctx)
	a.log.Info("fetch cycles scheduled",
		applogger.Strings("assets", a.cfg.Assets.IDs),
		applogger.Duration("fetch_interval", a.cfg.Assets.FetchInterval))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(cancel)
}

// shutdown gracefully stops all services. Order matters: stop producing
// new work before closing the sinks it writes to.
func (a *App) shutdown(cancel context.CancelFunc) error {
	a.scheduler.Stop(a.cfg.Server.ShutdownTimeout)

	// Stops the hub loop and disconnects WebSocket clients.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.respCache != nil {
		if err := a.respCache.Close(); err != nil {
			a.log.Warn("response cache close error", applogger.Error(err))
		}
	}

	// Collector flushes its final batch through the producer, so it must
	// detach before the producer closes.
	a.log.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
