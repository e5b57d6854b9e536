//go:build wireinject
// +build wireinject

package di

import (
	"CoinPulse/pkg/config"
	"CoinPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Data sources
		ProvideMarketProvider,
		ProvideSentimentProvider,
		ProvideIndicatorEngine,

		// Storage and transport
		ProvideSnapshotStore,
		ProvideKafkaProducer,
		ProvideSnapshotPublisher,
		ProvideResponseCache,

		// Scheduled work and read surface
		ProvideHub,
		ProvideScheduler,
		ProvideHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
