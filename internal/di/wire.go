//go:build wireinject
// +build wireinject

package di

import (
	"ChochScan/pkg/config"
	"ChochScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Exchange
		ProvideBinanceClient,
		ProvideCandleSource,
		ProvideSymbolUniverse,

		// Engine
		ProvideDetector,
		ProvideScheduler,

		// Sinks
		ProvideAlertStore,
		ProvideKafkaProducer,
		ProvideSignalPublisher,
		ProvideClickHouseClient,
		ProvideSignalArchive,
		ProvideKafkaConsumer,
		ProvideSignalsHandler,
		ProvideRedisCache,
		ProvideWindowCache,
		ProvideQueue,
		ProvideNotifier,
		ProvideLiveHub,
		ProvideSubscribers,

		// Use cases
		ProvideSignalRouter,
		ProvidePipeline,
		ProvideScanner,
		ProvideAlertsUseCase,

		// Dashboard
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
