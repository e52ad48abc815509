//go:build wireinject
// +build wireinject

package di

import (
	"PairDesk/pkg/config"
	"PairDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,
		ProvideFinnhubStream,
		ProvideYahooClient,

		// Repositories
		ProvidePriceStore,
		ProvideSignalPublisher,
		ProvidePriceProvider,

		// Use cases
		ProvidePairAnalyzer,
		ProvideTradeSimulation,
		ProvideSignalPipeline,
		ProvideSignalWatcher,

		// Transport
		ProvidePairsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
