//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinCast/internal/usecase"
	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

var forecastSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideModels,
	ProvideTrainingScale,
	ProvideForecaster,
	ProvideForecastUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		forecastSet,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,

		// Repositories
		ProvideLedgerStore,
		ProvideEventPublisher,
		ProvideKafkaConsumer,

		// Transport
		ProvideForecastHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeOffline wires the forecast use case without any infrastructure.
func InitializeOffline(cfg *config.Config) (*usecase.ForecastUseCase, func(), error) {
	wire.Build(
		forecastSet,
		ProvideNoLedger,
		ProvideNoEvents,
	)
	return nil, nil, nil
}
