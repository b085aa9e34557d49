//go:build wireinject
// +build wireinject

package di

import (
	"ChartMarks/pkg/config"
	"ChartMarks/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideInstanceID,

		// Caches
		ProvideLevelsCache,
		ProvideOverlaysCache,

		// Kafka fan-out and fan-in
		ProvideEventPublisher,
		ProvideKafkaAnnotationsHandler,
		ProvideKafkaConsumer,

		// Analysis pipeline
		ProvideClickHouseClient,
		ProvideAnalysisJob,
		ProvideRedisQueue,
		ProvideJobEnqueuer,
		ProvideRateLimiter,

		// Use cases and transport
		ProvideAnnotationsUseCase,
		ProvideHTTPHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
