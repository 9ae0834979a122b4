//go:build wireinject
// +build wireinject

package di

import (
	"StreetPull/pkg/config"
	"StreetPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Logging and metrics
		ProvideRunLog,
		ProvideLogger,
		ProvideMetrics,

		// Vendor client and pacing
		ProvideHeadlinesSource,
		ProvidePacer,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideArchive,
		ProvidePublisher,
		ProvideSeenStore,
		ProvideReportWriter,

		// Use cases
		ProvideRequests,
		ProvideFetcher,
		ProvideBatch,

		// HTTP API and application
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
