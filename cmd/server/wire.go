// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"prompthub_backend/internal/app"
	"prompthub_backend/internal/clerk"
	"prompthub_backend/internal/config"
	"prompthub_backend/internal/jobs"
	"prompthub_backend/internal/metrics"
	"prompthub_backend/internal/prompt"
	"prompthub_backend/internal/user"
	"prompthub_backend/internal/webhook"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDatabase,

		// Metrics
		metrics.NewRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		metrics.NewCollector,
		wire.Bind(new(metrics.Recorder), new(*metrics.Collector)),

		// Identity
		clerk.NewSessionVerifier,
		wire.Bind(new(clerk.SessionVerifier), new(*clerk.Verifier)),
		user.NewGORMRepository,

		// Webhook
		webhook.NewVerifier,
		webhook.NewSyncService,
		webhook.NewHandler,

		// Prompts
		prompt.NewGORMRepository,
		prompt.NewService,
		wire.Bind(new(prompt.Service), new(*prompt.ServiceImplementation)),
		prompt.NewHandler,

		// Background work
		provideRateLimiter,
		jobs.NewTestUserCleanupJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
