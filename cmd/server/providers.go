// File: cmd/server/providers.go
package main

import (
	"log"

	"prompthub_backend/internal/config"
	"prompthub_backend/internal/middleware"
	"prompthub_backend/internal/platform/database"
	"prompthub_backend/internal/platform/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

func provideDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { database.CloseGORMDB(db, l) }, nil
}

func provideRateLimiter(cfg *config.Config, l *zap.Logger) (*middleware.RateLimiter, func()) {
	rl := middleware.NewRateLimiter(cfg.RateLimitPerMinute, middleware.DefaultCleanupInterval, l)
	return rl, rl.Stop
}
