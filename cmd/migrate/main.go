// File: cmd/migrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"prompthub_backend/internal/config"
	"prompthub_backend/internal/platform/database"
	"prompthub_backend/internal/platform/logger"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"
)

func main() {
	steps := flag.Int("steps", 0, "number of migrations to roll back with 'down' (0 = all)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	cmd := flag.Arg(0)
	if cmd == "up" {
		if err := database.RunMigrations(cfg.DBSource); err != nil {
			appLogger.Fatal("Migration failed", zap.String("command", cmd), zap.Error(err))
		}
		appLogger.Info("Migrations complete", zap.String("command", cmd))
		return
	}

	m, err := database.NewMigrator(cfg.DBSource)
	if err != nil {
		appLogger.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch cmd {
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			appLogger.Info("No migrations applied yet")
			return
		}
		if verr != nil {
			appLogger.Fatal("Failed to read migration version", zap.Error(verr))
		}
		appLogger.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		appLogger.Fatal("Migration failed", zap.String("command", cmd), zap.Error(err))
	}
	appLogger.Info("Migrations complete", zap.String("command", cmd))
}
