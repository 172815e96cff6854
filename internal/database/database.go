// Package database opens the GORM object store and keeps its schema current.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Kilat-Pet-Delivery/service-album/internal/config"
	"github.com/Kilat-Pet-Delivery/service-album/internal/logger"
	"github.com/Kilat-Pet-Delivery/service-album/internal/repository"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the configured store. SQLite is limited to a single open connection so
// that writers never race on the file lock.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.NewGormAdapter(log, cfg.SlowQueryThreshold),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path + "?_foreign_keys=on&_busy_timeout=5000")
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connected",
		zap.String("driver", cfg.Driver),
		zap.String("target", target(cfg)),
	)
	return db, nil
}

// AutoMigrate creates or updates the service tables from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(repository.AllModels()...); err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return nil
}

// RunMigrations applies the SQL migrations found in dir to a PostgreSQL database.
func RunMigrations(databaseURL, dir string, log *zap.Logger) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialise migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn("failed to close migration runner", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.Info("database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Prepare brings the schema up to date: auto-migration for SQLite and development,
// versioned SQL migrations for PostgreSQL elsewhere.
func Prepare(db *gorm.DB, cfg config.DatabaseConfig, appEnv string, log *zap.Logger) error {
	if cfg.Driver == "sqlite" || appEnv == "development" {
		if err := AutoMigrate(db); err != nil {
			return err
		}
		log.Info("database migration completed (auto-migrate)")
		return nil
	}
	return RunMigrations(cfg.DatabaseURL(), cfg.MigrationsPath, log)
}

func target(cfg config.DatabaseConfig) string {
	if cfg.Driver == "sqlite" {
		return cfg.Path
	}
	return cfg.Host + ":" + cfg.Port + "/" + cfg.DBName
}
