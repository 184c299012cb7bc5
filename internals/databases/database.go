package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"admissions_backend/internals/configs"
)

// Connect opens the PostgreSQL pool.
func Connect(cfg configs.Config, log *zap.Logger) (*gorm.DB, error) {
	log.Info("connecting to PostgreSQL")

	level := gormLogger.Warn
	if !cfg.IsProduction() {
		level = gormLogger.Info
	}

	// PreferSimpleProtocol keeps us compatible with PgBouncer transaction pooling
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseURL,
		PreferSimpleProtocol: true,
	}), Config(configs.NewGormLogger(log, level)))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	log.Info("database connected")
	return db, nil
}

// Config is the gorm configuration shared by the server, the CLI and tests.
func Config(l gormLogger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:         l,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func TunePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	return nil
}

// WarmUp pings the pool in the background so the first request does not
// pay for the TCP and TLS handshake.
func WarmUp(db *gorm.DB, log *zap.Logger) {
	go func() {
		time.Sleep(500 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := Ping(ctx, db); err != nil {
			log.Warn("warm-up ping failed", zap.Error(err))
		}
	}()
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
