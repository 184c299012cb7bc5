package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	helperAuth "admissions_backend/internals/helpers/auth"
)

// Expirer is the part of the offer service the scheduler drives.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

type Config struct {
	Schedule string
	Timeout  time.Duration
}

// Start registers the housekeeping job and starts the cron. The job expires
// overdue offers and purges expired blacklisted tokens. Stop the returned
// cron on shutdown.
func Start(cfg Config, offers Expirer, db *gorm.DB, log *zap.Logger) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 15m"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	log = log.Named("offer-expiry")

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.Schedule, func() { RunOnce(cfg.Timeout, offers, db, log) }); err != nil {
		return nil, err
	}
	log.Info("scheduler started", zap.String("schedule", cfg.Schedule))
	c.Start()
	return c, nil
}

// RunOnce performs one housekeeping pass. Failures are logged; the next
// tick retries.
func RunOnce(timeout time.Duration, offers Expirer, db *gorm.DB, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1) offers past their acceptance deadline
	if n, err := offers.ExpireOverdue(ctx); err != nil {
		log.Error("expire offers failed", zap.Error(err))
	} else if n > 0 {
		log.Info("offers expired", zap.Int64("count", n))
	}

	// 2) blacklisted tokens that can no longer be presented
	if db == nil {
		return
	}
	if n, err := helperAuth.PurgeExpired(ctx, db, time.Now().UTC()); err != nil {
		log.Error("purge token blacklist failed", zap.Error(err))
	} else if n > 0 {
		log.Info("token blacklist purged", zap.Int64("count", n))
	}
}
