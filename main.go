package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"admissions_backend/internals/configs"
	database "admissions_backend/internals/databases"
	applicationService "admissions_backend/internals/features/admissions/applications/service"
	"admissions_backend/internals/features/admissions/offers/scheduler"
	offerService "admissions_backend/internals/features/admissions/offers/service"
	"admissions_backend/internals/features/admissions/payments/gateway"
	paymentService "admissions_backend/internals/features/admissions/payments/service"
	"admissions_backend/internals/features/admissions/registry"
	sessionService "admissions_backend/internals/features/admissions/sessions/service"
	helper "admissions_backend/internals/helpers"
	helperAuth "admissions_backend/internals/helpers/auth"
	middlewares "admissions_backend/internals/middlewares"
	routes "admissions_backend/internals/route"
)

func main() {
	configs.LoadEnv()
	cfg := configs.Load()

	logger, err := configs.NewLogger(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// request budget covers a full gateway round trip
	requestTimeout := cfg.GatewayTimeout + 10*time.Second

	app := fiber.New(fiber.Config{
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
		ErrorHandler:            helper.ErrorHandler(logger),
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// Request-ID + timeout guard
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})

	middlewares.SetupMiddlewares(app, cfg, logger)

	// DB connect + pool + migrations + warm-up
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.TunePool(db); err != nil {
		logger.Fatal("database pool setup failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	database.WarmUp(db, logger)

	gw, err := gateway.New(cfg)
	if err != nil {
		logger.Fatal("payment gateway init failed", zap.Error(err))
	}

	var locker paymentService.Locker = paymentService.NoopLocker{}
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, payment init lock will retry per request", zap.Error(err))
		}
		cancel()
		defer func() { _ = rdb.Close() }()
		locker = paymentService.NewRedisLocker(rdb)
	}

	reg := registry.New(db)
	sessions := sessionService.New(db, logger)
	applications := applicationService.New(db, logger, sessions, reg)
	offers := offerService.New(db, logger, cfg.OfferDeadlineDaysDefault)
	payments := paymentService.New(db, logger, gw, reg, locker, paymentService.Settings{
		Currency:       cfg.PaymentCurrency,
		CallbackURL:    cfg.PaymentCallbackURL,
		GatewayTimeout: cfg.GatewayTimeout,
		FormFeeDefault: cfg.FormFeeDefault,
		InitLockTTL:    cfg.InitLockTTL,
	})

	// scheduler after the DB is ready
	cron, err := scheduler.Start(scheduler.Config{Schedule: cfg.OfferExpiryCron}, offers, db, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}

	routes.SetupRoutes(app, routes.Deps{
		DB:           db,
		Log:          logger,
		JWTSecret:    cfg.JWTSecret,
		Blacklist:    helperAuth.Checker(db, cfg.JWTSecret),
		Sessions:     sessions,
		Applications: applications,
		Offers:       offers,
		Payments:     payments,
	})

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = requestTimeout + 5*time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		logger.Info("listening",
			zap.String("port", cfg.Port),
			zap.String("gateway", gw.Name()),
			zap.String("env", cfg.AppEnv))
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown: stop cron, drain HTTP, close the pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	<-cron.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
