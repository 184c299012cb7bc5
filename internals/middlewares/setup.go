package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"admissions_backend/internals/configs"
	"admissions_backend/internals/middlewares/logger"
)

// SetupMiddlewares installs the global chain shared by every route.
func SetupMiddlewares(app *fiber.App, cfg configs.Config, log *zap.Logger) {
	app.Use(RecoveryMiddleware(!cfg.IsProduction()))
	app.Use(logger.LoggerMiddleware(log))
	app.Use(CorsMiddleware(cfg.CorsAllowOrigins))
	app.Use(GlobalRateLimiter())
}
