package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	applicationRoute "admissions_backend/internals/features/admissions/applications/route"
	applicationService "admissions_backend/internals/features/admissions/applications/service"
	offerRoute "admissions_backend/internals/features/admissions/offers/route"
	offerService "admissions_backend/internals/features/admissions/offers/service"
	paymentRoute "admissions_backend/internals/features/admissions/payments/route"
	paymentService "admissions_backend/internals/features/admissions/payments/service"
	sessionRoute "admissions_backend/internals/features/admissions/sessions/route"
	sessionService "admissions_backend/internals/features/admissions/sessions/service"
	middleware "admissions_backend/internals/middlewares/auth"
)

// Deps carries the wired services into the route tree.
type Deps struct {
	DB           *gorm.DB
	Log          *zap.Logger
	JWTSecret    string
	Blacklist    func(ctx context.Context, rawToken string) (bool, error)
	Sessions     *sessionService.Service
	Applications *applicationService.Service
	Offers       *offerService.Service
	Payments     *paymentService.Service
}

var startTime time.Time

func SetupRoutes(app *fiber.App, d Deps) {
	startTime = time.Now()
	log := d.Log.Named("routes")

	BaseRoutes(app, d.DB)

	api := app.Group("/api")

	// ===================== PUBLIC =====================
	// registered before the JWT group so the chain ends here
	log.Info("mounting webhook routes")
	paymentRoute.PaymentWebhookRoutes(api, d.Payments)

	// ===================== PRIVATE (JWT) =====================
	private := api.Group("",
		middleware.AuthJWT(middleware.AuthJWTOpts{
			Secret:              d.JWTSecret,
			BlacklistChecker:    d.Blacklist,
			AllowCookieFallback: true,
			Log:                 d.Log,
		}),
	)

	// ===================== STAFF =====================
	staff := private.Group("/staff", middleware.RequireStaff())

	log.Info("mounting admission routes")
	sessionRoute.AdmissionSessionRoutes(private, d.Sessions)

	applicationRoute.ApplicationUserRoutes(private, d.Applications)
	applicationRoute.ApplicationStaffRoutes(staff, d.Applications)

	offerRoute.AdmissionOfferUserRoutes(private, d.Offers)
	offerRoute.AdmissionOfferStaffRoutes(staff, d.Offers)

	paymentRoute.PaymentUserRoutes(private, d.Payments)
	paymentRoute.PaymentStaffRoutes(staff, d.Payments)
}
