package route

import (
	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/payments/controller"
	"admissions_backend/internals/features/admissions/payments/service"
	"admissions_backend/internals/middlewares"
)

// PaymentUserRoutes mounts under the authenticated /api group.
func PaymentUserRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewPaymentController(svc)

	g := r.Group("/payments")
	g.Post("/initialize", middlewares.PaymentRateLimiter(), ctl.Initialize)
	g.Get("/verify", ctl.Verify)
	g.Post("/verify", ctl.Verify)
	g.Get("/", ctl.ListMine)
	g.Get("/:reference", ctl.Get)
}

// PaymentStaffRoutes mounts under /api/staff.
func PaymentStaffRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewPaymentController(svc)
	r.Get("/payments", ctl.List)
}

// PaymentWebhookRoutes is public; providers authenticate with a signature.
func PaymentWebhookRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewPaymentController(svc)
	r.Post("/webhooks/:provider", ctl.Webhook)
}
