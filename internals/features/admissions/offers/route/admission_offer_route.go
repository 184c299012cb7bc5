package route

import (
	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/offers/controller"
	"admissions_backend/internals/features/admissions/offers/service"
	middleware "admissions_backend/internals/middlewares/auth"
)

// AdmissionOfferUserRoutes mounts under the authenticated /api group. The
// staff endpoints share the /admission-offers prefix and carry their own
// guard.
func AdmissionOfferUserRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewAdmissionOfferController(svc)
	staff := middleware.RequireStaff()

	g := r.Group("/admission-offers")
	g.Get("/", ctl.ListMine)
	g.Post("/", staff, ctl.Create)
	g.Post("/batch", staff, ctl.Batch)
	g.Post("/expire", staff, ctl.Expire)
	g.Get("/:id", ctl.Get)
	g.Patch("/:id", staff, ctl.Update)
	g.Post("/:id/accept", ctl.Accept)
	g.Post("/:id/decline", ctl.Decline)
}

// AdmissionOfferStaffRoutes mounts under /api/staff.
func AdmissionOfferStaffRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewAdmissionOfferController(svc)
	r.Get("/admission-offers", ctl.List)
}
