package route

import (
	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/sessions/controller"
	"admissions_backend/internals/features/admissions/sessions/service"
	middleware "admissions_backend/internals/middlewares/auth"
)

// AdmissionSessionRoutes mounts under the authenticated /api group. Only
// the active-session lookup is open to applicants.
func AdmissionSessionRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewAdmissionSessionController(svc)
	staff := middleware.RequireStaff()

	g := r.Group("/admission-sessions")
	g.Get("/active", ctl.Active)
	g.Get("/", staff, ctl.List)
	g.Post("/", staff, ctl.Create)
	g.Get("/:id", staff, ctl.Get)
	g.Put("/:id", staff, ctl.Update)
	g.Delete("/:id", staff, ctl.Delete)
	g.Post("/:id/activate", staff, ctl.Activate)
	g.Patch("/:id/status", staff, ctl.SetStatus)
}
