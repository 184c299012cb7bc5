package route

import (
	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/applications/controller"
	"admissions_backend/internals/features/admissions/applications/service"
	middleware "admissions_backend/internals/middlewares/auth"
)

// ApplicationUserRoutes mounts under the authenticated /api group.
func ApplicationUserRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewApplicationController(svc)

	g := r.Group("/applications")
	g.Post("/", ctl.Submit)
	g.Get("/", ctl.ListMine)
	g.Get("/:id", ctl.Get)
	g.Put("/:id", ctl.Update)
	g.Delete("/:id", ctl.Delete)
	g.Patch("/:id/status", middleware.RequireStaff(), ctl.SetStatus)
}

// ApplicationStaffRoutes mounts under /api/staff.
func ApplicationStaffRoutes(r fiber.Router, svc *service.Service) {
	ctl := controller.NewApplicationController(svc)
	r.Get("/applications", ctl.List)
}
