package controller

import (
	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/applications/dto"
	"admissions_backend/internals/features/admissions/applications/service"
	helper "admissions_backend/internals/helpers"
	helperAuth "admissions_backend/internals/helpers/auth"
)

type ApplicationController struct {
	Svc *service.Service
}

func NewApplicationController(svc *service.Service) *ApplicationController {
	return &ApplicationController{Svc: svc}
}

// POST /applications
func (h *ApplicationController) Submit(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	var req dto.SubmitApplicationRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.Submit(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "application submitted", m)
}

// GET /applications
func (h *ApplicationController) ListMine(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := h.Svc.ListMine(c.UserContext(), actor, p.Offset, p.Limit)
	if err != nil {
		return err
	}
	return helper.JsonList(c, "my applications", rows, helper.BuildPagination(total, p, len(rows)))
}

// GET /applications/:id
func (h *ApplicationController) Get(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Svc.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "application", m)
}

// PUT /applications/:id
func (h *ApplicationController) Update(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateApplicationRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "application updated", m)
}

// DELETE /applications/:id
func (h *ApplicationController) Delete(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.UserContext(), actor, id); err != nil {
		return err
	}
	return helper.JsonDeleted(c, "application deleted", fiber.Map{"application_id": id})
}

// PATCH /applications/:id/status (staff)
func (h *ApplicationController) SetStatus(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.SetApplicationStatusRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.SetStatus(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "application status updated", m)
}

// GET /staff/applications
func (h *ApplicationController) List(c *fiber.Ctx) error {
	var q dto.ListApplicationsQuery
	if err := helper.ParseQuery(c, &q); err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 200)
	rows, total, err := h.Svc.List(c.UserContext(), q, p.Offset, p.Limit)
	if err != nil {
		return err
	}
	return helper.JsonList(c, "applications", rows, helper.BuildPagination(total, p, len(rows)))
}
