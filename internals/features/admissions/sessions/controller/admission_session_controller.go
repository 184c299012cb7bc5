package controller

import (
	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/sessions/dto"
	"admissions_backend/internals/features/admissions/sessions/service"
	helper "admissions_backend/internals/helpers"
)

type AdmissionSessionController struct {
	Svc *service.Service
}

func NewAdmissionSessionController(svc *service.Service) *AdmissionSessionController {
	return &AdmissionSessionController{Svc: svc}
}

// GET /admission-sessions/active
func (h *AdmissionSessionController) Active(c *fiber.Ctx) error {
	m, err := h.Svc.Active(c.UserContext())
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "active admission session", m)
}

// GET /admission-sessions
func (h *AdmissionSessionController) List(c *fiber.Ctx) error {
	var q dto.ListAdmissionSessionsQuery
	if err := helper.ParseQuery(c, &q); err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := h.Svc.List(c.UserContext(), q, p.Offset, p.Limit)
	if err != nil {
		return err
	}
	return helper.JsonList(c, "admission sessions", rows, helper.BuildPagination(total, p, len(rows)))
}

// GET /admission-sessions/:id
func (h *AdmissionSessionController) Get(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Svc.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "admission session", m)
}

// POST /admission-sessions
func (h *AdmissionSessionController) Create(c *fiber.Ctx) error {
	var req dto.CreateAdmissionSessionRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "admission session created", m)
}

// PUT /admission-sessions/:id
func (h *AdmissionSessionController) Update(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateAdmissionSessionRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "admission session updated", m)
}

// POST /admission-sessions/:id/activate
func (h *AdmissionSessionController) Activate(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Svc.Activate(c.UserContext(), id)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "admission session activated", m)
}

// PATCH /admission-sessions/:id/status
func (h *AdmissionSessionController) SetStatus(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.SetAdmissionSessionStatusRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.SetStatus(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "admission session status updated", m)
}

// DELETE /admission-sessions/:id
func (h *AdmissionSessionController) Delete(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return helper.JsonDeleted(c, "admission session deleted", fiber.Map{"admission_session_id": id})
}
