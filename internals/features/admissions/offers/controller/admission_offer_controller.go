package controller

import (
	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/offers/dto"
	"admissions_backend/internals/features/admissions/offers/service"
	helper "admissions_backend/internals/helpers"
	helperAuth "admissions_backend/internals/helpers/auth"
)

type AdmissionOfferController struct {
	Svc *service.Service
}

func NewAdmissionOfferController(svc *service.Service) *AdmissionOfferController {
	return &AdmissionOfferController{Svc: svc}
}

/* =======================================================================
   Applicant
======================================================================= */

// GET /admission-offers
func (h *AdmissionOfferController) ListMine(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := h.Svc.ListMine(c.UserContext(), actor, p.Offset, p.Limit)
	if err != nil {
		return err
	}
	return helper.JsonList(c, "my admission offers", rows, helper.BuildPagination(total, p, len(rows)))
}

// GET /admission-offers/:id
func (h *AdmissionOfferController) Get(c *fiber.Ctx) error {
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
	return helper.JsonOK(c, "admission offer", m)
}

// POST /admission-offers/:id/accept
func (h *AdmissionOfferController) Accept(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Svc.Accept(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "admission offer accepted", m)
}

// POST /admission-offers/:id/decline
func (h *AdmissionOfferController) Decline(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.DeclineAdmissionOfferRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.Decline(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "admission offer declined", m)
}

/* =======================================================================
   Staff
======================================================================= */

// POST /admission-offers
func (h *AdmissionOfferController) Create(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	var req dto.CreateAdmissionOfferRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "admission offer created", m)
}

// PATCH /admission-offers/:id
func (h *AdmissionOfferController) Update(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateAdmissionOfferRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return helper.JsonUpdated(c, "admission offer updated", m)
}

// POST /admission-offers/batch
func (h *AdmissionOfferController) Batch(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	var req dto.BatchOfferRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	res, err := h.Svc.Ingest(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "batch processed", res)
}

// POST /admission-offers/expire
func (h *AdmissionOfferController) Expire(c *fiber.Ctx) error {
	n, err := h.Svc.ExpireOverdue(c.UserContext())
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "overdue offers expired", fiber.Map{"expired": n})
}

// GET /staff/admission-offers
func (h *AdmissionOfferController) List(c *fiber.Ctx) error {
	var q dto.ListAdmissionOffersQuery
	if err := helper.ParseQuery(c, &q); err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 200)
	rows, total, err := h.Svc.List(c.UserContext(), q, p.Offset, p.Limit)
	if err != nil {
		return err
	}
	return helper.JsonList(c, "admission offers", rows, helper.BuildPagination(total, p, len(rows)))
}
