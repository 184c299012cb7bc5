package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"admissions_backend/internals/features/admissions/payments/dto"
	"admissions_backend/internals/features/admissions/payments/service"
	helper "admissions_backend/internals/helpers"
	"admissions_backend/internals/helpers/apperr"
	helperAuth "admissions_backend/internals/helpers/auth"
)

type PaymentController struct {
	Svc *service.Service
}

func NewPaymentController(svc *service.Service) *PaymentController {
	return &PaymentController{Svc: svc}
}

// POST /payments/initialize
func (h *PaymentController) Initialize(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	var req dto.InitializePaymentRequest
	if err := helper.ParseBody(c, &req); err != nil {
		return err
	}
	res, err := h.Svc.Initialize(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "payment initialized", res)
}

// GET /payments/verify?reference=... or POST /payments/verify {"reference": ...}
func (h *PaymentController) Verify(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	ref := strings.TrimSpace(c.Query("reference"))
	if ref == "" && c.Method() == fiber.MethodPost {
		var body struct {
			Reference string `json:"reference"`
		}
		if err := helper.ParseBody(c, &body); err != nil {
			return err
		}
		ref = strings.TrimSpace(body.Reference)
	}
	if ref == "" {
		return apperr.Field("reference", "required")
	}
	res, err := h.Svc.Verify(c.UserContext(), actor, ref)
	if err != nil {
		return err
	}
	msg := "payment verified"
	if res.AlreadyVerified {
		msg = "payment already verified"
	}
	return helper.JsonOK(c, msg, res)
}

// GET /payments
func (h *PaymentController) ListMine(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := h.Svc.ListMine(c.UserContext(), actor, p.Offset, p.Limit)
	if err != nil {
		return err
	}
	return helper.JsonList(c, "my payments", rows, helper.BuildPagination(total, p, len(rows)))
}

// GET /payments/:reference
func (h *PaymentController) Get(c *fiber.Ctx) error {
	actor, err := helperAuth.ActorFromCtx(c)
	if err != nil {
		return err
	}
	res, err := h.Svc.Get(c.UserContext(), actor, strings.TrimSpace(c.Params("reference")))
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "payment", res)
}

// GET /staff/payments
func (h *PaymentController) List(c *fiber.Ctx) error {
	var q dto.ListPaymentsQuery
	if err := helper.ParseQuery(c, &q); err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 200)
	rows, total, err := h.Svc.List(c.UserContext(), q, p.Offset, p.Limit)
	if err != nil {
		return err
	}
	return helper.JsonList(c, "payments", rows, helper.BuildPagination(total, p, len(rows)))
}

// POST /webhooks/:provider
func (h *PaymentController) Webhook(c *fiber.Ctx) error {
	header := func(key string) string { return c.Get(key) }
	res, err := h.Svc.HandleWebhook(c.UserContext(), strings.ToLower(c.Params("provider")), header, c.Body())
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "webhook "+res.Outcome, res)
}
