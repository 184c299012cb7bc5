package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	offerModel "admissions_backend/internals/features/admissions/offers/model"
	"admissions_backend/internals/features/admissions/payments/model"
	"admissions_backend/internals/helpers/apperr"
	"admissions_backend/internals/helpers/validation"
)

type InitializePaymentRequest struct {
	PaymentType   model.PaymentType `json:"payment_type" validate:"required,oneof=form_purchase admission_fee acceptance_fee"`
	ApplicationID *uuid.UUID        `json:"application_id"`
	OfferID       *uuid.UUID        `json:"admission_offer_id"`
	CallbackURL   string            `json:"callback_url" validate:"omitempty,url,max=500"`
}

func (r *InitializePaymentRequest) Validate() error {
	return validation.Struct(r)
}

// Target resolves the request into exactly one payment target.
func (r *InitializePaymentRequest) Target() (model.Target, error) {
	switch r.PaymentType {
	case model.TypeFormPurchase:
		if r.ApplicationID == nil || *r.ApplicationID == uuid.Nil {
			return nil, apperr.Field("application_id", "required")
		}
		return model.FormPurchase{ApplicationID: *r.ApplicationID}, nil
	case model.TypeAdmissionFee, model.TypeAcceptanceFee:
		if r.OfferID == nil || *r.OfferID == uuid.Nil {
			return nil, apperr.Field("admission_offer_id", "required")
		}
		return model.NewTarget(r.PaymentType, *r.OfferID)
	}
	return nil, apperr.Field("payment_type", "oneof=form_purchase admission_fee acceptance_fee")
}

type InitializePaymentResponse struct {
	AuthorizationURL string              `json:"authorization_url"`
	AccessCode       string              `json:"access_code,omitempty"`
	Reference        string              `json:"reference"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	Payment          *model.PaymentModel `json:"payment"`
}

// PaymentResponse carries the payment with the entity its settlement
// touched.
type PaymentResponse struct {
	Payment         *model.PaymentModel                `json:"payment"`
	Application     *applicationModel.ApplicationModel `json:"application,omitempty"`
	Offer           *offerModel.AdmissionOfferModel    `json:"admission_offer,omitempty"`
	AlreadyVerified bool                               `json:"already_verified"`
}

type WebhookResult struct {
	Reference string              `json:"reference"`
	Outcome   string              `json:"outcome"` // processed | duplicate | pending | failed | ignored
	Payment   *model.PaymentModel `json:"payment,omitempty"`
}

type ListPaymentsQuery struct {
	Status    string `query:"status" validate:"omitempty,oneof=pending successful failed"`
	Type      string `query:"payment_type" validate:"omitempty,oneof=form_purchase admission_fee acceptance_fee"`
	SessionID string `query:"session_id" validate:"omitempty,uuid"`
	PayerID   string `query:"payer_id" validate:"omitempty,uuid"`
	TargetID  string `query:"target_id" validate:"omitempty,uuid"`
}

func (q *ListPaymentsQuery) Validate() error {
	return validation.Struct(q)
}
