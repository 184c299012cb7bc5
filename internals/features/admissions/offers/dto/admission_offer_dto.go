package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"admissions_backend/internals/features/admissions/offers/model"
	"admissions_backend/internals/helpers/apperr"
	"admissions_backend/internals/helpers/validation"
)

type CreateAdmissionOfferRequest struct {
	ApplicationID       uuid.UUID       `json:"admission_offer_application_id" validate:"required"`
	DepartmentID        *uuid.UUID      `json:"admission_offer_department_id"`
	ProgramID           *uuid.UUID      `json:"admission_offer_program_id"`
	AcceptanceFeeAmount decimal.Decimal `json:"admission_offer_acceptance_fee_amount"`
	AcceptanceDeadline  *time.Time      `json:"admission_offer_acceptance_deadline"`
	DeadlineDays        int             `json:"deadline_days" validate:"omitempty,min=1,max=365"`
	Notes               *string         `json:"admission_offer_notes" validate:"omitempty,max=2000"`
}

func (r *CreateAdmissionOfferRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if !r.AcceptanceFeeAmount.IsPositive() {
		return apperr.Field("admission_offer_acceptance_fee_amount", "gt=0")
	}
	return nil
}

type UpdateAdmissionOfferRequest struct {
	AcceptanceFeeAmount *decimal.Decimal `json:"admission_offer_acceptance_fee_amount"`
	AcceptanceDeadline  *time.Time       `json:"admission_offer_acceptance_deadline"`
	Notes               *string          `json:"admission_offer_notes" validate:"omitempty,max=2000"`
}

func (r *UpdateAdmissionOfferRequest) Validate(now time.Time) error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.AcceptanceFeeAmount != nil && !r.AcceptanceFeeAmount.IsPositive() {
		return apperr.Field("admission_offer_acceptance_fee_amount", "gt=0")
	}
	if r.AcceptanceDeadline != nil && !r.AcceptanceDeadline.After(now) {
		return apperr.Field("admission_offer_acceptance_deadline", "must be in the future")
	}
	return nil
}

// Apply merges the patch into m and returns the changed columns.
func (r *UpdateAdmissionOfferRequest) Apply(m *model.AdmissionOfferModel) map[string]any {
	set := map[string]any{}
	if r.AcceptanceFeeAmount != nil {
		m.AdmissionOfferAcceptanceFeeAmount = *r.AcceptanceFeeAmount
		set["admission_offer_acceptance_fee_amount"] = *r.AcceptanceFeeAmount
	}
	if r.AcceptanceDeadline != nil {
		m.AdmissionOfferAcceptanceDeadline = r.AcceptanceDeadline.UTC()
		set["admission_offer_acceptance_deadline"] = m.AdmissionOfferAcceptanceDeadline
	}
	if r.Notes != nil {
		n := strings.TrimSpace(*r.Notes)
		m.AdmissionOfferNotes = &n
		set["admission_offer_notes"] = n
	}
	return set
}

type DeclineAdmissionOfferRequest struct {
	Reason *string `json:"admission_offer_decline_reason" validate:"omitempty,max=1000"`
}

func (r *DeclineAdmissionOfferRequest) Validate() error {
	return validation.Struct(r)
}

// BatchOfferRow is one line of a bulk offer upload. Empty fields fall back
// to the batch defaults; a row department overrides the batch department.
type BatchOfferRow struct {
	ApplicationNumber   string           `json:"application_number"`
	Email               string           `json:"email"`
	DepartmentID        *uuid.UUID       `json:"department_id"`
	AcceptanceFeeAmount *decimal.Decimal `json:"acceptance_fee_amount"`
	Notes               *string          `json:"notes"`
}

type BatchOfferRequest struct {
	SessionID           uuid.UUID       `json:"admission_session_id" validate:"required"`
	DepartmentID        uuid.UUID       `json:"department_id" validate:"required"`
	AcceptanceFeeAmount decimal.Decimal `json:"acceptance_fee_amount"`
	AcceptanceDeadline  *time.Time      `json:"acceptance_deadline"`
	DeadlineDays        int             `json:"deadline_days" validate:"omitempty,min=1,max=365"`
	Rows                []BatchOfferRow `json:"rows" validate:"required,min=1,max=2000"`
}

func (r *BatchOfferRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.AcceptanceFeeAmount.IsNegative() {
		return apperr.Field("acceptance_fee_amount", "min=0")
	}
	return nil
}

type BatchCreated struct {
	Row               int       `json:"row"`
	ApplicationNumber string    `json:"application_number"`
	OfferID           uuid.UUID `json:"admission_offer_id"`
}

type BatchIssue struct {
	Row               int    `json:"row"`
	ApplicationNumber string `json:"application_number,omitempty"`
	Message           string `json:"message"`
}

// BatchResult reports rows by their 1-based position in the upload.
type BatchResult struct {
	Created  []BatchCreated `json:"created"`
	Errors   []BatchIssue   `json:"errors"`
	Warnings []BatchIssue   `json:"warnings"`
}

type ListAdmissionOffersQuery struct {
	SessionID    string `query:"session_id" validate:"omitempty,uuid"`
	DepartmentID string `query:"department_id" validate:"omitempty,uuid"`
	Status       string `query:"status" validate:"omitempty,oneof=offered accepted declined expired"`
}

func (q *ListAdmissionOffersQuery) Validate() error {
	return validation.Struct(q)
}
