package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"admissions_backend/internals/features/admissions/sessions/model"
	"admissions_backend/internals/helpers/apperr"
	"admissions_backend/internals/helpers/validation"
)

type CreateAdmissionSessionRequest struct {
	Name         string          `json:"admission_session_name" validate:"required,min=3,max=120"`
	Description  *string         `json:"admission_session_description" validate:"omitempty,max=2000"`
	StartDate    time.Time       `json:"admission_session_start_date" validate:"required"`
	EndDate      time.Time       `json:"admission_session_end_date" validate:"required,gtefield=StartDate"`
	FormPrice    decimal.Decimal `json:"admission_session_form_price"`
	AdmissionFee decimal.Decimal `json:"admission_session_admission_fee"`
	Activate     bool            `json:"activate"`
}

func (r *CreateAdmissionSessionRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if err := validation.Struct(r); err != nil {
		return err
	}
	return nonNegative(map[string]decimal.Decimal{
		"admission_session_form_price":    r.FormPrice,
		"admission_session_admission_fee": r.AdmissionFee,
	})
}

func (r *CreateAdmissionSessionRequest) ToModel() *model.AdmissionSessionModel {
	return &model.AdmissionSessionModel{
		AdmissionSessionName:         r.Name,
		AdmissionSessionDescription:  r.Description,
		AdmissionSessionStartDate:    r.StartDate.UTC(),
		AdmissionSessionEndDate:      r.EndDate.UTC(),
		AdmissionSessionFormPrice:    r.FormPrice,
		AdmissionSessionAdmissionFee: r.AdmissionFee,
		AdmissionSessionStatus:       model.SessionInactive,
	}
}

// UpdateAdmissionSessionRequest is a partial update; nil fields are kept.
type UpdateAdmissionSessionRequest struct {
	Name         *string          `json:"admission_session_name" validate:"omitempty,min=3,max=120"`
	Description  *string          `json:"admission_session_description" validate:"omitempty,max=2000"`
	StartDate    *time.Time       `json:"admission_session_start_date"`
	EndDate      *time.Time       `json:"admission_session_end_date"`
	FormPrice    *decimal.Decimal `json:"admission_session_form_price"`
	AdmissionFee *decimal.Decimal `json:"admission_session_admission_fee"`
}

func (r *UpdateAdmissionSessionRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	fees := map[string]decimal.Decimal{}
	if r.FormPrice != nil {
		fees["admission_session_form_price"] = *r.FormPrice
	}
	if r.AdmissionFee != nil {
		fees["admission_session_admission_fee"] = *r.AdmissionFee
	}
	return nonNegative(fees)
}

// Apply merges the patch into m and returns the changed columns.
func (r *UpdateAdmissionSessionRequest) Apply(m *model.AdmissionSessionModel) (map[string]any, error) {
	set := map[string]any{}
	if r.Name != nil {
		m.AdmissionSessionName = strings.TrimSpace(*r.Name)
		set["admission_session_name"] = m.AdmissionSessionName
	}
	if r.Description != nil {
		m.AdmissionSessionDescription = r.Description
		set["admission_session_description"] = *r.Description
	}
	if r.StartDate != nil {
		m.AdmissionSessionStartDate = r.StartDate.UTC()
		set["admission_session_start_date"] = m.AdmissionSessionStartDate
	}
	if r.EndDate != nil {
		m.AdmissionSessionEndDate = r.EndDate.UTC()
		set["admission_session_end_date"] = m.AdmissionSessionEndDate
	}
	if r.FormPrice != nil {
		m.AdmissionSessionFormPrice = *r.FormPrice
		set["admission_session_form_price"] = *r.FormPrice
	}
	if r.AdmissionFee != nil {
		m.AdmissionSessionAdmissionFee = *r.AdmissionFee
		set["admission_session_admission_fee"] = *r.AdmissionFee
	}
	if m.AdmissionSessionEndDate.Before(m.AdmissionSessionStartDate) {
		return nil, apperr.Field("admission_session_end_date", "gtefield=admission_session_start_date")
	}
	return set, nil
}

type SetAdmissionSessionStatusRequest struct {
	Status model.SessionStatus `json:"admission_session_status" validate:"required,oneof=inactive closed"`
}

func (r *SetAdmissionSessionStatusRequest) Validate() error {
	return validation.Struct(r)
}

type ListAdmissionSessionsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=active inactive closed"`
	Q      string `query:"q" validate:"omitempty,max=120"`
}

func (q *ListAdmissionSessionsQuery) Validate() error {
	return validation.Struct(q)
}

func nonNegative(fields map[string]decimal.Decimal) error {
	errs := map[string][]string{}
	for name, d := range fields {
		if d.IsNegative() {
			errs[name] = append(errs[name], "min=0")
		}
	}
	if len(errs) > 0 {
		return apperr.Validation(errs)
	}
	return nil
}
