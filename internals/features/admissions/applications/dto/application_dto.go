package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"admissions_backend/internals/features/admissions/applications/model"
	"admissions_backend/internals/features/admissions/registry"
	"admissions_backend/internals/helpers/validation"
)

type SubmitApplicationRequest struct {
	// SessionID defaults to the active session.
	SessionID    *uuid.UUID `json:"application_session_id"`
	ProgramID    uuid.UUID  `json:"application_program_id" validate:"required"`
	DepartmentID *uuid.UUID `json:"application_department_id"`

	FirstName             string         `json:"application_first_name" validate:"required,max=80"`
	LastName              string         `json:"application_last_name" validate:"required,max=80"`
	OtherNames            *string        `json:"application_other_names" validate:"omitempty,max=120"`
	Email                 string         `json:"application_email" validate:"required,email,max=160"`
	Phone                 *string        `json:"application_phone" validate:"omitempty,max=32"`
	DateOfBirth           *time.Time     `json:"application_date_of_birth"`
	Gender                *string        `json:"application_gender" validate:"omitempty,oneof=male female other"`
	Address               *string        `json:"application_address" validate:"omitempty,max=500"`
	PreviousSchool        *string        `json:"application_previous_school" validate:"omitempty,max=160"`
	PreviousQualification *string        `json:"application_previous_qualification" validate:"omitempty,max=160"`
	Extra                 map[string]any `json:"application_extra"`
}

func (r *SubmitApplicationRequest) Normalize(fallbackEmail string) {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		r.Email = strings.ToLower(strings.TrimSpace(fallbackEmail))
	}
}

func (r *SubmitApplicationRequest) Validate() error {
	return validation.Struct(r)
}

func (r *SubmitApplicationRequest) ToModel(applicantID, sessionID uuid.UUID, program *registry.Program, now time.Time) *model.ApplicationModel {
	m := &model.ApplicationModel{
		ApplicationApplicantID:           applicantID,
		ApplicationSessionID:             sessionID,
		ApplicationDepartmentID:          program.DepartmentID,
		ApplicationProgramID:             program.ID,
		ApplicationStatus:                model.StatusSubmitted,
		ApplicationFirstName:             r.FirstName,
		ApplicationLastName:              r.LastName,
		ApplicationOtherNames:            r.OtherNames,
		ApplicationEmail:                 r.Email,
		ApplicationPhone:                 r.Phone,
		ApplicationDateOfBirth:           r.DateOfBirth,
		ApplicationGender:                r.Gender,
		ApplicationAddress:               r.Address,
		ApplicationPreviousSchool:        r.PreviousSchool,
		ApplicationPreviousQualification: r.PreviousQualification,
		ApplicationSubmittedAt:           now,
	}
	if len(r.Extra) > 0 {
		m.ApplicationExtra = datatypes.JSONMap(r.Extra)
	}
	return m
}

// UpdateApplicationRequest is a partial update of the applicant data.
type UpdateApplicationRequest struct {
	ProgramID *uuid.UUID `json:"application_program_id"`

	FirstName             *string        `json:"application_first_name" validate:"omitempty,min=1,max=80"`
	LastName              *string        `json:"application_last_name" validate:"omitempty,min=1,max=80"`
	OtherNames            *string        `json:"application_other_names" validate:"omitempty,max=120"`
	Email                 *string        `json:"application_email" validate:"omitempty,email,max=160"`
	Phone                 *string        `json:"application_phone" validate:"omitempty,max=32"`
	DateOfBirth           *time.Time     `json:"application_date_of_birth"`
	Gender                *string        `json:"application_gender" validate:"omitempty,oneof=male female other"`
	Address               *string        `json:"application_address" validate:"omitempty,max=500"`
	PreviousSchool        *string        `json:"application_previous_school" validate:"omitempty,max=160"`
	PreviousQualification *string        `json:"application_previous_qualification" validate:"omitempty,max=160"`
	Extra                 map[string]any `json:"application_extra"`
}

func (r *UpdateApplicationRequest) Validate() error {
	return validation.Struct(r)
}

// Apply merges the patch into m and returns the changed columns. program is
// the resolved new program when ProgramID is set.
func (r *UpdateApplicationRequest) Apply(m *model.ApplicationModel, program *registry.Program) map[string]any {
	set := map[string]any{}
	str := func(col string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			set[col] = *dst
		}
	}
	opt := func(col string, dst **string, v *string) {
		if v != nil {
			s := strings.TrimSpace(*v)
			*dst = &s
			set[col] = s
		}
	}

	if program != nil {
		m.ApplicationProgramID = program.ID
		m.ApplicationDepartmentID = program.DepartmentID
		set["application_program_id"] = program.ID
		set["application_department_id"] = program.DepartmentID
	}
	str("application_first_name", &m.ApplicationFirstName, r.FirstName)
	str("application_last_name", &m.ApplicationLastName, r.LastName)
	if r.Email != nil {
		m.ApplicationEmail = strings.ToLower(strings.TrimSpace(*r.Email))
		set["application_email"] = m.ApplicationEmail
	}
	opt("application_other_names", &m.ApplicationOtherNames, r.OtherNames)
	opt("application_phone", &m.ApplicationPhone, r.Phone)
	opt("application_gender", &m.ApplicationGender, r.Gender)
	opt("application_address", &m.ApplicationAddress, r.Address)
	opt("application_previous_school", &m.ApplicationPreviousSchool, r.PreviousSchool)
	opt("application_previous_qualification", &m.ApplicationPreviousQualification, r.PreviousQualification)
	if r.DateOfBirth != nil {
		m.ApplicationDateOfBirth = r.DateOfBirth
		set["application_date_of_birth"] = *r.DateOfBirth
	}
	if r.Extra != nil {
		m.ApplicationExtra = datatypes.JSONMap(r.Extra)
		set["application_extra"] = m.ApplicationExtra
	}
	return set
}

type SetApplicationStatusRequest struct {
	Status model.ApplicationStatus `json:"application_status" validate:"required,oneof=draft submitted under_review approved rejected"`
	Notes  *string                 `json:"application_review_notes" validate:"omitempty,max=2000"`
}

func (r *SetApplicationStatusRequest) Validate() error {
	return validation.Struct(r)
}

type ListApplicationsQuery struct {
	SessionID    string `query:"session_id" validate:"omitempty,uuid"`
	DepartmentID string `query:"department_id" validate:"omitempty,uuid"`
	ProgramID    string `query:"program_id" validate:"omitempty,uuid"`
	Status       string `query:"status" validate:"omitempty,oneof=draft submitted under_review approved rejected"`
	FormPaid     *bool  `query:"form_paid"`
	Q            string `query:"q" validate:"omitempty,max=120"`
}

func (q *ListApplicationsQuery) Validate() error {
	return validation.Struct(q)
}
