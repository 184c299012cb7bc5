package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// transitions lists the review moves staff may make. Moving to the current
// status is always allowed and only records notes.
var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusDraft, StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusSubmitted, StatusApproved, StatusRejected},
	StatusApproved:    {StatusUnderReview},
	StatusRejected:    {StatusUnderReview},
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ApplicationModel is an applicant's form for one session. Once
// application_form_paid is true the form is frozen for the applicant.
type ApplicationModel struct {
	ApplicationID uuid.UUID `gorm:"type:uuid;primaryKey;column:application_id" json:"application_id"`

	ApplicationApplicantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_applications_applicant_session,priority:1;column:application_applicant_id" json:"application_applicant_id"`
	ApplicationSessionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_applications_applicant_session,priority:2;index:idx_applications_session;column:application_session_id" json:"application_session_id"`
	ApplicationDepartmentID uuid.UUID `gorm:"type:uuid;not null;index:idx_applications_department;column:application_department_id" json:"application_department_id"`
	ApplicationProgramID    uuid.UUID `gorm:"type:uuid;not null;column:application_program_id" json:"application_program_id"`

	ApplicationNumber string            `gorm:"type:varchar(32);not null;uniqueIndex:uq_applications_number;column:application_number" json:"application_number"`
	ApplicationStatus ApplicationStatus `gorm:"type:varchar(16);not null;default:'submitted';index:idx_applications_status;column:application_status" json:"application_status"`

	ApplicationFormPaid   bool       `gorm:"not null;default:false;column:application_form_paid" json:"application_form_paid"`
	ApplicationFormPaidAt *time.Time `gorm:"column:application_form_paid_at" json:"application_form_paid_at,omitempty"`

	// applicant data
	ApplicationFirstName             string     `gorm:"type:varchar(80);not null;column:application_first_name" json:"application_first_name"`
	ApplicationLastName              string     `gorm:"type:varchar(80);not null;column:application_last_name" json:"application_last_name"`
	ApplicationOtherNames            *string    `gorm:"type:varchar(120);column:application_other_names" json:"application_other_names,omitempty"`
	ApplicationEmail                 string     `gorm:"type:varchar(160);not null;column:application_email" json:"application_email"`
	ApplicationPhone                 *string    `gorm:"type:varchar(32);column:application_phone" json:"application_phone,omitempty"`
	ApplicationDateOfBirth           *time.Time `gorm:"column:application_date_of_birth" json:"application_date_of_birth,omitempty"`
	ApplicationGender                *string    `gorm:"type:varchar(16);column:application_gender" json:"application_gender,omitempty"`
	ApplicationAddress               *string    `gorm:"type:text;column:application_address" json:"application_address,omitempty"`
	ApplicationPreviousSchool        *string    `gorm:"type:varchar(160);column:application_previous_school" json:"application_previous_school,omitempty"`
	ApplicationPreviousQualification *string    `gorm:"type:varchar(160);column:application_previous_qualification" json:"application_previous_qualification,omitempty"`

	ApplicationExtra datatypes.JSONMap `gorm:"column:application_extra" json:"application_extra,omitempty"`

	// review
	ApplicationReviewNotes *string    `gorm:"type:text;column:application_review_notes" json:"application_review_notes,omitempty"`
	ApplicationReviewedBy  *uuid.UUID `gorm:"type:uuid;column:application_reviewed_by" json:"application_reviewed_by,omitempty"`
	ApplicationReviewedAt  *time.Time `gorm:"column:application_reviewed_at" json:"application_reviewed_at,omitempty"`

	ApplicationSubmittedAt time.Time `gorm:"not null;column:application_submitted_at" json:"application_submitted_at"`
	ApplicationCreatedAt   time.Time `gorm:"not null;autoCreateTime;column:application_created_at" json:"application_created_at"`
	ApplicationUpdatedAt   time.Time `gorm:"not null;autoUpdateTime;column:application_updated_at" json:"application_updated_at"`
}

func (ApplicationModel) TableName() string { return "applications" }

func (m *ApplicationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ApplicationID == uuid.Nil {
		m.ApplicationID = uuid.New()
	}
	if m.ApplicationStatus == "" {
		m.ApplicationStatus = StatusSubmitted
	}
	return nil
}

func (m *ApplicationModel) BeforeSave(tx *gorm.DB) error {
	m.ApplicationFirstName = strings.TrimSpace(m.ApplicationFirstName)
	m.ApplicationLastName = strings.TrimSpace(m.ApplicationLastName)
	m.ApplicationEmail = strings.ToLower(strings.TrimSpace(m.ApplicationEmail))
	return nil
}

func (m *ApplicationModel) FullName() string {
	parts := []string{m.ApplicationFirstName}
	if m.ApplicationOtherNames != nil && strings.TrimSpace(*m.ApplicationOtherNames) != "" {
		parts = append(parts, strings.TrimSpace(*m.ApplicationOtherNames))
	}
	parts = append(parts, m.ApplicationLastName)
	return strings.Join(parts, " ")
}
