package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OfferStatus string

const (
	OfferOffered  OfferStatus = "offered"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
	OfferExpired  OfferStatus = "expired"
)

func (s OfferStatus) Terminal() bool { return s != OfferOffered }

// AdmissionOfferModel is the admission decision for exactly one application.
type AdmissionOfferModel struct {
	AdmissionOfferID uuid.UUID `gorm:"type:uuid;primaryKey;column:admission_offer_id" json:"admission_offer_id"`

	AdmissionOfferApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_admission_offers_application;column:admission_offer_application_id" json:"admission_offer_application_id"`
	AdmissionOfferApplicantID   uuid.UUID `gorm:"type:uuid;not null;index:idx_admission_offers_applicant;column:admission_offer_applicant_id" json:"admission_offer_applicant_id"`
	AdmissionOfferSessionID     uuid.UUID `gorm:"type:uuid;not null;index:idx_admission_offers_session;column:admission_offer_session_id" json:"admission_offer_session_id"`
	AdmissionOfferDepartmentID  uuid.UUID `gorm:"type:uuid;not null;column:admission_offer_department_id" json:"admission_offer_department_id"`
	AdmissionOfferProgramID     uuid.UUID `gorm:"type:uuid;not null;column:admission_offer_program_id" json:"admission_offer_program_id"`

	AdmissionOfferStatus OfferStatus `gorm:"type:varchar(16);not null;default:'offered';index:idx_admission_offers_status;column:admission_offer_status" json:"admission_offer_status"`

	AdmissionOfferAcceptanceFeeAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;column:admission_offer_acceptance_fee_amount" json:"admission_offer_acceptance_fee_amount"`
	AdmissionOfferAcceptanceDeadline  time.Time       `gorm:"not null;index:idx_admission_offers_deadline;column:admission_offer_acceptance_deadline" json:"admission_offer_acceptance_deadline"`

	AdmissionOfferAcceptanceFeePaid   bool       `gorm:"not null;default:false;column:admission_offer_acceptance_fee_paid" json:"admission_offer_acceptance_fee_paid"`
	AdmissionOfferAcceptanceFeePaidAt *time.Time `gorm:"column:admission_offer_acceptance_fee_paid_at" json:"admission_offer_acceptance_fee_paid_at,omitempty"`
	AdmissionOfferAdmissionFeePaid    bool       `gorm:"not null;default:false;column:admission_offer_admission_fee_paid" json:"admission_offer_admission_fee_paid"`
	AdmissionOfferAdmissionFeePaidAt  *time.Time `gorm:"column:admission_offer_admission_fee_paid_at" json:"admission_offer_admission_fee_paid_at,omitempty"`
	AdmissionOfferAdmissionAccepted   bool       `gorm:"not null;default:false;column:admission_offer_admission_accepted" json:"admission_offer_admission_accepted"`

	AdmissionOfferNotes         *string    `gorm:"type:text;column:admission_offer_notes" json:"admission_offer_notes,omitempty"`
	AdmissionOfferDeclineReason *string    `gorm:"type:text;column:admission_offer_decline_reason" json:"admission_offer_decline_reason,omitempty"`
	AdmissionOfferCreatedBy     *uuid.UUID `gorm:"type:uuid;column:admission_offer_created_by" json:"admission_offer_created_by,omitempty"`

	AdmissionOfferAcceptedAt *time.Time `gorm:"column:admission_offer_accepted_at" json:"admission_offer_accepted_at,omitempty"`
	AdmissionOfferDeclinedAt *time.Time `gorm:"column:admission_offer_declined_at" json:"admission_offer_declined_at,omitempty"`
	AdmissionOfferExpiredAt  *time.Time `gorm:"column:admission_offer_expired_at" json:"admission_offer_expired_at,omitempty"`
	AdmissionOfferCreatedAt  time.Time  `gorm:"not null;autoCreateTime;column:admission_offer_created_at" json:"admission_offer_created_at"`
	AdmissionOfferUpdatedAt  time.Time  `gorm:"not null;autoUpdateTime;column:admission_offer_updated_at" json:"admission_offer_updated_at"`
}

func (AdmissionOfferModel) TableName() string { return "admission_offers" }

func (m *AdmissionOfferModel) BeforeCreate(tx *gorm.DB) error {
	if m.AdmissionOfferID == uuid.Nil {
		m.AdmissionOfferID = uuid.New()
	}
	if m.AdmissionOfferStatus == "" {
		m.AdmissionOfferStatus = OfferOffered
	}
	return nil
}

// AcceptBlocker names the first condition preventing acceptance at now,
// or returns "" when the offer can be accepted.
func (m *AdmissionOfferModel) AcceptBlocker(now time.Time) string {
	switch {
	case m.AdmissionOfferStatus != OfferOffered:
		return "offer is " + string(m.AdmissionOfferStatus)
	case !m.AdmissionOfferAcceptanceFeePaid:
		return "acceptance fee has not been paid"
	case now.After(m.AdmissionOfferAcceptanceDeadline):
		return "acceptance deadline has passed"
	}
	return ""
}

// Overdue reports an offered row whose deadline is behind now.
func (m *AdmissionOfferModel) Overdue(now time.Time) bool {
	return m.AdmissionOfferStatus == OfferOffered && now.After(m.AdmissionOfferAcceptanceDeadline)
}
