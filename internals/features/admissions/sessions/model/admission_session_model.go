package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionInactive SessionStatus = "inactive"
	SessionClosed   SessionStatus = "closed"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionInactive, SessionClosed:
		return true
	}
	return false
}

// AdmissionSessionModel is one admission cycle. At most one row may be
// active; the partial unique index uq_admission_sessions_single_active
// enforces it.
type AdmissionSessionModel struct {
	AdmissionSessionID uuid.UUID `gorm:"type:uuid;primaryKey;column:admission_session_id" json:"admission_session_id"`

	AdmissionSessionName        string  `gorm:"type:varchar(120);not null;column:admission_session_name" json:"admission_session_name"`
	AdmissionSessionDescription *string `gorm:"type:text;column:admission_session_description" json:"admission_session_description,omitempty"`

	AdmissionSessionStartDate time.Time `gorm:"not null;column:admission_session_start_date" json:"admission_session_start_date"`
	AdmissionSessionEndDate   time.Time `gorm:"not null;column:admission_session_end_date" json:"admission_session_end_date"`

	AdmissionSessionFormPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;column:admission_session_form_price" json:"admission_session_form_price"`
	AdmissionSessionAdmissionFee decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;column:admission_session_admission_fee" json:"admission_session_admission_fee"`

	AdmissionSessionStatus SessionStatus `gorm:"type:varchar(16);not null;default:'inactive';index:idx_admission_sessions_status;column:admission_session_status" json:"admission_session_status"`

	AdmissionSessionActivatedAt *time.Time `gorm:"column:admission_session_activated_at" json:"admission_session_activated_at,omitempty"`
	AdmissionSessionCreatedAt   time.Time  `gorm:"not null;autoCreateTime;column:admission_session_created_at" json:"admission_session_created_at"`
	AdmissionSessionUpdatedAt   time.Time  `gorm:"not null;autoUpdateTime;column:admission_session_updated_at" json:"admission_session_updated_at"`
}

func (AdmissionSessionModel) TableName() string { return "admission_sessions" }

func (m *AdmissionSessionModel) BeforeCreate(tx *gorm.DB) error {
	if m.AdmissionSessionID == uuid.Nil {
		m.AdmissionSessionID = uuid.New()
	}
	if m.AdmissionSessionStatus == "" {
		m.AdmissionSessionStatus = SessionInactive
	}
	return nil
}

func (m *AdmissionSessionModel) BeforeSave(tx *gorm.DB) error {
	m.AdmissionSessionName = strings.TrimSpace(m.AdmissionSessionName)
	if m.AdmissionSessionEndDate.Before(m.AdmissionSessionStartDate) {
		return errors.New("admission_session_end_date must not be before admission_session_start_date")
	}
	return nil
}

func (m *AdmissionSessionModel) IsActive() bool { return m.AdmissionSessionStatus == SessionActive }
