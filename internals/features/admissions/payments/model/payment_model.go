package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentType string

const (
	TypeFormPurchase  PaymentType = "form_purchase"
	TypeAdmissionFee  PaymentType = "admission_fee"
	TypeAcceptanceFee PaymentType = "acceptance_fee"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
)

// CanTransitionTo allows only pending -> successful | failed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentPending && (next == PaymentSuccessful || next == PaymentFailed)
}

// Target is what a payment settles. The concrete types are the only
// implementations; the type switch in callers is exhaustive.
type Target interface {
	Type() PaymentType
	ID() uuid.UUID
	isTarget()
}

// FormPurchase pays the form fee of an application.
type FormPurchase struct{ ApplicationID uuid.UUID }

// AdmissionFee pays the session admission fee of an offer.
type AdmissionFee struct{ OfferID uuid.UUID }

// AcceptanceFee pays the acceptance fee fixed on an offer.
type AcceptanceFee struct{ OfferID uuid.UUID }

func (t FormPurchase) Type() PaymentType { return TypeFormPurchase }
func (t FormPurchase) ID() uuid.UUID { return t.ApplicationID }
func (FormPurchase) isTarget() {}

func (t AdmissionFee) Type() PaymentType { return TypeAdmissionFee }
func (t AdmissionFee) ID() uuid.UUID { return t.OfferID }
func (AdmissionFee) isTarget() {}

func (t AcceptanceFee) Type() PaymentType { return TypeAcceptanceFee }
func (t AcceptanceFee) ID() uuid.UUID { return t.OfferID }
func (AcceptanceFee) isTarget() {}

// NewTarget builds the target for a stored (type, id) pair.
func NewTarget(t PaymentType, id uuid.UUID) (Target, error) {
	switch t {
	case TypeFormPurchase:
		return FormPurchase{ApplicationID: id}, nil
	case TypeAdmissionFee:
		return AdmissionFee{OfferID: id}, nil
	case TypeAcceptanceFee:
		return AcceptanceFee{OfferID: id}, nil
	}
	return nil, fmt.Errorf("unknown payment type %q", t)
}

// PaymentModel records one gateway attempt. At most one successful row may
// exist per (payment_target_id, payment_type); see
// uq_payments_target_type_successful.
type PaymentModel struct {
	PaymentID uuid.UUID `gorm:"type:uuid;primaryKey;column:payment_id" json:"payment_id"`

	PaymentPayerID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_payments_payer;column:payment_payer_id" json:"payment_payer_id"`
	PaymentType       PaymentType     `gorm:"type:varchar(24);not null;index:idx_payments_target,priority:2;column:payment_type" json:"payment_type"`
	PaymentTargetID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_payments_target,priority:1;column:payment_target_id" json:"payment_target_id"`
	PaymentSessionID  *uuid.UUID      `gorm:"type:uuid;column:payment_session_id" json:"payment_session_id,omitempty"`
	PaymentReference  string          `gorm:"type:varchar(64);not null;uniqueIndex:uq_payments_reference;column:payment_reference" json:"payment_reference"`
	PaymentAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null;column:payment_amount" json:"payment_amount"`
	PaymentCurrency   string          `gorm:"type:varchar(8);not null;column:payment_currency" json:"payment_currency"`
	PaymentStatus     PaymentStatus   `gorm:"type:varchar(16);not null;default:'pending';index:idx_payments_status;column:payment_status" json:"payment_status"`
	PaymentPayerEmail string          `gorm:"type:varchar(160);not null;column:payment_payer_email" json:"payment_payer_email"`

	PaymentGatewayProvider  string  `gorm:"type:varchar(24);not null;column:payment_gateway_provider" json:"payment_gateway_provider"`
	PaymentGatewayReference *string `gorm:"type:varchar(128);column:payment_gateway_reference" json:"payment_gateway_reference,omitempty"`
	PaymentGatewayStatus    *string `gorm:"type:varchar(32);column:payment_gateway_status" json:"payment_gateway_status,omitempty"`
	PaymentAuthorizationURL *string `gorm:"type:text;column:payment_authorization_url" json:"payment_authorization_url,omitempty"`
	PaymentFailureReason    *string `gorm:"type:text;column:payment_failure_reason" json:"payment_failure_reason,omitempty"`

	PaymentMeta datatypes.JSONMap `gorm:"column:payment_meta" json:"payment_meta,omitempty"`

	PaymentPaidAt    *time.Time `gorm:"column:payment_paid_at" json:"payment_paid_at,omitempty"`
	PaymentFailedAt  *time.Time `gorm:"column:payment_failed_at" json:"payment_failed_at,omitempty"`
	PaymentCreatedAt time.Time  `gorm:"not null;autoCreateTime;column:payment_created_at" json:"payment_created_at"`
	PaymentUpdatedAt time.Time  `gorm:"not null;autoUpdateTime;column:payment_updated_at" json:"payment_updated_at"`
}

func (PaymentModel) TableName() string { return "payments" }

func (m *PaymentModel) BeforeCreate(tx *gorm.DB) error {
	if m.PaymentID == uuid.Nil {
		m.PaymentID = uuid.New()
	}
	if m.PaymentStatus == "" {
		m.PaymentStatus = PaymentPending
	}
	return nil
}

func (m *PaymentModel) Target() (Target, error) {
	return NewTarget(m.PaymentType, m.PaymentTargetID)
}

// GenReference builds a merchant reference such as ADM-FRM-20261015-093000-1A2B3C4D.
func GenReference(t PaymentType, now time.Time) string {
	prefix := "PAY"
	switch t {
	case TypeFormPurchase:
		prefix = "FRM"
	case TypeAdmissionFee:
		prefix = "ADF"
	case TypeAcceptanceFee:
		prefix = "ACF"
	}
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("ADM-%s-%s-%s", prefix, now.UTC().Format("20060102-150405"), strings.ToUpper(suffix))
}
