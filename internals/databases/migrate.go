package database

import (
	"fmt"

	"gorm.io/gorm"

	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	offerModel "admissions_backend/internals/features/admissions/offers/model"
	paymentModel "admissions_backend/internals/features/admissions/payments/model"
	"admissions_backend/internals/features/admissions/registry"
	sessionModel "admissions_backend/internals/features/admissions/sessions/model"
	helperAuth "admissions_backend/internals/helpers/auth"
)

// partialIndexes carry the invariants AutoMigrate cannot express. Both
// PostgreSQL and SQLite accept the syntax.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_admission_sessions_single_active
		ON admission_sessions (admission_session_status)
		WHERE admission_session_status = 'active'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_payments_target_type_successful
		ON payments (payment_target_id, payment_type)
		WHERE payment_status = 'successful'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_payments_gateway_reference
		ON payments (payment_gateway_provider, payment_gateway_reference)
		WHERE payment_gateway_reference IS NOT NULL`,
}

func Models() []any {
	return []any{
		&sessionModel.AdmissionSessionModel{},
		&registry.ProgramModel{},
		&applicationModel.ApplicationModel{},
		&offerModel.AdmissionOfferModel{},
		&paymentModel.PaymentModel{},
		&helperAuth.TokenBlacklistModel{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
