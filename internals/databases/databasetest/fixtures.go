package databasetest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	offerModel "admissions_backend/internals/features/admissions/offers/model"
	"admissions_backend/internals/features/admissions/registry"
	sessionModel "admissions_backend/internals/features/admissions/sessions/model"
)

// Session inserts a session running through 2026 with a 5000 form price
// and a 20000 admission fee.
func Session(t testing.TB, db *gorm.DB, status sessionModel.SessionStatus, opts ...func(*sessionModel.AdmissionSessionModel)) *sessionModel.AdmissionSessionModel {
	t.Helper()
	m := &sessionModel.AdmissionSessionModel{
		AdmissionSessionName:         "Session " + uuid.NewString()[:8],
		AdmissionSessionStartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		AdmissionSessionEndDate:      time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		AdmissionSessionFormPrice:    decimal.NewFromInt(5000),
		AdmissionSessionAdmissionFee: decimal.NewFromInt(20000),
		AdmissionSessionStatus:       status,
	}
	for _, o := range opts {
		o(m)
	}
	mustCreate(t, db, m)
	return m
}

// Program inserts an active program with an open-ended window and no fee
// of its own.
func Program(t testing.TB, db *gorm.DB, opts ...func(*registry.ProgramModel)) *registry.ProgramModel {
	t.Helper()
	m := &registry.ProgramModel{
		ProgramDepartmentID: uuid.New(),
		ProgramCode:         "P" + strings.ToUpper(uuid.NewString()[:6]),
		ProgramName:         "Computer Science",
		ProgramIsActive:     true,
	}
	for _, o := range opts {
		o(m)
	}
	mustCreate(t, db, m)
	return m
}

// Application inserts a submitted, unpaid application.
func Application(t testing.TB, db *gorm.DB, applicantID uuid.UUID, session *sessionModel.AdmissionSessionModel, program *registry.ProgramModel, opts ...func(*applicationModel.ApplicationModel)) *applicationModel.ApplicationModel {
	t.Helper()
	m := &applicationModel.ApplicationModel{
		ApplicationApplicantID:  applicantID,
		ApplicationSessionID:    session.AdmissionSessionID,
		ApplicationDepartmentID: program.ProgramDepartmentID,
		ApplicationProgramID:    program.ProgramID,
		ApplicationNumber:       "APP" + strings.ToUpper(uuid.NewString()[:10]),
		ApplicationStatus:       applicationModel.StatusSubmitted,
		ApplicationFirstName:    "Ada",
		ApplicationLastName:     "Obi",
		ApplicationEmail:        "ada@example.com",
		ApplicationSubmittedAt:  time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	}
	for _, o := range opts {
		o(m)
	}
	mustCreate(t, db, m)
	return m
}

// Offer inserts an open offer for app with a 10000 acceptance fee and the
// given deadline.
func Offer(t testing.TB, db *gorm.DB, app *applicationModel.ApplicationModel, deadline time.Time, opts ...func(*offerModel.AdmissionOfferModel)) *offerModel.AdmissionOfferModel {
	t.Helper()
	m := &offerModel.AdmissionOfferModel{
		AdmissionOfferApplicationID:       app.ApplicationID,
		AdmissionOfferApplicantID:         app.ApplicationApplicantID,
		AdmissionOfferSessionID:           app.ApplicationSessionID,
		AdmissionOfferDepartmentID:        app.ApplicationDepartmentID,
		AdmissionOfferProgramID:           app.ApplicationProgramID,
		AdmissionOfferStatus:              offerModel.OfferOffered,
		AdmissionOfferAcceptanceFeeAmount: decimal.NewFromInt(10000),
		AdmissionOfferAcceptanceDeadline:  deadline,
	}
	for _, o := range opts {
		o(m)
	}
	mustCreate(t, db, m)
	return m
}

func mustCreate(t testing.TB, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed %T: %v", v, err)
	}
}
