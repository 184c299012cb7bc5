package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"admissions_backend/internals/constants"
	"admissions_backend/internals/databases/databasetest"
	"admissions_backend/internals/features/admissions/applications/dto"
	"admissions_backend/internals/features/admissions/applications/model"
	paymentModel "admissions_backend/internals/features/admissions/payments/model"
	"admissions_backend/internals/features/admissions/registry"
	sessionModel "admissions_backend/internals/features/admissions/sessions/model"
	sessionService "admissions_backend/internals/features/admissions/sessions/service"
	helperAuth "admissions_backend/internals/helpers/auth"
	"admissions_backend/internals/helpers/apperr"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	db      *gorm.DB
	session *sessionModel.AdmissionSessionModel
	program *registry.ProgramModel
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := databasetest.Open(t)
	log := zaptest.NewLogger(t)
	svc := New(db, log, sessionService.New(db, log), registry.New(db))
	svc.Now = func() time.Time { return fixedNow }
	return fixture{
		svc:     svc,
		db:      db,
		session: databasetest.Session(t, db, sessionModel.SessionActive),
		program: databasetest.Program(t, db),
	}
}

func applicant() helperAuth.Actor {
	return helperAuth.Actor{ID: uuid.New(), Email: "ada@example.com", Role: constants.RoleApplicant}
}

func staff() helperAuth.Actor {
	return helperAuth.Actor{ID: uuid.New(), Email: "registry@example.com", Role: constants.RoleStaff}
}

func submitReq(programID uuid.UUID) dto.SubmitApplicationRequest {
	return dto.SubmitApplicationRequest{
		ProgramID: programID,
		FirstName: "  Ada ",
		LastName:  "Obi",
	}
}

func TestSubmitDefaultsToActiveSession(t *testing.T) {
	f := setup(t)
	actor := applicant()

	m, err := f.svc.Submit(context.Background(), actor, submitReq(f.program.ProgramID))
	require.NoError(t, err)

	assert.Equal(t, f.session.AdmissionSessionID, m.ApplicationSessionID)
	assert.Equal(t, f.program.ProgramDepartmentID, m.ApplicationDepartmentID)
	assert.Equal(t, model.StatusSubmitted, m.ApplicationStatus)
	assert.Equal(t, "Ada", m.ApplicationFirstName)
	assert.Equal(t, "ada@example.com", m.ApplicationEmail)
	assert.False(t, m.ApplicationFormPaid)
	assert.Regexp(t, `^APP20260301\d{7}$`, m.ApplicationNumber)
}

func TestDefaultNumber(t *testing.T) {
	n := DefaultNumber(fixedNow, 7)
	assert.Regexp(t, `^APP20260301\d{5}07$`, n)
	assert.Len(t, n, 18)

	assert.Regexp(t, `^APP20260301\d{5}23$`, DefaultNumber(fixedNow, 123))
}

func TestSubmitDuplicate(t *testing.T) {
	f := setup(t)
	actor := applicant()

	_, err := f.svc.Submit(context.Background(), actor, submitReq(f.program.ProgramID))
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), actor, submitReq(f.program.ProgramID))
	assert.ErrorIs(t, err, apperr.ErrDuplicateApplication)

	// another session is a different application
	other := databasetest.Session(t, f.db, sessionModel.SessionInactive)
	req := submitReq(f.program.ProgramID)
	req.SessionID = &other.AdmissionSessionID
	_, err = f.svc.Submit(context.Background(), actor, req)
	assert.NoError(t, err)
}

func TestSubmitSessionRules(t *testing.T) {
	f := setup(t)

	closed := databasetest.Session(t, f.db, sessionModel.SessionClosed)
	req := submitReq(f.program.ProgramID)
	req.SessionID = &closed.AdmissionSessionID
	_, err := f.svc.Submit(context.Background(), applicant(), req)
	assert.ErrorIs(t, err, apperr.ErrNotEligible)

	require.NoError(t, f.db.Model(f.session).Update("admission_session_status", sessionModel.SessionInactive).Error)
	_, err = f.svc.Submit(context.Background(), applicant(), submitReq(f.program.ProgramID))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmitWindowClosed(t *testing.T) {
	f := setup(t)

	closesAt := fixedNow.Add(-time.Hour)
	late := databasetest.Program(t, f.db, func(p *registry.ProgramModel) { p.ProgramApplicationClosesAt = &closesAt })
	_, err := f.svc.Submit(context.Background(), applicant(), submitReq(late.ProgramID))
	assert.ErrorIs(t, err, apperr.ErrWindowClosed)

	opensAt := fixedNow.Add(24 * time.Hour)
	early := databasetest.Program(t, f.db, func(p *registry.ProgramModel) { p.ProgramApplicationOpensAt = &opensAt })
	_, err = f.svc.Submit(context.Background(), applicant(), submitReq(early.ProgramID))
	assert.ErrorIs(t, err, apperr.ErrWindowClosed)

	inactive := databasetest.Program(t, f.db, func(p *registry.ProgramModel) { p.ProgramIsActive = false })
	_, err = f.svc.Submit(context.Background(), applicant(), submitReq(inactive.ProgramID))
	assert.ErrorIs(t, err, apperr.ErrWindowClosed)
}

func TestSubmitDepartmentMismatch(t *testing.T) {
	f := setup(t)
	req := submitReq(f.program.ProgramID)
	wrong := uuid.New()
	req.DepartmentID = &wrong

	_, err := f.svc.Submit(context.Background(), applicant(), req)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.As(err).Fields, "application_department_id")
}

func TestSubmitRetriesNumberCollision(t *testing.T) {
	f := setup(t)
	databasetest.Application(t, f.db, uuid.New(), f.session, f.program, func(a *model.ApplicationModel) {
		a.ApplicationNumber = "APPTAKEN-1"
	})

	calls := 0
	f.svc.Number = func(time.Time, int64) string {
		calls++
		return fmt.Sprintf("APPTAKEN-%d", calls)
	}

	m, err := f.svc.Submit(context.Background(), applicant(), submitReq(f.program.ProgramID))
	require.NoError(t, err)
	assert.Equal(t, "APPTAKEN-2", m.ApplicationNumber)
	assert.Equal(t, 2, calls)
}

func TestSubmitGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := setup(t)
	databasetest.Application(t, f.db, uuid.New(), f.session, f.program, func(a *model.ApplicationModel) {
		a.ApplicationNumber = "APPSTUCK"
	})
	f.svc.Number = func(time.Time, int64) string { return "APPSTUCK" }

	_, err := f.svc.Submit(context.Background(), applicant(), submitReq(f.program.ProgramID))
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateLockedAfterFormPaid(t *testing.T) {
	f := setup(t)
	actor := applicant()
	app := databasetest.Application(t, f.db, actor.ID, f.session, f.program)

	name := "Adaeze"
	out, err := f.svc.Update(context.Background(), actor, app.ApplicationID, dto.UpdateApplicationRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Adaeze", out.ApplicationFirstName)

	_, err = f.svc.Update(context.Background(), applicant(), app.ApplicationID, dto.UpdateApplicationRequest{FirstName: &name})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.db.Model(app).Update("application_form_paid", true).Error)
	_, err = f.svc.Update(context.Background(), actor, app.ApplicationID, dto.UpdateApplicationRequest{FirstName: &name})
	assert.ErrorIs(t, err, apperr.ErrLocked)

	err = f.svc.Delete(context.Background(), actor, app.ApplicationID)
	assert.ErrorIs(t, err, apperr.ErrLocked)
}

func TestUpdateProgramMovesDepartment(t *testing.T) {
	f := setup(t)
	actor := applicant()
	app := databasetest.Application(t, f.db, actor.ID, f.session, f.program)
	other := databasetest.Program(t, f.db)

	out, err := f.svc.Update(context.Background(), actor, app.ApplicationID, dto.UpdateApplicationRequest{ProgramID: &other.ProgramID})
	require.NoError(t, err)
	assert.Equal(t, other.ProgramID, out.ApplicationProgramID)
	assert.Equal(t, other.ProgramDepartmentID, out.ApplicationDepartmentID)
}

func TestSetStatusTransitions(t *testing.T) {
	f := setup(t)
	reviewer := staff()
	app := databasetest.Application(t, f.db, uuid.New(), f.session, f.program)
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, applicant(), app.ApplicationID, dto.SetApplicationStatusRequest{Status: model.StatusApproved})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	out, err := f.svc.SetStatus(ctx, reviewer, app.ApplicationID, dto.SetApplicationStatusRequest{Status: model.StatusUnderReview})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, out.ApplicationStatus)
	require.NotNil(t, out.ApplicationReviewedBy)
	assert.Equal(t, reviewer.ID, *out.ApplicationReviewedBy)

	notes := "  transcripts verified "
	out, err = f.svc.SetStatus(ctx, reviewer, app.ApplicationID, dto.SetApplicationStatusRequest{Status: model.StatusUnderReview, Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, out.ApplicationReviewNotes)
	assert.Equal(t, "transcripts verified", *out.ApplicationReviewNotes)

	_, err = f.svc.SetStatus(ctx, reviewer, app.ApplicationID, dto.SetApplicationStatusRequest{Status: model.StatusApproved})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, reviewer, app.ApplicationID, dto.SetApplicationStatusRequest{Status: model.StatusDraft})
	assert.ErrorIs(t, err, apperr.ErrNotEligible)

	var stored model.ApplicationModel
	require.NoError(t, f.db.Where("application_id = ?", app.ApplicationID).Take(&stored).Error)
	assert.Equal(t, model.StatusApproved, stored.ApplicationStatus)
}

func TestDeleteBlockedByOffer(t *testing.T) {
	f := setup(t)
	actor := applicant()
	app := databasetest.Application(t, f.db, actor.ID, f.session, f.program)
	databasetest.Offer(t, f.db, app, fixedNow.Add(72*time.Hour))

	err := f.svc.Delete(context.Background(), actor, app.ApplicationID)
	assert.ErrorIs(t, err, apperr.ErrNotEligible)
}

func TestDeleteKeepsPaymentHistory(t *testing.T) {
	f := setup(t)
	actor := applicant()
	app := databasetest.Application(t, f.db, actor.ID, f.session, f.program)
	pending := &paymentModel.PaymentModel{
		PaymentPayerID:         actor.ID,
		PaymentType:            paymentModel.TypeFormPurchase,
		PaymentTargetID:        app.ApplicationID,
		PaymentReference:       "ADM-FRM-TEST-1",
		PaymentAmount:          decimal.NewFromInt(5000),
		PaymentCurrency:        "NGN",
		PaymentPayerEmail:      actor.Email,
		PaymentGatewayProvider: "memory",
	}
	require.NoError(t, f.db.Create(pending).Error)

	err := f.svc.Delete(context.Background(), actor, app.ApplicationID)
	assert.ErrorIs(t, err, apperr.ErrNotEligible)
	_, err = f.svc.Get(context.Background(), actor, app.ApplicationID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(pending).Update("payment_status", paymentModel.PaymentFailed).Error)
	require.NoError(t, f.svc.Delete(context.Background(), actor, app.ApplicationID))

	var n int64
	require.NoError(t, f.db.Model(&paymentModel.PaymentModel{}).Where("payment_target_id = ?", app.ApplicationID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	_, err = f.svc.Get(context.Background(), actor, app.ApplicationID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetAndList(t *testing.T) {
	f := setup(t)
	actor := applicant()
	app := databasetest.Application(t, f.db, actor.ID, f.session, f.program)
	databasetest.Application(t, f.db, uuid.New(), f.session, f.program, func(a *model.ApplicationModel) {
		a.ApplicationFirstName = "Bola"
		a.ApplicationFormPaid = true
	})
	ctx := context.Background()

	_, err := f.svc.Get(ctx, applicant(), app.ApplicationID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Get(ctx, staff(), app.ApplicationID)
	assert.NoError(t, err)

	mine, total, err := f.svc.ListMine(ctx, actor, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, app.ApplicationID, mine[0].ApplicationID)

	paid := true
	rows, total, err := f.svc.List(ctx, dto.ListApplicationsQuery{FormPaid: &paid}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Bola", rows[0].ApplicationFirstName)

	_, total, err = f.svc.List(ctx, dto.ListApplicationsQuery{Q: "bol"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
