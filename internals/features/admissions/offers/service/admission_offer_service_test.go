package service

import (
	"context"
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
	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	"admissions_backend/internals/features/admissions/offers/dto"
	"admissions_backend/internals/features/admissions/offers/model"
	"admissions_backend/internals/features/admissions/registry"
	sessionModel "admissions_backend/internals/features/admissions/sessions/model"
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
	svc := New(db, zaptest.NewLogger(t), 14)
	svc.Now = func() time.Time { return fixedNow }
	return fixture{
		svc:     svc,
		db:      db,
		session: databasetest.Session(t, db, sessionModel.SessionActive),
		program: databasetest.Program(t, db),
	}
}

func (f fixture) application(t *testing.T, applicantID uuid.UUID, opts ...func(*applicationModel.ApplicationModel)) *applicationModel.ApplicationModel {
	t.Helper()
	return databasetest.Application(t, f.db, applicantID, f.session, f.program, opts...)
}

func staff() helperAuth.Actor {
	return helperAuth.Actor{ID: uuid.New(), Role: constants.RoleAdmin}
}

func owner(id uuid.UUID) helperAuth.Actor {
	return helperAuth.Actor{ID: id, Role: constants.RoleApplicant}
}

func feePaid(o *model.AdmissionOfferModel) { o.AdmissionOfferAcceptanceFeePaid = true }

func TestCreateOffer(t *testing.T) {
	f := setup(t)
	app := f.application(t, uuid.New())

	req := dto.CreateAdmissionOfferRequest{
		ApplicationID:       app.ApplicationID,
		AcceptanceFeeAmount: decimal.NewFromInt(15000),
	}
	m, err := f.svc.Create(context.Background(), staff(), req)
	require.NoError(t, err)
	assert.Equal(t, model.OfferOffered, m.AdmissionOfferStatus)
	assert.Equal(t, app.ApplicationApplicantID, m.AdmissionOfferApplicantID)
	assert.Equal(t, app.ApplicationSessionID, m.AdmissionOfferSessionID)
	assert.Equal(t, fixedNow.Add(14*24*time.Hour), m.AdmissionOfferAcceptanceDeadline)
	assert.False(t, m.AdmissionOfferAcceptanceFeePaid)

	_, err = f.svc.Create(context.Background(), staff(), req)
	assert.ErrorIs(t, err, apperr.ErrDuplicateOffer)
}

func TestCreateOfferRules(t *testing.T) {
	f := setup(t)
	app := f.application(t, uuid.New())
	ctx := context.Background()

	req := dto.CreateAdmissionOfferRequest{ApplicationID: app.ApplicationID, AcceptanceFeeAmount: decimal.NewFromInt(15000)}
	_, err := f.svc.Create(ctx, owner(app.ApplicationApplicantID), req)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	past := fixedNow.Add(-time.Hour)
	req.AcceptanceDeadline = &past
	_, err = f.svc.Create(ctx, staff(), req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, staff(), dto.CreateAdmissionOfferRequest{ApplicationID: app.ApplicationID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, staff(), dto.CreateAdmissionOfferRequest{ApplicationID: uuid.New(), AcceptanceFeeAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAccept(t *testing.T) {
	f := setup(t)
	applicantID := uuid.New()
	offer := databasetest.Offer(t, f.db, f.application(t, applicantID), fixedNow.Add(time.Hour), feePaid)

	assert.False(t, offer.AdmissionOfferAdmissionAccepted)

	out, err := f.svc.Accept(context.Background(), owner(applicantID), offer.AdmissionOfferID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferAccepted, out.AdmissionOfferStatus)
	assert.True(t, out.AdmissionOfferAdmissionAccepted)
	require.NotNil(t, out.AdmissionOfferAcceptedAt)

	var stored model.AdmissionOfferModel
	require.NoError(t, f.db.Where("admission_offer_id = ?", offer.AdmissionOfferID).Take(&stored).Error)
	assert.True(t, stored.AdmissionOfferAdmissionAccepted)
	assert.Equal(t, model.OfferAccepted, stored.AdmissionOfferStatus)

	_, err = f.svc.Accept(context.Background(), owner(applicantID), offer.AdmissionOfferID)
	assert.ErrorIs(t, err, apperr.ErrNotEligible)
}

func TestAcceptConditionsAreEachRequired(t *testing.T) {
	cases := []struct {
		name     string
		deadline time.Duration
		opts     []func(*model.AdmissionOfferModel)
	}{
		{name: "fee unpaid", deadline: time.Hour},
		{name: "deadline passed", deadline: -time.Minute, opts: []func(*model.AdmissionOfferModel){feePaid}},
		{name: "not offered", deadline: time.Hour, opts: []func(*model.AdmissionOfferModel){feePaid, func(o *model.AdmissionOfferModel) {
			o.AdmissionOfferStatus = model.OfferDeclined
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			applicantID := uuid.New()
			offer := databasetest.Offer(t, f.db, f.application(t, applicantID), fixedNow.Add(tc.deadline), tc.opts...)

			_, err := f.svc.Accept(context.Background(), owner(applicantID), offer.AdmissionOfferID)
			assert.ErrorIs(t, err, apperr.ErrNotEligible)

			var stored model.AdmissionOfferModel
			require.NoError(t, f.db.Where("admission_offer_id = ?", offer.AdmissionOfferID).Take(&stored).Error)
			assert.NotEqual(t, model.OfferAccepted, stored.AdmissionOfferStatus)
			assert.False(t, stored.AdmissionOfferAdmissionAccepted)
		})
	}
}

func TestAcceptByOtherApplicantForbidden(t *testing.T) {
	f := setup(t)
	offer := databasetest.Offer(t, f.db, f.application(t, uuid.New()), fixedNow.Add(time.Hour), feePaid)

	_, err := f.svc.Accept(context.Background(), owner(uuid.New()), offer.AdmissionOfferID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDecline(t *testing.T) {
	f := setup(t)
	applicantID := uuid.New()
	offer := databasetest.Offer(t, f.db, f.application(t, applicantID), fixedNow.Add(time.Hour))

	reason := " going elsewhere "
	out, err := f.svc.Decline(context.Background(), owner(applicantID), offer.AdmissionOfferID, dto.DeclineAdmissionOfferRequest{Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, model.OfferDeclined, out.AdmissionOfferStatus)
	require.NotNil(t, out.AdmissionOfferDeclineReason)
	assert.Equal(t, "going elsewhere", *out.AdmissionOfferDeclineReason)

	_, err = f.svc.Decline(context.Background(), owner(applicantID), offer.AdmissionOfferID, dto.DeclineAdmissionOfferRequest{})
	assert.ErrorIs(t, err, apperr.ErrNotEligible)
}

func TestUpdateRefusesFeeChangeAfterPayment(t *testing.T) {
	f := setup(t)
	offer := databasetest.Offer(t, f.db, f.application(t, uuid.New()), fixedNow.Add(time.Hour), feePaid)

	fee := decimal.NewFromInt(99)
	_, err := f.svc.Update(context.Background(), staff(), offer.AdmissionOfferID, dto.UpdateAdmissionOfferRequest{AcceptanceFeeAmount: &fee})
	assert.ErrorIs(t, err, apperr.ErrNotEligible)

	later := fixedNow.Add(48 * time.Hour)
	out, err := f.svc.Update(context.Background(), staff(), offer.AdmissionOfferID, dto.UpdateAdmissionOfferRequest{AcceptanceDeadline: &later})
	require.NoError(t, err)
	assert.Equal(t, later, out.AdmissionOfferAcceptanceDeadline)
}

func TestExpireOverdue(t *testing.T) {
	f := setup(t)
	overdue := databasetest.Offer(t, f.db, f.application(t, uuid.New()), fixedNow.Add(-time.Hour))
	open := databasetest.Offer(t, f.db, f.application(t, uuid.New()), fixedNow.Add(time.Hour))
	accepted := databasetest.Offer(t, f.db, f.application(t, uuid.New()), fixedNow.Add(-time.Hour), func(o *model.AdmissionOfferModel) {
		o.AdmissionOfferStatus = model.OfferAccepted
	})

	n, err := f.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	status := func(id uuid.UUID) model.OfferStatus {
		var m model.AdmissionOfferModel
		require.NoError(t, f.db.Where("admission_offer_id = ?", id).Take(&m).Error)
		return m.AdmissionOfferStatus
	}
	assert.Equal(t, model.OfferExpired, status(overdue.AdmissionOfferID))
	assert.Equal(t, model.OfferOffered, status(open.AdmissionOfferID))
	assert.Equal(t, model.OfferAccepted, status(accepted.AdmissionOfferID))

	n, err = f.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestReportsRowsIndependently(t *testing.T) {
	f := setup(t)
	approved := f.application(t, uuid.New(), func(a *applicationModel.ApplicationModel) {
		a.ApplicationNumber = "APP202603010000101"
		a.ApplicationStatus = applicationModel.StatusApproved
	})
	offered := f.application(t, uuid.New(), func(a *applicationModel.ApplicationModel) {
		a.ApplicationNumber = "APP202603010000202"
		a.ApplicationStatus = applicationModel.StatusApproved
	})
	databasetest.Offer(t, f.db, offered, fixedNow.Add(time.Hour))

	req := dto.BatchOfferRequest{
		SessionID:           f.session.AdmissionSessionID,
		DepartmentID:        f.program.ProgramDepartmentID,
		AcceptanceFeeAmount: decimal.NewFromInt(12000),
		Rows: []dto.BatchOfferRow{
			{ApplicationNumber: approved.ApplicationNumber, Email: "someone@else.com"},
			{ApplicationNumber: "APP-MISSING"},
			{ApplicationNumber: offered.ApplicationNumber},
		},
	}
	res, err := f.svc.Ingest(context.Background(), staff(), req)
	require.NoError(t, err)

	require.Len(t, res.Created, 1)
	assert.Equal(t, 1, res.Created[0].Row)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Equal(t, 3, res.Errors[1].Row)
	assert.Contains(t, res.Errors[1].Message, "already exists")
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 1, res.Warnings[0].Row)

	var stored model.AdmissionOfferModel
	require.NoError(t, f.db.Where("admission_offer_application_id = ?", approved.ApplicationID).Take(&stored).Error)
	assert.True(t, decimal.NewFromInt(12000).Equal(stored.AdmissionOfferAcceptanceFeeAmount))
}

func TestIngestRowOverridesAndStatusWarning(t *testing.T) {
	f := setup(t)
	app := f.application(t, uuid.New())
	fee := decimal.NewFromInt(9000)

	res, err := f.svc.Ingest(context.Background(), staff(), dto.BatchOfferRequest{
		SessionID:    f.session.AdmissionSessionID,
		DepartmentID: f.program.ProgramDepartmentID,
		Rows: []dto.BatchOfferRow{
			{ApplicationNumber: app.ApplicationNumber, AcceptanceFeeAmount: &fee},
			{ApplicationNumber: "  "},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "submitted")
}

func TestIngestUnknownSession(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Ingest(context.Background(), staff(), dto.BatchOfferRequest{
		SessionID:    uuid.New(),
		DepartmentID: uuid.New(),
		Rows:         []dto.BatchOfferRow{{ApplicationNumber: "APP1"}},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Ingest(context.Background(), staff(), dto.BatchOfferRequest{
		SessionID: f.session.AdmissionSessionID,
		Rows:      []dto.BatchOfferRow{{ApplicationNumber: "APP1"}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestIngestDepartmentMismatchWarnsAndCreates(t *testing.T) {
	f := setup(t)
	approved := func(a *applicationModel.ApplicationModel) { a.ApplicationStatus = applicationModel.StatusApproved }
	moved := f.application(t, uuid.New(), approved)
	overridden := f.application(t, uuid.New(), approved)
	target := uuid.New()
	rowDepartment := f.program.ProgramDepartmentID

	res, err := f.svc.Ingest(context.Background(), staff(), dto.BatchOfferRequest{
		SessionID:           f.session.AdmissionSessionID,
		DepartmentID:        target,
		AcceptanceFeeAmount: decimal.NewFromInt(10000),
		Rows: []dto.BatchOfferRow{
			{ApplicationNumber: moved.ApplicationNumber},
			{ApplicationNumber: overridden.ApplicationNumber, DepartmentID: &rowDepartment},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 1, res.Warnings[0].Row)
	assert.Contains(t, res.Warnings[0].Message, target.String())

	var stored model.AdmissionOfferModel
	require.NoError(t, f.db.Where("admission_offer_application_id = ?", moved.ApplicationID).Take(&stored).Error)
	assert.Equal(t, target, stored.AdmissionOfferDepartmentID)

	require.NoError(t, f.db.Where("admission_offer_application_id = ?", overridden.ApplicationID).Take(&stored).Error)
	assert.Equal(t, rowDepartment, stored.AdmissionOfferDepartmentID)
}
