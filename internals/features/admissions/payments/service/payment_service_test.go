package service

import (
	"context"
	"errors"
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
	offerModel "admissions_backend/internals/features/admissions/offers/model"
	"admissions_backend/internals/features/admissions/payments/dto"
	"admissions_backend/internals/features/admissions/payments/gateway"
	"admissions_backend/internals/features/admissions/payments/model"
	"admissions_backend/internals/features/admissions/registry"
	sessionModel "admissions_backend/internals/features/admissions/sessions/model"
	helperAuth "admissions_backend/internals/helpers/auth"
	"admissions_backend/internals/helpers/apperr"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	db      *gorm.DB
	gw      *gateway.Memory
	session *sessionModel.AdmissionSessionModel
	program *registry.ProgramModel
	actor   helperAuth.Actor
	app     *applicationModel.ApplicationModel
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := databasetest.Open(t)
	gw := gateway.NewMemory("webhook-secret")
	svc := New(db, zaptest.NewLogger(t), gw, registry.New(db), nil, Settings{
		Currency:       "NGN",
		CallbackURL:    "https://portal.example.com/payments/callback",
		FormFeeDefault: decimal.NewFromInt(3000),
	})
	svc.Now = func() time.Time { return fixedNow }

	session := databasetest.Session(t, db, sessionModel.SessionActive)
	program := databasetest.Program(t, db)
	actor := helperAuth.Actor{ID: uuid.New(), Email: "ada@example.com", Role: constants.RoleApplicant}
	return fixture{
		svc:     svc,
		db:      db,
		gw:      gw,
		session: session,
		program: program,
		actor:   actor,
		app:     databasetest.Application(t, db, actor.ID, session, program),
	}
}

func (f fixture) initForm(t *testing.T) *dto.InitializePaymentResponse {
	t.Helper()
	res, err := f.svc.Initialize(context.Background(), f.actor, dto.InitializePaymentRequest{
		PaymentType:   model.TypeFormPurchase,
		ApplicationID: &f.app.ApplicationID,
	})
	require.NoError(t, err)
	return res
}

func (f fixture) reloadApp(t *testing.T) applicationModel.ApplicationModel {
	t.Helper()
	var m applicationModel.ApplicationModel
	require.NoError(t, f.db.Where("application_id = ?", f.app.ApplicationID).Take(&m).Error)
	return m
}

func (f fixture) payment(t *testing.T, reference string) model.PaymentModel {
	t.Helper()
	var p model.PaymentModel
	require.NoError(t, f.db.Where("payment_reference = ?", reference).Take(&p).Error)
	return p
}

func (f fixture) countPayments(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.PaymentModel{}).Count(&n).Error)
	return n
}

func TestInitializeFormPurchase(t *testing.T) {
	f := setup(t)
	res := f.initForm(t)

	assert.True(t, decimal.NewFromInt(5000).Equal(res.Amount))
	assert.Equal(t, "NGN", res.Currency)
	assert.Contains(t, res.AuthorizationURL, res.Reference)
	assert.Regexp(t, `^ADM-FRM-20260301-090000-[0-9A-F]{8}$`, res.Reference)

	p := f.payment(t, res.Reference)
	assert.Equal(t, model.PaymentPending, p.PaymentStatus)
	assert.Equal(t, f.actor.ID, p.PaymentPayerID)
	assert.Equal(t, f.app.ApplicationID, p.PaymentTargetID)
	assert.Equal(t, "memory", p.PaymentGatewayProvider)
	assert.Equal(t, string(model.TypeFormPurchase), p.PaymentMeta["payment_type"])
}

func TestFormFeeResolution(t *testing.T) {
	t.Run("program fee wins", func(t *testing.T) {
		f := setup(t)
		fee := decimal.NewFromInt(7000)
		require.NoError(t, f.db.Model(f.program).Update("program_form_fee", fee).Error)
		assert.True(t, fee.Equal(f.initForm(t).Amount))
	})
	t.Run("configured default when session is free", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.db.Model(f.session).Update("admission_session_form_price", decimal.Zero).Error)
		assert.True(t, decimal.NewFromInt(3000).Equal(f.initForm(t).Amount))
	})
}

func TestInitializeGatewayFailurePersistsNothing(t *testing.T) {
	f := setup(t)
	f.gw.FailInitialize(errors.New("connection reset"))

	_, err := f.svc.Initialize(context.Background(), f.actor, dto.InitializePaymentRequest{
		PaymentType:   model.TypeFormPurchase,
		ApplicationID: &f.app.ApplicationID,
	})
	require.ErrorIs(t, err, apperr.ErrGatewayUnavailable)
	assert.True(t, apperr.As(err).Retryable())
	assert.Zero(t, f.countPayments(t))
}

func TestInitializeRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	stranger := helperAuth.Actor{ID: uuid.New(), Role: constants.RoleApplicant}
	_, err := f.svc.Initialize(ctx, stranger, dto.InitializePaymentRequest{PaymentType: model.TypeFormPurchase, ApplicationID: &f.app.ApplicationID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Initialize(ctx, f.actor, dto.InitializePaymentRequest{PaymentType: model.TypeFormPurchase})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	missing := uuid.New()
	_, err = f.svc.Initialize(ctx, f.actor, dto.InitializePaymentRequest{PaymentType: model.TypeAcceptanceFee, OfferID: &missing})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Initialize(ctx, f.actor, dto.InitializePaymentRequest{PaymentType: "tuition", ApplicationID: &f.app.ApplicationID})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, false, nil
}

func TestInitializeLockHeld(t *testing.T) {
	f := setup(t)
	f.svc.Locker = busyLocker{}

	_, err := f.svc.Initialize(context.Background(), f.actor, dto.InitializePaymentRequest{
		PaymentType:   model.TypeFormPurchase,
		ApplicationID: &f.app.ApplicationID,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	initCalls, _ := f.gw.Calls()
	assert.Zero(t, initCalls)
}

func TestVerifySetsFlagOnceAndIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ref := f.initForm(t).Reference

	res, err := f.svc.Verify(ctx, f.actor, ref)
	require.NoError(t, err)
	assert.False(t, res.AlreadyVerified)
	assert.Equal(t, model.PaymentSuccessful, res.Payment.PaymentStatus)
	require.NotNil(t, res.Application)
	assert.True(t, res.Application.ApplicationFormPaid)

	first := f.reloadApp(t)
	require.NotNil(t, first.ApplicationFormPaidAt)

	f.svc.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	again, err := f.svc.Verify(ctx, f.actor, ref)
	require.NoError(t, err)
	assert.True(t, again.AlreadyVerified)

	second := f.reloadApp(t)
	assert.True(t, first.ApplicationFormPaidAt.Equal(*second.ApplicationFormPaidAt))

	_, verifyCalls := f.gw.Calls()
	assert.Equal(t, 1, verifyCalls)

	_, err = f.svc.Initialize(ctx, f.actor, dto.InitializePaymentRequest{PaymentType: model.TypeFormPurchase, ApplicationID: &f.app.ApplicationID})
	assert.ErrorIs(t, err, apperr.ErrAlreadyPaid)
}

func TestVerifyFailedOutcome(t *testing.T) {
	f := setup(t)
	ref := f.initForm(t).Reference
	f.gw.SetOutcome(ref, gateway.OutcomeFailed)

	_, err := f.svc.Verify(context.Background(), f.actor, ref)
	require.ErrorIs(t, err, apperr.ErrVerificationFailed)

	p := f.payment(t, ref)
	assert.Equal(t, model.PaymentFailed, p.PaymentStatus)
	require.NotNil(t, p.PaymentFailedAt)
	assert.False(t, f.reloadApp(t).ApplicationFormPaid)

	// terminal: no second gateway round trip
	_, err = f.svc.Verify(context.Background(), f.actor, ref)
	assert.ErrorIs(t, err, apperr.ErrVerificationFailed)
	_, verifyCalls := f.gw.Calls()
	assert.Equal(t, 1, verifyCalls)
}

func TestVerifyPendingKeepsPayment(t *testing.T) {
	f := setup(t)
	ref := f.initForm(t).Reference
	f.gw.SetOutcome(ref, gateway.OutcomePending)

	_, err := f.svc.Verify(context.Background(), f.actor, ref)
	require.ErrorIs(t, err, apperr.ErrPaymentPending)
	assert.Equal(t, model.PaymentPending, f.payment(t, ref).PaymentStatus)

	f.gw.SetOutcome(ref, gateway.OutcomeSuccess)
	_, err = f.svc.Verify(context.Background(), f.actor, ref)
	require.NoError(t, err)
	assert.True(t, f.reloadApp(t).ApplicationFormPaid)
}

func TestVerifyGatewayErrorKeepsPayment(t *testing.T) {
	f := setup(t)
	ref := f.initForm(t).Reference
	f.gw.FailVerify(errors.New("timeout"))

	_, err := f.svc.Verify(context.Background(), f.actor, ref)
	assert.ErrorIs(t, err, apperr.ErrGatewayUnavailable)
	assert.Equal(t, model.PaymentPending, f.payment(t, ref).PaymentStatus)
}

func TestVerifyAmountMismatch(t *testing.T) {
	f := setup(t)
	ref := f.initForm(t).Reference
	f.gw.SetAmount(ref, decimal.RequireFromString("4999.99"))

	_, err := f.svc.Verify(context.Background(), f.actor, ref)
	require.ErrorIs(t, err, apperr.ErrVerificationFailed)

	p := f.payment(t, ref)
	assert.Equal(t, model.PaymentFailed, p.PaymentStatus)
	require.NotNil(t, p.PaymentFailureReason)
	assert.Contains(t, *p.PaymentFailureReason, "amount mismatch")
	assert.False(t, f.reloadApp(t).ApplicationFormPaid)
}

func TestSecondSuccessfulChargeIsRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.initForm(t).Reference
	b := f.initForm(t).Reference

	_, err := f.svc.Verify(ctx, f.actor, a)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, f.actor, b)
	require.ErrorIs(t, err, apperr.ErrAlreadyPaid)

	pb := f.payment(t, b)
	assert.Equal(t, model.PaymentFailed, pb.PaymentStatus)
	require.NotNil(t, pb.PaymentFailureReason)
	assert.Contains(t, *pb.PaymentFailureReason, "refund")

	var successful int64
	require.NoError(t, f.db.Model(&model.PaymentModel{}).
		Where("payment_target_id = ? AND payment_status = ?", f.app.ApplicationID, model.PaymentSuccessful).
		Count(&successful).Error)
	assert.EqualValues(t, 1, successful)
}

func TestVerifyForbiddenForStranger(t *testing.T) {
	f := setup(t)
	ref := f.initForm(t).Reference

	_, err := f.svc.Verify(context.Background(), helperAuth.Actor{ID: uuid.New()}, ref)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Get(context.Background(), helperAuth.Actor{ID: uuid.New(), Role: constants.RoleStaff}, ref)
	assert.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), f.actor, "ADM-NOPE")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOfferFees(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	offer := databasetest.Offer(t, f.db, f.app, fixedNow.Add(72*time.Hour))

	acc, err := f.svc.Initialize(ctx, f.actor, dto.InitializePaymentRequest{PaymentType: model.TypeAcceptanceFee, OfferID: &offer.AdmissionOfferID})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10000).Equal(acc.Amount))

	adm, err := f.svc.Initialize(ctx, f.actor, dto.InitializePaymentRequest{PaymentType: model.TypeAdmissionFee, OfferID: &offer.AdmissionOfferID})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20000).Equal(adm.Amount))

	res, err := f.svc.Verify(ctx, f.actor, acc.Reference)
	require.NoError(t, err)
	require.NotNil(t, res.Offer)
	assert.True(t, res.Offer.AdmissionOfferAcceptanceFeePaid)
	assert.False(t, res.Offer.AdmissionOfferAdmissionFeePaid)

	_, err = f.svc.Verify(ctx, f.actor, adm.Reference)
	require.NoError(t, err)

	var stored offerModel.AdmissionOfferModel
	require.NoError(t, f.db.Where("admission_offer_id = ?", offer.AdmissionOfferID).Take(&stored).Error)
	assert.True(t, stored.AdmissionOfferAcceptanceFeePaid)
	assert.True(t, stored.AdmissionOfferAdmissionFeePaid)
	assert.False(t, f.reloadApp(t).ApplicationFormPaid)
}

func TestAcceptanceFeeNeedsOpenOffer(t *testing.T) {
	f := setup(t)
	offer := databasetest.Offer(t, f.db, f.app, fixedNow.Add(72*time.Hour), func(o *offerModel.AdmissionOfferModel) {
		o.AdmissionOfferStatus = offerModel.OfferDeclined
	})

	_, err := f.svc.Initialize(context.Background(), f.actor, dto.InitializePaymentRequest{PaymentType: model.TypeAcceptanceFee, OfferID: &offer.AdmissionOfferID})
	assert.ErrorIs(t, err, apperr.ErrNotEligible)

	_, err = f.svc.Initialize(context.Background(), f.actor, dto.InitializePaymentRequest{PaymentType: model.TypeAdmissionFee, OfferID: &offer.AdmissionOfferID})
	assert.ErrorIs(t, err, apperr.ErrNotEligible)
}

func webhookBody(ref string) []byte {
	return []byte(`{"reference":"` + ref + `"}`)
}

func (f fixture) signed(body []byte) func(string) string {
	sig := f.gw.Sign(body)
	return func(key string) string {
		if key == "x-memory-signature" {
			return sig
		}
		return ""
	}
}

func TestWebhook(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ref := f.initForm(t).Reference
	body := webhookBody(ref)

	out, err := f.svc.HandleWebhook(ctx, "memory", f.signed(body), body)
	require.NoError(t, err)
	assert.Equal(t, "processed", out.Outcome)
	assert.True(t, f.reloadApp(t).ApplicationFormPaid)

	out, err = f.svc.HandleWebhook(ctx, "memory", f.signed(body), body)
	require.NoError(t, err)
	assert.Equal(t, "duplicate", out.Outcome)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := setup(t)
	ref := f.initForm(t).Reference
	body := webhookBody(ref)

	_, err := f.svc.HandleWebhook(context.Background(), "memory", func(string) string { return "deadbeef" }, body)
	require.ErrorIs(t, err, apperr.ErrInvalidSignature)
	assert.Equal(t, model.PaymentPending, f.payment(t, ref).PaymentStatus)

	_, err = f.svc.HandleWebhook(context.Background(), "paystack", f.signed(body), body)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWebhookOutcomes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	unknown := webhookBody("ADM-UNKNOWN")
	out, err := f.svc.HandleWebhook(ctx, "memory", f.signed(unknown), unknown)
	require.NoError(t, err)
	assert.Equal(t, "ignored", out.Outcome)

	ref := f.initForm(t).Reference
	body := webhookBody(ref)
	f.gw.SetOutcome(ref, gateway.OutcomePending)
	out, err = f.svc.HandleWebhook(ctx, "memory", f.signed(body), body)
	require.NoError(t, err)
	assert.Equal(t, "pending", out.Outcome)

	f.gw.SetOutcome(ref, gateway.OutcomeFailed)
	out, err = f.svc.HandleWebhook(ctx, "memory", f.signed(body), body)
	require.NoError(t, err)
	assert.Equal(t, "failed", out.Outcome)
	require.NotNil(t, out.Payment)
	assert.Equal(t, model.PaymentFailed, out.Payment.PaymentStatus)
}

func TestListPayments(t *testing.T) {
	f := setup(t)
	ref := f.initForm(t).Reference
	_, err := f.svc.Verify(context.Background(), f.actor, ref)
	require.NoError(t, err)
	f.initForm(t)

	mine, total, err := f.svc.ListMine(context.Background(), f.actor, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	rows, total, err := f.svc.List(context.Background(), dto.ListPaymentsQuery{Status: "successful"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, ref, rows[0].PaymentReference)

	_, _, err = f.svc.List(context.Background(), dto.ListPaymentsQuery{Status: "refunded"}, 0, 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestTransitionOnlyLeavesPending(t *testing.T) {
	f := setup(t)
	p := f.initForm(t).Payment

	require.NoError(t, f.svc.transition(f.db, p, model.PaymentSuccessful, map[string]any{"payment_updated_at": fixedNow}))
	assert.Equal(t, model.PaymentSuccessful, p.PaymentStatus)

	err := f.svc.transition(f.db, p, model.PaymentFailed, map[string]any{})
	assert.ErrorIs(t, err, apperr.ErrNotEligible)

	// a copy read before the update loses the race
	stale := *p
	stale.PaymentStatus = model.PaymentPending
	err = f.svc.transition(f.db, &stale, model.PaymentFailed, map[string]any{})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored := f.payment(t, p.PaymentReference)
	assert.Equal(t, model.PaymentSuccessful, stored.PaymentStatus)
}
