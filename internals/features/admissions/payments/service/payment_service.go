package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "admissions_backend/internals/databases"
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

type Settings struct {
	Currency       string
	CallbackURL    string
	GatewayTimeout time.Duration
	FormFeeDefault decimal.Decimal
	InitLockTTL    time.Duration
}

// Service drives payments through pending -> successful | failed and
// applies the matching paid flag exactly once.
type Service struct {
	DB       *gorm.DB
	Log      *zap.Logger
	Gateway  gateway.Gateway
	Registry registry.Registry
	Locker   Locker
	Settings Settings
	Now      func() time.Time
}

func New(db *gorm.DB, log *zap.Logger, gw gateway.Gateway, reg registry.Registry, locker Locker, settings Settings) *Service {
	if locker == nil {
		locker = NoopLocker{}
	}
	if settings.GatewayTimeout <= 0 {
		settings.GatewayTimeout = 15 * time.Second
	}
	if settings.InitLockTTL <= 0 {
		settings.InitLockTTL = 30 * time.Second
	}
	return &Service{
		DB:       db,
		Log:      log.Named("payments"),
		Gateway:  gw,
		Registry: reg,
		Locker:   locker,
		Settings: settings,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// resolved is a payment target with everything needed to charge it.
type resolved struct {
	target      model.Target
	amount      decimal.Decimal
	ownerID     uuid.UUID
	sessionID   uuid.UUID
	application *applicationModel.ApplicationModel
	offer       *offerModel.AdmissionOfferModel
	description string
}

// Initialize opens a gateway checkout for the target. Nothing is stored
// when the gateway call fails.
func (s *Service) Initialize(ctx context.Context, actor helperAuth.Actor, req dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	target, err := req.Target()
	if err != nil {
		return nil, err
	}
	r, err := s.resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if r.ownerID != actor.ID {
		return nil, apperr.ErrForbidden
	}

	key := fmt.Sprintf("payment-init:%s:%s", target.Type(), target.ID())
	release, acquired, err := s.Locker.Acquire(ctx, key, s.Settings.InitLockTTL)
	if err != nil {
		// the unique index still guards settlement
		s.Log.Warn("payment init lock unavailable", zap.Error(err))
	} else if !acquired {
		return nil, apperr.New(apperr.ErrConflict, "a payment for this fee is already being initialized")
	}
	defer release()

	paid, err := s.hasSuccessful(s.DB.WithContext(ctx), target, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, apperr.ErrAlreadyPaid
	}
	if !r.amount.IsPositive() {
		return nil, apperr.Newf(apperr.ErrNotEligible, "no %s amount is configured", target.Type())
	}

	now := s.Now()
	ref := model.GenReference(target.Type(), now)
	callback := req.CallbackURL
	if callback == "" {
		callback = s.Settings.CallbackURL
	}
	email := actor.Email
	if email == "" && r.application != nil {
		email = r.application.ApplicationEmail
	}
	ginit := gateway.InitRequest{
		Reference:   ref,
		Amount:      r.amount,
		Currency:    s.Settings.Currency,
		Email:       email,
		CallbackURL: callback,
		Description: r.description,
		Metadata: map[string]any{
			"payment_type": string(target.Type()),
			"target_id":    target.ID().String(),
			"payer_id":     actor.ID.String(),
		},
	}
	if r.application != nil {
		ginit.Customer = gateway.Customer{
			FirstName: r.application.ApplicationFirstName,
			LastName:  r.application.ApplicationLastName,
		}
		if r.application.ApplicationPhone != nil {
			ginit.Customer.Phone = *r.application.ApplicationPhone
		}
	}

	gctx, cancel := context.WithTimeout(ctx, s.Settings.GatewayTimeout)
	res, err := s.Gateway.Initialize(gctx, ginit)
	cancel()
	if err != nil {
		s.Log.Warn("gateway initialize failed",
			zap.String("gateway", s.Gateway.Name()),
			zap.String("reference", ref),
			zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrGatewayUnavailable, apperr.ErrGatewayUnavailable.Message, err)
	}

	sessionID := r.sessionID
	p := &model.PaymentModel{
		PaymentPayerID:          actor.ID,
		PaymentType:             target.Type(),
		PaymentTargetID:         target.ID(),
		PaymentSessionID:        &sessionID,
		PaymentReference:        ref,
		PaymentAmount:           r.amount,
		PaymentCurrency:         s.Settings.Currency,
		PaymentStatus:           model.PaymentPending,
		PaymentPayerEmail:       email,
		PaymentGatewayProvider:  s.Gateway.Name(),
		PaymentGatewayReference: nonEmpty(res.GatewayReference),
		PaymentAuthorizationURL: nonEmpty(res.AuthorizationURL),
		PaymentMeta:             datatypes.JSONMap(ginit.Metadata),
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, apperr.Internal("store payment", err)
	}
	s.Log.Info("payment initialized",
		zap.String("reference", ref),
		zap.String("payment_type", string(target.Type())),
		zap.String("target_id", target.ID().String()),
		zap.String("amount", r.amount.String()))

	return &dto.InitializePaymentResponse{
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Reference:        ref,
		Amount:           r.amount,
		Currency:         s.Settings.Currency,
		Payment:          p,
	}, nil
}

// Verify settles a payment the actor may access by asking the gateway.
// Verifying a successful payment again returns it unchanged.
func (s *Service) Verify(ctx context.Context, actor helperAuth.Actor, reference string) (*dto.PaymentResponse, error) {
	p, err := s.loadByReference(s.DB.WithContext(ctx), reference, false)
	if err != nil {
		return nil, err
	}
	app, offer, err := s.related(s.DB.WithContext(ctx), p)
	if err != nil {
		return nil, err
	}
	if !CanAccess(actor, p, app, offer) {
		return nil, apperr.ErrForbidden
	}
	return s.reconcile(ctx, p)
}

// HandleWebhook authenticates a provider callback and reconciles the
// payment it names. Business outcomes are acknowledged so the provider
// stops retrying; only gateway or storage trouble is returned as an error.
func (s *Service) HandleWebhook(ctx context.Context, provider string, header func(string) string, body []byte) (*dto.WebhookResult, error) {
	if provider != s.Gateway.Name() {
		return nil, apperr.Newf(apperr.ErrNotFound, "payment provider %q is not configured", provider)
	}
	ref, err := s.Gateway.ParseWebhook(header, body)
	if errors.Is(err, gateway.ErrInvalidSignature) {
		s.Log.Warn("webhook signature rejected", zap.String("provider", provider))
		return nil, apperr.ErrInvalidSignature
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrBadRequest, "invalid webhook payload", err)
	}

	out := &dto.WebhookResult{Reference: ref}
	p, err := s.loadByReference(s.DB.WithContext(ctx), ref, false)
	if errors.Is(err, apperr.ErrNotFound) {
		s.Log.Warn("webhook for unknown reference", zap.String("reference", ref))
		out.Outcome = "ignored"
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	res, err := s.reconcile(ctx, p)
	switch {
	case err == nil:
		out.Outcome = "processed"
		if res.AlreadyVerified {
			out.Outcome = "duplicate"
		}
		out.Payment = res.Payment
		return out, nil
	case errors.Is(err, apperr.ErrPaymentPending):
		out.Outcome = "pending"
	case errors.Is(err, apperr.ErrVerificationFailed), errors.Is(err, apperr.ErrAlreadyPaid):
		out.Outcome = "failed"
	default:
		return nil, err
	}
	if fresh, lerr := s.loadByReference(s.DB.WithContext(ctx), ref, false); lerr == nil {
		out.Payment = fresh
	}
	return out, nil
}

// Get returns a payment without contacting the gateway.
func (s *Service) Get(ctx context.Context, actor helperAuth.Actor, reference string) (*dto.PaymentResponse, error) {
	db := s.DB.WithContext(ctx)
	p, err := s.loadByReference(db, reference, false)
	if err != nil {
		return nil, err
	}
	app, offer, err := s.related(db, p)
	if err != nil {
		return nil, err
	}
	if !CanAccess(actor, p, app, offer) && !actor.IsStaff() {
		return nil, apperr.ErrForbidden
	}
	return &dto.PaymentResponse{Payment: p, Application: app, Offer: offer}, nil
}

func (s *Service) ListMine(ctx context.Context, actor helperAuth.Actor, offset, limit int) ([]model.PaymentModel, int64, error) {
	db := s.DB.WithContext(ctx).Model(&model.PaymentModel{}).
		Where("payment_payer_id = ?", actor.ID)
	return s.page(db, offset, limit)
}

func (s *Service) List(ctx context.Context, q dto.ListPaymentsQuery, offset, limit int) ([]model.PaymentModel, int64, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	db := s.DB.WithContext(ctx).Model(&model.PaymentModel{})
	if q.Status != "" {
		db = db.Where("payment_status = ?", q.Status)
	}
	if q.Type != "" {
		db = db.Where("payment_type = ?", q.Type)
	}
	if q.SessionID != "" {
		db = db.Where("payment_session_id = ?", q.SessionID)
	}
	if q.PayerID != "" {
		db = db.Where("payment_payer_id = ?", q.PayerID)
	}
	if q.TargetID != "" {
		db = db.Where("payment_target_id = ?", q.TargetID)
	}
	return s.page(db, offset, limit)
}

// reconcile moves a pending payment to its final state from the gateway's
// answer. The gateway is called outside any transaction.
func (s *Service) reconcile(ctx context.Context, p *model.PaymentModel) (*dto.PaymentResponse, error) {
	switch p.PaymentStatus {
	case model.PaymentSuccessful:
		return s.settle(ctx, p.PaymentID, nil)
	case model.PaymentFailed:
		return nil, apperr.New(apperr.ErrVerificationFailed, failureText(p))
	}

	gctx, cancel := context.WithTimeout(ctx, s.Settings.GatewayTimeout)
	res, err := s.Gateway.Verify(gctx, p.PaymentReference)
	cancel()
	if err != nil {
		s.Log.Warn("gateway verify failed",
			zap.String("gateway", s.Gateway.Name()),
			zap.String("reference", p.PaymentReference),
			zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrGatewayUnavailable, apperr.ErrGatewayUnavailable.Message, err)
	}
	if res.Outcome == gateway.OutcomePending {
		return nil, apperr.Newf(apperr.ErrPaymentPending, "payment is still %s at the gateway", res.Status)
	}
	return s.settle(ctx, p.PaymentID, res)
}

// settle applies a gateway answer under a row lock. res is nil when the
// payment is already successful and only the paid flag is re-checked.
func (s *Service) settle(ctx context.Context, paymentID uuid.UUID, res *gateway.VerifyResult) (*dto.PaymentResponse, error) {
	var (
		out     *dto.PaymentResponse
		outcome error
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPayment(tx, paymentID)
		if err != nil {
			return err
		}
		now := s.Now()

		switch p.PaymentStatus {
		case model.PaymentSuccessful:
			if err := s.applyPaidFlag(tx, p, now); err != nil {
				return err
			}
			out, err = s.response(tx, p, true)
			return err
		case model.PaymentFailed:
			outcome = apperr.New(apperr.ErrVerificationFailed, failureText(p))
			return nil
		}
		if res == nil {
			return apperr.Internal("settle pending payment without gateway result", nil)
		}

		if res.Outcome != gateway.OutcomeSuccess {
			reason := res.Message
			if reason == "" {
				reason = "gateway reported " + res.Status
			}
			outcome = apperr.New(apperr.ErrVerificationFailed, reason)
			return s.markFailed(tx, p, res, reason, now)
		}
		if !res.AmountMatches(p.PaymentAmount) {
			reason := fmt.Sprintf("amount mismatch: expected %s, gateway charged %s", p.PaymentAmount, res.Amount)
			outcome = apperr.New(apperr.ErrVerificationFailed, reason)
			return s.markFailed(tx, p, res, reason, now)
		}

		target, err := p.Target()
		if err != nil {
			return apperr.Internal("payment target", err)
		}
		dup, err := s.hasSuccessful(tx, target, p.PaymentID)
		if err != nil {
			return err
		}
		if dup {
			s.Log.Error("second successful charge for an already paid fee, refund required",
				zap.String("reference", p.PaymentReference),
				zap.String("payment_type", string(p.PaymentType)),
				zap.String("target_id", p.PaymentTargetID.String()))
			outcome = apperr.New(apperr.ErrAlreadyPaid, "this fee was already paid; the duplicate charge will be refunded")
			return s.markFailed(tx, p, res, "duplicate charge: fee already paid, refund required", now)
		}

		set := map[string]any{
			"payment_gateway_status": res.Status,
			"payment_paid_at":        now,
			"payment_updated_at":     now,
		}
		if res.PaidAt != nil {
			set["payment_paid_at"] = res.PaidAt.UTC()
		}
		if err := s.transition(tx, p, model.PaymentSuccessful, set); err != nil {
			return err
		}
		paidAt := set["payment_paid_at"].(time.Time)
		p.PaymentPaidAt = &paidAt
		p.PaymentGatewayStatus = nonEmpty(res.Status)

		if err := s.applyPaidFlag(tx, p, now); err != nil {
			return err
		}
		out, err = s.response(tx, p, false)
		return err
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		if database.IsUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.ErrConflict, "payment settled concurrently, retry", err)
		}
		return nil, apperr.Internal("settle payment", err)
	}
	if outcome != nil {
		return nil, outcome
	}
	if !out.AlreadyVerified {
		s.Log.Info("payment successful",
			zap.String("reference", out.Payment.PaymentReference),
			zap.String("payment_type", string(out.Payment.PaymentType)),
			zap.String("target_id", out.Payment.PaymentTargetID.String()))
	}
	return out, nil
}

func (s *Service) markFailed(tx *gorm.DB, p *model.PaymentModel, res *gateway.VerifyResult, reason string, now time.Time) error {
	if err := s.transition(tx, p, model.PaymentFailed, map[string]any{
		"payment_gateway_status": res.Status,
		"payment_failure_reason": reason,
		"payment_failed_at":      now,
		"payment_updated_at":     now,
	}); err != nil {
		return err
	}
	s.Log.Info("payment failed",
		zap.String("reference", p.PaymentReference),
		zap.String("reason", reason))
	return nil
}

// transition moves a locked payment to next. The current status is repeated
// in the UPDATE so a concurrent settle cannot apply twice.
func (s *Service) transition(tx *gorm.DB, p *model.PaymentModel, next model.PaymentStatus, set map[string]any) error {
	from := p.PaymentStatus
	if !from.CanTransitionTo(next) {
		return apperr.Newf(apperr.ErrNotEligible, "payment cannot move from %s to %s", from, next)
	}
	set["payment_status"] = next
	upd := tx.Model(p).Where("payment_status = ?", from).Updates(set)
	if upd.Error != nil {
		return upd.Error
	}
	if upd.RowsAffected == 0 {
		return apperr.ErrConflict
	}
	p.PaymentStatus = next
	return nil
}

// applyPaidFlag sets the flag matching the payment type. The update only
// matches an unset flag, so the paid timestamp is written once.
func (s *Service) applyPaidFlag(tx *gorm.DB, p *model.PaymentModel, now time.Time) error {
	target, err := p.Target()
	if err != nil {
		return apperr.Internal("payment target", err)
	}
	var res *gorm.DB
	switch t := target.(type) {
	case model.FormPurchase:
		res = tx.Model(&applicationModel.ApplicationModel{}).
			Where("application_id = ? AND application_form_paid = ?", t.ApplicationID, false).
			Updates(map[string]any{
				"application_form_paid":    true,
				"application_form_paid_at": now,
				"application_updated_at":   now,
			})
	case model.AdmissionFee:
		res = tx.Model(&offerModel.AdmissionOfferModel{}).
			Where("admission_offer_id = ? AND admission_offer_admission_fee_paid = ?", t.OfferID, false).
			Updates(map[string]any{
				"admission_offer_admission_fee_paid":    true,
				"admission_offer_admission_fee_paid_at": now,
				"admission_offer_updated_at":            now,
			})
	case model.AcceptanceFee:
		res = tx.Model(&offerModel.AdmissionOfferModel{}).
			Where("admission_offer_id = ? AND admission_offer_acceptance_fee_paid = ?", t.OfferID, false).
			Updates(map[string]any{
				"admission_offer_acceptance_fee_paid":    true,
				"admission_offer_acceptance_fee_paid_at": now,
				"admission_offer_updated_at":             now,
			})
	default:
		return apperr.Internal("unknown payment target", nil)
	}
	if res.Error != nil {
		return apperr.Internal("apply paid flag", res.Error)
	}
	if res.RowsAffected > 0 {
		s.Log.Info("paid flag set",
			zap.String("payment_type", string(p.PaymentType)),
			zap.String("target_id", p.PaymentTargetID.String()))
	}
	return nil
}

// resolve loads the target and prices it.
func (s *Service) resolve(ctx context.Context, target model.Target) (*resolved, error) {
	db := s.DB.WithContext(ctx)
	switch t := target.(type) {
	case model.FormPurchase:
		var app applicationModel.ApplicationModel
		if err := take(db, &app, "application_id = ?", t.ApplicationID, "application not found"); err != nil {
			return nil, err
		}
		amount, err := s.formFee(ctx, &app)
		if err != nil {
			return nil, err
		}
		return &resolved{
			target:      t,
			amount:      amount,
			ownerID:     app.ApplicationApplicantID,
			sessionID:   app.ApplicationSessionID,
			application: &app,
			description: "Application form " + app.ApplicationNumber,
		}, nil

	case model.AdmissionFee, model.AcceptanceFee:
		var offer offerModel.AdmissionOfferModel
		if err := take(db, &offer, "admission_offer_id = ?", target.ID(), "admission offer not found"); err != nil {
			return nil, err
		}
		var app applicationModel.ApplicationModel
		if err := take(db, &app, "application_id = ?", offer.AdmissionOfferApplicationID, "application not found"); err != nil {
			return nil, err
		}
		r := &resolved{
			target:      t,
			ownerID:     offer.AdmissionOfferApplicantID,
			sessionID:   offer.AdmissionOfferSessionID,
			application: &app,
			offer:       &offer,
		}
		if _, ok := t.(model.AcceptanceFee); ok {
			if offer.AdmissionOfferStatus != offerModel.OfferOffered {
				return nil, apperr.Newf(apperr.ErrNotEligible, "offer is %s", offer.AdmissionOfferStatus)
			}
			r.amount = offer.AdmissionOfferAcceptanceFeeAmount
			r.description = "Acceptance fee " + app.ApplicationNumber
			return r, nil
		}
		if offer.AdmissionOfferStatus != offerModel.OfferOffered && offer.AdmissionOfferStatus != offerModel.OfferAccepted {
			return nil, apperr.Newf(apperr.ErrNotEligible, "offer is %s", offer.AdmissionOfferStatus)
		}
		var session sessionModel.AdmissionSessionModel
		if err := take(db, &session, "admission_session_id = ?", offer.AdmissionOfferSessionID, "admission session not found"); err != nil {
			return nil, err
		}
		r.amount = session.AdmissionSessionAdmissionFee
		r.description = "Admission fee " + app.ApplicationNumber
		return r, nil
	}
	return nil, apperr.New(apperr.ErrBadRequest, "unknown payment target")
}

// formFee prefers the program fee, then the session form price, then the
// configured default.
func (s *Service) formFee(ctx context.Context, app *applicationModel.ApplicationModel) (decimal.Decimal, error) {
	program, err := s.Registry.Program(ctx, app.ApplicationProgramID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return decimal.Zero, err
	}
	if program != nil && program.FormFee.IsPositive() {
		return program.FormFee, nil
	}
	var session sessionModel.AdmissionSessionModel
	err = s.DB.WithContext(ctx).Where("admission_session_id = ?", app.ApplicationSessionID).Take(&session).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, apperr.Internal("load admission session", err)
	}
	if err == nil && session.AdmissionSessionFormPrice.IsPositive() {
		return session.AdmissionSessionFormPrice, nil
	}
	return s.Settings.FormFeeDefault, nil
}

// related loads the application or offer a payment targets. Missing rows
// come back as nil.
func (s *Service) related(db *gorm.DB, p *model.PaymentModel) (*applicationModel.ApplicationModel, *offerModel.AdmissionOfferModel, error) {
	switch p.PaymentType {
	case model.TypeFormPurchase:
		var app applicationModel.ApplicationModel
		err := db.Where("application_id = ?", p.PaymentTargetID).Take(&app).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, apperr.Internal("load application", err)
		}
		return &app, nil, nil
	default:
		var offer offerModel.AdmissionOfferModel
		err := db.Where("admission_offer_id = ?", p.PaymentTargetID).Take(&offer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, apperr.Internal("load admission offer", err)
		}
		return nil, &offer, nil
	}
}

func (s *Service) response(tx *gorm.DB, p *model.PaymentModel, already bool) (*dto.PaymentResponse, error) {
	app, offer, err := s.related(tx, p)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentResponse{Payment: p, Application: app, Offer: offer, AlreadyVerified: already}, nil
}

// hasSuccessful reports a successful payment for target other than except.
func (s *Service) hasSuccessful(db *gorm.DB, target model.Target, except uuid.UUID) (bool, error) {
	q := db.Model(&model.PaymentModel{}).
		Where("payment_target_id = ? AND payment_type = ? AND payment_status = ?", target.ID(), target.Type(), model.PaymentSuccessful)
	if except != uuid.Nil {
		q = q.Where("payment_id <> ?", except)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, apperr.Internal("check successful payment", err)
	}
	return n > 0, nil
}

func (s *Service) lockPayment(tx *gorm.DB, id uuid.UUID) (*model.PaymentModel, error) {
	var p model.PaymentModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("payment_id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "payment not found")
	}
	if err != nil {
		return nil, apperr.Internal("lock payment", err)
	}
	return &p, nil
}

func (s *Service) loadByReference(db *gorm.DB, reference string, forUpdate bool) (*model.PaymentModel, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p model.PaymentModel
	err := db.Where("payment_reference = ?", reference).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "payment not found")
	}
	if err != nil {
		return nil, apperr.Internal("load payment", err)
	}
	return &p, nil
}

func (s *Service) page(db *gorm.DB, offset, limit int) ([]model.PaymentModel, int64, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count payments", err)
	}
	var rows []model.PaymentModel
	if err := db.Order("payment_created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Internal("list payments", err)
	}
	return rows, total, nil
}

func take(db *gorm.DB, dst any, query string, id uuid.UUID, notFound string) error {
	err := db.Where(query, id).Take(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.ErrNotFound, notFound)
	}
	if err != nil {
		return apperr.Internal(notFound, err)
	}
	return nil
}

func failureText(p *model.PaymentModel) string {
	if p.PaymentFailureReason != nil && *p.PaymentFailureReason != "" {
		return "payment failed: " + *p.PaymentFailureReason
	}
	return "payment failed"
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
