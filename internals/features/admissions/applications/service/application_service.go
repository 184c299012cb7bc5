package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "admissions_backend/internals/databases"
	"admissions_backend/internals/features/admissions/applications/dto"
	"admissions_backend/internals/features/admissions/applications/model"
	offerModel "admissions_backend/internals/features/admissions/offers/model"
	paymentModel "admissions_backend/internals/features/admissions/payments/model"
	"admissions_backend/internals/features/admissions/registry"
	sessionModel "admissions_backend/internals/features/admissions/sessions/model"
	helperAuth "admissions_backend/internals/helpers/auth"
	"admissions_backend/internals/helpers/apperr"
)

const maxNumberAttempts = 5

// SessionResolver is the part of the session service submissions need.
type SessionResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*sessionModel.AdmissionSessionModel, error)
	Active(ctx context.Context) (*sessionModel.AdmissionSessionModel, error)
}

// NumberFunc builds an application number from the submission time and a
// per-day sequence hint.
type NumberFunc func(now time.Time, seq int64) string

// DefaultNumber yields APP<yyyymmdd><rand:5><serial:2>, e.g.
// APP202610150481207. The serial is the daily sequence modulo 100.
func DefaultNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("APP%s%05d%02d", now.Format("20060102"), rand.IntN(100000), seq%100)
}

type Service struct {
	DB       *gorm.DB
	Log      *zap.Logger
	Sessions SessionResolver
	Registry registry.Registry
	Now      func() time.Time
	Number   NumberFunc
}

func New(db *gorm.DB, log *zap.Logger, sessions SessionResolver, reg registry.Registry) *Service {
	return &Service{
		DB:       db,
		Log:      log.Named("applications"),
		Sessions: sessions,
		Registry: reg,
		Now:      func() time.Time { return time.Now().UTC() },
		Number:   DefaultNumber,
	}
}

// Submit creates the actor's application for a session. One applicant gets
// one application per session.
func (s *Service) Submit(ctx context.Context, actor helperAuth.Actor, req dto.SubmitApplicationRequest) (*model.ApplicationModel, error) {
	req.Normalize(actor.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := s.resolveSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.AdmissionSessionStatus == sessionModel.SessionClosed {
		return nil, apperr.New(apperr.ErrNotEligible, "admission session is closed")
	}

	program, err := s.Registry.Program(ctx, req.ProgramID)
	if err != nil {
		return nil, err
	}
	if req.DepartmentID != nil && *req.DepartmentID != program.DepartmentID {
		return nil, apperr.Field("application_department_id", "program does not belong to this department")
	}
	now := s.Now()
	if !program.WindowOpen(now) {
		return nil, apperr.Newf(apperr.ErrWindowClosed, "applications for %s are not open", program.Name)
	}

	dup, err := s.exists(ctx, actor.ID, session.AdmissionSessionID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.ErrDuplicateApplication
	}

	m := req.ToModel(actor.ID, session.AdmissionSessionID, program, now)
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		seq, err := s.countSince(ctx, startOfDay(now))
		if err != nil {
			return nil, err
		}
		m.ApplicationNumber = s.Number(now, seq+int64(attempt))

		err = s.DB.WithContext(ctx).Create(m).Error
		if err == nil {
			s.Log.Info("application submitted",
				zap.String("application_id", m.ApplicationID.String()),
				zap.String("application_number", m.ApplicationNumber),
				zap.String("applicant_id", actor.ID.String()))
			return m, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, apperr.Internal("create application", err)
		}
		// the same index error covers a concurrent duplicate submit
		if dup, derr := s.exists(ctx, actor.ID, session.AdmissionSessionID); derr == nil && dup {
			return nil, apperr.ErrDuplicateApplication
		}
		s.Log.Warn("application number collision",
			zap.String("application_number", m.ApplicationNumber),
			zap.Int("attempt", attempt))
	}
	return nil, apperr.New(apperr.ErrConflict, "could not allocate a unique application number")
}

func (s *Service) Get(ctx context.Context, actor helperAuth.Actor, id uuid.UUID) (*model.ApplicationModel, error) {
	m, err := s.load(s.DB.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if m.ApplicationApplicantID != actor.ID && !actor.IsStaff() {
		return nil, apperr.ErrForbidden
	}
	return m, nil
}

func (s *Service) ListMine(ctx context.Context, actor helperAuth.Actor, offset, limit int) ([]model.ApplicationModel, int64, error) {
	db := s.DB.WithContext(ctx).Model(&model.ApplicationModel{}).
		Where("application_applicant_id = ?", actor.ID)
	return s.page(db, offset, limit)
}

// List is the staff view with filters.
func (s *Service) List(ctx context.Context, q dto.ListApplicationsQuery, offset, limit int) ([]model.ApplicationModel, int64, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	db := s.DB.WithContext(ctx).Model(&model.ApplicationModel{})
	if q.SessionID != "" {
		db = db.Where("application_session_id = ?", q.SessionID)
	}
	if q.DepartmentID != "" {
		db = db.Where("application_department_id = ?", q.DepartmentID)
	}
	if q.ProgramID != "" {
		db = db.Where("application_program_id = ?", q.ProgramID)
	}
	if q.Status != "" {
		db = db.Where("application_status = ?", q.Status)
	}
	if q.FormPaid != nil {
		db = db.Where("application_form_paid = ?", *q.FormPaid)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Q)); term != "" {
		like := "%" + term + "%"
		db = db.Where("(LOWER(application_number) LIKE ? OR LOWER(application_first_name) LIKE ? OR LOWER(application_last_name) LIKE ? OR application_email LIKE ?)",
			like, like, like, like)
	}
	return s.page(db, offset, limit)
}

// Update edits the applicant data while the form fee is unpaid.
func (s *Service) Update(ctx context.Context, actor helperAuth.Actor, id uuid.UUID, req dto.UpdateApplicationRequest) (*model.ApplicationModel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var program *registry.Program
	if req.ProgramID != nil {
		p, err := s.Registry.Program(ctx, *req.ProgramID)
		if err != nil {
			return nil, err
		}
		if !p.WindowOpen(s.Now()) {
			return nil, apperr.Newf(apperr.ErrWindowClosed, "applications for %s are not open", p.Name)
		}
		program = p
	}

	var out *model.ApplicationModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.ownedForChange(tx, actor, id)
		if err != nil {
			return err
		}
		set := req.Apply(m, program)
		if len(set) == 0 {
			out = m
			return nil
		}
		set["application_updated_at"] = s.Now()
		res := tx.Model(m).Where("application_form_paid = ?", false).Updates(set)
		if res.Error != nil {
			return apperr.Internal("update application", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrLocked
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete withdraws an unpaid application without an offer or a pending
// form payment. Failed payment rows are kept.
func (s *Service) Delete(ctx context.Context, actor helperAuth.Actor, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedForChange(tx, actor, id); err != nil {
			return err
		}
		var offers int64
		if err := tx.Model(&offerModel.AdmissionOfferModel{}).
			Where("admission_offer_application_id = ?", id).
			Count(&offers).Error; err != nil {
			return apperr.Internal("count offers", err)
		}
		if offers > 0 {
			return apperr.New(apperr.ErrNotEligible, "application already has an admission offer")
		}
		// a pending checkout may still settle at the gateway
		var pending int64
		if err := tx.Model(&paymentModel.PaymentModel{}).
			Where("payment_target_id = ? AND payment_type = ? AND payment_status = ?",
				id, paymentModel.TypeFormPurchase, paymentModel.PaymentPending).
			Count(&pending).Error; err != nil {
			return apperr.Internal("count form payments", err)
		}
		if pending > 0 {
			return apperr.New(apperr.ErrNotEligible, "a form payment is still pending; verify it before withdrawing")
		}
		res := tx.Where("application_id = ? AND application_form_paid = ?", id, false).
			Delete(&model.ApplicationModel{})
		if res.Error != nil {
			return apperr.Internal("delete application", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrLocked
		}
		s.Log.Info("application deleted", zap.String("application_id", id.String()))
		return nil
	})
}

// SetStatus is the staff review transition. Moving to the current status
// only records notes.
func (s *Service) SetStatus(ctx context.Context, actor helperAuth.Actor, id uuid.UUID, req dto.SetApplicationStatusRequest) (*model.ApplicationModel, error) {
	if !actor.IsStaff() {
		return nil, apperr.New(apperr.ErrForbidden, "only staff may change application status")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *model.ApplicationModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		if !m.ApplicationStatus.CanTransitionTo(req.Status) {
			return apperr.Newf(apperr.ErrNotEligible, "cannot move application from %s to %s", m.ApplicationStatus, req.Status)
		}
		now := s.Now()
		reviewer := actor.ID
		set := map[string]any{
			"application_status":      req.Status,
			"application_reviewed_by": reviewer,
			"application_reviewed_at": now,
			"application_updated_at":  now,
		}
		if req.Notes != nil {
			set["application_review_notes"] = strings.TrimSpace(*req.Notes)
		}
		if err := tx.Model(m).Updates(set).Error; err != nil {
			return apperr.Internal("set application status", err)
		}
		if req.Notes != nil {
			notes := strings.TrimSpace(*req.Notes)
			m.ApplicationReviewNotes = &notes
		}
		m.ApplicationStatus = req.Status
		m.ApplicationReviewedBy = &reviewer
		m.ApplicationReviewedAt = &now
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("application status changed",
		zap.String("application_id", id.String()),
		zap.String("status", string(req.Status)),
		zap.String("reviewer_id", actor.ID.String()))
	return out, nil
}

// ownedForChange loads id for update and checks the actor owns it and the
// form fee is unpaid.
func (s *Service) ownedForChange(tx *gorm.DB, actor helperAuth.Actor, id uuid.UUID) (*model.ApplicationModel, error) {
	m, err := s.load(tx, id, true)
	if err != nil {
		return nil, err
	}
	if m.ApplicationApplicantID != actor.ID {
		return nil, apperr.ErrForbidden
	}
	if m.ApplicationFormPaid {
		return nil, apperr.ErrLocked
	}
	return m, nil
}

func (s *Service) resolveSession(ctx context.Context, id *uuid.UUID) (*sessionModel.AdmissionSessionModel, error) {
	if id == nil || *id == uuid.Nil {
		return s.Sessions.Active(ctx)
	}
	return s.Sessions.Get(ctx, *id)
}

func (s *Service) exists(ctx context.Context, applicantID, sessionID uuid.UUID) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&model.ApplicationModel{}).
		Where("application_applicant_id = ? AND application_session_id = ?", applicantID, sessionID).
		Count(&n).Error
	if err != nil {
		return false, apperr.Internal("check duplicate application", err)
	}
	return n > 0, nil
}

func (s *Service) countSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&model.ApplicationModel{}).
		Where("application_created_at >= ?", since).
		Count(&n).Error
	if err != nil {
		return 0, apperr.Internal("count applications", err)
	}
	return n, nil
}

func (s *Service) load(db *gorm.DB, id uuid.UUID, forUpdate bool) (*model.ApplicationModel, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m model.ApplicationModel
	err := db.Where("application_id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "application not found")
	}
	if err != nil {
		return nil, apperr.Internal("load application", err)
	}
	return &m, nil
}

func (s *Service) page(db *gorm.DB, offset, limit int) ([]model.ApplicationModel, int64, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count applications", err)
	}
	var rows []model.ApplicationModel
	if err := db.Order("application_created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Internal("list applications", err)
	}
	return rows, total, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
