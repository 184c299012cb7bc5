package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "admissions_backend/internals/databases"
	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	"admissions_backend/internals/features/admissions/offers/dto"
	"admissions_backend/internals/features/admissions/offers/model"
	sessionModel "admissions_backend/internals/features/admissions/sessions/model"
	helperAuth "admissions_backend/internals/helpers/auth"
	"admissions_backend/internals/helpers/apperr"
)

type Service struct {
	DB                  *gorm.DB
	Log                 *zap.Logger
	Now                 func() time.Time
	DefaultDeadlineDays int
}

func New(db *gorm.DB, log *zap.Logger, defaultDeadlineDays int) *Service {
	if defaultDeadlineDays <= 0 {
		defaultDeadlineDays = 14
	}
	return &Service{
		DB:                  db,
		Log:                 log.Named("offers"),
		Now:                 func() time.Time { return time.Now().UTC() },
		DefaultDeadlineDays: defaultDeadlineDays,
	}
}

// offerParams are the staff-chosen terms of a new offer.
type offerParams struct {
	fee          decimal.Decimal
	deadline     time.Time
	departmentID *uuid.UUID
	programID    *uuid.UUID
	notes        *string
	createdBy    uuid.UUID
}

// Create issues the single offer for an application.
func (s *Service) Create(ctx context.Context, actor helperAuth.Actor, req dto.CreateAdmissionOfferRequest) (*model.AdmissionOfferModel, error) {
	if !actor.IsStaff() {
		return nil, apperr.New(apperr.ErrForbidden, "only staff may issue admission offers")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.Now()
	deadline, err := s.deadline(now, req.AcceptanceDeadline, req.DeadlineDays)
	if err != nil {
		return nil, err
	}
	p := offerParams{
		fee:          req.AcceptanceFeeAmount,
		deadline:     deadline,
		departmentID: req.DepartmentID,
		programID:    req.ProgramID,
		notes:        req.Notes,
		createdBy:    actor.ID,
	}

	var out *model.AdmissionOfferModel
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app applicationModel.ApplicationModel
		err := tx.Where("application_id = ?", req.ApplicationID).Take(&app).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.ErrNotFound, "application not found")
		}
		if err != nil {
			return apperr.Internal("load application", err)
		}
		offer, err := s.insertOffer(tx, &app, p)
		if err != nil {
			return err
		}
		out = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("admission offer created",
		zap.String("admission_offer_id", out.AdmissionOfferID.String()),
		zap.String("application_id", req.ApplicationID.String()),
		zap.Time("deadline", out.AdmissionOfferAcceptanceDeadline))
	return out, nil
}

// insertOffer runs inside tx. A duplicate comes back as DUPLICATE_OFFER,
// whether caught by the pre-check or by uq_admission_offers_application.
func (s *Service) insertOffer(tx *gorm.DB, app *applicationModel.ApplicationModel, p offerParams) (*model.AdmissionOfferModel, error) {
	var n int64
	if err := tx.Model(&model.AdmissionOfferModel{}).
		Where("admission_offer_application_id = ?", app.ApplicationID).
		Count(&n).Error; err != nil {
		return nil, apperr.Internal("check duplicate offer", err)
	}
	if n > 0 {
		return nil, apperr.ErrDuplicateOffer
	}

	createdBy := p.createdBy
	m := &model.AdmissionOfferModel{
		AdmissionOfferApplicationID:       app.ApplicationID,
		AdmissionOfferApplicantID:         app.ApplicationApplicantID,
		AdmissionOfferSessionID:           app.ApplicationSessionID,
		AdmissionOfferDepartmentID:        app.ApplicationDepartmentID,
		AdmissionOfferProgramID:           app.ApplicationProgramID,
		AdmissionOfferStatus:              model.OfferOffered,
		AdmissionOfferAcceptanceFeeAmount: p.fee,
		AdmissionOfferAcceptanceDeadline:  p.deadline,
		AdmissionOfferNotes:               p.notes,
		AdmissionOfferCreatedBy:           &createdBy,
	}
	if p.departmentID != nil {
		m.AdmissionOfferDepartmentID = *p.departmentID
	}
	if p.programID != nil {
		m.AdmissionOfferProgramID = *p.programID
	}
	if err := tx.Create(m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.ErrDuplicateOffer, apperr.ErrDuplicateOffer.Message, err)
		}
		return nil, apperr.Internal("create offer", err)
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, actor helperAuth.Actor, id uuid.UUID) (*model.AdmissionOfferModel, error) {
	m, err := s.load(s.DB.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if m.AdmissionOfferApplicantID != actor.ID && !actor.IsStaff() {
		return nil, apperr.ErrForbidden
	}
	return m, nil
}

func (s *Service) ListMine(ctx context.Context, actor helperAuth.Actor, offset, limit int) ([]model.AdmissionOfferModel, int64, error) {
	db := s.DB.WithContext(ctx).Model(&model.AdmissionOfferModel{}).
		Where("admission_offer_applicant_id = ?", actor.ID)
	return s.page(db, offset, limit)
}

func (s *Service) List(ctx context.Context, q dto.ListAdmissionOffersQuery, offset, limit int) ([]model.AdmissionOfferModel, int64, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	db := s.DB.WithContext(ctx).Model(&model.AdmissionOfferModel{})
	if q.SessionID != "" {
		db = db.Where("admission_offer_session_id = ?", q.SessionID)
	}
	if q.DepartmentID != "" {
		db = db.Where("admission_offer_department_id = ?", q.DepartmentID)
	}
	if q.Status != "" {
		db = db.Where("admission_offer_status = ?", q.Status)
	}
	return s.page(db, offset, limit)
}

// Update changes the terms of an open offer.
func (s *Service) Update(ctx context.Context, actor helperAuth.Actor, id uuid.UUID, req dto.UpdateAdmissionOfferRequest) (*model.AdmissionOfferModel, error) {
	if !actor.IsStaff() {
		return nil, apperr.New(apperr.ErrForbidden, "only staff may change admission offers")
	}
	now := s.Now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}
	var out *model.AdmissionOfferModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		if m.AdmissionOfferStatus != model.OfferOffered {
			return apperr.Newf(apperr.ErrNotEligible, "offer is %s", m.AdmissionOfferStatus)
		}
		if req.AcceptanceFeeAmount != nil && m.AdmissionOfferAcceptanceFeePaid &&
			!req.AcceptanceFeeAmount.Equal(m.AdmissionOfferAcceptanceFeeAmount) {
			return apperr.New(apperr.ErrNotEligible, "acceptance fee has already been paid")
		}
		set := req.Apply(m)
		if len(set) > 0 {
			set["admission_offer_updated_at"] = now
			res := tx.Model(m).Where("admission_offer_status = ?", model.OfferOffered).Updates(set)
			if res.Error != nil {
				return apperr.Internal("update offer", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.ErrConflict
			}
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Accept requires status offered, the acceptance fee paid and the deadline
// not passed.
func (s *Service) Accept(ctx context.Context, actor helperAuth.Actor, id uuid.UUID) (*model.AdmissionOfferModel, error) {
	var out *model.AdmissionOfferModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		if m.AdmissionOfferApplicantID != actor.ID {
			return apperr.ErrForbidden
		}
		now := s.Now()
		if reason := m.AcceptBlocker(now); reason != "" {
			return apperr.New(apperr.ErrNotEligible, reason)
		}
		res := tx.Model(m).
			Where("admission_offer_status = ? AND admission_offer_acceptance_fee_paid = ?", model.OfferOffered, true).
			Updates(map[string]any{
				"admission_offer_status":             model.OfferAccepted,
				"admission_offer_admission_accepted": true,
				"admission_offer_accepted_at":        now,
				"admission_offer_updated_at":         now,
			})
		if res.Error != nil {
			return apperr.Internal("accept offer", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict
		}
		m.AdmissionOfferStatus = model.OfferAccepted
		m.AdmissionOfferAdmissionAccepted = true
		m.AdmissionOfferAcceptedAt = &now
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("admission offer accepted", zap.String("admission_offer_id", id.String()))
	return out, nil
}

func (s *Service) Decline(ctx context.Context, actor helperAuth.Actor, id uuid.UUID, req dto.DeclineAdmissionOfferRequest) (*model.AdmissionOfferModel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *model.AdmissionOfferModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		if m.AdmissionOfferApplicantID != actor.ID {
			return apperr.ErrForbidden
		}
		if m.AdmissionOfferStatus != model.OfferOffered {
			return apperr.Newf(apperr.ErrNotEligible, "offer is %s", m.AdmissionOfferStatus)
		}
		now := s.Now()
		set := map[string]any{
			"admission_offer_status":      model.OfferDeclined,
			"admission_offer_declined_at": now,
			"admission_offer_updated_at":  now,
		}
		if req.Reason != nil {
			reason := strings.TrimSpace(*req.Reason)
			set["admission_offer_decline_reason"] = reason
			m.AdmissionOfferDeclineReason = &reason
		}
		res := tx.Model(m).Where("admission_offer_status = ?", model.OfferOffered).Updates(set)
		if res.Error != nil {
			return apperr.Internal("decline offer", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict
		}
		m.AdmissionOfferStatus = model.OfferDeclined
		m.AdmissionOfferDeclinedAt = &now
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("admission offer declined", zap.String("admission_offer_id", id.String()))
	return out, nil
}

// ExpireOverdue moves every offered row past its deadline to expired and
// returns how many changed.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	now := s.Now()
	res := s.DB.WithContext(ctx).Model(&model.AdmissionOfferModel{}).
		Where("admission_offer_status = ? AND admission_offer_acceptance_deadline < ?", model.OfferOffered, now).
		Updates(map[string]any{
			"admission_offer_status":     model.OfferExpired,
			"admission_offer_expired_at": now,
			"admission_offer_updated_at": now,
		})
	if res.Error != nil {
		return 0, apperr.Internal("expire offers", res.Error)
	}
	if res.RowsAffected > 0 {
		s.Log.Info("admission offers expired", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// Ingest creates offers from a bulk upload. Rows are independent: a bad row
// is reported and skipped, the others are committed.
func (s *Service) Ingest(ctx context.Context, actor helperAuth.Actor, req dto.BatchOfferRequest) (*dto.BatchResult, error) {
	if !actor.IsStaff() {
		return nil, apperr.New(apperr.ErrForbidden, "only staff may upload admission offers")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.Now()
	deadline, err := s.deadline(now, req.AcceptanceDeadline, req.DeadlineDays)
	if err != nil {
		return nil, err
	}

	result := &dto.BatchResult{
		Created:  []dto.BatchCreated{},
		Errors:   []dto.BatchIssue{},
		Warnings: []dto.BatchIssue{},
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&sessionModel.AdmissionSessionModel{}).
			Where("admission_session_id = ?", req.SessionID).
			Count(&n).Error; err != nil {
			return apperr.Internal("load admission session", err)
		}
		if n == 0 {
			return apperr.New(apperr.ErrNotFound, "admission session not found")
		}

		for i, row := range req.Rows {
			if err := s.ingestRow(tx, actor, req, i+1, row, deadline, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("admission offers ingested",
		zap.String("admission_session_id", req.SessionID.String()),
		zap.String("department_id", req.DepartmentID.String()),
		zap.Int("rows", len(req.Rows)),
		zap.Int("created", len(result.Created)),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// ingestRow records row problems in result. It only returns an error when
// the whole batch must be rolled back.
func (s *Service) ingestRow(tx *gorm.DB, actor helperAuth.Actor, req dto.BatchOfferRequest, rowNo int, row dto.BatchOfferRow, deadline time.Time, result *dto.BatchResult) error {
	number := strings.TrimSpace(row.ApplicationNumber)
	fail := func(msg string) {
		result.Errors = append(result.Errors, dto.BatchIssue{Row: rowNo, ApplicationNumber: number, Message: msg})
	}
	warn := func(msg string) {
		result.Warnings = append(result.Warnings, dto.BatchIssue{Row: rowNo, ApplicationNumber: number, Message: msg})
	}

	if number == "" {
		fail("application_number is required")
		return nil
	}
	fee := req.AcceptanceFeeAmount
	if row.AcceptanceFeeAmount != nil {
		fee = *row.AcceptanceFeeAmount
	}
	if !fee.IsPositive() {
		fail("acceptance fee must be greater than zero")
		return nil
	}

	var app applicationModel.ApplicationModel
	err := tx.Where("application_number = ? AND application_session_id = ?", number, req.SessionID).Take(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail("application not found in this session")
		return nil
	}
	if err != nil {
		return apperr.Internal("load application", err)
	}

	if email := strings.ToLower(strings.TrimSpace(row.Email)); email != "" && email != app.ApplicationEmail {
		warn(fmt.Sprintf("email %s does not match the application", email))
	}
	department := req.DepartmentID
	if row.DepartmentID != nil {
		department = *row.DepartmentID
	}
	if department != app.ApplicationDepartmentID {
		warn(fmt.Sprintf("application is in department %s; offer is made in %s", app.ApplicationDepartmentID, department))
	}
	if app.ApplicationStatus != applicationModel.StatusApproved {
		warn(fmt.Sprintf("application status is %s", app.ApplicationStatus))
	}

	sp := fmt.Sprintf("offer_row_%d", rowNo)
	if err := tx.SavePoint(sp).Error; err != nil {
		return apperr.Internal("savepoint", err)
	}
	offer, err := s.insertOffer(tx, &app, offerParams{
		fee:          fee,
		deadline:     deadline,
		departmentID: &department,
		notes:        row.Notes,
		createdBy:    actor.ID,
	})
	if err != nil {
		if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
			return apperr.Internal("rollback to savepoint", rbErr)
		}
		if errors.Is(err, apperr.ErrDuplicateOffer) {
			fail("an admission offer already exists for this application")
			return nil
		}
		fail("could not create offer")
		s.Log.Warn("offer row failed", zap.Int("row", rowNo), zap.Error(err))
		return nil
	}
	result.Created = append(result.Created, dto.BatchCreated{
		Row:               rowNo,
		ApplicationNumber: number,
		OfferID:           offer.AdmissionOfferID,
	})
	return nil
}

func (s *Service) deadline(now time.Time, explicit *time.Time, days int) (time.Time, error) {
	if explicit != nil {
		if !explicit.After(now) {
			return time.Time{}, apperr.Field("acceptance_deadline", "must be in the future")
		}
		return explicit.UTC(), nil
	}
	if days <= 0 {
		days = s.DefaultDeadlineDays
	}
	return now.Add(time.Duration(days) * 24 * time.Hour), nil
}

func (s *Service) load(db *gorm.DB, id uuid.UUID, forUpdate bool) (*model.AdmissionOfferModel, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m model.AdmissionOfferModel
	err := db.Where("admission_offer_id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "admission offer not found")
	}
	if err != nil {
		return nil, apperr.Internal("load admission offer", err)
	}
	return &m, nil
}

func (s *Service) page(db *gorm.DB, offset, limit int) ([]model.AdmissionOfferModel, int64, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count offers", err)
	}
	var rows []model.AdmissionOfferModel
	if err := db.Order("admission_offer_created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Internal("list offers", err)
	}
	return rows, total, nil
}
