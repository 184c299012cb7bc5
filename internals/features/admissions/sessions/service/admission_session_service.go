package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "admissions_backend/internals/databases"
	applicationModel "admissions_backend/internals/features/admissions/applications/model"
	"admissions_backend/internals/features/admissions/sessions/dto"
	"admissions_backend/internals/features/admissions/sessions/model"
	"admissions_backend/internals/helpers/apperr"
)

// Service owns admission sessions and the single-active rule.
type Service struct {
	DB  *gorm.DB
	Log *zap.Logger
	Now func() time.Time
}

func New(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{DB: db, Log: log.Named("sessions"), Now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, req dto.CreateAdmissionSessionRequest) (*model.AdmissionSessionModel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m := req.ToModel()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return apperr.Internal("create admission session", err)
		}
		if req.Activate {
			return s.activateTx(tx, m)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}
	s.Log.Info("admission session created",
		zap.String("admission_session_id", m.AdmissionSessionID.String()),
		zap.Bool("active", m.IsActive()))
	return m, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.AdmissionSessionModel, error) {
	return s.load(s.DB.WithContext(ctx), id, false)
}

// Active returns the single active session, or NOT_FOUND when none is
// active.
func (s *Service) Active(ctx context.Context) (*model.AdmissionSessionModel, error) {
	var m model.AdmissionSessionModel
	err := s.DB.WithContext(ctx).
		Where("admission_session_status = ?", model.SessionActive).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "no active admission session")
	}
	if err != nil {
		return nil, apperr.Internal("load active session", err)
	}
	return &m, nil
}

func (s *Service) List(ctx context.Context, q dto.ListAdmissionSessionsQuery, offset, limit int) ([]model.AdmissionSessionModel, int64, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	db := s.DB.WithContext(ctx).Model(&model.AdmissionSessionModel{})
	if q.Status != "" {
		db = db.Where("admission_session_status = ?", q.Status)
	}
	if term := strings.TrimSpace(q.Q); term != "" {
		db = db.Where("LOWER(admission_session_name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count admission sessions", err)
	}
	var rows []model.AdmissionSessionModel
	if err := db.Order("admission_session_start_date DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Internal("list admission sessions", err)
	}
	return rows, total, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req dto.UpdateAdmissionSessionRequest) (*model.AdmissionSessionModel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *model.AdmissionSessionModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		set, err := req.Apply(m)
		if err != nil {
			return err
		}
		if len(set) > 0 {
			set["admission_session_updated_at"] = s.Now()
			if err := tx.Model(m).Updates(set).Error; err != nil {
				return apperr.Internal("update admission session", err)
			}
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}
	return out, nil
}

// Activate makes id the only active session. Any previously active session
// becomes inactive in the same transaction.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*model.AdmissionSessionModel, error) {
	var out *model.AdmissionSessionModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		if m.AdmissionSessionStatus == model.SessionClosed {
			return apperr.New(apperr.ErrNotEligible, "a closed admission session cannot be activated")
		}
		if err := s.activateTx(tx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}
	s.Log.Info("admission session activated", zap.String("admission_session_id", id.String()))
	return out, nil
}

func (s *Service) activateTx(tx *gorm.DB, m *model.AdmissionSessionModel) error {
	now := s.Now()
	if err := tx.Model(&model.AdmissionSessionModel{}).
		Where("admission_session_status = ? AND admission_session_id <> ?", model.SessionActive, m.AdmissionSessionID).
		Updates(map[string]any{
			"admission_session_status":     model.SessionInactive,
			"admission_session_updated_at": now,
		}).Error; err != nil {
		return err
	}
	if m.IsActive() {
		return nil
	}
	if err := tx.Model(m).Updates(map[string]any{
		"admission_session_status":       model.SessionActive,
		"admission_session_activated_at": now,
		"admission_session_updated_at":   now,
	}).Error; err != nil {
		return err
	}
	m.AdmissionSessionStatus = model.SessionActive
	m.AdmissionSessionActivatedAt = &now
	return nil
}

// SetStatus deactivates or closes a session. Activation goes through
// Activate.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, req dto.SetAdmissionSessionStatusRequest) (*model.AdmissionSessionModel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *model.AdmissionSessionModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id, true)
		if err != nil {
			return err
		}
		if m.AdmissionSessionStatus != req.Status {
			if err := tx.Model(m).Updates(map[string]any{
				"admission_session_status":     req.Status,
				"admission_session_updated_at": s.Now(),
			}).Error; err != nil {
				return apperr.Internal("set admission session status", err)
			}
			m.AdmissionSessionStatus = req.Status
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err)
	}
	return out, nil
}

// Delete removes a session nobody applied to.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(tx, id, true); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&applicationModel.ApplicationModel{}).
			Where("application_session_id = ?", id).
			Count(&n).Error; err != nil {
			return apperr.Internal("count session applications", err)
		}
		if n > 0 {
			return apperr.Newf(apperr.ErrSessionInUse, "admission session has %d application(s)", n)
		}
		if err := tx.Where("admission_session_id = ?", id).Delete(&model.AdmissionSessionModel{}).Error; err != nil {
			return apperr.Internal("delete admission session", err)
		}
		return nil
	})
	return s.mapErr(err)
}

func (s *Service) load(db *gorm.DB, id uuid.UUID, forUpdate bool) (*model.AdmissionSessionModel, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m model.AdmissionSessionModel
	err := db.Where("admission_session_id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "admission session not found")
	}
	if err != nil {
		return nil, apperr.Internal("load admission session", err)
	}
	return &m, nil
}

// mapErr turns a lost race on the single-active index into CONFLICT.
func (s *Service) mapErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	if database.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.ErrConflict, "another admission session was activated concurrently", err)
	}
	return apperr.Internal("admission session", err)
}
