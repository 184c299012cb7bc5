// Package registry resolves programs and departments for the admission
// services. It is a read-only view over the academic catalog.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"admissions_backend/internals/helpers/apperr"
)

type Program struct {
	ID           uuid.UUID
	DepartmentID uuid.UUID
	Code         string
	Name         string

	// FormFee is the program fee when one is configured, zero otherwise.
	FormFee  decimal.Decimal
	OpensAt  *time.Time
	ClosesAt *time.Time
	IsActive bool
}

// WindowOpen reports whether applications are accepted at now. Missing
// bounds are open-ended.
func (p Program) WindowOpen(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.OpensAt != nil && now.Before(*p.OpensAt) {
		return false
	}
	if p.ClosesAt != nil && now.After(*p.ClosesAt) {
		return false
	}
	return true
}

type Registry interface {
	Program(ctx context.Context, id uuid.UUID) (*Program, error)
}

type GormRegistry struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRegistry { return &GormRegistry{DB: db} }

func (r *GormRegistry) Program(ctx context.Context, id uuid.UUID) (*Program, error) {
	var m ProgramModel
	err := r.DB.WithContext(ctx).Where("program_id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "program not found")
	}
	if err != nil {
		return nil, apperr.Internal("load program", err)
	}
	p := &Program{
		ID:           m.ProgramID,
		DepartmentID: m.ProgramDepartmentID,
		Code:         m.ProgramCode,
		Name:         m.ProgramName,
		OpensAt:      m.ProgramApplicationOpensAt,
		ClosesAt:     m.ProgramApplicationClosesAt,
		IsActive:     m.ProgramIsActive,
	}
	if m.ProgramFormFee != nil {
		p.FormFee = *m.ProgramFormFee
	}
	return p, nil
}
