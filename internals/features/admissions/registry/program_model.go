package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProgramModel is owned by the academic catalog. The admission engine only
// reads it; rows are seeded by the catalog service or admissionctl.
type ProgramModel struct {
	ProgramID           uuid.UUID `gorm:"type:uuid;primaryKey;column:program_id" json:"program_id"`
	ProgramDepartmentID uuid.UUID `gorm:"type:uuid;not null;index:idx_programs_department;column:program_department_id" json:"program_department_id"`
	ProgramCode         string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_programs_code;column:program_code" json:"program_code"`
	ProgramName         string    `gorm:"type:varchar(160);not null;column:program_name" json:"program_name"`

	ProgramFormFee *decimal.Decimal `gorm:"type:numeric(14,2);column:program_form_fee" json:"program_form_fee,omitempty"`

	ProgramApplicationOpensAt  *time.Time `gorm:"column:program_application_opens_at" json:"program_application_opens_at,omitempty"`
	ProgramApplicationClosesAt *time.Time `gorm:"column:program_application_closes_at" json:"program_application_closes_at,omitempty"`
	ProgramIsActive            bool       `gorm:"not null;column:program_is_active" json:"program_is_active"`

	ProgramCreatedAt time.Time `gorm:"not null;autoCreateTime;column:program_created_at" json:"program_created_at"`
	ProgramUpdatedAt time.Time `gorm:"not null;autoUpdateTime;column:program_updated_at" json:"program_updated_at"`
}

func (ProgramModel) TableName() string { return "programs" }

func (m *ProgramModel) BeforeCreate(tx *gorm.DB) error {
	if m.ProgramID == uuid.Nil {
		m.ProgramID = uuid.New()
	}
	return nil
}
