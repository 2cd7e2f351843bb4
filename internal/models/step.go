package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StepContent is the generated body of one build guide step.
type StepContent struct {
	Title       string `json:"title"`
	Objective   string `json:"objective"`
	Explanation string `json:"explanation"`
	Code        string `json:"code"`
	File        string `json:"file"`
}

// ProjectStep is one entry of a build guide batch. Each generation writes a
// new batch; OrderIndex runs 0..n-1 within a batch.
type ProjectStep struct {
	ID         uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID                       `gorm:"type:uuid;not null;index:idx_step_project_batch_order,unique" json:"project_id" validate:"required"`
	UserID     uuid.UUID                       `gorm:"type:uuid;index;not null" json:"user_id" validate:"required"`
	Batch      int                             `gorm:"not null;index:idx_step_project_batch_order,unique" json:"batch"`
	OrderIndex int                             `gorm:"not null;index:idx_step_project_batch_order,unique" json:"order_index" validate:"gte=0"`
	Title      string                          `gorm:"not null" json:"title" validate:"required"`
	Content    datatypes.JSONType[StepContent] `json:"content"`
	CreatedAt  time.Time                       `json:"created_at"`
	UpdatedAt  time.Time                       `json:"updated_at"`

	Project *Project `gorm:"constraint:OnDelete:CASCADE" json:"-" swaggerignore:"true"`
}

func (s *ProjectStep) BeforeCreate(*gorm.DB) error { assignID(&s.ID); return nil }
