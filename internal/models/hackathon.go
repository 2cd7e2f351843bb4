package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Hackathon is the analyzed event a user plans for. It is written once when
// intake analysis succeeds and never mutated afterwards.
type Hackathon struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID                   `gorm:"type:uuid;index;not null" json:"user_id" validate:"required"`
	Name            string                      `gorm:"not null" json:"name" validate:"required"`
	Theme           string                      `gorm:"type:text" json:"theme"`
	Rules           string                      `gorm:"type:text;not null" json:"rules" validate:"required"`
	JudgingCriteria datatypes.JSONSlice[string] `json:"judging_criteria"`
	Deadline        string                      `json:"deadline"`
	AllowedTech     datatypes.JSONSlice[string] `json:"allowed_tech,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (h *Hackathon) BeforeCreate(*gorm.DB) error { assignID(&h.ID); return nil }
