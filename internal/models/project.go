package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Difficulty grades how ambitious a project idea is.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Project is the idea a user committed to for a hackathon.
type Project struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	HackathonID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"hackathon_id" validate:"required"`
	UserID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id" validate:"required"`
	Name          string     `gorm:"not null" json:"name" validate:"required"`
	Description   string     `gorm:"type:text" json:"description"`
	Difficulty    Difficulty `gorm:"type:varchar(16);not null" json:"difficulty" validate:"required,oneof=Beginner Intermediate Advanced"`
	EstimatedTime string     `json:"estimated_time"`
	JudgingValue  string     `gorm:"type:text" json:"judging_value"`
	TechStack     string     `gorm:"type:text" json:"tech_stack"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Hackathon *Hackathon `gorm:"constraint:OnDelete:CASCADE" json:"-" swaggerignore:"true"`
}

func (p *Project) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }
