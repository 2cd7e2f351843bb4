package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the account behind a signed-in identity.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	PasswordHash string         `gorm:"not null" json:"-" swaggerignore:"true"`
	Name         string         `gorm:"not null" json:"name" validate:"required"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-" swaggerignore:"true"`
}

func (u *User) BeforeCreate(*gorm.DB) error { assignID(&u.ID); return nil }
