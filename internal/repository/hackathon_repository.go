package repository

import (
	"context"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HackathonRepository interface {
	BaseRepository[models.Hackathon]
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Hackathon, error)
}

type hackathonRepository struct {
	BaseRepository[models.Hackathon]
	db *gorm.DB
}

func NewHackathonRepository(db *gorm.DB) HackathonRepository {
	return &hackathonRepository{BaseRepository: NewBaseRepository[models.Hackathon](db), db: db}
}

func (r *hackathonRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Hackathon, error) {
	var out []models.Hackathon
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list hackathons by user failed")
	}
	return out, nil
}
