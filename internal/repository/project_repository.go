package repository

import (
	"context"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	ListByHackathon(ctx context.Context, hackathonID uuid.UUID) ([]models.Project, error)
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects by user failed")
	}
	return out, nil
}

func (r *projectRepository) ListByHackathon(ctx context.Context, hackathonID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("hackathon_id = ?", hackathonID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects by hackathon failed")
	}
	return out, nil
}
