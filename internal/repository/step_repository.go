package repository

import (
	"context"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StepRepository interface {
	BaseRepository[models.ProjectStep]
	CreateBatch(ctx context.Context, steps []models.ProjectStep) (int, error)
	ListLatestBatch(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStep, error)
}

type stepRepository struct {
	BaseRepository[models.ProjectStep]
	db *gorm.DB
}

func NewStepRepository(db *gorm.DB) StepRepository {
	return &stepRepository{BaseRepository: NewBaseRepository[models.ProjectStep](db), db: db}
}

// CreateBatch writes steps as the project's next batch and returns its
// number. All steps must share one project; OrderIndex is taken as given.
func (r *stepRepository) CreateBatch(ctx context.Context, steps []models.ProjectStep) (int, error) {
	if len(steps) == 0 {
		return 0, appErr.New(appErr.CodeInvalid, "empty step batch")
	}
	projectID := steps[0].ProjectID
	for i := range steps {
		if steps[i].ProjectID != projectID {
			return 0, appErr.New(appErr.CodeInvalid, "step batch spans several projects")
		}
	}

	var batch int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxBatch int
		if err := tx.Model(&models.ProjectStep{}).Where("project_id = ?", projectID).Select("COALESCE(MAX(batch),0)").Scan(&maxBatch).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "compute step batch failed")
		}
		batch = maxBatch + 1
		for i := range steps {
			steps[i].Batch = batch
		}
		if err := tx.Create(&steps).Error; err != nil {
			return translate(err, "create steps failed")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return batch, nil
}

func (r *stepRepository) ListLatestBatch(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStep, error) {
	var out []models.ProjectStep
	latest := r.db.Model(&models.ProjectStep{}).Select("COALESCE(MAX(batch),0)").Where("project_id = ?", projectID)
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND batch = (?)", projectID, latest).
		Order("order_index ASC").
		Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list steps failed")
	}
	return out, nil
}
