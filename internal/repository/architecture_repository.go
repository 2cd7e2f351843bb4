package repository

import (
	"context"
	"errors"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArchitectureRepository interface {
	BaseRepository[models.ProjectArchitecture]
	CreateVersioned(ctx context.Context, arch *models.ProjectArchitecture) error
	GetCurrentByProject(ctx context.Context, projectID uuid.UUID, dest *models.ProjectArchitecture) error
	GetByVersion(ctx context.Context, projectID uuid.UUID, version int, dest *models.ProjectArchitecture) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectArchitecture, error)
	SetCurrent(ctx context.Context, projectID uuid.UUID, version int) error
}

type architectureRepository struct {
	BaseRepository[models.ProjectArchitecture]
	db *gorm.DB
}

func NewArchitectureRepository(db *gorm.DB) ArchitectureRepository {
	return &architectureRepository{BaseRepository: NewBaseRepository[models.ProjectArchitecture](db), db: db}
}

// CreateVersioned stores arch as the next version for its project and makes
// it current, superseding the previous current version in one transaction.
func (r *architectureRepository) CreateVersioned(ctx context.Context, arch *models.ProjectArchitecture) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	var maxVersion int
	if err := tx.Model(&models.ProjectArchitecture{}).Where("project_id = ?", arch.ProjectID).Select("COALESCE(MAX(version),0)").Scan(&maxVersion).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "compute architecture version failed")
	}

	if err := tx.Model(&models.ProjectArchitecture{}).Where("project_id = ? AND is_current = ?", arch.ProjectID, true).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "supersede current architecture failed")
	}

	arch.Version = maxVersion + 1
	arch.IsCurrent = true
	if err := tx.Create(arch).Error; err != nil {
		tx.Rollback()
		return translate(err, "create architecture failed")
	}

	if err := tx.Commit().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}

// GetCurrentByProject loads the current version into dest, overwriting
// whatever dest held before.
func (r *architectureRepository) GetCurrentByProject(ctx context.Context, projectID uuid.UUID, dest *models.ProjectArchitecture) error {
	*dest = models.ProjectArchitecture{}
	if err := r.db.WithContext(ctx).Where("project_id = ? AND is_current = ?", projectID, true).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "no current architecture found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get current architecture failed")
	}
	return nil
}

func (r *architectureRepository) GetByVersion(ctx context.Context, projectID uuid.UUID, version int, dest *models.ProjectArchitecture) error {
	*dest = models.ProjectArchitecture{}
	if err := r.db.WithContext(ctx).Where("project_id = ? AND version = ?", projectID, version).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "architecture version not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get architecture version failed")
	}
	return nil
}

func (r *architectureRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectArchitecture, error) {
	var out []models.ProjectArchitecture
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("version DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list architectures failed")
	}
	return out, nil
}

// SetCurrent marks the given version as current and clears the previous flag in a transaction.
func (r *architectureRepository) SetCurrent(ctx context.Context, projectID uuid.UUID, version int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProjectArchitecture{}).Where("project_id = ? AND is_current = ?", projectID, true).Update("is_current", false).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "clear current flag failed")
		}
		res := tx.Model(&models.ProjectArchitecture{}).Where("project_id = ? AND version = ?", projectID, version).Update("is_current", true)
		if res.Error != nil {
			return appErr.Wrap(res.Error, appErr.CodeInternal, "set current flag failed")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "architecture version not found")
		}
		return nil
	})
}
