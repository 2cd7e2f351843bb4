package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	email = strings.ToLower(strings.TrimSpace(email))
	*dest = models.User{}
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "user not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get user by email failed")
	}
	return nil
}
