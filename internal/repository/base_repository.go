package repository

import (
	"context"
	"errors"
	"fmt"

	appErr "github.com/buildbuddy/engine/pkg/errors"
	"gorm.io/gorm"
)

// BaseRepository defines common CRUD operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	CreateMany(ctx context.Context, objs []T) error
	GetByID(ctx context.Context, id any, dest *T) error
	Update(ctx context.Context, obj *T) error
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any](db *gorm.DB) BaseRepository[T] {
	return &baseRepository[T]{db: db}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return translate(err, "create entity failed")
	}
	return nil
}

func (r *baseRepository[T]) CreateMany(ctx context.Context, objs []T) error {
	if len(objs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&objs).Error; err != nil {
		return translate(err, "create entities failed")
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	var zero T
	*dest = zero
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "entity not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return nil
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Save(obj).Error; err != nil {
		return translate(err, "update entity failed")
	}
	return nil
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete entity failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("entity %v not found", id))
	}
	return nil
}

// translate maps driver errors surfaced by gorm's TranslateError to codes.
func translate(err error, msg string) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return appErr.Wrap(err, appErr.CodeConflict, "entity already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return appErr.Wrap(err, appErr.CodeInvalid, "referenced entity does not exist")
	}
	return appErr.Wrap(err, appErr.CodeInternal, msg)
}
