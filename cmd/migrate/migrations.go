package main

import (
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/pkg/database"
	"gorm.io/gorm"
)

// runMigrations creates the tables and then applies what AutoMigrate can't express.
func runMigrations(db *gorm.DB) error {
	if err := database.Migrate(db, models.All()...); err != nil {
		return err
	}

	migrations := []func(*gorm.DB) error{
		addCurrentArchitectureIndex,
	}
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

// addCurrentArchitectureIndex allows at most one current plan per project.
func addCurrentArchitectureIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_project_architectures_current
		ON project_architectures(project_id)
		WHERE is_current
	`).Error
}
