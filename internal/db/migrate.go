package db

import (
	"fmt"

	"github.com/hollisk/lectern/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Course{},
		&models.Participant{},
		&models.Conversation{},
		&models.Message{},
		&models.Tag{},
		&models.Tagging{},
		&models.Reading{},
		&models.Like{},
		&models.Endorsement{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
