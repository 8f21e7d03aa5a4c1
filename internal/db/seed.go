package db

import (
	"fmt"

	"github.com/hollisk/lectern/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCourse upserts a course by code and returns it.
func SeedCourse(db *gorm.DB, code, name string) (*models.Course, error) {
	course := models.Course{Code: code, Name: name}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&course)
	if result.Error != nil {
		return nil, fmt.Errorf("db: seed course %q: %w", code, result.Error)
	}
	if course.ID == 0 {
		if err := db.Where("code = ?", code).First(&course).Error; err != nil {
			return nil, fmt.Errorf("db: seed course %q: %w", code, err)
		}
	}
	return &course, nil
}

// SeedDemo populates a demo course with participants and tags so the server
// has something to show on a fresh database.
func SeedDemo(db *gorm.DB) error {
	course, err := SeedCourse(db, "CS101", "Introduction to Computer Science")
	if err != nil {
		return err
	}

	participants := []models.Participant{
		{CourseID: course.ID, Name: "Priya Raman", Role: models.RoleStaff},
		{CourseID: course.ID, Name: "Sam Ochoa", Role: models.RoleStudent},
		{CourseID: course.ID, Name: "Dana Wu", Role: models.RoleStudent},
	}
	for i := range participants {
		if err := db.Create(&participants[i]).Error; err != nil {
			return fmt.Errorf("db: seed participant %q: %w", participants[i].Name, err)
		}
	}

	tags := []models.Tag{
		{CourseID: course.ID, Name: "logistics"},
		{CourseID: course.ID, Name: "assignments"},
		{CourseID: course.ID, Name: "grading", StaffOnly: true},
	}
	for i := range tags {
		if err := db.Create(&tags[i]).Error; err != nil {
			return fmt.Errorf("db: seed tag %q: %w", tags[i].Name, err)
		}
	}
	return nil
}
