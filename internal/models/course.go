package models

import "time"

// Course is the enrollment boundary. Every conversation, tag, and
// participant belongs to exactly one course.
type Course struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Code      string `gorm:"size:32;uniqueIndex;not null"`
	Name      string `gorm:"size:256;not null"`
	CreatedAt time.Time
}
