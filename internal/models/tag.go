package models

// Tag is a course-level label. StaffOnly tags exist on conversations but
// are hidden from non-staff viewers.
type Tag struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	CourseID  uint   `gorm:"uniqueIndex:idx_course_tag;not null"`
	Name      string `gorm:"size:64;uniqueIndex:idx_course_tag;not null"`
	StaffOnly bool   `gorm:"default:false"`
}

// Tagging associates a conversation with a tag. A conversation that has
// tags may never drop to zero through a remove operation.
type Tagging struct {
	ConversationID uint `gorm:"primaryKey"`
	TagID          uint `gorm:"primaryKey"`

	Tag Tag `gorm:"foreignKey:TagID"`
}
