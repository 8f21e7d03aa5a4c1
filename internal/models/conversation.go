package models

import "time"

// Conversation types.
const (
	TypeQuestion = "question"
	TypeNote     = "note"
	TypeChat     = "chat"
)

// ValidType reports whether t is one of the three conversation types.
func ValidType(t string) bool {
	return t == TypeQuestion || t == TypeNote || t == TypeChat
}

// Conversation is a titled discussion thread within a course.
//
// Number is the stable human-facing reference, dense per course. ResolvedAt
// is only ever set on question-type conversations. NextMessageRef is the
// counter from which message references are assigned; it only grows.
type Conversation struct {
	ID             uint  `gorm:"primaryKey;autoIncrement"`
	CourseID       uint  `gorm:"uniqueIndex:idx_course_number;not null"`
	Number         uint  `gorm:"uniqueIndex:idx_course_number;not null"`
	AuthorID       *uint `gorm:"index"`
	Anonymous      bool  `gorm:"default:false"`
	Type           string `gorm:"size:16;default:question;index"`
	Title          string `gorm:"size:256;not null"`
	TitleSearch    string `gorm:"size:256;index"`
	NextMessageRef uint   `gorm:"default:1"`
	ResolvedAt     *time.Time
	PinnedAt       *time.Time
	StaffOnlyAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Author   *Participant `gorm:"foreignKey:AuthorID"`
	Messages []Message    `gorm:"foreignKey:ConversationID"`
	Taggings []Tagging    `gorm:"foreignKey:ConversationID"`
}

// LastActivity returns the timestamp used for recency ordering.
func (c *Conversation) LastActivity() time.Time {
	if c.UpdatedAt.IsZero() {
		return c.CreatedAt
	}
	return c.UpdatedAt
}
