package models

import "time"

// Participant roles.
const (
	RoleStaff   = "staff"
	RoleStudent = "student"
)

// Participant is an enrollment of a person in a course. Removing an
// enrollment deletes the row; conversations and messages keep their author
// foreign key and render the departed sentinel instead.
type Participant struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	CourseID  uint   `gorm:"index;not null"`
	Name      string `gorm:"size:128;not null"`
	Role      string `gorm:"size:8;default:student"`
	CreatedAt time.Time
}

// IsStaff reports whether the participant holds the staff role.
func (p *Participant) IsStaff() bool {
	return p != nil && p.Role == RoleStaff
}
