package models

import "time"

// Reading records that a participant has seen a message. At most one row
// exists per (message, participant); CreatedAt is the first-read time and
// is never updated afterwards.
type Reading struct {
	MessageID     uint `gorm:"primaryKey"`
	ParticipantID uint `gorm:"primaryKey"`
	CreatedAt     time.Time
}

// Like marks a participant's approval of a message.
type Like struct {
	MessageID     uint `gorm:"primaryKey"`
	ParticipantID uint `gorm:"primaryKey"`
	CreatedAt     time.Time
}

// Endorsement is a staff member's mark that a message answers its question.
type Endorsement struct {
	MessageID     uint `gorm:"primaryKey"`
	ParticipantID uint `gorm:"primaryKey"`
	CreatedAt     time.Time
}
