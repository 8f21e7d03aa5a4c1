package models

import "time"

// Message is one entry in a conversation.
//
// Ref is dense-increasing within the conversation starting at 1, assigned
// from Conversation.NextMessageRef when the message is posted and never
// reused. Anonymous is independent of the conversation's anonymity flag.
// IsAnswer is only meaningful in question-type conversations.
type Message struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID uint   `gorm:"uniqueIndex:idx_conversation_ref;not null"`
	Ref            uint   `gorm:"uniqueIndex:idx_conversation_ref;not null"`
	AuthorID       *uint  `gorm:"index"`
	Anonymous      bool   `gorm:"default:false"`
	Body           string `gorm:"type:text"`
	BodyHTML       string `gorm:"type:text"`
	BodySearch     string `gorm:"type:text"`
	IsAnswer       bool   `gorm:"default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Author       *Participant  `gorm:"foreignKey:AuthorID"`
	Readings     []Reading     `gorm:"foreignKey:MessageID"`
	Likes        []Like        `gorm:"foreignKey:MessageID"`
	Endorsements []Endorsement `gorm:"foreignKey:MessageID"`
}
