// Package readledger tracks which participant has seen which message.
// Inserts are idempotent so concurrent marks of the same pair (two browser
// tabs) never race into a duplicate-key error.
package readledger

import (
	"fmt"
	"log"
	"time"

	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/visibility"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkRead records that a participant has seen a message. A no-op if the
// pair is already recorded; the first-read timestamp is never touched again.
func MarkRead(db *gorm.DB, messageID, participantID uint) error {
	reading := models.Reading{
		MessageID:     messageID,
		ParticipantID: participantID,
		CreatedAt:     time.Now(),
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&reading).Error
	if err != nil {
		return fmt.Errorf("readledger: mark message %d read for participant %d: %w", messageID, participantID, err)
	}
	return nil
}

// MarkMessagesRead marks every message in msgs read for the participant, in
// the given order. Best-effort: a failed mark is logged and retried on the
// next view, never surfaced.
func MarkMessagesRead(db *gorm.DB, msgs []models.Message, participantID uint) {
	for _, m := range msgs {
		if err := MarkRead(db, m.ID, participantID); err != nil {
			log.Printf("readledger: %v", err)
		}
	}
}

// UnreadCount returns the number of messages in the conversation the
// participant has not read: message count minus readings count.
func UnreadCount(db *gorm.DB, conversationID, participantID uint) (int64, error) {
	var messages int64
	err := db.Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&messages).Error
	if err != nil {
		return 0, fmt.Errorf("readledger: count messages in conversation %d: %w", conversationID, err)
	}

	var readings int64
	err = db.Model(&models.Reading{}).
		Joins("JOIN messages ON messages.id = readings.message_id").
		Where("messages.conversation_id = ? AND readings.participant_id = ?", conversationID, participantID).
		Count(&readings).Error
	if err != nil {
		return 0, fmt.Errorf("readledger: count readings in conversation %d: %w", conversationID, err)
	}
	return messages - readings, nil
}

// FirstUnreadRef returns the reference of the earliest message in the
// conversation the participant has not read, or nil if everything is read.
// Pure query: it never mutates read state.
func FirstUnreadRef(db *gorm.DB, conversationID, participantID uint) (*uint, error) {
	var msg models.Message
	err := db.Where("conversation_id = ?", conversationID).
		Where("NOT EXISTS (SELECT 1 FROM readings WHERE readings.message_id = messages.id AND readings.participant_id = ?)", participantID).
		Order("ref ASC").
		First(&msg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("readledger: first unread in conversation %d: %w", conversationID, err)
	}
	ref := msg.Ref
	return &ref, nil
}

// MarkAllRead inserts a Reading for every message in the course the
// participant can see and has not read, in ascending message id order (pk
// as tie-break). Each insert is its own statement; a failure is logged and
// the sweep continues, leaving earlier marks in place. Returns how many
// messages were newly marked.
func MarkAllRead(db *gorm.DB, courseID uint, viewer *models.Participant) (int, error) {
	var ids []uint
	err := db.Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.course_id = ?", courseID).
		Scopes(visibility.ConversationScope(viewer)).
		Where("NOT EXISTS (SELECT 1 FROM readings WHERE readings.message_id = messages.id AND readings.participant_id = ?)", viewer.ID).
		Order("messages.id ASC").
		Pluck("messages.id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("readledger: collect unread in course %d: %w", courseID, err)
	}

	marked := 0
	for _, id := range ids {
		if err := MarkRead(db, id, viewer.ID); err != nil {
			log.Printf("readledger: mark-all sweep: %v", err)
			continue
		}
		marked++
	}
	return marked, nil
}
