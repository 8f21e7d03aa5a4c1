package threads

import (
	"fmt"
	"time"

	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Like records the viewer's like on a message. Idempotent.
func Like(db *gorm.DB, hub *live.Hub, conv *models.Conversation, msg *models.Message, viewer *models.Participant) error {
	like := models.Like{MessageID: msg.ID, ParticipantID: viewer.ID, CreatedAt: time.Now()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return fmt.Errorf("threads: like message %d: %w", msg.ID, err)
	}
	notify(hub, conv)
	return nil
}

// Unlike removes the viewer's like. A no-op when none exists.
func Unlike(db *gorm.DB, hub *live.Hub, conv *models.Conversation, msg *models.Message, viewer *models.Participant) error {
	err := db.Where("message_id = ? AND participant_id = ?", msg.ID, viewer.ID).
		Delete(&models.Like{}).Error
	if err != nil {
		return fmt.Errorf("threads: unlike message %d: %w", msg.ID, err)
	}
	notify(hub, conv)
	return nil
}

// Endorse records a staff endorsement of an answer in a question
// conversation. Idempotent; staff only.
func Endorse(db *gorm.DB, hub *live.Hub, conv *models.Conversation, msg *models.Message, viewer *models.Participant) error {
	if conv.Type != models.TypeQuestion {
		return validationf("endorsements only exist in question conversations")
	}
	if !viewer.IsStaff() {
		return validationf("only staff may endorse")
	}
	end := models.Endorsement{MessageID: msg.ID, ParticipantID: viewer.ID, CreatedAt: time.Now()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&end).Error; err != nil {
		return fmt.Errorf("threads: endorse message %d: %w", msg.ID, err)
	}
	notify(hub, conv)
	return nil
}

// Unendorse removes the viewer's endorsement. Staff only.
func Unendorse(db *gorm.DB, hub *live.Hub, conv *models.Conversation, msg *models.Message, viewer *models.Participant) error {
	if !viewer.IsStaff() {
		return validationf("only staff may endorse")
	}
	err := db.Where("message_id = ? AND participant_id = ?", msg.ID, viewer.ID).
		Delete(&models.Endorsement{}).Error
	if err != nil {
		return fmt.Errorf("threads: unendorse message %d: %w", msg.ID, err)
	}
	notify(hub, conv)
	return nil
}
