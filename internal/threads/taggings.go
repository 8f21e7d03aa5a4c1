package threads

import (
	"fmt"

	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddTagging attaches a course tag to the conversation. A no-op when the
// association already exists. Staff-only tags may only be attached by staff.
func AddTagging(db *gorm.DB, hub *live.Hub, conv *models.Conversation, viewer *models.Participant, tagRef string) error {
	tags, err := resolveTags(db, conv.CourseID, []string{tagRef})
	if err != nil {
		return err
	}
	tag := tags[0]
	if tag.StaffOnly && !viewer.IsStaff() {
		return validationf("unknown tag %q", tagRef)
	}

	tagging := models.Tagging{ConversationID: conv.ID, TagID: tag.ID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tagging).Error; err != nil {
		return fmt.Errorf("threads: tag conversation %d with %q: %w", conv.ID, tagRef, err)
	}

	notify(hub, conv)
	return nil
}

// RemoveTagging detaches a tag from the conversation. Removing the last
// tag is always rejected; the conversation must keep at least one.
func RemoveTagging(db *gorm.DB, hub *live.Hub, conv *models.Conversation, viewer *models.Participant, tagRef string) error {
	tags, err := resolveTags(db, conv.CourseID, []string{tagRef})
	if err != nil {
		return err
	}
	tag := tags[0]
	if tag.StaffOnly && !viewer.IsStaff() {
		return validationf("unknown tag %q", tagRef)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("conversation_id = ? AND tag_id = ?", conv.ID, tag.ID).Delete(&models.Tagging{})
		if res.Error != nil {
			return fmt.Errorf("remove tagging: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var remaining int64
		if err := tx.Model(&models.Tagging{}).Where("conversation_id = ?", conv.ID).Count(&remaining).Error; err != nil {
			return fmt.Errorf("count taggings: %w", err)
		}
		// Rolls the delete back.
		if remaining == 0 {
			return ErrLastTag
		}
		return nil
	})
	if err == ErrLastTag || err == ErrNotFound {
		return err
	}
	if err != nil {
		return fmt.Errorf("threads: %w", err)
	}

	notify(hub, conv)
	return nil
}
