// Package visibility implements the role-based visibility rules applied by
// every read and write path: who may see a conversation, which tags a
// viewer is shown, and how anonymous authorship renders.
package visibility

import (
	"fmt"

	"github.com/hollisk/lectern/internal/models"
	"gorm.io/gorm"
)

// ConversationVisible reports whether viewer may see conv. Staff see every
// conversation in the course; others see it unless it is staff-only and
// they never authored a message in it.
func ConversationVisible(db *gorm.DB, conv *models.Conversation, viewer *models.Participant) (bool, error) {
	if viewer.IsStaff() {
		return true, nil
	}
	if conv.StaffOnlyAt == nil {
		return true, nil
	}
	var count int64
	err := db.Model(&models.Message{}).
		Where("conversation_id = ? AND author_id = ?", conv.ID, viewer.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("visibility: authorship check for conversation %d: %w", conv.ID, err)
	}
	return count > 0, nil
}

// ConversationScope returns a GORM scope restricting a conversations query
// to rows the viewer may see. It encodes the same rule as
// ConversationVisible and is mandatory on every listing query.
func ConversationScope(viewer *models.Participant) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if viewer.IsStaff() {
			return tx
		}
		return tx.Where(
			"conversations.staff_only_at IS NULL OR EXISTS (SELECT 1 FROM messages WHERE messages.conversation_id = conversations.id AND messages.author_id = ?)",
			viewer.ID,
		)
	}
}

// VisibleTags returns the tags of the given taggings that viewer may see,
// silently omitting staff-only tags from non-staff.
func VisibleTags(taggings []models.Tagging, viewer *models.Participant) []models.Tag {
	tags := make([]models.Tag, 0, len(taggings))
	for _, tg := range taggings {
		if tg.Tag.StaffOnly && !viewer.IsStaff() {
			continue
		}
		tags = append(tags, tg.Tag)
	}
	return tags
}
