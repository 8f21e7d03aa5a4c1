package threads

import (
	"fmt"
	"strings"

	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/search"
	"gorm.io/gorm"
)

// PostMessage appends a message to the conversation, assigning the next
// dense reference from the conversation's counter inside the transaction.
// References only grow and are never reused, even when messages are later
// deleted.
func PostMessage(db *gorm.DB, hub *live.Hub, conv *models.Conversation, author *models.Participant, body string, anonymous bool) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, validationf("message body is required")
	}

	var msg models.Message
	err := db.Transaction(func(tx *gorm.DB) error {
		// Claim the reference atomically; concurrent posters serialize on
		// this row update.
		res := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update("next_message_ref", gorm.Expr("next_message_ref + 1"))
		if res.Error != nil {
			return fmt.Errorf("claim message ref: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var claimed models.Conversation
		if err := tx.Select("next_message_ref").First(&claimed, conv.ID).Error; err != nil {
			return fmt.Errorf("read claimed ref: %w", err)
		}

		msg = models.Message{
			ConversationID: conv.ID,
			Ref:            claimed.NextMessageRef - 1,
			AuthorID:       &author.ID,
			Anonymous:      anonymous,
			Body:           body,
			BodyHTML:       RenderBody(body),
			BodySearch:     search.Normalize(body),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return nil
	})
	if err == ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}

	notify(hub, conv)
	return &msg, nil
}

// EditMessage replaces a message's body, by its author or staff, and
// refreshes the rendered and search forms together.
func EditMessage(db *gorm.DB, hub *live.Hub, conv *models.Conversation, msg *models.Message, viewer *models.Participant, body string) error {
	if !canModerate(viewer, msg.AuthorID) {
		return validationf("only the author or staff may edit a message")
	}
	if strings.TrimSpace(body) == "" {
		return validationf("message body is required")
	}

	updates := map[string]interface{}{
		"body":        body,
		"body_html":   RenderBody(body),
		"body_search": search.Normalize(body),
	}
	if err := db.Model(msg).Updates(updates).Error; err != nil {
		return fmt.Errorf("threads: edit message %d: %w", msg.ID, err)
	}

	notify(hub, conv)
	return nil
}

// SetAnswer flags or unflags a message as the answer, by its author or
// staff. Only valid in question conversations.
func SetAnswer(db *gorm.DB, hub *live.Hub, conv *models.Conversation, msg *models.Message, viewer *models.Participant, isAnswer bool) error {
	if conv.Type != models.TypeQuestion {
		return validationf("answers only exist in question conversations")
	}
	if !canModerate(viewer, msg.AuthorID) {
		return validationf("only the author or staff may mark an answer")
	}
	if err := db.Model(msg).Update("is_answer", isAnswer).Error; err != nil {
		return fmt.Errorf("threads: set answer on message %d: %w", msg.ID, err)
	}
	notify(hub, conv)
	return nil
}

// DeleteMessage removes one message and its per-message records. Staff
// only. The conversation's reference counter is untouched, so the removed
// reference is never reissued.
func DeleteMessage(db *gorm.DB, hub *live.Hub, conv *models.Conversation, msg *models.Message, viewer *models.Participant) error {
	if !viewer.IsStaff() {
		return validationf("only staff may delete messages")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.Reading{}, &models.Like{}, &models.Endorsement{}} {
			if err := tx.Where("message_id = ?", msg.ID).Delete(m).Error; err != nil {
				return fmt.Errorf("cascade delete: %w", err)
			}
		}
		if err := tx.Delete(msg).Error; err != nil {
			return fmt.Errorf("delete message %d: %w", msg.ID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("threads: %w", err)
	}

	notify(hub, conv)
	return nil
}
