// Package threads implements the write side of the discussion engine:
// conversation and message mutation, tagging, resolution, likes, and
// endorsements. Every operation validates its invariants before touching
// state (all-or-none per update) and announces the affected scope on the
// broadcast hub only after its transaction commits.
package threads

import (
	"errors"
	"fmt"

	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/visibility"
	"gorm.io/gorm"
)

// ErrNotFound covers both nonexistent records and records the viewer may
// not see; callers must not be able to tell the two apart.
var ErrNotFound = errors.New("threads: not found")

// ErrValidation marks a rejected write. Wrap it with context.
var ErrValidation = errors.New("invalid")

// ErrLastTag rejects removing the last tag of a tagged conversation.
var ErrLastTag = fmt.Errorf("a tagged conversation must keep at least one tag: %w", ErrValidation)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("threads: "+format+": %w", append(args, ErrValidation)...)
}

// GetConversation loads a conversation by course and number under the
// viewer's visibility. Absence and invisibility are identical.
func GetConversation(db *gorm.DB, courseID, number uint, viewer *models.Participant) (*models.Conversation, error) {
	var conv models.Conversation
	err := db.Where("course_id = ? AND number = ?", courseID, number).
		Preload("Author").
		Preload("Taggings.Tag").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("threads: load conversation %d/%d: %w", courseID, number, err)
	}
	visible, err := visibility.ConversationVisible(db, &conv, viewer)
	if err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}
	if !visible {
		return nil, ErrNotFound
	}
	return &conv, nil
}

// GetMessage loads a message by its conversation-relative reference.
func GetMessage(db *gorm.DB, conv *models.Conversation, ref uint) (*models.Message, error) {
	var msg models.Message
	err := db.Where("conversation_id = ? AND ref = ?", conv.ID, ref).
		Preload("Author").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("threads: load message %d#%d: %w", conv.ID, ref, err)
	}
	return &msg, nil
}

// notify announces a committed change in conv's scope.
func notify(hub *live.Hub, conv *models.Conversation) {
	if hub == nil {
		return
	}
	hub.Notify(live.Scope{CourseID: conv.CourseID, ConversationID: conv.ID})
}

// canModerate reports whether the viewer may perform staff-or-author
// mutations on a record authored by authorID.
func canModerate(viewer *models.Participant, authorID *uint) bool {
	if viewer.IsStaff() {
		return true
	}
	return authorID != nil && *authorID == viewer.ID
}
