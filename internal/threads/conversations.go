package threads

import (
	"fmt"
	"strings"
	"time"

	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/search"
	"github.com/hollisk/lectern/internal/visibility"
	"gorm.io/gorm"
)

// CreateParams holds the fields of a new conversation and its first message.
type CreateParams struct {
	Title     string
	Type      string
	Body      string
	Anonymous bool
	StaffOnly bool
	TagRefs   []string
}

// CreateConversation creates a conversation and its first message in one
// transaction, then announces the new scope. When the course has tags, the
// author must attach at least one tag visible to them.
func CreateConversation(db *gorm.DB, hub *live.Hub, courseID uint, author *models.Participant, p CreateParams) (*models.Conversation, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, validationf("title is required")
	}
	if !models.ValidType(p.Type) {
		return nil, validationf("unknown conversation type %q", p.Type)
	}
	if strings.TrimSpace(p.Body) == "" {
		return nil, validationf("first message body is required")
	}
	if p.StaffOnly && !author.IsStaff() {
		return nil, validationf("only staff may create staff-only conversations")
	}

	tags, err := resolveTags(db, courseID, p.TagRefs)
	if err != nil {
		return nil, err
	}
	var courseTags int64
	if err := db.Model(&models.Tag{}).Where("course_id = ?", courseID).Count(&courseTags).Error; err != nil {
		return nil, fmt.Errorf("threads: count course tags: %w", err)
	}
	if courseTags > 0 && len(visibleTags(tags, author)) == 0 {
		return nil, validationf("at least one tag is required")
	}

	conv := models.Conversation{
		CourseID:       courseID,
		AuthorID:       &author.ID,
		Anonymous:      p.Anonymous,
		Type:           p.Type,
		Title:          title,
		TitleSearch:    search.Normalize(title),
		NextMessageRef: 2,
	}
	if p.StaffOnly {
		now := time.Now()
		conv.StaffOnlyAt = &now
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var maxNumber *uint
		row := tx.Model(&models.Conversation{}).
			Where("course_id = ?", courseID).
			Select("MAX(number)").
			Row()
		if err := row.Scan(&maxNumber); err != nil {
			return fmt.Errorf("next conversation number: %w", err)
		}
		conv.Number = 1
		if maxNumber != nil {
			conv.Number = *maxNumber + 1
		}
		if err := tx.Create(&conv).Error; err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		for _, tag := range tags {
			tagging := models.Tagging{ConversationID: conv.ID, TagID: tag.ID}
			if err := tx.Create(&tagging).Error; err != nil {
				return fmt.Errorf("attach tag %q: %w", tag.Name, err)
			}
		}
		msg := models.Message{
			ConversationID: conv.ID,
			Ref:            1,
			AuthorID:       &author.ID,
			Anonymous:      p.Anonymous,
			Body:           p.Body,
			BodyHTML:       RenderBody(p.Body),
			BodySearch:     search.Normalize(p.Body),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create first message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}

	notify(hub, &conv)
	return &conv, nil
}

// UpdateParams carries the mutable conversation fields. Nil means unchanged.
type UpdateParams struct {
	Title     *string
	Type      *string
	Anonymous *bool
}

// UpdateConversation applies a title/type/anonymity update, by the author
// or staff. All recognized fields are validated before any applies; a type
// change away from question clears the resolution and any answer flags.
func UpdateConversation(db *gorm.DB, hub *live.Hub, conv *models.Conversation, viewer *models.Participant, p UpdateParams) error {
	if !canModerate(viewer, conv.AuthorID) {
		return validationf("only the author or staff may edit a conversation")
	}

	updates := map[string]interface{}{}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return validationf("title is required")
		}
		updates["title"] = title
		updates["title_search"] = search.Normalize(title)
	}
	leavingQuestion := false
	if p.Type != nil {
		if !models.ValidType(*p.Type) {
			return validationf("unknown conversation type %q", *p.Type)
		}
		updates["type"] = *p.Type
		leavingQuestion = conv.Type == models.TypeQuestion && *p.Type != models.TypeQuestion
		if leavingQuestion {
			updates["resolved_at"] = nil
		}
	}
	if p.Anonymous != nil {
		updates["anonymous"] = *p.Anonymous
	}
	if len(updates) == 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(conv).Updates(updates).Error; err != nil {
			return fmt.Errorf("update conversation %d: %w", conv.ID, err)
		}
		if leavingQuestion {
			err := tx.Model(&models.Message{}).
				Where("conversation_id = ? AND is_answer = ?", conv.ID, true).
				Update("is_answer", false).Error
			if err != nil {
				return fmt.Errorf("clear answer flags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("threads: %w", err)
	}

	notify(hub, conv)
	return nil
}

// DeleteConversation removes a conversation and everything under it. Staff
// only.
func DeleteConversation(db *gorm.DB, hub *live.Hub, conv *models.Conversation, viewer *models.Participant) error {
	if !viewer.IsStaff() {
		return validationf("only staff may delete conversations")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&models.Message{}).Select("id").Where("conversation_id = ?", conv.ID)
		for _, m := range []interface{}{&models.Reading{}, &models.Like{}, &models.Endorsement{}} {
			if err := tx.Where("message_id IN (?)", sub).Delete(m).Error; err != nil {
				return fmt.Errorf("cascade delete: %w", err)
			}
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.Tagging{}).Error; err != nil {
			return fmt.Errorf("delete taggings: %w", err)
		}
		if err := tx.Delete(conv).Error; err != nil {
			return fmt.Errorf("delete conversation %d: %w", conv.ID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("threads: %w", err)
	}

	notify(hub, conv)
	return nil
}

// SetPinned pins or unpins a conversation. Staff only.
func SetPinned(db *gorm.DB, hub *live.Hub, conv *models.Conversation, viewer *models.Participant, pinned bool) error {
	if !viewer.IsStaff() {
		return validationf("only staff may pin conversations")
	}
	return setTimestampFlag(db, hub, conv, "pinned_at", pinned)
}

// SetStaffOnly restricts a conversation to staff (and its message authors)
// or lifts the restriction. Staff only.
func SetStaffOnly(db *gorm.DB, hub *live.Hub, conv *models.Conversation, viewer *models.Participant, staffOnly bool) error {
	if !viewer.IsStaff() {
		return validationf("only staff may change staff-only visibility")
	}
	return setTimestampFlag(db, hub, conv, "staff_only_at", staffOnly)
}

// SetResolved marks a question resolved or reopens it, by the author or
// staff. Rejected for non-question conversations.
func SetResolved(db *gorm.DB, hub *live.Hub, conv *models.Conversation, viewer *models.Participant, resolved bool) error {
	if conv.Type != models.TypeQuestion {
		return validationf("only questions can be resolved")
	}
	if !canModerate(viewer, conv.AuthorID) {
		return validationf("only the author or staff may resolve a question")
	}
	return setTimestampFlag(db, hub, conv, "resolved_at", resolved)
}

func setTimestampFlag(db *gorm.DB, hub *live.Hub, conv *models.Conversation, column string, set bool) error {
	var value interface{}
	if set {
		value = time.Now()
	}
	if err := db.Model(conv).Update(column, value).Error; err != nil {
		return fmt.Errorf("threads: set %s on conversation %d: %w", column, conv.ID, err)
	}
	notify(hub, conv)
	return nil
}

// resolveTags maps tag references to course tags, rejecting unknown refs.
func resolveTags(db *gorm.DB, courseID uint, refs []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(refs))
	for _, ref := range refs {
		var tag models.Tag
		err := db.Where("course_id = ? AND name = ?", courseID, ref).First(&tag).Error
		if err == gorm.ErrRecordNotFound {
			return nil, validationf("unknown tag %q", ref)
		}
		if err != nil {
			return nil, fmt.Errorf("threads: resolve tag %q: %w", ref, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func visibleTags(tags []models.Tag, viewer *models.Participant) []models.Tag {
	taggings := make([]models.Tagging, len(tags))
	for i, t := range tags {
		taggings[i] = models.Tagging{TagID: t.ID, Tag: t}
	}
	return visibility.VisibleTags(taggings, viewer)
}
