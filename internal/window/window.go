package window

import (
	"fmt"
	"time"

	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/readledger"
	"github.com/hollisk/lectern/internal/visibility"
	"gorm.io/gorm"
)

// Window directions.
const (
	DirectionForward = "forward"
	DirectionReverse = "reverse"
)

// DefaultSize is the message window size when the request names none.
const DefaultSize = 50

// MessageView is one message as rendered for a particular viewer.
type MessageView struct {
	ID        uint                  `json:"id"`
	Ref       uint                  `json:"ref"`
	Author    visibility.AuthorView `json:"author"`
	Body      string                `json:"body"`
	BodyHTML  string                `json:"body_html"`
	IsAnswer  bool                  `json:"is_answer"`
	Read      bool                  `json:"read"`
	Likes     int64                 `json:"likes"`
	Endorsed  bool                  `json:"endorsed"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Window is one bounded slice of a conversation, always in ascending
// reference order, with a more-exists flag per direction.
type Window struct {
	Messages       []MessageView `json:"messages"`
	MoreBefore     bool          `json:"more_before"`
	MoreAfter      bool          `json:"more_after"`
	Direction      string        `json:"direction"`
	FirstUnreadRef *uint         `json:"first_unread_ref,omitempty"`
}

// Messages returns a window of the conversation's messages for the viewer
// and, once the window is fully assembled, marks every returned message
// read in display order. The first-unread marker is computed over the whole
// conversation before any marking, so it reflects the state the viewer
// opened.
//
// Direction policy: an explicit before-cursor pages backwards; an
// after-cursor pages forwards; with no cursor, chat conversations anchor at
// the newest message (reverse mode) and everything else starts at the
// beginning.
func Messages(gdb *gorm.DB, conv *models.Conversation, viewer *models.Participant, cur Cursor, size int) (*Window, error) {
	if size < 1 {
		size = DefaultSize
	}

	firstUnread, err := readledger.FirstUnreadRef(gdb, conv.ID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}

	w := &Window{FirstUnreadRef: firstUnread}
	var msgs []models.Message

	switch {
	case cur.Kind == CursorBefore:
		w.Direction = DirectionReverse
		msgs, w.MoreBefore, err = fetch(gdb, conv.ID, "ref < ?", cur.Ref, "ref DESC", size)
		if err == nil {
			reverse(msgs)
			w.MoreAfter, err = exists(gdb, conv.ID, "ref >= ?", cur.Ref)
		}
	case cur.Kind == CursorAfter:
		w.Direction = DirectionForward
		msgs, w.MoreAfter, err = fetch(gdb, conv.ID, "ref > ?", cur.Ref, "ref ASC", size)
		if err == nil {
			w.MoreBefore, err = exists(gdb, conv.ID, "ref <= ?", cur.Ref)
		}
	case cur.Kind == CursorJump:
		w.Direction = DirectionForward
		msgs, w.MoreBefore, w.MoreAfter, err = fetchAround(gdb, conv.ID, cur.Ref, size)
	case conv.Type == models.TypeChat:
		// Chats read newest-first: the freshest page loads first.
		w.Direction = DirectionReverse
		msgs, w.MoreBefore, err = fetch(gdb, conv.ID, "", 0, "ref DESC", size)
		if err == nil {
			reverse(msgs)
		}
	default:
		w.Direction = DirectionForward
		msgs, w.MoreAfter, err = fetch(gdb, conv.ID, "", 0, "ref ASC", size)
	}
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}

	w.Messages, err = render(gdb, msgs, viewer)
	if err != nil {
		return nil, err
	}

	// The windowing succeeded; only now does the read sweep run, in the
	// window's final display order.
	readledger.MarkMessagesRead(gdb, msgs, viewer.ID)
	return w, nil
}

// fetch loads up to size messages plus the sentinel row; the sentinel is
// stripped before any reversal and reported as the more flag.
func fetch(gdb *gorm.DB, convID uint, cond string, ref uint, order string, size int) ([]models.Message, bool, error) {
	tx := gdb.Where("conversation_id = ?", convID)
	if cond != "" {
		tx = tx.Where(cond, ref)
	}
	var msgs []models.Message
	if err := tx.Order(order).Limit(size + 1).Preload("Author").Find(&msgs).Error; err != nil {
		return nil, false, fmt.Errorf("fetch messages: %w", err)
	}
	more := len(msgs) > size
	if more {
		msgs = msgs[:size]
	}
	return msgs, more, nil
}

// fetchAround centers a window on the referenced message: half the budget
// goes to strictly-older messages, the rest to the message itself onwards.
func fetchAround(gdb *gorm.DB, convID, ref uint, size int) ([]models.Message, bool, bool, error) {
	half := size / 2
	older, moreBefore, err := fetch(gdb, convID, "ref < ?", ref, "ref DESC", half)
	if err != nil {
		return nil, false, false, err
	}
	reverse(older)
	newer, moreAfter, err := fetch(gdb, convID, "ref >= ?", ref, "ref ASC", size-len(older))
	if err != nil {
		return nil, false, false, err
	}
	return append(older, newer...), moreBefore, moreAfter, nil
}

func exists(gdb *gorm.DB, convID uint, cond string, ref uint) (bool, error) {
	var count int64
	err := gdb.Model(&models.Message{}).
		Where("conversation_id = ?", convID).
		Where(cond, ref).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("probe messages: %w", err)
	}
	return count > 0, nil
}

func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// render builds per-viewer message views with read status, like counts, and
// endorsement state.
func render(gdb *gorm.DB, msgs []models.Message, viewer *models.Participant) ([]MessageView, error) {
	views := make([]MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}

	ids := make([]uint, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	read := make(map[uint]bool)
	var readings []models.Reading
	err := gdb.Where("message_id IN ? AND participant_id = ?", ids, viewer.ID).Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("window: load readings: %w", err)
	}
	for _, r := range readings {
		read[r.MessageID] = true
	}

	likes := make(map[uint]int64)
	var likeRows []models.Like
	if err := gdb.Where("message_id IN ?", ids).Find(&likeRows).Error; err != nil {
		return nil, fmt.Errorf("window: load likes: %w", err)
	}
	for _, l := range likeRows {
		likes[l.MessageID]++
	}

	endorsed := make(map[uint]bool)
	var endRows []models.Endorsement
	if err := gdb.Where("message_id IN ?", ids).Find(&endRows).Error; err != nil {
		return nil, fmt.Errorf("window: load endorsements: %w", err)
	}
	for _, e := range endRows {
		endorsed[e.MessageID] = true
	}

	for _, m := range msgs {
		views = append(views, MessageView{
			ID:        m.ID,
			Ref:       m.Ref,
			Author:    visibility.RenderAuthor(models.ResolveAuthor(m.AuthorID, m.Author), m.Anonymous, viewer),
			Body:      m.Body,
			BodyHTML:  m.BodyHTML,
			IsAnswer:  m.IsAnswer,
			Read:      read[m.ID],
			Likes:     likes[m.ID],
			Endorsed:  endorsed[m.ID],
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return views, nil
}
