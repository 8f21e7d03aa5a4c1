package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hollisk/lectern/internal/listing"
	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/readledger"
	"github.com/hollisk/lectern/internal/visibility"
	"github.com/hollisk/lectern/internal/window"
	"gorm.io/gorm"
)

func handleListConversations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		course, ok := courseID(c)
		if !ok {
			return
		}
		v, ok := viewer(c, db, course)
		if !ok {
			return
		}
		q := c.Request.URL.Query()
		page, err := listing.List(db, course, v,
			listing.ParseFilters(q), listing.ParsePage(q), listing.ParsePageSize(q))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// conversationDetail is the full single-conversation rendering, heavier
// than a listing Summary by the anonymity flag and resolution timestamps.
type conversationDetail struct {
	ID          uint                  `json:"id"`
	Number      uint                  `json:"number"`
	Title       string                `json:"title"`
	Type        string                `json:"type"`
	Author      visibility.AuthorView `json:"author"`
	Anonymous   bool                  `json:"anonymous"`
	Pinned      bool                  `json:"pinned"`
	Resolved    bool                  `json:"resolved"`
	StaffOnly   bool                  `json:"staff_only"`
	Tags        []models.Tag          `json:"tags"`
	UnreadCount int64                 `json:"unread_count"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func renderConversation(db *gorm.DB, conv *models.Conversation, v *models.Participant) (*conversationDetail, error) {
	unread, err := readledger.UnreadCount(db, conv.ID, v.ID)
	if err != nil {
		return nil, err
	}
	return &conversationDetail{
		ID:          conv.ID,
		Number:      conv.Number,
		Title:       conv.Title,
		Type:        conv.Type,
		Author:      visibility.RenderAuthor(models.ResolveAuthor(conv.AuthorID, conv.Author), conv.Anonymous, v),
		Anonymous:   conv.Anonymous,
		Pinned:      conv.PinnedAt != nil,
		Resolved:    conv.ResolvedAt != nil,
		StaffOnly:   conv.StaffOnlyAt != nil,
		Tags:        visibility.VisibleTags(conv.Taggings, v),
		UnreadCount: unread,
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
	}, nil
}

func handleShowConversation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		course, ok := courseID(c)
		if !ok {
			return
		}
		v, ok := viewer(c, db, course)
		if !ok {
			return
		}
		conv, ok := conversation(c, db, course, v)
		if !ok {
			return
		}
		detail, err := renderConversation(db, conv, v)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func handleWindowMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		course, ok := courseID(c)
		if !ok {
			return
		}
		v, ok := viewer(c, db, course)
		if !ok {
			return
		}
		conv, ok := conversation(c, db, course, v)
		if !ok {
			return
		}
		q := c.Request.URL.Query()
		win, err := window.Messages(db, conv, v, window.ParseCursor(q), windowSize(q))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, win)
	}
}

// windowSize decodes the message window size. Zero and malformed values
// fall through to window.DefaultSize; the listing cap still applies.
func windowSize(q url.Values) int {
	n, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || n < 1 {
		return 0
	}
	if n > listing.MaxPageSize {
		return listing.MaxPageSize
	}
	return n
}

func handleMarkAllRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		course, ok := courseID(c)
		if !ok {
			return
		}
		v, ok := viewer(c, db, course)
		if !ok {
			return
		}
		marked, err := readledger.MarkAllRead(db, course, v)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"marked": marked})
	}
}
