package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/threads"
	"gorm.io/gorm"
)

// withConversation runs fn against the resolved course, viewer, and
// conversation. Every mutation route below starts the same way.
func withConversation(db *gorm.DB, fn func(c *gin.Context, v *models.Participant, conv *models.Conversation)) gin.HandlerFunc {
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
		fn(c, v, conv)
	}
}

// withMessage additionally resolves the :ref message.
func withMessage(db *gorm.DB, fn func(c *gin.Context, v *models.Participant, conv *models.Conversation, msg *models.Message)) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		msg, ok := message(c, db, conv)
		if !ok {
			return
		}
		fn(c, v, conv, msg)
	})
}

type createConversationRequest struct {
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	Body      string   `json:"body"`
	Anonymous bool     `json:"anonymous"`
	StaffOnly bool     `json:"staff_only"`
	Tags      []string `json:"tags"`
}

func handleCreateConversation(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		course, ok := courseID(c)
		if !ok {
			return
		}
		v, ok := viewer(c, db, course)
		if !ok {
			return
		}
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		conv, err := threads.CreateConversation(db, hub, course, v, threads.CreateParams{
			Title:     req.Title,
			Type:      req.Type,
			Body:      req.Body,
			Anonymous: req.Anonymous,
			StaffOnly: req.StaffOnly,
			TagRefs:   req.Tags,
		})
		if err != nil {
			writeErr(c, err)
			return
		}
		detail, err := renderConversation(db, conv, v)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, detail)
	}
}

type updateConversationRequest struct {
	Title     *string `json:"title"`
	Type      *string `json:"type"`
	Anonymous *bool   `json:"anonymous"`
}

func handleUpdateConversation(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		var req updateConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		err := threads.UpdateConversation(db, hub, conv, v, threads.UpdateParams{
			Title:     req.Title,
			Type:      req.Type,
			Anonymous: req.Anonymous,
		})
		if err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleDeleteConversation(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		if err := threads.DeleteConversation(db, hub, conv, v); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// flagRequest toggles one of the timestamp-backed conversation flags.
type flagRequest struct {
	Value bool `json:"value"`
}

func handleSetPinned(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		var req flagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		if err := threads.SetPinned(db, hub, conv, v, req.Value); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleSetStaffOnly(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		var req flagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		if err := threads.SetStaffOnly(db, hub, conv, v, req.Value); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleSetResolved(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		var req flagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		if err := threads.SetResolved(db, hub, conv, v, req.Value); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

type taggingRequest struct {
	Tag string `json:"tag"`
}

func handleAddTagging(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		var req taggingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		if err := threads.AddTagging(db, hub, conv, v, req.Tag); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleRemoveTagging(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		if err := threads.RemoveTagging(db, hub, conv, v, c.Param("tag")); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

type postMessageRequest struct {
	Body      string `json:"body"`
	Anonymous bool   `json:"anonymous"`
}

func handlePostMessage(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withConversation(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation) {
		var req postMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		msg, err := threads.PostMessage(db, hub, conv, v, req.Body, req.Anonymous)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ref": msg.Ref})
	})
}

type editMessageRequest struct {
	Body string `json:"body"`
}

func handleEditMessage(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withMessage(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation, msg *models.Message) {
		var req editMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		if err := threads.EditMessage(db, hub, conv, msg, v, req.Body); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleSetAnswer(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withMessage(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation, msg *models.Message) {
		var req flagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		if err := threads.SetAnswer(db, hub, conv, msg, v, req.Value); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleLike(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withMessage(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation, msg *models.Message) {
		if err := threads.Like(db, hub, conv, msg, v); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleUnlike(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withMessage(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation, msg *models.Message) {
		if err := threads.Unlike(db, hub, conv, msg, v); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleEndorse(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withMessage(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation, msg *models.Message) {
		if err := threads.Endorse(db, hub, conv, msg, v); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func handleUnendorse(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return withMessage(db, func(c *gin.Context, v *models.Participant, conv *models.Conversation, msg *models.Message) {
		if err := threads.Unendorse(db, hub, conv, msg, v); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
