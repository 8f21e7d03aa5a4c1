package server

import (
	"github.com/gin-gonic/gin"
	"github.com/hollisk/lectern/internal/live"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, hub *live.Hub) {
	api := router.Group("/api/courses/:course")

	// Reads.
	api.GET("/conversations", handleListConversations(db))
	api.GET("/conversations/:number", handleShowConversation(db))
	api.GET("/conversations/:number/messages", handleWindowMessages(db))

	// Read tracking.
	api.POST("/read-all", handleMarkAllRead(db))

	// Live updates.
	api.GET("/events", handleEvents(db, hub))

	// Writes.
	api.POST("/conversations", handleCreateConversation(db, hub))
	api.PATCH("/conversations/:number", handleUpdateConversation(db, hub))
	api.DELETE("/conversations/:number", handleDeleteConversation(db, hub))
	api.POST("/conversations/:number/pin", handleSetPinned(db, hub))
	api.POST("/conversations/:number/staff-only", handleSetStaffOnly(db, hub))
	api.POST("/conversations/:number/resolve", handleSetResolved(db, hub))
	api.POST("/conversations/:number/tags", handleAddTagging(db, hub))
	api.DELETE("/conversations/:number/tags/:tag", handleRemoveTagging(db, hub))
	api.POST("/conversations/:number/messages", handlePostMessage(db, hub))
	api.PATCH("/conversations/:number/messages/:ref", handleEditMessage(db, hub))
	api.POST("/conversations/:number/messages/:ref/answer", handleSetAnswer(db, hub))
	api.POST("/conversations/:number/messages/:ref/like", handleLike(db, hub))
	api.DELETE("/conversations/:number/messages/:ref/like", handleUnlike(db, hub))
	api.POST("/conversations/:number/messages/:ref/endorse", handleEndorse(db, hub))
	api.DELETE("/conversations/:number/messages/:ref/endorse", handleUnendorse(db, hub))
}
