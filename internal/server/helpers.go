package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/threads"
	"gorm.io/gorm"
)

// viewerHeader carries the authenticated participant id, set by the
// upstream auth layer.
const viewerHeader = "X-Lectern-Participant"

// courseID parses the :course path parameter. Writes 404 and returns false
// on anything that isn't a positive integer.
func courseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("course"), 10, 32)
	if err != nil || id == 0 {
		notFound(c)
		return 0, false
	}
	return uint(id), true
}

// viewer resolves the requesting participant within the course. An absent
// or unknown identity renders the same 404 as a missing resource.
func viewer(c *gin.Context, db *gorm.DB, course uint) (*models.Participant, bool) {
	id, err := strconv.ParseUint(c.GetHeader(viewerHeader), 10, 32)
	if err != nil || id == 0 {
		notFound(c)
		return nil, false
	}
	var p models.Participant
	if err := db.Where("id = ? AND course_id = ?", id, course).First(&p).Error; err != nil {
		notFound(c)
		return nil, false
	}
	return &p, true
}

// conversation resolves :number under the viewer's visibility; absence and
// invisibility are the same 404.
func conversation(c *gin.Context, db *gorm.DB, course uint, v *models.Participant) (*models.Conversation, bool) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 32)
	if err != nil || number == 0 {
		notFound(c)
		return nil, false
	}
	conv, err := threads.GetConversation(db, course, uint(number), v)
	if err != nil {
		writeErr(c, err)
		return nil, false
	}
	return conv, true
}

// message resolves :ref within an already-resolved conversation.
func message(c *gin.Context, db *gorm.DB, conv *models.Conversation) (*models.Message, bool) {
	ref, err := strconv.ParseUint(c.Param("ref"), 10, 32)
	if err != nil || ref == 0 {
		notFound(c)
		return nil, false
	}
	msg, err := threads.GetMessage(db, conv, uint(ref))
	if err != nil {
		writeErr(c, err)
		return nil, false
	}
	return msg, true
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// writeErr maps engine errors onto HTTP statuses. Not-found and
// permission-denied are indistinguishable on purpose.
func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, threads.ErrNotFound):
		notFound(c)
	case errors.Is(err, threads.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("server: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
