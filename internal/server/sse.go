package server

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/threads"
	"gorm.io/gorm"
)

// heartbeatInterval keeps intermediaries from reaping idle streams.
const heartbeatInterval = 15 * time.Second

// handleEvents streams hub refresh events over SSE. The subscription
// covers the whole course; a ?conversation=N query parameter narrows it to
// one conversation, which must be visible to the viewer at subscribe time.
func handleEvents(db *gorm.DB, hub *live.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		course, ok := courseID(c)
		if !ok {
			return
		}
		v, ok := viewer(c, db, course)
		if !ok {
			return
		}

		scope := live.Scope{CourseID: course}
		if raw := c.Query("conversation"); raw != "" {
			number, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || number == 0 {
				notFound(c)
				return
			}
			conv, err := threads.GetConversation(db, course, uint(number), v)
			if err != nil {
				writeErr(c, err)
				return
			}
			scope.ConversationID = conv.ID
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		conn := hub.Subscribe(scope)
		defer hub.Unsubscribe(conn)

		writeSSE(c.Writer, "connected", map[string]string{"id": conn.ID})
		c.Writer.Flush()

		ctx := c.Request.Context()
		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case evt, open := <-conn.Events:
				if !open {
					// Dropped by the hub for lagging; the client
					// reconnects and refetches.
					return
				}
				writeSSE(c.Writer, "refresh", evt)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
