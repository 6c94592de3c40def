package api

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/mondrian-project/mondrian/pkg/events"
)

// streamHandler handles GET /stream/{id}: the SSE event stream (spec.md
// §6 "SSE event framing"). Uses gin's c.Stream helper with an explicit
// flush after every event, the idiomatic gin SSE recipe.
func (s *Server) streamHandler(c *gin.Context) {
	jobID := c.Param("id")

	if _, err := s.store.GetJob(c.Request.Context(), jobID); err != nil {
		respondStoreError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	ch, unsubscribe := s.bus.Subscribe(ctx, jobID)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			writeSSE(c, msg)
			done := msg.Type == events.EventTypeDone
			return !done
		}
	})
}

func writeSSE(c *gin.Context, msg events.Message) {
	c.SSEvent(string(msg.Type), string(msg.Data))
	c.Writer.Flush()
}
