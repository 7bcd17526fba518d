package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

// EventsHandler streams a project's realtime channel as Server-Sent Events.
type EventsHandler struct {
	hub       *realtime.Hub
	guard     *services.Guard
	heartbeat time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func NewEventsHandler(hub *realtime.Hub, guard *services.Guard, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &EventsHandler{hub: hub, guard: guard, heartbeat: heartbeat, done: make(chan struct{})}
}

// Close ends every open stream; main registers it with RegisterOnShutdown.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Stream subscribes a member to project-{id} until the client goes away.
// GET /api/projects/:id/events
func (h *EventsHandler) Stream(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	sess := middleware.GetSession(c)
	if _, err := h.guard.Authorize(c.Request.Context(), sess, projectID, services.TierMember); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe(realtime.ProjectChannel(projectID), sess.UserID)
	defer h.hub.Unsubscribe(sub)

	log := logger.Module("events")
	log.Info().Str("client_id", sub.ID).Uint("project_id", projectID).Uint("user_id", sess.UserID).Msg("stream client connected")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Writer.WriteHeader(200)
	fmt.Fprint(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("event", ev.Name).Msg("event marshal failed")
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
			return true
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			return true
		case <-c.Request.Context().Done():
			log.Info().Str("client_id", sub.ID).Msg("stream client disconnected")
			return false
		case <-h.done:
			log.Info().Str("client_id", sub.ID).Msg("stream closed for shutdown")
			return false
		}
	})
}
