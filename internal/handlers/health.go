package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports subsystem status.
type HealthHandler struct {
	db    *gorm.DB
	hub   *realtime.Hub
	queue services.TaskQueue
	relay *realtime.RedisBroadcaster
}

func NewHealthHandler(db *gorm.DB, hub *realtime.Hub, queue services.TaskQueue, relay *realtime.RedisBroadcaster) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, queue: queue, relay: relay}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := 200

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = 503
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	realtimeMode := "local"
	if h.relay != nil {
		realtimeMode = "redis"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "studiodesk",
		"components": gin.H{
			"database":          dbStatus,
			"queue_mode":        queueMode,
			"realtime_mode":     realtimeMode,
			"realtime_clients":  h.hub.ClientCount(),
			"supported_holiday": services.SupportedCalendars(),
		},
	})
}
