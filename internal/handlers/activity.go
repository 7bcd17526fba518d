package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

type ActivityHandler struct {
	activityService *services.ActivityService
	guard           *services.Guard
}

func NewActivityHandler(activityService *services.ActivityService, guard *services.Guard) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, guard: guard}
}

// List returns a project's audit trail
// GET /api/projects/:id/activity
func (h *ActivityHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.activityService.List(c.Request.Context(), h.guard, middleware.GetSession(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}
