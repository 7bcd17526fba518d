package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

type SummaryHandler struct {
	summaryService *services.StatusSummaryService
}

func NewSummaryHandler(summaryService *services.StatusSummaryService) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

// StatusSummary drafts a client-facing status update
// POST /api/projects/:id/status-summary
func (h *SummaryHandler) StatusSummary(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.StatusSummaryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	summary, err := h.summaryService.Summarize(c.Request.Context(), middleware.GetSession(c), projectID, req.ClientName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}
