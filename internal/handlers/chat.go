package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// History returns the latest messages, oldest first
// GET /api/projects/:id/messages
func (h *ChatHandler) History(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	messages, err := h.chatService.FetchHistory(c.Request.Context(), middleware.GetSession(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, messages)
}

// POST /api/projects/:id/messages
func (h *ChatHandler) Send(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.chatService.SendMessage(c.Request.Context(), middleware.GetSession(c), projectID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}
