package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

type BudgetHandler struct {
	budgetService *services.BudgetService
}

func NewBudgetHandler(budgetService *services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// List returns the project's budget items
// GET /api/projects/:id/budget-items
func (h *BudgetHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.budgetService.ListItems(c.Request.Context(), middleware.GetSession(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

// Propose adds a PENDING item
// POST /api/projects/:id/budget-items
func (h *BudgetHandler) Propose(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ProposeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, err := h.budgetService.ProposeItem(c.Request.Context(), middleware.GetSession(c), projectID, req.Title, *req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// SetStatus approves or rejects an item
// PATCH /api/projects/:id/budget-items/:itemId/status
func (h *BudgetHandler) SetStatus(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var req services.SetItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, err := h.budgetService.SetItemStatus(c.Request.Context(), middleware.GetSession(c), projectID, itemID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, item)
}
