package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

type InvoiceHandler struct {
	invoiceService *services.InvoiceService
}

func NewInvoiceHandler(invoiceService *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Generate invoices every approved item of a project
// POST /api/projects/:id/invoices
func (h *InvoiceHandler) Generate(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Generate(c.Request.Context(), middleware.GetSession(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// ListByProject returns a project's invoices
// GET /api/projects/:id/invoices
func (h *InvoiceHandler) ListByProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	invoices, err := h.invoiceService.ListByProject(c.Request.Context(), middleware.GetSession(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invoices)
}

// ListMine returns invoices across the caller's projects
// GET /api/invoices
func (h *InvoiceHandler) ListMine(c *gin.Context) {
	invoices, err := h.invoiceService.ListMine(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invoices)
}

// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Get(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invoice)
}

// SetStatus marks an invoice paid or pending
// PATCH /api/invoices/:id/status
func (h *InvoiceHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sess := middleware.GetSession(c)
	if _, err := h.invoiceService.AuthorizeInvoice(c.Request.Context(), sess, id, services.TierAdmin); err != nil {
		response.Error(c, err)
		return
	}
	var req services.SetInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.SetStatus(c.Request.Context(), sess, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, invoice)
}
