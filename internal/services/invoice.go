package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huangang/studiodesk/backend/internal/metrics"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

type InvoiceService struct {
	db       *gorm.DB
	guard    *Guard
	calendar *BusinessCalendar
	dueDays  int
	now      func() time.Time
}

func NewInvoiceService(db *gorm.DB, guard *Guard, calendar *BusinessCalendar, dueBusinessDays int) *InvoiceService {
	if calendar == nil {
		calendar = NewBusinessCalendar(CalendarWeekdaysOnly)
	}
	return &InvoiceService{
		db:       db,
		guard:    guard,
		calendar: calendar,
		dueDays:  dueBusinessDays,
		now:      time.Now,
	}
}

type SetInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Generate snapshots every APPROVED item of the project into a new PENDING
// invoice. Calling it again creates another invoice over the same items.
func (s *InvoiceService) Generate(ctx context.Context, sess *Session, projectID uint) (*models.Invoice, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierAdmin); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	invoice := &models.Invoice{}
	err := db.Transaction(func(tx *gorm.DB) error {
		var approved []models.BudgetItem
		if err := tx.Where("project_id = ? AND status = ?", projectID, models.BudgetStatusApproved).
			Order("id ASC").
			Find(&approved).Error; err != nil {
			return err
		}
		if len(approved) == 0 {
			return response.NewNoApprovedItems("No approved budget items found")
		}

		var total float64
		lines := make([]models.InvoiceLine, 0, len(approved))
		for _, item := range approved {
			total += item.Amount
			lines = append(lines, models.InvoiceLine{
				BudgetItemID: item.ID,
				Title:        item.Title,
				Amount:       item.Amount,
			})
		}

		now := s.now()
		*invoice = models.Invoice{
			ProjectID:   projectID,
			TotalAmount: total,
			Status:      models.InvoiceStatusPending,
			DueDate:     s.calendar.AddBusinessDays(now, s.dueDays),
			CreatedBy:   sess.UserID,
			Lines:       lines,
		}
		return tx.Create(invoice).Error
	})
	if err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, storeError(err)
	}

	var project models.Project
	if err := db.First(&project, projectID).Error; err == nil {
		invoice.Project = &project
	}

	metrics.InvoicesGenerated.Inc()
	logger.Info().
		Uint("project_id", projectID).
		Uint("invoice_id", invoice.ID).
		Float64("total", invoice.TotalAmount).
		Int("lines", len(invoice.Lines)).
		Msg("invoice generated")
	return invoice, nil
}

// AuthorizeInvoice resolves the invoice's owning project and checks the
// caller's tier there.
func (s *InvoiceService) AuthorizeInvoice(ctx context.Context, sess *Session, invoiceID uint, tier Tier) (*models.Invoice, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, response.NewUnauthenticated("authentication required")
	}

	var invoice models.Invoice
	if err := s.db.WithContext(ctx).First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("invoice not found")
		}
		return nil, storeError(err)
	}

	if _, err := s.guard.Authorize(ctx, sess, invoice.ProjectID, tier); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// SetStatus updates the status for an admin of the invoice's project.
func (s *InvoiceService) SetStatus(ctx context.Context, sess *Session, invoiceID uint, status string) (*models.Invoice, error) {
	invoice, err := s.AuthorizeInvoice(ctx, sess, invoiceID, TierAdmin)
	if err != nil {
		return nil, err
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if !models.IsValidInvoiceStatus(status) {
		return nil, response.NewInvalidArgument("status must be PENDING or PAID")
	}

	if err := s.db.WithContext(ctx).Model(invoice).Update("status", status).Error; err != nil {
		return nil, storeError(err)
	}
	invoice.Status = status
	return invoice, nil
}

// Get returns an invoice with its lines to a member of its project.
func (s *InvoiceService) Get(ctx context.Context, sess *Session, invoiceID uint) (*models.Invoice, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, response.NewUnauthenticated("authentication required")
	}

	var invoice models.Invoice
	if err := s.db.WithContext(ctx).Preload("Lines").Preload("Project").First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("invoice not found")
		}
		return nil, storeError(err)
	}
	if _, err := s.guard.Authorize(ctx, sess, invoice.ProjectID, TierMember); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *InvoiceService) ListByProject(ctx context.Context, sess *Session, projectID uint) ([]models.Invoice, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).
		Preload("Lines").
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&invoices).Error; err != nil {
		return nil, storeError(err)
	}
	return invoices, nil
}

// ListMine returns invoices across every project the caller belongs to.
func (s *InvoiceService) ListMine(ctx context.Context, sess *Session) ([]models.Invoice, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, response.NewUnauthenticated("authentication required")
	}

	memberOf := s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", sess.UserID)

	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).
		Preload("Project").
		Where("project_id IN (?)", memberOf).
		Order("created_at DESC, id DESC").
		Find(&invoices).Error; err != nil {
		return nil, storeError(err)
	}
	return invoices, nil
}
