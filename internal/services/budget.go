package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/huangang/studiodesk/backend/internal/metrics"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

type BudgetService struct {
	db       *gorm.DB
	guard    *Guard
	notifier *realtime.Notifier
}

func NewBudgetService(db *gorm.DB, guard *Guard, notifier *realtime.Notifier) *BudgetService {
	return &BudgetService{db: db, guard: guard, notifier: notifier}
}

type ProposeItemRequest struct {
	Title  string   `json:"title" binding:"required,max=200"`
	Amount *float64 `json:"amount" binding:"required"`
}

type SetItemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ProposeItem adds a PENDING item to the project's ledger.
func (s *BudgetService) ProposeItem(ctx context.Context, sess *Session, projectID uint, title string, amount float64) (*models.BudgetItem, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, response.NewInvalidArgument("title is required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, response.NewInvalidArgument("amount must be a positive number")
	}

	item := &models.BudgetItem{
		ProjectID: projectID,
		Title:     title,
		Amount:    amount,
		Status:    models.BudgetStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, storeError(err)
	}

	s.notifier.Notify(projectID, realtime.EventBudgetUpdated, sess.UserID, item)
	return item, nil
}

// SetItemStatus writes status as given. Any status may follow any other;
// concurrent writers are last-writer-wins.
func (s *BudgetService) SetItemStatus(ctx context.Context, sess *Session, projectID, itemID uint, status string) (*models.BudgetItem, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierAdmin); err != nil {
		return nil, err
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if !models.IsValidBudgetStatus(status) {
		return nil, response.NewInvalidArgument("status must be PENDING, APPROVED or REJECTED")
	}

	db := s.db.WithContext(ctx)
	var item models.BudgetItem
	if err := db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("budget item not found")
		}
		return nil, storeError(err)
	}
	// Items of other projects are indistinguishable from missing ones.
	if item.ProjectID != projectID {
		return nil, response.NewNotFound("budget item not found")
	}

	if err := db.Model(&item).Update("status", status).Error; err != nil {
		return nil, storeError(err)
	}
	item.Status = status
	metrics.BudgetTransitions.WithLabelValues(status).Inc()

	s.notifier.Notify(projectID, realtime.EventBudgetUpdated, sess.UserID, item)
	return &item, nil
}

// ListItems returns the ledger oldest first.
func (s *BudgetService) ListItems(ctx context.Context, sess *Session, projectID uint) ([]models.BudgetItem, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	var items []models.BudgetItem
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, storeError(err)
	}
	return items, nil
}
