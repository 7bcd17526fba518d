package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"gorm.io/gorm"
)

// ActivityEntry is one audited request.
type ActivityEntry struct {
	ProjectID *uint
	UserID    *uint
	Level     string
	Module    string
	Action    string
	Message   string
	IP        string
	UserAgent string
	Extra     interface{}
}

type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// Record persists an entry. Failures are logged only; auditing never fails
// the request it describes.
func (s *ActivityService) Record(ctx context.Context, e *ActivityEntry) {
	var extra string
	if e.Extra != nil {
		if b, err := json.Marshal(e.Extra); err == nil {
			extra = string(b)
		}
	}
	level := e.Level
	if level == "" {
		level = "info"
	}

	row := &models.ActivityLog{
		ProjectID: e.ProjectID,
		UserID:    e.UserID,
		Level:     level,
		Module:    e.Module,
		Action:    e.Action,
		Message:   e.Message,
		IP:        e.IP,
		UserAgent: truncate(e.UserAgent, 500),
		Extra:     extra,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		logger.Warn().Err(err).Str("module", e.Module).Msg("activity log write failed")
	}
}

type ActivityListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Module   string `form:"module"`
}

type ActivityListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.ActivityLog `json:"items"`
}

// List returns a project's audit trail to its admins, newest first.
func (s *ActivityService) List(ctx context.Context, guard *Guard, sess *Session, projectID uint, req *ActivityListRequest) (*ActivityListResponse, error) {
	if _, err := guard.Authorize(ctx, sess, projectID, TierAdmin); err != nil {
		return nil, err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{}).Where("project_id = ?", projectID)
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, storeError(err)
	}

	var items []models.ActivityLog
	if err := query.Order("created_at DESC, id DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&items).Error; err != nil {
		return nil, storeError(err)
	}

	return &ActivityListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// Prune deletes rows older than retentionDays and returns how many went.
func (s *ActivityService) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	return result.RowsAffected, result.Error
}
