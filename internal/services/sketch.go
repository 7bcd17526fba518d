package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

type SketchService struct {
	db       *gorm.DB
	guard    *Guard
	notifier *realtime.Notifier
}

func NewSketchService(db *gorm.DB, guard *Guard, notifier *realtime.Notifier) *SketchService {
	return &SketchService{db: db, guard: guard, notifier: notifier}
}

type SaveSketchRequest struct {
	Title    string `json:"title" binding:"max=200"`
	ImageURL string `json:"image_url" binding:"required"`
}

// Save records an already uploaded image on the project's moodboard.
func (s *SketchService) Save(ctx context.Context, sess *Session, projectID uint, title, imageURL string) (*models.Sketch, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	imageURL = strings.TrimSpace(imageURL)
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, response.NewInvalidArgument("image_url must be an http(s) URL")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled sketch"
	}

	sketch := &models.Sketch{
		ProjectID:  projectID,
		UploadedBy: sess.UserID,
		Title:      title,
		ImageURL:   imageURL,
	}
	if err := s.db.WithContext(ctx).Create(sketch).Error; err != nil {
		return nil, storeError(err)
	}

	s.notifier.Notify(projectID, realtime.EventNewSketch, sess.UserID, sketch)
	return sketch, nil
}

func (s *SketchService) List(ctx context.Context, sess *Session, projectID uint) ([]models.Sketch, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	var sketches []models.Sketch
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&sketches).Error; err != nil {
		return nil, storeError(err)
	}
	return sketches, nil
}
