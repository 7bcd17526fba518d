package services

import (
	"context"
	"strings"
	"time"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

// HistoryLimit bounds how many messages FetchHistory returns.
const HistoryLimit = 50

const maxMessageLength = 4000

type ChatService struct {
	db       *gorm.DB
	guard    *Guard
	notifier *realtime.Notifier
}

func NewChatService(db *gorm.DB, guard *Guard, notifier *realtime.Notifier) *ChatService {
	return &ChatService{db: db, guard: guard, notifier: notifier}
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type SenderInfo struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// MessageView is a chat message with the sender's display data inline.
type MessageView struct {
	ID         uint       `json:"id"`
	ProjectID  uint       `json:"project_id"`
	UserID     uint       `json:"user_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	SenderInfo SenderInfo `json:"sender_info"`
}

func newMessageView(m *models.ChatMessage) MessageView {
	v := MessageView{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		v.SenderInfo = SenderInfo{Name: m.User.Name, Image: m.User.Image}
	}
	return v
}

// SendMessage appends a message and broadcasts it to every session except
// the sender's own.
func (s *ChatService) SendMessage(ctx context.Context, sess *Session, projectID uint, content string) (*MessageView, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewInvalidArgument("message cannot be empty")
	}
	if len(content) > maxMessageLength {
		return nil, response.NewInvalidArgument("message is too long")
	}

	db := s.db.WithContext(ctx)
	msg := &models.ChatMessage{
		ProjectID: projectID,
		UserID:    sess.UserID,
		Content:   content,
	}
	if err := db.Create(msg).Error; err != nil {
		return nil, storeError(err)
	}

	var sender models.User
	if err := db.Select("id", "name", "image").First(&sender, sess.UserID).Error; err == nil {
		msg.User = &sender
	}

	view := newMessageView(msg)
	s.notifier.NotifyOthers(projectID, realtime.EventNewMessage, sess.UserID, view)
	return &view, nil
}

// FetchHistory returns the newest HistoryLimit messages, oldest first.
func (s *ChatService) FetchHistory(ctx context.Context, sess *Session, projectID uint) ([]MessageView, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	var messages []models.ChatMessage
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Limit(HistoryLimit).
		Find(&messages).Error; err != nil {
		return nil, storeError(err)
	}

	out := make([]MessageView, len(messages))
	for i := range messages {
		out[len(messages)-1-i] = newMessageView(&messages[i])
	}
	return out, nil
}
