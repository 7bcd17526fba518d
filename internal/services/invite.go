package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

const maxInvitesPerRequest = 20

type InviteService struct {
	db     *gorm.DB
	guard  *Guard
	queue  TaskQueue
	appURL string
}

func NewInviteService(db *gorm.DB, guard *Guard, queue TaskQueue, appURL string) *InviteService {
	return &InviteService{db: db, guard: guard, queue: queue, appURL: strings.TrimRight(appURL, "/")}
}

type SendInvitesRequest struct {
	Emails []string `json:"emails" binding:"required,min=1"`
}

type InviteResult struct {
	Queued   []string `json:"queued"`
	Rejected []string `json:"rejected,omitempty"`
}

// Send queues one invitation e-mail per valid address. Delivery happens in
// the background; a failed send never fails this call.
func (s *InviteService) Send(ctx context.Context, sess *Session, projectID uint, emails []string) (*InviteResult, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierAdmin); err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, response.NewInvalidArgument("at least one e-mail is required")
	}
	if len(emails) > maxInvitesPerRequest {
		return nil, response.NewInvalidArgument("too many recipients")
	}

	db := s.db.WithContext(ctx)
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, storeError(err)
	}

	// The inviter's name is decoration; the mail goes out without it.
	var inviter models.User
	if err := db.Select("id", "name").First(&inviter, sess.UserID).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", sess.UserID).Msg("inviter lookup failed")
	}

	result := &InviteResult{Queued: []string{}}
	seen := make(map[string]bool)
	for _, raw := range emails {
		addr, err := mail.ParseAddress(strings.TrimSpace(raw))
		if err != nil {
			result.Rejected = append(result.Rejected, raw)
			continue
		}
		email := strings.ToLower(addr.Address)
		if seen[email] {
			continue
		}
		seen[email] = true

		task := &InviteEmailTask{
			ProjectID:   project.ID,
			ProjectName: project.Name,
			InviteCode:  project.InviteCode,
			InviterName: inviter.Name,
			Recipient:   email,
			JoinURL:     s.appURL + "/dashboard",
		}
		if err := s.queue.Enqueue(ctx, task); err != nil {
			return nil, response.NewUpstreamFailure("failed to queue invitation")
		}
		result.Queued = append(result.Queued, email)
	}

	if len(result.Queued) == 0 {
		return nil, response.NewInvalidArgument("no valid e-mail addresses")
	}
	return result, nil
}

// InviteMailProcessor renders and delivers invitation tasks through m.
func InviteMailProcessor(m Mailer) InviteProcessor {
	return func(ctx context.Context, task *InviteEmailTask) error {
		subject, body := BuildInviteEmail(task)
		return m.Send(ctx, []string{task.Recipient}, subject, body)
	}
}
