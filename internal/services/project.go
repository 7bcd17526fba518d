package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/internal/utils"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

const inviteCodeAttempts = 5

type ProjectService struct {
	db       *gorm.DB
	guard    *Guard
	notifier *realtime.Notifier
}

func NewProjectService(db *gorm.DB, guard *Guard, notifier *realtime.Notifier) *ProjectService {
	return &ProjectService{db: db, guard: guard, notifier: notifier}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
}

type JoinProjectRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type UpdateProgressRequest struct {
	Progress *float64 `json:"progress" binding:"required"`
}

// ProjectSummary is a project as seen by one of its members.
type ProjectSummary struct {
	models.Project
	MyRole      string `json:"my_role"`
	MemberCount int64  `json:"member_count"`
}

type MemberInfo struct {
	UserID   uint      `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Image    string    `json:"image"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Create makes a project with a fresh invite code and records the caller as
// its ADMIN in the same transaction.
func (s *ProjectService) Create(ctx context.Context, sess *Session, req *CreateProjectRequest) (*models.Project, error) {
	if _, err := s.guard.Authorize(ctx, sess, 0, TierCreator); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewInvalidArgument("project name is required")
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return nil, response.NewInvalidArgument("project name must not contain control characters")
	}

	for attempt := 1; attempt <= inviteCodeAttempts; attempt++ {
		code, err := utils.NewInviteCode()
		if err != nil {
			return nil, response.NewUpstreamFailure("failed to generate invite code")
		}

		project := &models.Project{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			InviteCode:  code,
			CreatedBy:   sess.UserID,
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(project).Error; err != nil {
				return err
			}
			return tx.Create(&models.ProjectMember{
				ProjectID: project.ID,
				UserID:    sess.UserID,
				Role:      models.MemberRoleAdmin,
			}).Error
		})
		if err == nil {
			return project, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storeError(err)
		}
		logger.Warn().Int("attempt", attempt).Msg("invite code collision, retrying")
	}
	return nil, response.NewConflict("could not allocate a unique invite code")
}

// Join adds the caller as a MEMBER of the project owning inviteCode.
func (s *ProjectService) Join(ctx context.Context, sess *Session, inviteCode string) (*models.ProjectMember, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, response.NewUnauthenticated("authentication required")
	}

	code := utils.NormalizeInviteCode(inviteCode)
	if code == "" {
		return nil, response.NewInvalidArgument("invite code is required")
	}

	db := s.db.WithContext(ctx)
	var project models.Project
	if err := db.Where("invite_code = ?", code).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("invalid invite code")
		}
		return nil, storeError(err)
	}

	var existing int64
	if err := db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", project.ID, sess.UserID).
		Count(&existing).Error; err != nil {
		return nil, storeError(err)
	}
	if existing > 0 {
		return nil, response.NewConflict("already a member")
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    sess.UserID,
		Role:      models.MemberRoleMember,
	}
	if err := db.Create(member).Error; err != nil {
		// A concurrent join for the same user lost the race on the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("already a member")
		}
		return nil, storeError(err)
	}
	member.Project = &project
	return member, nil
}

// UpdateProgress rounds and clamps progress to [0,100] and broadcasts the
// updated project.
func (s *ProjectService) UpdateProgress(ctx context.Context, sess *Session, projectID uint, progress float64) (*models.Project, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierAdmin); err != nil {
		return nil, err
	}
	if math.IsNaN(progress) {
		return nil, response.NewInvalidArgument("progress must be a number")
	}

	value := int(math.Round(math.Max(0, math.Min(100, progress))))

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Project{}).Where("id = ?", projectID).Update("progress", value).Error; err != nil {
		return nil, storeError(err)
	}

	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, storeError(err)
	}

	s.notifier.Notify(projectID, realtime.EventProgressUpdated, sess.UserID, project)
	return &project, nil
}

// ListMine returns every project the caller belongs to, newest first.
func (s *ProjectService) ListMine(ctx context.Context, sess *Session) ([]ProjectSummary, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, response.NewUnauthenticated("authentication required")
	}

	var memberships []models.ProjectMember
	if err := s.db.WithContext(ctx).
		Preload("Project").
		Where("user_id = ?", sess.UserID).
		Order("created_at DESC").
		Find(&memberships).Error; err != nil {
		return nil, storeError(err)
	}

	out := make([]ProjectSummary, 0, len(memberships))
	for _, m := range memberships {
		if m.Project == nil {
			continue
		}
		out = append(out, s.summarize(*m.Project, &m))
	}
	return out, nil
}

// Get returns one project for a member. The invite code is only shown to admins.
func (s *ProjectService) Get(ctx context.Context, sess *Session, projectID uint) (*ProjectSummary, error) {
	member, err := s.guard.Authorize(ctx, sess, projectID, TierMember)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, storeError(err)
	}

	summary := s.summarize(project, member)
	if err := db.Model(&models.ProjectMember{}).Where("project_id = ?", projectID).Count(&summary.MemberCount).Error; err != nil {
		return nil, storeError(err)
	}
	return &summary, nil
}

func (s *ProjectService) ListMembers(ctx context.Context, sess *Session, projectID uint) ([]MemberInfo, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, storeError(err)
	}

	out := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		info := MemberInfo{UserID: m.UserID, Role: m.Role, JoinedAt: m.CreatedAt}
		if m.User != nil {
			info.Name = m.User.Name
			info.Email = m.User.Email
			info.Image = m.User.Image
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *ProjectService) summarize(project models.Project, member *models.ProjectMember) ProjectSummary {
	summary := ProjectSummary{Project: project}
	if member != nil {
		summary.MyRole = member.Role
	}
	if !member.IsAdmin() {
		summary.InviteCode = ""
	}
	return summary
}
