package services

import (
	"context"
	"errors"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

// Session identifies the caller of a service operation. Role is the global
// onboarding role carried in the access token.
type Session struct {
	UserID uint
	Email  string
	Role   string
}

// Tier is the permission level an operation requires.
type Tier int

const (
	TierMember  Tier = iota // any project member
	TierAdmin               // project ADMIN
	TierCreator             // global owner role, no project needed
)

func (t Tier) String() string {
	switch t {
	case TierMember:
		return "member"
	case TierAdmin:
		return "admin"
	case TierCreator:
		return "creator"
	}
	return "unknown"
}

// Guard decides whether a session may act on a project. Membership is read
// from the store on every call; nothing is cached between requests.
type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// Authorize returns the caller's membership row for projectID when the
// required tier is satisfied. For TierCreator the returned membership is nil.
func (g *Guard) Authorize(ctx context.Context, sess *Session, projectID uint, tier Tier) (*models.ProjectMember, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, response.NewUnauthenticated("authentication required")
	}

	if tier == TierCreator {
		if sess.Role != models.RoleOwner {
			return nil, response.NewForbidden("only project owners can create projects")
		}
		return nil, nil
	}

	var member models.ProjectMember
	err := g.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, sess.UserID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewForbidden("not a member of this project")
	}
	if err != nil {
		return nil, storeError(err)
	}

	if tier == TierAdmin && !member.IsAdmin() {
		return nil, response.NewForbidden("project admin role required")
	}
	return &member, nil
}

// storeError logs the driver error and returns an UpstreamFailure.
func storeError(err error) error {
	logger.Error().Err(err).Msg("store operation failed")
	return response.NewUpstreamFailure("store unavailable")
}
