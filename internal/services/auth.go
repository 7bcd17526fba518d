package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/utils"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
)

type AuthService struct {
	db          *gorm.DB
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
	ldapRole    string
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, ldapCfg *config.LDAPConfig) *AuthService {
	s := &AuthService{
		db:          db,
		ldapService: NewLDAPService(ldapCfg),
		jwtConfig:   jwtCfg,
	}
	if ldapCfg != nil && models.IsValidGlobalRole(ldapCfg.DefaultRole) {
		s.ldapRole = ldapCfg.DefaultRole
	}
	return s
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest carries an e-mail for local accounts or a directory
// username when AuthType is ldap.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPair is returned by every operation that starts or renews a session.
type TokenPair struct {
	AccessToken     string       `json:"access_token"`
	AccessExpireAt  time.Time    `json:"access_expire_at"`
	RefreshToken    string       `json:"refresh_token"`
	RefreshExpireAt time.Time    `json:"refresh_expire_at"`
	User            *models.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest, clientIP, userAgent string) (*TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, response.NewInvalidArgument("a valid e-mail is required")
	}
	if len(req.Password) < 8 {
		return nil, response.NewInvalidArgument("password must be at least 8 characters")
	}
	if len(req.Password) > utils.MaxPasswordBytes {
		return nil, response.NewInvalidArgument("password must be at most 72 bytes")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, response.NewUpstreamFailure("failed to hash password")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user := &models.User{
		Email:    email,
		Password: hashed,
		Name:     name,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("e-mail already registered")
		}
		return nil, storeError(err)
	}

	return s.issue(ctx, user, clientIP, userAgent)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP, userAgent string) (*TokenPair, error) {
	var user *models.User
	var err error

	switch req.AuthType {
	case "", models.AuthTypeLocal:
		user, err = s.localAuth(ctx, req.Email, req.Password)
	case models.AuthTypeLDAP:
		user, err = s.ldapAuth(ctx, req.Email, req.Password)
	default:
		return nil, response.NewInvalidArgument("invalid auth type")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.WithContext(ctx).Model(user).Update("last_login", now)

	return s.issue(ctx, user, clientIP, userAgent)
}

// Refresh rotates a refresh token: the presented one is revoked and linked
// to its replacement.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP, userAgent string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, response.NewUnauthenticated("refresh token required")
	}

	db := s.db.WithContext(ctx)
	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", utils.HashToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthenticated("invalid refresh token")
		}
		return nil, storeError(err)
	}
	if stored.RevokedAt != nil {
		return nil, response.NewUnauthenticated("refresh token revoked")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, response.NewUnauthenticated("refresh token expired")
	}

	var user models.User
	if err := db.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthenticated("user not found")
		}
		return nil, storeError(err)
	}
	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}

	pair, record, err := s.newPair(&user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": record.ID,
		}).Error
	}); err != nil {
		return nil, storeError(err)
	}
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", utils.HashToken(refreshToken)).
		Update("revoked_at", time.Now()).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, sess *Session) (*models.User, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, response.NewUnauthenticated("authentication required")
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthenticated("user not found")
		}
		return nil, storeError(err)
	}
	return &user, nil
}

// UpdateRole sets the caller's global role and issues tokens carrying it,
// since the role in the old access token is now stale.
func (s *AuthService) UpdateRole(ctx context.Context, sess *Session, role, clientIP, userAgent string) (*TokenPair, error) {
	user, err := s.Me(ctx, sess)
	if err != nil {
		return nil, err
	}

	role = strings.ToLower(strings.TrimSpace(role))
	if !models.IsValidGlobalRole(role) {
		return nil, response.NewInvalidArgument("role must be owner or contributor")
	}

	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, storeError(err)
	}
	user.Role = role
	logger.Info().Uint("user_id", user.ID).Str("role", role).Msg("global role updated")

	return s.issue(ctx, user, clientIP, userAgent)
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService.IsEnabled()
}

func (s *AuthService) issue(ctx context.Context, user *models.User, clientIP, userAgent string) (*TokenPair, error) {
	pair, record, err := s.newPair(user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, storeError(err)
	}
	return pair, nil
}

func (s *AuthService) newPair(user *models.User, clientIP, userAgent string) (*TokenPair, *models.RefreshToken, error) {
	accessHours := s.jwtConfig.ExpireHour
	if accessHours <= 0 {
		accessHours = 24
	}
	refreshHours := s.jwtConfig.RefreshExpireHour
	if refreshHours <= 0 {
		refreshHours = 720
	}

	access, err := utils.GenerateToken(user.ID, user.Email, user.Role, accessHours)
	if err != nil {
		return nil, nil, response.NewUpstreamFailure("failed to sign token")
	}
	refresh, refreshHash, err := utils.NewRefreshToken()
	if err != nil {
		return nil, nil, response.NewUpstreamFailure("failed to generate refresh token")
	}

	now := time.Now()
	record := &models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   now.Add(time.Duration(refreshHours) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}
	return &TokenPair{
		AccessToken:     access,
		AccessExpireAt:  now.Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refresh,
		RefreshExpireAt: record.ExpiresAt,
		User:            user,
	}, record, nil
}

func (s *AuthService) localAuth(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND auth_type = ?", strings.ToLower(strings.TrimSpace(email)), models.AuthTypeLocal).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthenticated("invalid e-mail or password")
		}
		return nil, storeError(err)
	}
	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, response.NewUnauthenticated("invalid e-mail or password")
	}
	return &user, nil
}

// ldapAuth verifies against the directory and provisions the local row on
// first login.
func (s *AuthService) ldapAuth(ctx context.Context, username, password string) (*models.User, error) {
	dirUser, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(dirUser.Email)
	if email == "" {
		email = strings.ToLower(dirUser.Username) + "@ldap.local"
	}

	db := s.db.WithContext(ctx)
	var user models.User
	err = db.Where("email = ? AND auth_type = ?", email, models.AuthTypeLDAP).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:    email,
			Name:     dirUser.Name,
			Role:     s.ldapRole,
			AuthType: models.AuthTypeLDAP,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, response.NewConflict("e-mail already registered with a local account")
			}
			return nil, storeError(err)
		}
	case err != nil:
		return nil, storeError(err)
	}

	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}
	if dirUser.Name != "" && dirUser.Name != user.Name {
		user.Name = dirUser.Name
		db.Model(&user).Update("name", user.Name)
	}
	return &user, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
