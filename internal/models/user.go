package models

import (
	"time"

	"gorm.io/gorm"
)

// Global roles assigned at onboarding.
const (
	RoleOwner       = "owner"       // may create projects
	RoleContributor = "contributor" // joins projects by invite code
)

// Auth types
const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

// User represents an account. Role stays empty until onboarding.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	Name      string         `gorm:"size:100" json:"name"`
	Image     string         `gorm:"size:500" json:"image"`
	Role      string         `gorm:"size:20;index" json:"role"`
	AuthType  string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// IsValidGlobalRole reports whether role can be assigned at onboarding.
func IsValidGlobalRole(role string) bool {
	return role == RoleOwner || role == RoleContributor
}

// RefreshToken is a rotating long-lived credential; only its hash is stored.
type RefreshToken struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"index;not null" json:"user_id"`
	TokenHash         string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt         time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt         *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	ReplacedByTokenID *uint      `json:"replaced_by_token_id,omitempty"`
	CreatedByIP       string     `gorm:"size:64" json:"-"`
	UserAgent         string     `gorm:"size:255" json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }
