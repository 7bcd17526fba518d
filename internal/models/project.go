package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is a shared workspace between an owner and contributors.
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	InviteCode  string         `gorm:"uniqueIndex;size:16;not null" json:"invite_code"`
	Progress    int            `gorm:"default:0;not null" json:"progress"` // 0..100
	CreatedBy   uint           `gorm:"index" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }
