package models

import "time"

// ChatMessage is append-only; there is no edit or delete path.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index:idx_chat_project_created;not null" json:"project_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_chat_project_created" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
