package models

import "time"

// Sketch is a moodboard image; the file itself lives in the blob store.
type Sketch struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"index;not null" json:"project_id"`
	UploadedBy uint      `json:"uploaded_by"`
	Title      string    `gorm:"size:200" json:"title"`
	ImageURL   string    `gorm:"size:1000;not null" json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Sketch) TableName() string { return "sketches" }
