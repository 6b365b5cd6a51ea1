package model

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a discussion entry on a project, optionally scoped to one task
type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	TaskID    *uuid.UUID `gorm:"type:uuid;index" json:"task_id"`
	AuthorID  uuid.UUID  `gorm:"type:uuid;not null" json:"author_id"`
	Author    *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
