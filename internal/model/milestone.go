package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Milestone groups tasks of a project under a due date. Progress is derived, never stored.
type Milestone struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	DueDate     datatypes.Date `gorm:"not null" json:"due_date"`
	OverseerID  *uuid.UUID     `gorm:"type:uuid" json:"overseer_id"`
	Overseer    *User          `gorm:"foreignKey:OverseerID" json:"overseer,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
