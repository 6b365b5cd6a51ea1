package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
)

// SpecSection is one free-text/HTML block of a project's specification
type SpecSection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Project is the aggregate root for membership, specifications, resources and milestones
type Project struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string            `gorm:"type:varchar(255);not null" json:"name"`
	Description    string            `gorm:"type:text" json:"description"`
	Status         string            `gorm:"type:varchar(20);not null;default:'planning';index" json:"status"`
	StartDate      *datatypes.Date   `json:"start_date"`
	EndDate        *datatypes.Date   `json:"end_date"`
	LeaderID       *uuid.UUID        `gorm:"type:uuid" json:"leader_id"`
	Leader         *User             `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	Specifications []SpecSection     `gorm:"serializer:json;type:jsonb" json:"specifications"`
	Members        []ProjectMember   `gorm:"foreignKey:ProjectID" json:"members"`
	Resources      []ProjectResource `gorm:"foreignKey:ProjectID" json:"resources"`
	CreatedBy      *uuid.UUID        `gorm:"type:uuid" json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`
}

// ProjectMember links a user to a project team
type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"type:varchar(50)" json:"role"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// ProjectResource allocates part of an inventory resource to a project
type ProjectResource struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index" json:"resource_id"`
	Resource   *Resource `gorm:"foreignKey:ResourceID" json:"resource,omitempty"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	Note       string    `gorm:"type:text" json:"note"`
}

// HasMember reports whether userID belongs to the project team
func (p Project) HasMember(userID uuid.UUID) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
