package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Campaign departments double as permission domains ("marketing.view", "pr.manage", ...)
const (
	DepartmentMarketing = "marketing"
	DepartmentPR        = "pr"
	DepartmentGraphics  = "graphics"
)

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusActive    = "active"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"
)

// Campaign is a marketing, PR or graphics work item with a budget
type Campaign struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Department  string          `gorm:"type:varchar(20);not null;index" json:"department"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Channel     string          `gorm:"type:varchar(50)" json:"channel"`
	Status      string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Budget      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"budget"`
	Spent       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"spent"`
	StartDate   *datatypes.Date `json:"start_date"`
	EndDate     *datatypes.Date `json:"end_date"`
	OwnerID     *uuid.UUID      `gorm:"type:uuid" json:"owner_id"`
	ProjectID   *uuid.UUID      `gorm:"type:uuid;index" json:"project_id"`
	Assets      []string        `gorm:"serializer:json;type:jsonb" json:"assets"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}
