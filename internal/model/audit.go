package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionSignUp          = "SIGN_UP"
	ActionApproveMember   = "APPROVE_MEMBER"
	ActionSuspendMember   = "SUSPEND_MEMBER"
	ActionChangeRole      = "CHANGE_ROLE"
	ActionUpdateMember    = "UPDATE_MEMBER"
	ActionCreateProject   = "CREATE_PROJECT"
	ActionUpdateProject   = "UPDATE_PROJECT"
	ActionDeleteProject   = "DELETE_PROJECT"
	ActionCreateMilestone = "CREATE_MILESTONE"
	ActionUpdateMilestone = "UPDATE_MILESTONE"
	ActionDeleteMilestone = "DELETE_MILESTONE"
	ActionCreateTask      = "CREATE_TASK"
	ActionUpdateTask      = "UPDATE_TASK"
	ActionMoveTask        = "MOVE_TASK"
	ActionApproveTask     = "APPROVE_TASK"
	ActionRejectTask      = "REJECT_TASK"
	ActionClearTrash      = "CLEAR_TRASH"
	ActionCreateResource  = "CREATE_RESOURCE"
	ActionUpdateResource  = "UPDATE_RESOURCE"
	ActionResourceStatus  = "UPDATE_RESOURCE_STATUS"
	ActionDeleteResource  = "DELETE_RESOURCE"
	ActionCreateVenue     = "CREATE_VENUE"
	ActionUpdateVenue     = "UPDATE_VENUE"
	ActionDeleteVenue     = "DELETE_VENUE"
	ActionCreateCampaign  = "CREATE_CAMPAIGN"
	ActionUpdateCampaign  = "UPDATE_CAMPAIGN"
	ActionDeleteCampaign  = "DELETE_CAMPAIGN"
	ActionDeleteComment   = "DELETE_COMMENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"user"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
