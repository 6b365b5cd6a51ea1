package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TaskStatus is the board column a task sits in
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "inProgress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
	TaskTrash      TaskStatus = "trash"
)

// BoardColumns lists the columns in display order
var BoardColumns = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskDone, TaskTrash}

// Valid reports whether s is one of the board columns
func (s TaskStatus) Valid() bool {
	for _, c := range BoardColumns {
		if c == s {
			return true
		}
	}
	return false
}

type ReviewStatus string

const (
	ReviewPending          ReviewStatus = "pending"
	ReviewApproved         ReviewStatus = "approved"
	ReviewChangesRequested ReviewStatus = "changes_requested"
)

// ReviewComment is one entry in a task's review history
type ReviewComment struct {
	AuthorID   string       `json:"authorId"`
	AuthorName string       `json:"authorName"`
	Comment    string       `json:"comment"`
	Status     ReviewStatus `json:"status"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Review tracks approval state. Comments survive repeated review cycles.
type Review struct {
	Status    ReviewStatus    `json:"status,omitempty"`
	Reviewers []string        `json:"reviewers"`
	Comments  []ReviewComment `json:"comments"`
}

// MemberSnapshot is the copy of a member stored on a task at assignment time.
// It is not refreshed when the member record changes.
type MemberSnapshot struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// MilestoneAll is the filter sentinel meaning "every milestone"
const MilestoneAll = "all"

// Task is a card on the project board
type Task struct {
	ID          uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID                 `gorm:"type:uuid;not null;index" json:"project_id"`
	MilestoneID *uuid.UUID                `gorm:"type:uuid;index" json:"milestone_id"`
	Title       string                    `gorm:"type:varchar(255);not null" json:"title"`
	Description string                    `gorm:"type:text" json:"description"`
	StartDate   *datatypes.Date           `json:"start_date"`
	DueDate     *datatypes.Date           `gorm:"index" json:"due_date"`
	Assignee    map[string]MemberSnapshot `gorm:"serializer:json;type:jsonb" json:"assignee"`
	Status      TaskStatus                `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	Evidence    []string                  `gorm:"serializer:json;type:jsonb" json:"evidence"`
	Review      Review                    `gorm:"serializer:json;type:jsonb" json:"review"`
	IsDisposed  bool                      `gorm:"default:false" json:"is_disposed"`
	Version     int                       `gorm:"not null;default:1" json:"version"`
	CreatedBy   *uuid.UUID                `gorm:"type:uuid" json:"created_by"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// Clone returns a deep copy so callers can derive a new state without touching the original
func (t Task) Clone() Task {
	out := t
	if t.MilestoneID != nil {
		id := *t.MilestoneID
		out.MilestoneID = &id
	}
	if t.Assignee != nil {
		out.Assignee = make(map[string]MemberSnapshot, len(t.Assignee))
		for k, v := range t.Assignee {
			out.Assignee[k] = v
		}
	}
	if t.Evidence != nil {
		out.Evidence = append([]string(nil), t.Evidence...)
	}
	if t.Review.Reviewers != nil {
		out.Review.Reviewers = append([]string(nil), t.Review.Reviewers...)
	}
	if t.Review.Comments != nil {
		out.Review.Comments = append([]ReviewComment(nil), t.Review.Comments...)
	}
	return out
}

// IsAssignedTo reports whether userID is among the task's assignees
func (t Task) IsAssignedTo(userID string) bool {
	_, ok := t.Assignee[userID]
	return ok
}
