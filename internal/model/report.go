package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportResponse aggregates counts across projects, tasks, resources and campaigns
type ReportResponse struct {
	ProjectsByStatus    map[string]int64 `json:"projects_by_status"`
	TasksByStatus       map[string]int64 `json:"tasks_by_status"`
	OverallProgress     int              `json:"overall_progress"`
	ProjectProgress     []ProjectRanking `json:"project_progress"`
	ResourceUtilization []ResourceUsage  `json:"resource_utilization"`
	CampaignBudgets     []BudgetTotal    `json:"campaign_budgets"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// ProjectRanking is a project with its derived completion percentage
type ProjectRanking struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	OpenTasks   int    `json:"open_tasks"`
}

// ResourceUsage sums quantities per resource kind
type ResourceUsage struct {
	Kind        string `json:"kind"`
	Total       int    `json:"total"`
	Available   int    `json:"available"`
	InUse       int    `json:"in_use"`
	Maintenance int    `json:"maintenance"`
	Utilization int    `json:"utilization"`
}

// BudgetTotal sums campaign money per department
type BudgetTotal struct {
	Department string          `json:"department"`
	Budget     decimal.Decimal `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// CalendarEvent is one dated item shown on the calendar page
type CalendarEvent struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id,omitempty"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    string    `json:"status,omitempty"`
}
