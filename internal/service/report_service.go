package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"amarms/internal/board"
	"amarms/internal/guard"
	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"

	"github.com/google/uuid"
)

type DashboardResponse struct {
	MyTasks          []model.Task     `json:"my_tasks"`
	OverdueTasks     int              `json:"overdue_tasks"`
	ProjectsByStatus map[string]int64 `json:"projects_by_status"`
	Navigation       []guard.Page     `json:"navigation"`
}

type ReportService interface {
	GetReport(ctx context.Context, actor permission.Principal) (model.ReportResponse, error)
	GetDashboard(ctx context.Context, actor permission.Principal) (*DashboardResponse, error)
}

type reportService struct {
	reports   repository.ReportRepository
	tasks     repository.TaskRepository
	resources repository.ResourceRepository
	campaigns repository.CampaignRepository
	now       func() time.Time
}

func NewReportService(
	reports repository.ReportRepository,
	tasks repository.TaskRepository,
	resources repository.ResourceRepository,
	campaigns repository.CampaignRepository,
) ReportService {
	return &reportService{
		reports:   reports,
		tasks:     tasks,
		resources: resources,
		campaigns: campaigns,
		now:       time.Now,
	}
}

// GetReport aggregates project, task, resource and campaign figures. Campaign budgets are
// limited to the departments the actor can view.
func (s *reportService) GetReport(ctx context.Context, actor permission.Principal) (model.ReportResponse, error) {
	var res model.ReportResponse
	res.GeneratedAt = s.now().UTC()

	var err error
	if res.ProjectsByStatus, err = s.reports.CountProjectsByStatus(ctx); err != nil {
		return res, err
	}
	if res.TasksByStatus, err = s.reports.CountTasksByStatus(ctx); err != nil {
		return res, err
	}
	overall := make(map[model.TaskStatus]int, len(res.TasksByStatus))
	for status, n := range res.TasksByStatus {
		overall[model.TaskStatus(status)] = int(n)
	}
	res.OverallProgress = board.ProgressFromCounts(overall)

	if res.ProjectProgress, err = s.projectProgress(ctx); err != nil {
		return res, err
	}

	usage, err := s.resources.UsageByKind(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to sum resources: %w", err)
	}
	for i := range usage {
		usage[i].Utilization = utilization(usage[i].InUse, usage[i].Total)
	}
	res.ResourceUtilization = usage

	budgets, err := s.campaigns.BudgetTotals(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to sum campaign budgets: %w", err)
	}
	res.CampaignBudgets = make([]model.BudgetTotal, 0, len(budgets))
	for _, b := range budgets {
		if actor.Can(departmentPermission(b.Department, "view")) {
			res.CampaignBudgets = append(res.CampaignBudgets, b)
		}
	}
	return res, nil
}

func (s *reportService) projectProgress(ctx context.Context) ([]model.ProjectRanking, error) {
	projects, err := s.reports.ListProjectSummaries(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.tasks.CountByStatus(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	byProject := make(map[uuid.UUID]map[model.TaskStatus]int)
	for _, c := range counts {
		if byProject[c.ProjectID] == nil {
			byProject[c.ProjectID] = make(map[model.TaskStatus]int)
		}
		byProject[c.ProjectID][c.Status] += c.Count
	}

	out := make([]model.ProjectRanking, 0, len(projects))
	for _, p := range projects {
		id, _ := uuid.Parse(p.ID)
		bucket := byProject[id]
		open := 0
		for status, n := range bucket {
			if status != model.TaskDone && status != model.TaskTrash {
				open += n
			}
		}
		out = append(out, model.ProjectRanking{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Status:      p.Status,
			Progress:    board.ProgressFromCounts(bucket),
			OpenTasks:   open,
		})
	}
	return out, nil
}

func utilization(inUse, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(inUse) / float64(total)))
}

func (s *reportService) GetDashboard(ctx context.Context, actor permission.Principal) (*DashboardResponse, error) {
	uid, err := parseID(actor.UserID, "user")
	if err != nil {
		return nil, err
	}
	mine, err := s.tasks.ListAssignedTo(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assigned tasks: %w", err)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	overdue := 0
	for _, t := range mine {
		if t.DueDate != nil && time.Time(*t.DueDate).Before(today) {
			overdue++
		}
	}

	res := &DashboardResponse{
		MyTasks:      mine,
		OverdueTasks: overdue,
		Navigation:   guard.Navigation(actor),
	}
	if actor.Can(permission.ProjectsView) {
		if res.ProjectsByStatus, err = s.reports.CountProjectsByStatus(ctx); err != nil {
			return nil, err
		}
	}
	return res, nil
}
