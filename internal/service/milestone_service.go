package service

import (
	"context"
	"fmt"
	"strings"

	"amarms/internal/board"
	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"

	"github.com/google/uuid"
)

type CreateMilestoneRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	DueDate     string  `json:"due_date" binding:"required"` // YYYY-MM-DD
	OverseerID  *string `json:"overseer_id"`
}

type UpdateMilestoneRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	OverseerID  *string `json:"overseer_id"`
}

// MilestoneResponse carries progress derived from the milestone's tasks
type MilestoneResponse struct {
	model.Milestone
	Progress  int `json:"progress"`
	TaskCount int `json:"task_count"`
}

type MilestoneService interface {
	ListMilestones(ctx context.Context, projectID string) ([]MilestoneResponse, error)
	GetMilestone(ctx context.Context, id string) (*MilestoneResponse, error)
	CreateMilestone(ctx context.Context, actor permission.Principal, projectID string, req CreateMilestoneRequest) (*MilestoneResponse, error)
	UpdateMilestone(ctx context.Context, actor permission.Principal, id string, req UpdateMilestoneRequest) (*MilestoneResponse, error)
	DeleteMilestone(ctx context.Context, actor permission.Principal, id string) error
}

type milestoneService struct {
	milestones repository.MilestoneRepository
	projects   repository.ProjectRepository
	tasks      repository.TaskRepository
	users      repository.UserRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewMilestoneService(
	milestones repository.MilestoneRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) MilestoneService {
	return &milestoneService{
		milestones: milestones,
		projects:   projects,
		tasks:      tasks,
		users:      users,
		auditRepo:  auditRepo,
		txManager:  txManager,
	}
}

func milestoneResponse(m model.Milestone, projectTasks []model.Task) MilestoneResponse {
	own := board.FilterByMilestone(projectTasks, m.ID.String())
	return MilestoneResponse{Milestone: m, Progress: board.Progress(own), TaskCount: len(own)}
}

func (s *milestoneService) ListMilestones(ctx context.Context, projectID string) ([]MilestoneResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	milestones, err := s.milestones.ListByProject(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	tasks, err := s.tasks.ListByProject(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project tasks: %w", err)
	}

	res := make([]MilestoneResponse, 0, len(milestones))
	for _, m := range milestones {
		res = append(res, milestoneResponse(m, tasks))
	}
	return res, nil
}

func (s *milestoneService) GetMilestone(ctx context.Context, id string) (*MilestoneResponse, error) {
	mid, err := parseID(id, "milestone")
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, mid)
}

func (s *milestoneService) reload(ctx context.Context, id uuid.UUID) (*MilestoneResponse, error) {
	m, err := s.milestones.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "milestone")
	}
	tasks, err := s.tasks.ListByProject(ctx, m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project tasks: %w", err)
	}
	res := milestoneResponse(*m, tasks)
	return &res, nil
}

func (s *milestoneService) CreateMilestone(ctx context.Context, actor permission.Principal, projectID string, req CreateMilestoneRequest) (*MilestoneResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.FindByID(ctx, pid); err != nil {
		return nil, lookupErr(err, "project")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	due, err := parseDate(req.DueDate, "due_date")
	if err != nil {
		return nil, err
	}
	if due == nil {
		return nil, invalid("due_date is required")
	}
	overseer, err := s.overseer(ctx, req.OverseerID)
	if err != nil {
		return nil, err
	}

	m := model.Milestone{
		ProjectID:   pid,
		Title:       title,
		Description: req.Description,
		DueDate:     *due,
		OverseerID:  overseer,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.milestones.Create(txCtx, &m); err != nil {
			return fmt.Errorf("failed to create milestone: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateMilestone, m.ID.String(), m.Title, map[string]string{
			"project_id": pid.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, m.ID)
}

func (s *milestoneService) overseer(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID(raw, "overseer")
	if err != nil || id == nil {
		return id, err
	}
	if _, err := s.users.FindByID(ctx, *id); err != nil {
		if repository.IsNotFound(err) {
			return nil, invalid("overseer does not exist")
		}
		return nil, fmt.Errorf("failed to fetch overseer: %w", err)
	}
	return id, nil
}

func (s *milestoneService) UpdateMilestone(ctx context.Context, actor permission.Principal, id string, req UpdateMilestoneRequest) (*MilestoneResponse, error) {
	mid, err := parseID(id, "milestone")
	if err != nil {
		return nil, err
	}
	m, err := s.milestones.FindByID(ctx, mid)
	if err != nil {
		return nil, lookupErr(err, "milestone")
	}

	if req.Title != nil {
		title := trimmed(req.Title)
		if title == "" {
			return nil, invalid("title cannot be empty")
		}
		m.Title = title
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate, "due_date")
		if err != nil {
			return nil, err
		}
		if due == nil {
			return nil, invalid("due_date cannot be empty")
		}
		m.DueDate = *due
	}
	if req.OverseerID != nil {
		if m.OverseerID, err = s.overseer(ctx, req.OverseerID); err != nil {
			return nil, err
		}
	}
	m.Overseer = nil

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.milestones.Update(txCtx, m); err != nil {
			return fmt.Errorf("failed to update milestone: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateMilestone, m.ID.String(), m.Title, req)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, m.ID)
}

// DeleteMilestone removes the milestone and detaches its tasks; the tasks stay on the board.
func (s *milestoneService) DeleteMilestone(ctx context.Context, actor permission.Principal, id string) error {
	mid, err := parseID(id, "milestone")
	if err != nil {
		return err
	}
	m, err := s.milestones.FindByID(ctx, mid)
	if err != nil {
		return lookupErr(err, "milestone")
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tasks.ClearMilestone(txCtx, mid); err != nil {
			return fmt.Errorf("failed to detach tasks: %w", err)
		}
		if err := s.milestones.Delete(txCtx, mid); err != nil {
			return lookupErr(err, "milestone")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteMilestone, m.ID.String(), m.Title, nil)
	})
}
