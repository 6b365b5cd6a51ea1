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

// --- DTOs ---

type CreateProjectRequest struct {
	Name           string              `json:"name" binding:"required"`
	Description    string              `json:"description"`
	Status         string              `json:"status" binding:"omitempty,oneof=planning active on_hold completed"`
	StartDate      string              `json:"start_date"` // YYYY-MM-DD
	EndDate        string              `json:"end_date"`   // YYYY-MM-DD
	LeaderID       *string             `json:"leader_id"`
	MemberIDs      []string            `json:"member_ids"`
	Specifications []model.SpecSection `json:"specifications"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=planning active on_hold completed"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	LeaderID    *string `json:"leader_id"`
}

type SpecificationsRequest struct {
	Sections []model.SpecSection `json:"sections" binding:"required"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

type AllocateResourceRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Note       string `json:"note"`
}

type ProjectFilter struct {
	Status string
	Search string
	// Mine limits the list to projects the caller is a member of.
	Mine bool
}

// ProjectResponse is a project with its progress derived from current tasks
type ProjectResponse struct {
	model.Project
	Progress   int                      `json:"progress"`
	TaskCounts map[model.TaskStatus]int `json:"task_counts"`
}

// --- Interface ---

type ProjectService interface {
	ListProjects(ctx context.Context, actor permission.Principal, filter ProjectFilter, page, limit int) ([]ProjectResponse, int64, error)
	GetProject(ctx context.Context, id string) (*ProjectResponse, error)
	CreateProject(ctx context.Context, actor permission.Principal, req CreateProjectRequest) (*ProjectResponse, error)
	UpdateProject(ctx context.Context, actor permission.Principal, id string, req UpdateProjectRequest) (*ProjectResponse, error)
	DeleteProject(ctx context.Context, actor permission.Principal, id string) error
	UpdateSpecifications(ctx context.Context, actor permission.Principal, id string, sections []model.SpecSection) (*ProjectResponse, error)
	AddMember(ctx context.Context, actor permission.Principal, projectID string, req AddMemberRequest) (*ProjectResponse, error)
	RemoveMember(ctx context.Context, actor permission.Principal, projectID, userID string) (*ProjectResponse, error)
	AllocateResource(ctx context.Context, actor permission.Principal, projectID string, req AllocateResourceRequest) (*ProjectResponse, error)
	ReleaseResource(ctx context.Context, actor permission.Principal, projectID, allocationID string) (*ProjectResponse, error)
}

type projectService struct {
	projects  repository.ProjectRepository
	tasks     repository.TaskRepository
	users     repository.UserRepository
	resources repository.ResourceRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewProjectService(
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	resources repository.ResourceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProjectService {
	return &projectService{
		projects:  projects,
		tasks:     tasks,
		users:     users,
		resources: resources,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Implementation ---

func (s *projectService) ListProjects(ctx context.Context, actor permission.Principal, filter ProjectFilter, page, limit int) ([]ProjectResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	repoFilter := repository.ProjectFilter{Status: filter.Status, Search: filter.Search}
	if filter.Mine {
		id, err := parseID(actor.UserID, "user")
		if err != nil {
			return nil, 0, err
		}
		repoFilter.MemberID = &id
	}

	projects, total, err := s.projects.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	counts, err := s.tasks.CountByStatus(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	byProject := make(map[uuid.UUID]map[model.TaskStatus]int, len(projects))
	for _, c := range counts {
		if byProject[c.ProjectID] == nil {
			byProject[c.ProjectID] = make(map[model.TaskStatus]int)
		}
		byProject[c.ProjectID][c.Status] += c.Count
	}

	res := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		res = append(res, toProjectResponse(p, byProject[p.ID]))
	}
	return res, total, nil
}

func toProjectResponse(p model.Project, counts map[model.TaskStatus]int) ProjectResponse {
	full := make(map[model.TaskStatus]int, len(model.BoardColumns))
	for _, col := range model.BoardColumns {
		full[col] = counts[col]
	}
	if p.Specifications == nil {
		p.Specifications = []model.SpecSection{}
	}
	return ProjectResponse{Project: p, Progress: board.ProgressFromCounts(full), TaskCounts: full}
}

func (s *projectService) GetProject(ctx context.Context, id string) (*ProjectResponse, error) {
	projectID, err := parseID(id, "project")
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, projectID)
}

// reload reads the project and recomputes progress from its tasks.
func (s *projectService) reload(ctx context.Context, projectID uuid.UUID) (*ProjectResponse, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, lookupErr(err, "project")
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project tasks: %w", err)
	}
	counts := make(map[model.TaskStatus]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	res := toProjectResponse(*project, counts)
	res.Progress = board.Progress(tasks)
	return &res, nil
}

func (s *projectService) CreateProject(ctx context.Context, actor permission.Principal, req CreateProjectRequest) (*ProjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return nil, err
	}
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	leaderID, err := parseOptionalID(req.LeaderID, "leader")
	if err != nil {
		return nil, err
	}
	sections, err := normalizeSections(req.Specifications)
	if err != nil {
		return nil, err
	}

	memberIDs := make([]uuid.UUID, 0, len(req.MemberIDs)+2)
	seen := make(map[uuid.UUID]bool)
	addMember := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			memberIDs = append(memberIDs, id)
		}
	}
	creatorID, creatorErr := uuid.Parse(actor.UserID)
	if creatorErr == nil {
		addMember(creatorID)
	}
	if leaderID != nil {
		addMember(*leaderID)
	}
	for _, raw := range req.MemberIDs {
		id, err := parseID(raw, "member")
		if err != nil {
			return nil, err
		}
		addMember(id)
	}
	if err := s.ensureUsers(ctx, memberIDs); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.ProjectStatusPlanning
	}
	project := model.Project{
		Name:           name,
		Description:    req.Description,
		Status:         status,
		StartDate:      start,
		EndDate:        end,
		LeaderID:       leaderID,
		Specifications: sections,
	}
	if creatorErr == nil {
		project.CreatedBy = &creatorID
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.Create(txCtx, &project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		for _, id := range memberIDs {
			role := "member"
			if leaderID != nil && id == *leaderID {
				role = "leader"
			}
			if err := s.projects.AddMember(txCtx, &model.ProjectMember{ProjectID: project.ID, UserID: id, Role: role}); err != nil {
				return fmt.Errorf("failed to add project member: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateProject, project.ID.String(), project.Name, map[string]interface{}{
			"status":  project.Status,
			"members": len(memberIDs),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, project.ID)
}

func (s *projectService) ensureUsers(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch members: %w", err)
	}
	if len(users) != len(ids) {
		return invalid("one or more members do not exist")
	}
	return nil
}

func normalizeSections(sections []model.SpecSection) ([]model.SpecSection, error) {
	out := make([]model.SpecSection, 0, len(sections))
	for _, sec := range sections {
		sec.Title = strings.TrimSpace(sec.Title)
		if sec.Title == "" {
			return nil, invalid("every specification section needs a title")
		}
		if sec.ID == "" {
			sec.ID = uuid.NewString()
		}
		out = append(out, sec)
	}
	return out, nil
}

func (s *projectService) UpdateProject(ctx context.Context, actor permission.Principal, id string, req UpdateProjectRequest) (*ProjectResponse, error) {
	projectID, err := parseID(id, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, lookupErr(err, "project")
	}

	if req.Name != nil {
		name := trimmed(req.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.StartDate != nil {
		if project.StartDate, err = parseDate(*req.StartDate, "start_date"); err != nil {
			return nil, err
		}
	}
	if req.EndDate != nil {
		if project.EndDate, err = parseDate(*req.EndDate, "end_date"); err != nil {
			return nil, err
		}
	}
	if err := checkRange(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}
	newLeader := false
	if req.LeaderID != nil {
		if project.LeaderID, err = parseOptionalID(req.LeaderID, "leader"); err != nil {
			return nil, err
		}
		if project.LeaderID != nil {
			if err := s.ensureUsers(ctx, []uuid.UUID{*project.LeaderID}); err != nil {
				return nil, err
			}
			newLeader = !project.HasMember(*project.LeaderID)
		}
	}
	project.Leader = nil

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.Update(txCtx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		if newLeader {
			if err := s.projects.AddMember(txCtx, &model.ProjectMember{ProjectID: project.ID, UserID: *project.LeaderID, Role: "leader"}); err != nil {
				return fmt.Errorf("failed to add project leader: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProject, project.ID.String(), project.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, project.ID)
}

func (s *projectService) DeleteProject(ctx context.Context, actor permission.Principal, id string) error {
	projectID, err := parseID(id, "project")
	if err != nil {
		return err
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return lookupErr(err, "project")
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.Delete(txCtx, projectID); err != nil {
			return lookupErr(err, "project")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteProject, project.ID.String(), project.Name, nil)
	})
}

func (s *projectService) UpdateSpecifications(ctx context.Context, actor permission.Principal, id string, sections []model.SpecSection) (*ProjectResponse, error) {
	projectID, err := parseID(id, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, lookupErr(err, "project")
	}
	normalized, err := normalizeSections(sections)
	if err != nil {
		return nil, err
	}
	project.Specifications = normalized
	project.Leader = nil

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.Update(txCtx, project); err != nil {
			return fmt.Errorf("failed to update specifications: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProject, project.ID.String(), project.Name, map[string]int{
			"specification_sections": len(normalized),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, project.ID)
}

func (s *projectService) AddMember(ctx context.Context, actor permission.Principal, projectID string, req AddMemberRequest) (*ProjectResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	uid, err := parseID(req.UserID, "member")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, pid)
	if err != nil {
		return nil, lookupErr(err, "project")
	}
	if err := s.ensureUsers(ctx, []uuid.UUID{uid}); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = "member"
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.AddMember(txCtx, &model.ProjectMember{ProjectID: pid, UserID: uid, Role: role}); err != nil {
			return fmt.Errorf("failed to add project member: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProject, pid.String(), project.Name, map[string]string{
			"added_member": uid.String(),
			"role":         role,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, pid)
}

func (s *projectService) RemoveMember(ctx context.Context, actor permission.Principal, projectID, userID string) (*ProjectResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID, "member")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, pid)
	if err != nil {
		return nil, lookupErr(err, "project")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.RemoveMember(txCtx, pid, uid); err != nil {
			return lookupErr(err, "project member")
		}
		if project.LeaderID != nil && *project.LeaderID == uid {
			project.LeaderID = nil
			project.Leader = nil
			if err := s.projects.Update(txCtx, project); err != nil {
				return fmt.Errorf("failed to clear project leader: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProject, pid.String(), project.Name, map[string]string{
			"removed_member": uid.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, pid)
}

// AllocateResource records that a project uses some of a resource. It does not touch the
// resource's own counts; those change only through a status update.
func (s *projectService) AllocateResource(ctx context.Context, actor permission.Principal, projectID string, req AllocateResourceRequest) (*ProjectResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	rid, err := parseID(req.ResourceID, "resource")
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}
	project, err := s.projects.FindByID(ctx, pid)
	if err != nil {
		return nil, lookupErr(err, "project")
	}
	resource, err := s.resources.FindByID(ctx, rid)
	if err != nil {
		return nil, lookupErr(err, "resource")
	}
	if req.Quantity > resource.Total {
		return nil, invalid("quantity exceeds the %d units of %s", resource.Total, resource.Name)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.AddResource(txCtx, &model.ProjectResource{
			ProjectID:  pid,
			ResourceID: rid,
			Quantity:   req.Quantity,
			Note:       req.Note,
		}); err != nil {
			return fmt.Errorf("failed to allocate resource: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProject, pid.String(), project.Name, map[string]interface{}{
			"allocated_resource": rid.String(),
			"quantity":           req.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, pid)
}

func (s *projectService) ReleaseResource(ctx context.Context, actor permission.Principal, projectID, allocationID string) (*ProjectResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	aid, err := parseID(allocationID, "allocation")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, pid)
	if err != nil {
		return nil, lookupErr(err, "project")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.RemoveResource(txCtx, pid, aid); err != nil {
			return lookupErr(err, "allocation")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProject, pid.String(), project.Name, map[string]string{
			"released_allocation": aid.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, pid)
}
