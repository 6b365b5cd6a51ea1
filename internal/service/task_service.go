package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"amarms/internal/board"
	"amarms/internal/logging"
	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"
	"amarms/internal/storage"

	"github.com/google/uuid"
)

// Board events sent to realtime subscribers after a write commits.
const (
	EventTaskCreated    = "task.created"
	EventTaskUpdated    = "task.updated"
	EventTaskMoved      = "task.moved"
	EventTaskReviewed   = "task.reviewed"
	EventTrashCleared   = "task.trash_cleared"
	maxEvidenceFileName = 120
)

// EventPublisher fans board changes out to connected clients.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// --- DTOs ---

type CreateTaskRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	MilestoneID *string  `json:"milestone_id"`
	StartDate   string   `json:"start_date"`
	DueDate     string   `json:"due_date"`
	AssigneeIDs []string `json:"assignee_ids"`
}

// UpdateTaskRequest edits task details. Version is the version the client last saw;
// zero means "whatever is stored now".
type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	MilestoneID *string   `json:"milestone_id"`
	StartDate   *string   `json:"start_date"`
	DueDate     *string   `json:"due_date"`
	AssigneeIDs *[]string `json:"assignee_ids"`
	Version     int       `json:"version"`
}

type MoveTaskRequest struct {
	Status  model.TaskStatus `json:"status" binding:"required"`
	Version int              `json:"version"`
}

type ReviewTaskRequest struct {
	Comment string `json:"comment"`
	Version int    `json:"version"`
}

type ClearTrashRequest struct {
	Confirm bool `json:"confirm"`
}

type BoardResponse struct {
	ProjectID string         `json:"project_id"`
	Milestone string         `json:"milestone"`
	Columns   []board.Column `json:"columns"`
	Progress  int            `json:"progress"`
}

type ClearTrashResponse struct {
	Deleted int `json:"deleted"`
}

type TaskEvent struct {
	ProjectID string      `json:"project_id"`
	Task      *model.Task `json:"task,omitempty"`
	From      string      `json:"from,omitempty"`
	To        string      `json:"to,omitempty"`
	Deleted   []string    `json:"deleted,omitempty"`
}

// --- Interface ---

type TaskService interface {
	GetBoard(ctx context.Context, projectID, milestoneID string) (*BoardResponse, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListMyTasks(ctx context.Context, actor permission.Principal) ([]model.Task, error)
	CreateTask(ctx context.Context, actor permission.Principal, projectID string, req CreateTaskRequest) (*model.Task, error)
	UpdateTask(ctx context.Context, actor permission.Principal, id string, req UpdateTaskRequest) (*model.Task, error)
	MoveTask(ctx context.Context, actor permission.Principal, id string, req MoveTaskRequest) (*model.Task, error)
	ApproveTask(ctx context.Context, actor permission.Principal, id string, req ReviewTaskRequest) (*model.Task, error)
	RejectTask(ctx context.Context, actor permission.Principal, id string, req ReviewTaskRequest) (*model.Task, error)
	ClearTrash(ctx context.Context, actor permission.Principal, projectID string, confirm bool) (*ClearTrashResponse, error)
	UploadEvidence(ctx context.Context, actor permission.Principal, id string, fileName string, version int, r io.Reader) (*model.Task, error)
}

type taskService struct {
	tasks      repository.TaskRepository
	projects   repository.ProjectRepository
	milestones repository.MilestoneRepository
	users      repository.UserRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	store      storage.ObjectStore
	events     EventPublisher
	now        func() time.Time
}

func NewTaskService(
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	milestones repository.MilestoneRepository,
	users repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	store storage.ObjectStore,
	events EventPublisher,
) TaskService {
	return &taskService{
		tasks:      tasks,
		projects:   projects,
		milestones: milestones,
		users:      users,
		auditRepo:  auditRepo,
		txManager:  txManager,
		store:      store,
		events:     events,
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *taskService) GetBoard(ctx context.Context, projectID, milestoneID string) (*BoardResponse, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	if milestoneID == "" {
		milestoneID = model.MilestoneAll
	}
	if _, err := s.projects.FindByID(ctx, pid); err != nil {
		return nil, lookupErr(err, "project")
	}
	tasks, err := s.tasks.ListByProject(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	visible := board.FilterByMilestone(tasks, milestoneID)
	return &BoardResponse{
		ProjectID: pid.String(),
		Milestone: milestoneID,
		Columns:   board.Partition(visible),
		Progress:  board.Progress(visible),
	}, nil
}

func (s *taskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	tid, err := parseID(id, "task")
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.FindByID(ctx, tid)
	if err != nil {
		return nil, lookupErr(err, "task")
	}
	return task, nil
}

func (s *taskService) ListMyTasks(ctx context.Context, actor permission.Principal) ([]model.Task, error) {
	uid, err := parseID(actor.UserID, "user")
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListAssignedTo(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assigned tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) CreateTask(ctx context.Context, actor permission.Principal, projectID string, req CreateTaskRequest) (*model.Task, error) {
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
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	due, err := parseDate(req.DueDate, "due_date")
	if err != nil {
		return nil, err
	}
	if err := checkRange(start, due); err != nil {
		return nil, err
	}
	milestoneID, err := s.milestoneFor(ctx, pid, req.MilestoneID)
	if err != nil {
		return nil, err
	}
	assignees, err := s.snapshots(ctx, req.AssigneeIDs)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		ProjectID:   pid,
		MilestoneID: milestoneID,
		Title:       title,
		Description: req.Description,
		StartDate:   start,
		DueDate:     due,
		Assignee:    assignees,
		Status:      model.TaskTodo,
		Evidence:    []string{},
		Review:      model.Review{Reviewers: []string{}, Comments: []model.ReviewComment{}},
		Version:     1,
	}
	if creator, err := uuid.Parse(actor.UserID); err == nil {
		task.CreatedBy = &creator
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tasks.Create(txCtx, &task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateTask, task.ID.String(), task.Title, map[string]string{
			"project_id": pid.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventTaskCreated, TaskEvent{ProjectID: pid.String(), Task: &task})
	return &task, nil
}

// milestoneFor validates that raw names a milestone of the project. Empty means none.
func (s *taskService) milestoneFor(ctx context.Context, projectID uuid.UUID, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID(raw, "milestone")
	if err != nil || id == nil {
		return id, err
	}
	m, err := s.milestones.FindByID(ctx, *id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, invalid("milestone does not exist")
		}
		return nil, fmt.Errorf("failed to fetch milestone: %w", err)
	}
	if m.ProjectID != projectID {
		return nil, invalid("milestone belongs to another project")
	}
	return id, nil
}

// snapshots copies the current member records onto the task.
func (s *taskService) snapshots(ctx context.Context, rawIDs []string) (map[string]model.MemberSnapshot, error) {
	out := make(map[string]model.MemberSnapshot, len(rawIDs))
	if len(rawIDs) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rawIDs))
	seen := make(map[uuid.UUID]bool, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := parseID(raw, "assignee")
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignees: %w", err)
	}
	if len(users) != len(ids) {
		return nil, invalid("one or more assignees do not exist")
	}
	for _, u := range users {
		out[u.ID.String()] = u.Snapshot()
	}
	return out, nil
}

// load fetches a task and, when the client sent a version, checks it is still current.
func (s *taskService) load(ctx context.Context, id string, version int) (*model.Task, error) {
	tid, err := parseID(id, "task")
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.FindByID(ctx, tid)
	if err != nil {
		return nil, lookupErr(err, "task")
	}
	if version != 0 && version != task.Version {
		return nil, ErrConflict
	}
	return task, nil
}

// commit writes next over the stored version and records the audit entry in the same
// transaction. On failure nothing is stored and next is returned untouched.
func (s *taskService) commit(ctx context.Context, actor permission.Principal, next model.Task, action string, details interface{}) (*model.Task, error) {
	written := next.Clone()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tasks.UpdateWithVersion(txCtx, &written); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrConflict
			}
			return lookupErr(err, "task")
		}
		return writeAudit(txCtx, s.auditRepo, actor, action, written.ID.String(), written.Title, details)
	})
	if err != nil {
		logging.Logger.WithError(err).WithField("task_id", next.ID).Warn("task write failed")
		return nil, err
	}
	return &written, nil
}

func (s *taskService) UpdateTask(ctx context.Context, actor permission.Principal, id string, req UpdateTaskRequest) (*model.Task, error) {
	current, err := s.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}
	next := current.Clone()

	if req.Title != nil {
		title := trimmed(req.Title)
		if title == "" {
			return nil, invalid("title cannot be empty")
		}
		next.Title = title
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.StartDate != nil {
		if next.StartDate, err = parseDate(*req.StartDate, "start_date"); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if next.DueDate, err = parseDate(*req.DueDate, "due_date"); err != nil {
			return nil, err
		}
	}
	if err := checkRange(next.StartDate, next.DueDate); err != nil {
		return nil, err
	}
	if req.MilestoneID != nil {
		if next.MilestoneID, err = s.milestoneFor(ctx, next.ProjectID, req.MilestoneID); err != nil {
			return nil, err
		}
	}
	if req.AssigneeIDs != nil {
		if next.Assignee, err = s.snapshots(ctx, *req.AssigneeIDs); err != nil {
			return nil, err
		}
	}

	written, err := s.commit(ctx, actor, next, model.ActionUpdateTask, req)
	if err != nil {
		return nil, err
	}
	s.publish(EventTaskUpdated, TaskEvent{ProjectID: written.ProjectID.String(), Task: written})
	return written, nil
}

// MoveTask changes the task's column. Moving to the column it is already in is a no-op
// and returns the stored task without writing.
func (s *taskService) MoveTask(ctx context.Context, actor permission.Principal, id string, req MoveTaskRequest) (*model.Task, error) {
	if !req.Status.Valid() {
		return nil, invalid("unknown status %q", req.Status)
	}
	current, err := s.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}
	next, changed, err := board.Move(*current, req.Status)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if !changed {
		return current, nil
	}

	written, err := s.commit(ctx, actor, next, model.ActionMoveTask, map[string]string{
		"from": string(current.Status),
		"to":   string(req.Status),
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventTaskMoved, TaskEvent{
		ProjectID: written.ProjectID.String(),
		Task:      written,
		From:      string(current.Status),
		To:        string(written.Status),
	})
	return written, nil
}

func (s *taskService) ApproveTask(ctx context.Context, actor permission.Principal, id string, req ReviewTaskRequest) (*model.Task, error) {
	return s.review(ctx, actor, id, req, board.Approve, model.ActionApproveTask)
}

func (s *taskService) RejectTask(ctx context.Context, actor permission.Principal, id string, req ReviewTaskRequest) (*model.Task, error) {
	if strings.TrimSpace(req.Comment) == "" {
		return nil, invalid("a comment is required when requesting changes")
	}
	return s.review(ctx, actor, id, req, board.Reject, model.ActionRejectTask)
}

type verdictFunc func(model.Task, model.MemberSnapshot, string, time.Time) model.Task

func (s *taskService) review(ctx context.Context, actor permission.Principal, id string, req ReviewTaskRequest, verdict verdictFunc, action string) (*model.Task, error) {
	current, err := s.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}
	author := model.MemberSnapshot{ID: actor.UserID, Role: string(actor.Role)}
	if uid, err := uuid.Parse(actor.UserID); err == nil {
		if u, err := s.users.FindByID(ctx, uid); err == nil {
			author = u.Snapshot()
		}
	}

	next := verdict(*current, author, strings.TrimSpace(req.Comment), s.now().UTC())
	written, err := s.commit(ctx, actor, next, action, map[string]string{
		"review_status": string(next.Review.Status),
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventTaskReviewed, TaskEvent{ProjectID: written.ProjectID.String(), Task: written})
	return written, nil
}

// ClearTrash hard-deletes every task currently in the project's trash. Without confirm
// nothing happens. Evidence files are removed afterwards on a best-effort basis.
func (s *taskService) ClearTrash(ctx context.Context, actor permission.Principal, projectID string, confirm bool) (*ClearTrashResponse, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, pid)
	if err != nil {
		return nil, lookupErr(err, "project")
	}

	var deleted []model.Task
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		removed, err := s.tasks.DeleteTrash(txCtx, pid)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrConflict
			}
			return fmt.Errorf("failed to clear trash: %w", err)
		}
		deleted = removed
		ids := make([]string, 0, len(removed))
		for _, t := range removed {
			ids = append(ids, t.ID.String())
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionClearTrash, pid.String(), project.Name, map[string]interface{}{
			"deleted": ids,
		})
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(deleted))
	for _, t := range deleted {
		ids = append(ids, t.ID.String())
		removeStored(ctx, s.store, t.Evidence)
	}
	if len(ids) > 0 {
		s.publish(EventTrashCleared, TaskEvent{ProjectID: pid.String(), Deleted: ids})
	}
	return &ClearTrashResponse{Deleted: len(deleted)}, nil
}

// UploadEvidence stores the file first and only then records its URL on the task.
// If the record write fails the uploaded object is removed again.
func (s *taskService) UploadEvidence(ctx context.Context, actor permission.Principal, id string, fileName string, version int, r io.Reader) (*model.Task, error) {
	current, err := s.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	objectPath, url, err := uploadObject(ctx, s.store, "tasks", current.ID, fileName, r)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	next.Evidence = append(next.Evidence, url)
	written, err := s.commit(ctx, actor, next, model.ActionUpdateTask, map[string]string{"evidence": url})
	if err != nil {
		discard(ctx, s.store, objectPath)
		return nil, err
	}
	s.publish(EventTaskUpdated, TaskEvent{ProjectID: written.ProjectID.String(), Task: written})
	return written, nil
}

func (s *taskService) publish(event string, payload interface{}) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxEvidenceFileName {
		out = out[len(out)-maxEvidenceFileName:]
	}
	return out
}
