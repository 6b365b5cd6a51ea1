package service

import (
	"context"
	"fmt"
	"strings"

	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"
)

type CreateCommentRequest struct {
	TaskID *string `json:"task_id"`
	Body   string  `json:"body" binding:"required"`
}

type CommentService interface {
	ListComments(ctx context.Context, projectID string, taskID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, actor permission.Principal, projectID string, req CreateCommentRequest) (*model.Comment, error)
	DeleteComment(ctx context.Context, actor permission.Principal, id string) error
}

type commentService struct {
	comments  repository.CommentRepository
	projects  repository.ProjectRepository
	tasks     repository.TaskRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCommentService(
	comments repository.CommentRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CommentService {
	return &commentService{
		comments:  comments,
		projects:  projects,
		tasks:     tasks,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

func (s *commentService) ListComments(ctx context.Context, projectID string, taskID string) ([]model.Comment, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	tid, err := parseOptionalID(&taskID, "task")
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.List(ctx, pid, tid)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *commentService) CreateComment(ctx context.Context, actor permission.Principal, projectID string, req CreateCommentRequest) (*model.Comment, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	author, err := parseID(actor.UserID, "author")
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, invalid("comment body is required")
	}
	if _, err := s.projects.FindByID(ctx, pid); err != nil {
		return nil, lookupErr(err, "project")
	}
	tid, err := parseOptionalID(req.TaskID, "task")
	if err != nil {
		return nil, err
	}
	if tid != nil {
		task, err := s.tasks.FindByID(ctx, *tid)
		if err != nil {
			return nil, lookupErr(err, "task")
		}
		if task.ProjectID != pid {
			return nil, invalid("task belongs to another project")
		}
	}

	comment := model.Comment{ProjectID: pid, TaskID: tid, AuthorID: author, Body: body}
	if err := s.comments.Create(ctx, &comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment lets authors remove their own comments; anyone else needs comments.delete.
func (s *commentService) DeleteComment(ctx context.Context, actor permission.Principal, id string) error {
	cid, err := parseID(id, "comment")
	if err != nil {
		return err
	}
	comment, err := s.comments.FindByID(ctx, cid)
	if err != nil {
		return lookupErr(err, "comment")
	}
	if comment.AuthorID.String() != actor.UserID && !actor.Can(permission.CommentsDelete) {
		return ErrForbidden
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.comments.Delete(txCtx, cid); err != nil {
			return lookupErr(err, "comment")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteComment, cid.String(), "", map[string]string{
			"project_id": comment.ProjectID.String(),
			"author_id":  comment.AuthorID.String(),
		})
	})
}

