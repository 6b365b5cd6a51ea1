package repository

import (
	"context"

	"amarms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns the project's comments oldest first. A non-nil taskID keeps that task's thread.
	List(ctx context.Context, projectID uuid.UUID, taskID *uuid.UUID) ([]model.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return GetDB(ctx, r.db).Omit("Author").Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := GetDB(ctx, r.db).Preload("Author").First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepository) List(ctx context.Context, projectID uuid.UUID, taskID *uuid.UUID) ([]model.Comment, error) {
	var comments []model.Comment
	query := GetDB(ctx, r.db).Preload("Author").Where("project_id = ?", projectID)
	if taskID != nil {
		query = query.Where("task_id = ?", *taskID)
	}
	if err := query.Order("created_at asc").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
