package repository

import (
	"context"
	"strings"

	"amarms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectFilter narrows project listings. MemberID limits to projects the user belongs to.
type ProjectFilter struct {
	Status   string
	MemberID *uuid.UUID
	Search   string
}

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	List(ctx context.Context, filter ProjectFilter, page, limit int) ([]model.Project, int64, error)
	AddMember(ctx context.Context, member *model.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error
	AddResource(ctx context.Context, allocation *model.ProjectResource) error
	RemoveResource(ctx context.Context, projectID, allocationID uuid.UUID) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Omit("Members", "Resources", "Leader").Create(project).Error
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Omit("Members", "Resources", "Leader").Save(project).Error
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := GetDB(ctx, r.db).
		Preload("Leader").
		Preload("Members.User").
		Preload("Resources.Resource").
		First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter, page, limit int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Project{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MemberID != nil {
		query = query.Where("id IN (?)", GetDB(ctx, r.db).Model(&model.ProjectMember{}).
			Select("project_id").Where("user_id = ?", *filter.MemberID))
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Leader").Preload("Members").
		Order("created_at desc").Offset(offset(page, limit)).Limit(limit).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepository) AddMember(ctx context.Context, member *model.ProjectMember) error {
	return GetDB(ctx, r.db).Omit("User").Save(member).Error
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&model.ProjectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *projectRepository) AddResource(ctx context.Context, allocation *model.ProjectResource) error {
	return GetDB(ctx, r.db).Omit("Resource").Create(allocation).Error
}

func (r *projectRepository) RemoveResource(ctx context.Context, projectID, allocationID uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("project_id = ? AND id = ?", projectID, allocationID).Delete(&model.ProjectResource{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
