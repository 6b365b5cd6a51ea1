package repository

import (
	"context"
	"time"

	"amarms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MilestoneRepository interface {
	Create(ctx context.Context, milestone *model.Milestone) error
	Update(ctx context.Context, milestone *model.Milestone) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Milestone, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Milestone, error)
	ListDueBetween(ctx context.Context, start, end time.Time) ([]model.Milestone, error)
}

type milestoneRepository struct {
	db *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

func (r *milestoneRepository) Create(ctx context.Context, milestone *model.Milestone) error {
	return GetDB(ctx, r.db).Omit("Overseer").Create(milestone).Error
}

func (r *milestoneRepository) Update(ctx context.Context, milestone *model.Milestone) error {
	return GetDB(ctx, r.db).Omit("Overseer").Save(milestone).Error
}

func (r *milestoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Milestone{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *milestoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Milestone, error) {
	var milestone model.Milestone
	if err := GetDB(ctx, r.db).Preload("Overseer").First(&milestone, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (r *milestoneRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Milestone, error) {
	var milestones []model.Milestone
	if err := GetDB(ctx, r.db).Preload("Overseer").
		Where("project_id = ?", projectID).
		Order("due_date asc").
		Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

func (r *milestoneRepository) ListDueBetween(ctx context.Context, start, end time.Time) ([]model.Milestone, error) {
	var milestones []model.Milestone
	if err := GetDB(ctx, r.db).
		Where("due_date >= ? AND due_date <= ?", start, end).
		Order("due_date asc").
		Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}
