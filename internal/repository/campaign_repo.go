package repository

import (
	"context"
	"time"

	"amarms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignFilter narrows campaign listings. Departments limits the result to the listed
// departments; an empty list matches nothing.
type CampaignFilter struct {
	Departments []string
	Status      string
	ProjectID   *uuid.UUID
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *model.Campaign) error
	Update(ctx context.Context, campaign *model.Campaign) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	List(ctx context.Context, filter CampaignFilter, page, limit int) ([]model.Campaign, int64, error)
	ListActiveBetween(ctx context.Context, start, end time.Time) ([]model.Campaign, error)
	BudgetTotals(ctx context.Context) ([]model.BudgetTotal, error)
}

type campaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *model.Campaign) error {
	return GetDB(ctx, r.db).Create(campaign).Error
}

func (r *campaignRepository) Update(ctx context.Context, campaign *model.Campaign) error {
	return GetDB(ctx, r.db).Save(campaign).Error
}

func (r *campaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Campaign{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *campaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	var campaign model.Campaign
	if err := GetDB(ctx, r.db).First(&campaign, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepository) List(ctx context.Context, filter CampaignFilter, page, limit int) ([]model.Campaign, int64, error) {
	var campaigns []model.Campaign
	var total int64
	if len(filter.Departments) == 0 {
		return campaigns, 0, nil
	}

	query := GetDB(ctx, r.db).Model(&model.Campaign{}).Where("department IN ?", filter.Departments)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("start_date desc NULLS LAST, created_at desc").
		Offset(offset(page, limit)).Limit(limit).
		Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *campaignRepository) ListActiveBetween(ctx context.Context, start, end time.Time) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	if err := GetDB(ctx, r.db).
		Where("start_date IS NOT NULL AND start_date <= ? AND COALESCE(end_date, start_date) >= ?", end, start).
		Where("status <> ?", model.CampaignStatusCancelled).
		Order("start_date asc").
		Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *campaignRepository) BudgetTotals(ctx context.Context) ([]model.BudgetTotal, error) {
	var totals []model.BudgetTotal
	if err := GetDB(ctx, r.db).Model(&model.Campaign{}).
		Select("department, COALESCE(SUM(budget), 0) as budget, COALESCE(SUM(spent), 0) as spent").
		Where("status <> ?", model.CampaignStatusCancelled).
		Group("department").
		Order("department").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	for i := range totals {
		totals[i].Remaining = totals[i].Budget.Sub(totals[i].Spent)
	}
	return totals, nil
}
