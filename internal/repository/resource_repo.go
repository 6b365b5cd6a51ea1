package repository

import (
	"context"
	"strings"

	"amarms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResourceRepository interface {
	Create(ctx context.Context, resource *model.Resource) error
	Update(ctx context.Context, resource *model.Resource) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	List(ctx context.Context, kind, search string, page, limit int) ([]model.Resource, int64, error)
	UsageByKind(ctx context.Context) ([]model.ResourceUsage, error)
}

type resourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	return GetDB(ctx, r.db).Create(resource).Error
}

func (r *resourceRepository) Update(ctx context.Context, resource *model.Resource) error {
	return GetDB(ctx, r.db).Save(resource).Error
}

func (r *resourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Resource{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *resourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	var resource model.Resource
	if err := GetDB(ctx, r.db).First(&resource, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *resourceRepository) List(ctx context.Context, kind, search string, page, limit int) ([]model.Resource, int64, error) {
	var resources []model.Resource
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Resource{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ? OR LOWER(vendor) LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("name asc").Offset(offset(page, limit)).Limit(limit).Find(&resources).Error; err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}

func (r *resourceRepository) UsageByKind(ctx context.Context) ([]model.ResourceUsage, error) {
	var usage []model.ResourceUsage
	if err := GetDB(ctx, r.db).Model(&model.Resource{}).
		Select("kind, SUM(total) as total, SUM(available) as available, SUM(in_use) as in_use, SUM(maintenance) as maintenance").
		Group("kind").
		Order("kind").
		Scan(&usage).Error; err != nil {
		return nil, err
	}
	return usage, nil
}

type VenueRepository interface {
	Create(ctx context.Context, venue *model.Venue) error
	Update(ctx context.Context, venue *model.Venue) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venue, error)
	List(ctx context.Context, minCapacity int, availableOnly bool) ([]model.Venue, error)
}

type venueRepository struct {
	db *gorm.DB
}

func NewVenueRepository(db *gorm.DB) VenueRepository {
	return &venueRepository{db: db}
}

func (r *venueRepository) Create(ctx context.Context, venue *model.Venue) error {
	return GetDB(ctx, r.db).Create(venue).Error
}

func (r *venueRepository) Update(ctx context.Context, venue *model.Venue) error {
	return GetDB(ctx, r.db).Save(venue).Error
}

func (r *venueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Venue{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *venueRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Venue, error) {
	var venue model.Venue
	if err := GetDB(ctx, r.db).First(&venue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &venue, nil
}

func (r *venueRepository) List(ctx context.Context, minCapacity int, availableOnly bool) ([]model.Venue, error) {
	var venues []model.Venue
	query := GetDB(ctx, r.db).Model(&model.Venue{})
	if minCapacity > 0 {
		query = query.Where("capacity >= ?", minCapacity)
	}
	if availableOnly {
		query = query.Where("available = ?", true)
	}
	if err := query.Order("name asc").Find(&venues).Error; err != nil {
		return nil, err
	}
	return venues, nil
}
