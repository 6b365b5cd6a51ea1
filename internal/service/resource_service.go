package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"amarms/internal/logging"
	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"
	"amarms/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateResourceRequest struct {
	Kind             string `json:"kind" binding:"required,oneof=hardware software"`
	Name             string `json:"name" binding:"required"`
	Category         string `json:"category"`
	Description      string `json:"description"`
	Vendor           string `json:"vendor"`
	SerialNumber     string `json:"serial_number"`
	Version          string `json:"version"`
	Total            int    `json:"total" binding:"min=0"`
	UnitCost         string `json:"unit_cost"` // Decimal string, e.g. "1299.00"
	LicenseExpiresAt string `json:"license_expires_at"`
}

type UpdateResourceRequest struct {
	Name             *string `json:"name"`
	Category         *string `json:"category"`
	Description      *string `json:"description"`
	Vendor           *string `json:"vendor"`
	SerialNumber     *string `json:"serial_number"`
	Version          *string `json:"version"`
	UnitCost         *string `json:"unit_cost"`
	LicenseExpiresAt *string `json:"license_expires_at"`
}

// ResourceStatusRequest repartitions a resource's units. The total is fixed.
type ResourceStatusRequest struct {
	Available   int  `json:"available"`
	InUse       int  `json:"in_use"`
	Maintenance int  `json:"maintenance"`
}

type VenueRequest struct {
	Name        string   `json:"name" binding:"required"`
	Location    string   `json:"location"`
	Capacity    int      `json:"capacity" binding:"min=0"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
	Available   *bool    `json:"available"`
}

// --- Interface ---

type ResourceService interface {
	ListResources(ctx context.Context, kind, search string, page, limit int) ([]model.Resource, int64, error)
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	CreateResource(ctx context.Context, actor permission.Principal, req CreateResourceRequest) (*model.Resource, error)
	UpdateResource(ctx context.Context, actor permission.Principal, id string, req UpdateResourceRequest) (*model.Resource, error)
	UpdateStatus(ctx context.Context, actor permission.Principal, id string, req ResourceStatusRequest) (*model.Resource, error)
	DeleteResource(ctx context.Context, actor permission.Principal, id string) error
	AddResourceImage(ctx context.Context, actor permission.Principal, id, fileName string, r io.Reader) (*model.Resource, error)
	RemoveResourceImage(ctx context.Context, actor permission.Principal, id, url string) (*model.Resource, error)

	ListVenues(ctx context.Context, minCapacity int, availableOnly bool) ([]model.Venue, error)
	GetVenue(ctx context.Context, id string) (*model.Venue, error)
	CreateVenue(ctx context.Context, actor permission.Principal, req VenueRequest) (*model.Venue, error)
	UpdateVenue(ctx context.Context, actor permission.Principal, id string, req VenueRequest) (*model.Venue, error)
	DeleteVenue(ctx context.Context, actor permission.Principal, id string) error
	AddVenueImage(ctx context.Context, actor permission.Principal, id, fileName string, r io.Reader) (*model.Venue, error)
}

type resourceService struct {
	resources repository.ResourceRepository
	venues    repository.VenueRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	store     storage.ObjectStore
}

func NewResourceService(
	resources repository.ResourceRepository,
	venues repository.VenueRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	store storage.ObjectStore,
) ResourceService {
	return &resourceService{
		resources: resources,
		venues:    venues,
		auditRepo: auditRepo,
		txManager: txManager,
		store:     store,
	}
}

// CheckQuantities enforces available + inUse + maintenance == total with no negative count.
func CheckQuantities(total, available, inUse, maintenance int) error {
	if total < 0 || available < 0 || inUse < 0 || maintenance < 0 {
		return ErrQuantityMismatch
	}
	if available+inUse+maintenance != total {
		return ErrQuantityMismatch
	}
	return nil
}

func parseMoney(raw, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, invalid("%s must be a decimal number", field)
	}
	if d.IsNegative() {
		return decimal.Zero, invalid("%s cannot be negative", field)
	}
	return d.Round(2), nil
}

// --- Resources ---

func (s *resourceService) ListResources(ctx context.Context, kind, search string, page, limit int) ([]model.Resource, int64, error) {
	if kind != "" && kind != model.ResourceKindHardware && kind != model.ResourceKindSoftware {
		return nil, 0, invalid("kind must be hardware or software")
	}
	page, limit = normalizePage(page, limit)
	resources, total, err := s.resources.List(ctx, kind, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, total, nil
}

func (s *resourceService) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	rid, err := parseID(id, "resource")
	if err != nil {
		return nil, err
	}
	resource, err := s.resources.FindByID(ctx, rid)
	if err != nil {
		return nil, lookupErr(err, "resource")
	}
	return resource, nil
}

// CreateResource starts with every unit available.
func (s *resourceService) CreateResource(ctx context.Context, actor permission.Principal, req CreateResourceRequest) (*model.Resource, error) {
	if req.Kind != model.ResourceKindHardware && req.Kind != model.ResourceKindSoftware {
		return nil, invalid("kind must be hardware or software")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if req.Total < 0 {
		return nil, ErrQuantityMismatch
	}
	cost, err := parseMoney(req.UnitCost, "unit_cost")
	if err != nil {
		return nil, err
	}
	expires, err := parseDate(req.LicenseExpiresAt, "license_expires_at")
	if err != nil {
		return nil, err
	}

	resource := model.Resource{
		Kind:             req.Kind,
		Name:             name,
		Category:         req.Category,
		Description:      req.Description,
		Vendor:           req.Vendor,
		SerialNumber:     req.SerialNumber,
		Version:          req.Version,
		Total:            req.Total,
		Available:        req.Total,
		UnitCost:         cost,
		LicenseExpiresAt: expires,
		Images:           []string{},
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.resources.Create(txCtx, &resource); err != nil {
			return fmt.Errorf("failed to create resource: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateResource, resource.ID.String(), resource.Name, map[string]interface{}{
			"kind":  resource.Kind,
			"total": resource.Total,
		})
	})
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

// UpdateResource edits descriptive fields only; counts go through UpdateStatus.
func (s *resourceService) UpdateResource(ctx context.Context, actor permission.Principal, id string, req UpdateResourceRequest) (*model.Resource, error) {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := trimmed(req.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		resource.Name = name
	}
	if req.Category != nil {
		resource.Category = *req.Category
	}
	if req.Description != nil {
		resource.Description = *req.Description
	}
	if req.Vendor != nil {
		resource.Vendor = *req.Vendor
	}
	if req.SerialNumber != nil {
		resource.SerialNumber = *req.SerialNumber
	}
	if req.Version != nil {
		resource.Version = *req.Version
	}
	if req.UnitCost != nil {
		if resource.UnitCost, err = parseMoney(*req.UnitCost, "unit_cost"); err != nil {
			return nil, err
		}
	}
	if req.LicenseExpiresAt != nil {
		if resource.LicenseExpiresAt, err = parseDate(*req.LicenseExpiresAt, "license_expires_at"); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, actor, resource, model.ActionUpdateResource, req); err != nil {
		return nil, err
	}
	return resource, nil
}

// UpdateStatus rejects any partition that does not add up; the stored record is then left as it was.
func (s *resourceService) UpdateStatus(ctx context.Context, actor permission.Principal, id string, req ResourceStatusRequest) (*model.Resource, error) {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckQuantities(resource.Total, req.Available, req.InUse, req.Maintenance); err != nil {
		return nil, err
	}

	next := *resource
	next.Available = req.Available
	next.InUse = req.InUse
	next.Maintenance = req.Maintenance

	if err := s.save(ctx, actor, &next, model.ActionResourceStatus, map[string]int{
		"total":       next.Total,
		"available":   next.Available,
		"in_use":      next.InUse,
		"maintenance": next.Maintenance,
	}); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *resourceService) save(ctx context.Context, actor permission.Principal, resource *model.Resource, action string, details interface{}) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.resources.Update(txCtx, resource); err != nil {
			return fmt.Errorf("failed to update resource: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, action, resource.ID.String(), resource.Name, details)
	})
}

func (s *resourceService) DeleteResource(ctx context.Context, actor permission.Principal, id string) error {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.resources.Delete(txCtx, resource.ID); err != nil {
			return lookupErr(err, "resource")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteResource, resource.ID.String(), resource.Name, nil)
	})
	if err != nil {
		return err
	}
	removeStored(ctx, s.store, resource.Images)
	return nil
}

func (s *resourceService) AddResourceImage(ctx context.Context, actor permission.Principal, id, fileName string, r io.Reader) (*model.Resource, error) {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	objectPath, url, err := uploadObject(ctx, s.store, "resources", resource.ID, fileName, r)
	if err != nil {
		return nil, err
	}
	resource.Images = append(resource.Images, url)
	if err := s.save(ctx, actor, resource, model.ActionUpdateResource, map[string]string{"image_added": url}); err != nil {
		discard(ctx, s.store, objectPath)
		return nil, err
	}
	return resource, nil
}

func (s *resourceService) RemoveResourceImage(ctx context.Context, actor permission.Principal, id, url string) (*model.Resource, error) {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(resource.Images))
	for _, img := range resource.Images {
		if img != url {
			kept = append(kept, img)
		}
	}
	if len(kept) == len(resource.Images) {
		return nil, fmt.Errorf("image %w", ErrNotFound)
	}
	resource.Images = kept
	if err := s.save(ctx, actor, resource, model.ActionUpdateResource, map[string]string{"image_removed": url}); err != nil {
		return nil, err
	}
	removeStored(ctx, s.store, []string{url})
	return resource, nil
}

// --- Venues ---

func (s *resourceService) ListVenues(ctx context.Context, minCapacity int, availableOnly bool) ([]model.Venue, error) {
	venues, err := s.venues.List(ctx, minCapacity, availableOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	return venues, nil
}

func (s *resourceService) GetVenue(ctx context.Context, id string) (*model.Venue, error) {
	vid, err := parseID(id, "venue")
	if err != nil {
		return nil, err
	}
	venue, err := s.venues.FindByID(ctx, vid)
	if err != nil {
		return nil, lookupErr(err, "venue")
	}
	return venue, nil
}

func (s *resourceService) CreateVenue(ctx context.Context, actor permission.Principal, req VenueRequest) (*model.Venue, error) {
	venue := model.Venue{Images: []string{}, Available: true}
	if err := applyVenue(&venue, req); err != nil {
		return nil, err
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.venues.Create(txCtx, &venue); err != nil {
			return fmt.Errorf("failed to create venue: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateVenue, venue.ID.String(), venue.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func applyVenue(venue *model.Venue, req VenueRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return invalid("name is required")
	}
	if req.Capacity < 0 {
		return invalid("capacity cannot be negative")
	}
	venue.Name = name
	venue.Location = req.Location
	venue.Capacity = req.Capacity
	venue.Description = req.Description
	venue.Amenities = req.Amenities
	if venue.Amenities == nil {
		venue.Amenities = []string{}
	}
	if req.Available != nil {
		venue.Available = *req.Available
	}
	return nil
}

func (s *resourceService) UpdateVenue(ctx context.Context, actor permission.Principal, id string, req VenueRequest) (*model.Venue, error) {
	venue, err := s.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyVenue(venue, req); err != nil {
		return nil, err
	}
	if err := s.saveVenue(ctx, actor, venue, req); err != nil {
		return nil, err
	}
	return venue, nil
}

func (s *resourceService) saveVenue(ctx context.Context, actor permission.Principal, venue *model.Venue, details interface{}) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.venues.Update(txCtx, venue); err != nil {
			return fmt.Errorf("failed to update venue: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateVenue, venue.ID.String(), venue.Name, details)
	})
}

func (s *resourceService) DeleteVenue(ctx context.Context, actor permission.Principal, id string) error {
	venue, err := s.GetVenue(ctx, id)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.venues.Delete(txCtx, venue.ID); err != nil {
			return lookupErr(err, "venue")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteVenue, venue.ID.String(), venue.Name, nil)
	})
	if err != nil {
		return err
	}
	removeStored(ctx, s.store, venue.Images)
	return nil
}

func (s *resourceService) AddVenueImage(ctx context.Context, actor permission.Principal, id, fileName string, r io.Reader) (*model.Venue, error) {
	venue, err := s.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	objectPath, url, err := uploadObject(ctx, s.store, "venues", venue.ID, fileName, r)
	if err != nil {
		return nil, err
	}
	venue.Images = append(venue.Images, url)
	if err := s.saveVenue(ctx, actor, venue, map[string]string{"image_added": url}); err != nil {
		discard(ctx, s.store, objectPath)
		return nil, err
	}
	return venue, nil
}

// --- object helpers shared by resource, venue and campaign uploads ---

func uploadObject(ctx context.Context, store storage.ObjectStore, prefix string, owner uuid.UUID, fileName string, r io.Reader) (string, string, error) {
	name := cleanFileName(fileName)
	if name == "" {
		return "", "", invalid("file name is required")
	}
	objectPath := path.Join(prefix, owner.String(), uuid.NewString()+"-"+name)
	url, err := store.Upload(ctx, objectPath, r)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file: %w", err)
	}
	return objectPath, url, nil
}

func discard(ctx context.Context, store storage.ObjectStore, objectPath string) {
	if err := store.Delete(ctx, objectPath); err != nil {
		logging.Logger.WithError(err).WithField("path", objectPath).Warn("failed to remove orphaned upload")
	}
}

func removeStored(ctx context.Context, store storage.ObjectStore, urls []string) {
	for _, u := range urls {
		p, ok := store.PathOf(u)
		if !ok {
			continue
		}
		if err := store.Delete(ctx, p); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logging.Logger.WithError(err).WithField("path", p).Warn("failed to delete stored object")
		}
	}
}
