package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"
	"amarms/internal/storage"

	"github.com/google/uuid"
)

type CampaignRequest struct {
	Department  string  `json:"department" binding:"required,oneof=marketing pr graphics"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Channel     string  `json:"channel"`
	Status      string  `json:"status" binding:"omitempty,oneof=draft scheduled active completed cancelled"`
	Budget      string  `json:"budget"` // Decimal string
	Spent       string  `json:"spent"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	OwnerID     *string `json:"owner_id"`
	ProjectID   *string `json:"project_id"`
}

type CampaignFilter struct {
	Department string
	Status     string
	ProjectID  string
}

// Departments lists the campaign departments. Each one is also a permission domain.
var Departments = []string{model.DepartmentMarketing, model.DepartmentPR, model.DepartmentGraphics}

func departmentPermission(department, action string) permission.Permission {
	return permission.Permission(department + "." + action)
}

func validDepartment(department string) bool {
	for _, d := range Departments {
		if d == department {
			return true
		}
	}
	return false
}

type CampaignService interface {
	ListCampaigns(ctx context.Context, actor permission.Principal, filter CampaignFilter, page, limit int) ([]model.Campaign, int64, error)
	GetCampaign(ctx context.Context, actor permission.Principal, id string) (*model.Campaign, error)
	CreateCampaign(ctx context.Context, actor permission.Principal, req CampaignRequest) (*model.Campaign, error)
	UpdateCampaign(ctx context.Context, actor permission.Principal, id string, req CampaignRequest) (*model.Campaign, error)
	DeleteCampaign(ctx context.Context, actor permission.Principal, id string) error
	AddAsset(ctx context.Context, actor permission.Principal, id, fileName string, r io.Reader) (*model.Campaign, error)
}

type campaignService struct {
	campaigns repository.CampaignRepository
	projects  repository.ProjectRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	store     storage.ObjectStore
}

func NewCampaignService(
	campaigns repository.CampaignRepository,
	projects repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	store storage.ObjectStore,
) CampaignService {
	return &campaignService{
		campaigns: campaigns,
		projects:  projects,
		auditRepo: auditRepo,
		txManager: txManager,
		store:     store,
	}
}

// ListCampaigns returns only departments the actor can view. Asking for one the actor
// cannot view is refused.
func (s *campaignService) ListCampaigns(ctx context.Context, actor permission.Principal, filter CampaignFilter, page, limit int) ([]model.Campaign, int64, error) {
	var departments []string
	if filter.Department != "" {
		if !validDepartment(filter.Department) {
			return nil, 0, invalid("unknown department %q", filter.Department)
		}
		if !actor.Can(departmentPermission(filter.Department, "view")) {
			return nil, 0, ErrForbidden
		}
		departments = []string{filter.Department}
	} else {
		for _, d := range Departments {
			if actor.Can(departmentPermission(d, "view")) {
				departments = append(departments, d)
			}
		}
	}
	projectID, err := parseOptionalID(&filter.ProjectID, "project")
	if err != nil {
		return nil, 0, err
	}

	page, limit = normalizePage(page, limit)
	campaigns, total, err := s.campaigns.List(ctx, repository.CampaignFilter{
		Departments: departments,
		Status:      filter.Status,
		ProjectID:   projectID,
	}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, total, nil
}

func (s *campaignService) load(ctx context.Context, actor permission.Principal, id, action string) (*model.Campaign, error) {
	cid, err := parseID(id, "campaign")
	if err != nil {
		return nil, err
	}
	campaign, err := s.campaigns.FindByID(ctx, cid)
	if err != nil {
		return nil, lookupErr(err, "campaign")
	}
	if !actor.Can(departmentPermission(campaign.Department, action)) {
		return nil, ErrForbidden
	}
	return campaign, nil
}

func (s *campaignService) GetCampaign(ctx context.Context, actor permission.Principal, id string) (*model.Campaign, error) {
	return s.load(ctx, actor, id, "view")
}

func (s *campaignService) CreateCampaign(ctx context.Context, actor permission.Principal, req CampaignRequest) (*model.Campaign, error) {
	if !validDepartment(req.Department) {
		return nil, invalid("unknown department %q", req.Department)
	}
	if !actor.Can(departmentPermission(req.Department, "manage")) {
		return nil, ErrForbidden
	}
	campaign := model.Campaign{Status: model.CampaignStatusDraft, Assets: []string{}}
	if err := s.apply(ctx, &campaign, req); err != nil {
		return nil, err
	}
	if owner, err := uuid.Parse(actor.UserID); err == nil && campaign.OwnerID == nil {
		campaign.OwnerID = &owner
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.campaigns.Create(txCtx, &campaign); err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateCampaign, campaign.ID.String(), campaign.Title, map[string]string{
			"department": campaign.Department,
			"budget":     campaign.Budget.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (s *campaignService) apply(ctx context.Context, campaign *model.Campaign, req CampaignRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return invalid("title is required")
	}
	budget, err := parseMoney(req.Budget, "budget")
	if err != nil {
		return err
	}
	spent, err := parseMoney(req.Spent, "spent")
	if err != nil {
		return err
	}
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return err
	}
	if err := checkRange(start, end); err != nil {
		return err
	}
	owner, err := parseOptionalID(req.OwnerID, "owner")
	if err != nil {
		return err
	}
	projectID, err := parseOptionalID(req.ProjectID, "project")
	if err != nil {
		return err
	}
	if projectID != nil {
		if _, err := s.projects.FindByID(ctx, *projectID); err != nil {
			if repository.IsNotFound(err) {
				return invalid("project does not exist")
			}
			return fmt.Errorf("failed to fetch project: %w", err)
		}
	}

	campaign.Department = req.Department
	campaign.Title = title
	campaign.Description = req.Description
	campaign.Channel = req.Channel
	if req.Status != "" {
		campaign.Status = req.Status
	}
	campaign.Budget = budget
	campaign.Spent = spent
	campaign.StartDate = start
	campaign.EndDate = end
	if owner != nil {
		campaign.OwnerID = owner
	}
	campaign.ProjectID = projectID
	return nil
}

// UpdateCampaign needs manage on the current department, and on the new one when it moves.
func (s *campaignService) UpdateCampaign(ctx context.Context, actor permission.Principal, id string, req CampaignRequest) (*model.Campaign, error) {
	campaign, err := s.load(ctx, actor, id, "manage")
	if err != nil {
		return nil, err
	}
	if !validDepartment(req.Department) {
		return nil, invalid("unknown department %q", req.Department)
	}
	if req.Department != campaign.Department && !actor.Can(departmentPermission(req.Department, "manage")) {
		return nil, ErrForbidden
	}
	if err := s.apply(ctx, campaign, req); err != nil {
		return nil, err
	}
	if err := s.save(ctx, actor, campaign, req); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *campaignService) save(ctx context.Context, actor permission.Principal, campaign *model.Campaign, details interface{}) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.campaigns.Update(txCtx, campaign); err != nil {
			return fmt.Errorf("failed to update campaign: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateCampaign, campaign.ID.String(), campaign.Title, details)
	})
}

func (s *campaignService) DeleteCampaign(ctx context.Context, actor permission.Principal, id string) error {
	campaign, err := s.load(ctx, actor, id, "manage")
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.campaigns.Delete(txCtx, campaign.ID); err != nil {
			return lookupErr(err, "campaign")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteCampaign, campaign.ID.String(), campaign.Title, nil)
	})
	if err != nil {
		return err
	}
	removeStored(ctx, s.store, campaign.Assets)
	return nil
}

func (s *campaignService) AddAsset(ctx context.Context, actor permission.Principal, id, fileName string, r io.Reader) (*model.Campaign, error) {
	campaign, err := s.load(ctx, actor, id, "manage")
	if err != nil {
		return nil, err
	}
	objectPath, url, err := uploadObject(ctx, s.store, "campaigns", campaign.ID, fileName, r)
	if err != nil {
		return nil, err
	}
	campaign.Assets = append(campaign.Assets, url)
	if err := s.save(ctx, actor, campaign, map[string]string{"asset_added": url}); err != nil {
		discard(ctx, s.store, objectPath)
		return nil, err
	}
	return campaign, nil
}
