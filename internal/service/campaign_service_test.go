package service

import (
	"context"
	"strings"
	"testing"

	"amarms/internal/model"
	"amarms/internal/permission"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignFixture(campaigns ...model.Campaign) (*campaignService, *fakeCampaigns) {
	repo := newFakeCampaigns(campaigns...)
	svc := NewCampaignService(repo, newFakeProjects(), &fakeAudit{}, fakeTx{}, newFakeStore()).(*campaignService)
	return svc, repo
}

func as(role permission.Role) permission.Principal {
	return permission.NewPrincipal(uuid.NewString(), role)
}

func TestListCampaignsLimitsDepartments(t *testing.T) {
	svc, repo := newCampaignFixture(
		model.Campaign{ID: uuid.New(), Department: model.DepartmentMarketing, Title: "Spring push"},
		model.Campaign{ID: uuid.New(), Department: model.DepartmentPR, Title: "Press kit"},
		model.Campaign{ID: uuid.New(), Department: model.DepartmentGraphics, Title: "Brand refresh"},
	)

	got, _, err := svc.ListCampaigns(context.Background(), as(permission.RolePR), CampaignFilter{}, 1, 20)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.DepartmentMarketing, model.DepartmentPR}, repo.lastFilter.Departments)
	assert.Len(t, got, 2)

	got, _, err = svc.ListCampaigns(context.Background(), as(permission.RoleDeveloper), CampaignFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, _, err = svc.ListCampaigns(context.Background(), as(permission.RolePR), CampaignFilter{Department: model.DepartmentGraphics}, 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.ListCampaigns(context.Background(), as(permission.RoleAdmin), CampaignFilter{Department: "sales"}, 1, 20)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCampaignManageNeedsDepartmentPermission(t *testing.T) {
	pr := model.Campaign{ID: uuid.New(), Department: model.DepartmentPR, Title: "Press kit", Assets: []string{}}
	svc, repo := newCampaignFixture(pr)

	_, err := svc.CreateCampaign(context.Background(), as(permission.RoleMarketing), CampaignRequest{Department: model.DepartmentPR, Title: "Launch"})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.CreateCampaign(context.Background(), as(permission.RoleMarketing), CampaignRequest{
		Department: model.DepartmentMarketing,
		Title:      "Launch",
		Budget:     "2500",
		StartDate:  "2026-07-01",
		EndDate:    "2026-07-31",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusDraft, got.Status)
	assert.Equal(t, "2500.00", got.Budget.StringFixed(2))
	assert.NotNil(t, got.OwnerID)

	// marketing may view PR campaigns but not change them
	_, err = svc.GetCampaign(context.Background(), as(permission.RoleMarketing), pr.ID.String())
	assert.NoError(t, err)
	_, err = svc.UpdateCampaign(context.Background(), as(permission.RoleMarketing), pr.ID.String(), CampaignRequest{Department: model.DepartmentPR, Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.DeleteCampaign(context.Background(), as(permission.RoleMarketing), pr.ID.String()), ErrForbidden)

	// PR cannot move its campaign into graphics
	_, err = svc.UpdateCampaign(context.Background(), as(permission.RolePR), pr.ID.String(), CampaignRequest{Department: model.DepartmentGraphics, Title: "Press kit"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.DepartmentPR, repo.rows[pr.ID].Department)
}

func TestCampaignDatesValidated(t *testing.T) {
	svc, _ := newCampaignFixture()
	_, err := svc.CreateCampaign(context.Background(), as(permission.RoleGraphics), CampaignRequest{
		Department: model.DepartmentGraphics,
		Title:      "Posters",
		StartDate:  "2026-08-10",
		EndDate:    "2026-08-01",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCampaignAssets(t *testing.T) {
	c := model.Campaign{ID: uuid.New(), Department: model.DepartmentGraphics, Title: "Posters", Assets: []string{}}
	svc, repo := newCampaignFixture(c)

	got, err := svc.AddAsset(context.Background(), as(permission.RoleGraphics), c.ID.String(), "poster.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Len(t, got.Assets, 1)
	assert.Len(t, repo.rows[c.ID].Assets, 1)

	require.NoError(t, svc.DeleteCampaign(context.Background(), as(permission.RoleGraphics), c.ID.String()))
	assert.Empty(t, repo.rows)
	assert.Empty(t, svc.store.(*fakeStore).objects)
}
