package service

import (
	"context"
	"testing"
	"time"

	"amarms/internal/model"
	"amarms/internal/permission"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveAndSuspendMember(t *testing.T) {
	pending := model.User{ID: uuid.New(), Username: "newbie", Role: string(permission.RoleCommunityMember), Status: model.UserStatusPending}
	admin := model.User{ID: uuid.New(), Username: "root", Role: string(permission.RoleAdmin), Status: model.UserStatusActive}
	users := newFakeUsers(pending, admin)
	tokens := newFakeTokens()
	audit := &fakeAudit{}
	svc := NewMemberService(users, tokens, audit, fakeTx{})
	actor := permission.NewPrincipal(admin.ID.String(), permission.RoleAdmin)
	ctx := context.Background()

	list, total, err := svc.ListPending(ctx, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, pending.ID, list[0].ID)

	got, err := svc.ApproveMember(ctx, actor, pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, got.Status)

	require.NoError(t, tokens.CreateRefresh(ctx, &model.RefreshToken{UserID: pending.ID, Token: "t1", ExpiresAt: time.Now().Add(time.Hour)}))
	got, err = svc.SuspendMember(ctx, actor, pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusSuspended, got.Status)
	assert.Zero(t, tokens.active(pending.ID))

	_, err = svc.SuspendMember(ctx, actor, admin.ID.String())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, []string{model.ActionApproveMember, model.ActionSuspendMember}, audit.actions())
}

func TestChangeRole(t *testing.T) {
	dev := model.User{ID: uuid.New(), Username: "dev", Role: string(permission.RoleDeveloper), Status: model.UserStatusActive}
	admin := model.User{ID: uuid.New(), Username: "root", Role: string(permission.RoleAdmin), Status: model.UserStatusActive}
	users := newFakeUsers(dev, admin)
	svc := NewMemberService(users, newFakeTokens(), &fakeAudit{}, fakeTx{})
	actor := permission.NewPrincipal(admin.ID.String(), permission.RoleAdmin)
	ctx := context.Background()

	_, err := svc.ChangeRole(ctx, actor, dev.ID.String(), "intern")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.ChangeRole(ctx, actor, admin.ID.String(), string(permission.RoleDeveloper))
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.ChangeRole(ctx, actor, dev.ID.String(), string(permission.RoleLeader))
	require.NoError(t, err)
	assert.Equal(t, string(permission.RoleLeader), got.Role)
	assert.Equal(t, string(permission.RoleLeader), users.rows[dev.ID].Role)
}

func TestUpdateMemberSelfOrManager(t *testing.T) {
	dev := model.User{ID: uuid.New(), Username: "dev", Role: string(permission.RoleDeveloper), Status: model.UserStatusActive}
	peer := model.User{ID: uuid.New(), Username: "peer", Role: string(permission.RoleDeveloper), Status: model.UserStatusActive}
	users := newFakeUsers(dev, peer)
	svc := NewMemberService(users, newFakeTokens(), &fakeAudit{}, fakeTx{})
	ctx := context.Background()
	position := " Backend "

	self := permission.NewPrincipal(dev.ID.String(), permission.RoleDeveloper)
	got, err := svc.UpdateMember(ctx, self, dev.ID.String(), UpdateMemberRequest{Position: &position, Skills: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, "Backend", got.Position)
	assert.Equal(t, []string{"go"}, got.Skills)

	_, err = svc.UpdateMember(ctx, self, peer.ID.String(), UpdateMemberRequest{Position: &position})
	assert.ErrorIs(t, err, ErrForbidden)

	hod := permission.NewPrincipal(uuid.NewString(), permission.RoleHOD)
	_, err = svc.UpdateMember(ctx, hod, peer.ID.String(), UpdateMemberRequest{Position: &position})
	assert.NoError(t, err)
}
