package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"

	"github.com/google/uuid"
)

type UpdateMemberRequest struct {
	FullName   *string  `json:"full_name"`
	Phone      *string  `json:"phone"`
	Department *string  `json:"department"`
	Position   *string  `json:"position"`
	Skills     []string `json:"skills"`
	AvatarURL  *string  `json:"avatar_url"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UserResponse is a member record without credentials
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	FullName      string    `json:"full_name"`
	Department    string    `json:"department"`
	Position      string    `json:"position"`
	Skills        []string  `json:"skills"`
	AvatarURL     string    `json:"avatar_url"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

// MemberService covers the team directory and member approvals
type MemberService interface {
	ListMembers(ctx context.Context, filter repository.UserFilter, page, limit int) ([]UserResponse, int64, error)
	GetMember(ctx context.Context, id string) (*UserResponse, error)
	UpdateMember(ctx context.Context, actor permission.Principal, id string, req UpdateMemberRequest) (*UserResponse, error)
	ListPending(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	ApproveMember(ctx context.Context, actor permission.Principal, id string) (*UserResponse, error)
	SuspendMember(ctx context.Context, actor permission.Principal, id string) (*UserResponse, error)
	ChangeRole(ctx context.Context, actor permission.Principal, id string, role string) (*UserResponse, error)
}

type memberService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	now       func() time.Time
}

func NewMemberService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) MemberService {
	return &memberService{
		users:     users,
		tokens:    tokens,
		auditRepo: auditRepo,
		txManager: txManager,
		now:       time.Now,
	}
}

func mapToResponse(user *model.User) *UserResponse {
	skills := user.Skills
	if skills == nil {
		skills = []string{}
	}
	return &UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Phone:         user.Phone,
		Role:          user.Role,
		Status:        user.Status,
		EmailVerified: user.EmailVerified,
		FullName:      user.FullName,
		Department:    user.Department,
		Position:      user.Position,
		Skills:        skills,
		AvatarURL:     user.AvatarURL,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     user.UpdatedAt.Format(time.RFC3339),
	}
}

func mapUsers(users []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *mapToResponse(&users[i]))
	}
	return out
}

func (s *memberService) ListMembers(ctx context.Context, filter repository.UserFilter, page, limit int) ([]UserResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.users.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	return mapUsers(users), total, nil
}

func (s *memberService) GetMember(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *memberService) load(ctx context.Context, id string) (*model.User, error) {
	userID, err := parseID(id, "member")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "member")
	}
	return user, nil
}

// UpdateMember edits profile fields. Members edit themselves; anyone else needs team.manage.
func (s *memberService) UpdateMember(ctx context.Context, actor permission.Principal, id string, req UpdateMemberRequest) (*UserResponse, error) {
	if actor.UserID != id && !actor.Can(permission.TeamManage) {
		return nil, ErrForbidden
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProfile(user, req)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update member: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateMember, user.ID.String(), user.Username, req)
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func applyProfile(user *model.User, req UpdateMemberRequest) {
	if req.FullName != nil {
		user.FullName = trimmed(req.FullName)
	}
	if req.Phone != nil {
		user.Phone = trimmed(req.Phone)
	}
	if req.Department != nil {
		user.Department = trimmed(req.Department)
	}
	if req.Position != nil {
		user.Position = trimmed(req.Position)
	}
	if req.Skills != nil {
		skills := make([]string, 0, len(req.Skills))
		for _, sk := range req.Skills {
			if sk = strings.TrimSpace(sk); sk != "" {
				skills = append(skills, sk)
			}
		}
		user.Skills = skills
	}
	if req.AvatarURL != nil {
		user.AvatarURL = trimmed(req.AvatarURL)
	}
}

func (s *memberService) ListPending(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	return s.ListMembers(ctx, repository.UserFilter{Status: model.UserStatusPending}, page, limit)
}

func (s *memberService) ApproveMember(ctx context.Context, actor permission.Principal, id string) (*UserResponse, error) {
	return s.setStatus(ctx, actor, id, model.UserStatusActive, model.ActionApproveMember)
}

// SuspendMember blocks sign-in and revokes the member's refresh tokens.
func (s *memberService) SuspendMember(ctx context.Context, actor permission.Principal, id string) (*UserResponse, error) {
	if actor.UserID == id {
		return nil, invalid("you cannot suspend your own account")
	}
	return s.setStatus(ctx, actor, id, model.UserStatusSuspended, model.ActionSuspendMember)
}

func (s *memberService) setStatus(ctx context.Context, actor permission.Principal, id, status, action string) (*UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := user.Status
	user.Status = status

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update member status: %w", err)
		}
		if status == model.UserStatusSuspended {
			if err := s.tokens.RevokeAllForUser(txCtx, user.ID, s.now()); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, action, user.ID.String(), user.Username, map[string]string{
			"from": previous,
			"to":   status,
		})
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

// ChangeRole assigns one of the known roles. Unknown roles are refused rather than stored,
// since they would resolve to no permissions at all.
func (s *memberService) ChangeRole(ctx context.Context, actor permission.Principal, id string, role string) (*UserResponse, error) {
	if !permission.IsKnownRole(permission.Role(role)) {
		return nil, invalid("unknown role %q", role)
	}
	if actor.UserID == id {
		return nil, invalid("you cannot change your own role")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := user.Role
	user.Role = role

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionChangeRole, user.ID.String(), user.Username, map[string]string{
			"from": previous,
			"to":   role,
		})
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}
