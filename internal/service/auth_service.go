package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"amarms/internal/guard"
	"amarms/internal/logging"
	"amarms/internal/mailer"
	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"
	"amarms/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenTTL        = time.Hour
	verificationTokenTTL = 48 * time.Hour
)

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	// From is the page the guard bounced the user from.
	From string `json:"from"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
	Permissions  []string     `json:"permissions"`
	RedirectTo   string       `json:"redirect_to,omitempty"`
}

type MeResponse struct {
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
	Navigation  []guard.Page `json:"navigation"`
}

type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	VerifyEmail(ctx context.Context, tok string) error
	Me(ctx context.Context, actor permission.Principal) (*MeResponse, error)
	UpdateSettings(ctx context.Context, actor permission.Principal, req UpdateMemberRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, actor permission.Principal, req ChangePasswordRequest) error
	SeedAdmin(ctx context.Context, username, email, password string) (*UserResponse, error)
}

type authService struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	issuer     *token.Manager
	mail       mailer.Mailer
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	issuer *token.Manager,
	mail mailer.Mailer,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		users:      users,
		tokens:     tokens,
		auditRepo:  auditRepo,
		txManager:  txManager,
		issuer:     issuer,
		mail:       mail,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Signup creates a pending community member and mails a verification token.
// The account cannot sign in until an admin approves it.
func (s *authService) Signup(ctx context.Context, req SignupRequest) (*UserResponse, error) {
	user, err := s.createUser(ctx, req, permission.RoleCommunityMember, model.UserStatusPending)
	if err != nil {
		return nil, err
	}

	verification, err := s.newAccountToken(ctx, user, model.TokenKindEmailVerification, verificationTokenTTL)
	if err != nil {
		logging.Logger.WithError(err).WithField("user_id", user.ID).Error("failed to create verification token")
	} else {
		s.send(ctx, mailer.Message{
			To:      user.Email,
			Subject: "Verify your email",
			Body:    "Use this token to verify your email address: " + verification,
		})
	}
	return mapToResponse(user), nil
}

func (s *authService) createUser(ctx context.Context, req SignupRequest, role permission.Role, status string) (*model.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		FullName: req.FullName,
		Password: string(hashed),
		Role:     string(role),
		Status:   status,
		Skills:   []string{},
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		self := permission.NewPrincipal(user.ID.String(), role)
		return writeAudit(txCtx, s.auditRepo, self, model.ActionSignUp, user.ID.String(), user.Username, map[string]string{
			"role":   user.Role,
			"status": user.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials before account state so a wrong password never reveals
// whether an account is pending or suspended.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := checkStatus(user); err != nil {
		return nil, err
	}

	res, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	res.RedirectTo = guard.SafeReturnPath(req.From)
	return res, nil
}

func checkStatus(user *model.User) error {
	switch user.Status {
	case model.UserStatusActive:
		return nil
	case model.UserStatusSuspended:
		return ErrAccountSuspended
	default:
		return ErrAccountPending
	}
}

func (s *authService) issue(ctx context.Context, user *model.User) (*AuthResponse, error) {
	access, expires, err := s.issuer.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := token.Opaque()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.CreateRefresh(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expires,
		User:         *mapToResponse(user),
		Permissions:  permission.NewPrincipal(user.ID.String(), permission.Role(user.Role)).Permissions(),
	}, nil
}

// Refresh rotates the refresh token. Presenting a revoked token revokes every session of
// its owner.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	stored, err := s.tokens.FindRefresh(ctx, refreshToken)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to fetch refresh token: %w", err)
	}
	now := s.now()
	if stored.RevokedAt != nil {
		s.revokeAfterReuse(ctx, stored.UserID, now)
		return nil, ErrInvalidToken
	}
	if now.After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if err := checkStatus(user); err != nil {
		return nil, err
	}

	var res *AuthResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tokens.RevokeRefresh(txCtx, stored.ID, now); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrInvalidToken
			}
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		issued, err := s.issue(txCtx, user)
		res = issued
		return err
	})
	if err != nil {
		// Another request rotated the same token first.
		if errors.Is(err, ErrInvalidToken) {
			s.revokeAfterReuse(ctx, stored.UserID, now)
		}
		return nil, err
	}
	return res, nil
}

func (s *authService) revokeAfterReuse(ctx context.Context, userID uuid.UUID, now time.Time) {
	if err := s.tokens.RevokeAllForUser(ctx, userID, now); err != nil {
		logging.Logger.WithError(err).WithField("user_id", userID).Error("failed to revoke sessions after token reuse")
	}
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	stored, err := s.tokens.FindRefresh(ctx, refreshToken)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to fetch refresh token: %w", err)
	}
	if err := s.tokens.RevokeRefresh(ctx, stored.ID, s.now()); err != nil && !errors.Is(err, repository.ErrVersionConflict) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// ForgotPassword mails a reset token. It succeeds for unknown emails too.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to fetch user: %w", err)
	}
	reset, err := s.newAccountToken(ctx, user, model.TokenKindPasswordReset, resetTokenTTL)
	if err != nil {
		return err
	}
	s.send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body:    "Use this token to choose a new password: " + reset,
	})
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validatePassword(req.Password); err != nil {
		return err
	}
	stored, err := s.useAccountToken(ctx, model.TokenKindPasswordReset, req.Token)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return lookupErr(err, "user")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)

	now := s.now()
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tokens.MarkAccountTokenUsed(txCtx, stored.ID, now); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrInvalidToken
			}
			return fmt.Errorf("failed to consume token: %w", err)
		}
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return s.tokens.RevokeAllForUser(txCtx, user.ID, now)
	})
}

func (s *authService) VerifyEmail(ctx context.Context, tok string) error {
	stored, err := s.useAccountToken(ctx, model.TokenKindEmailVerification, tok)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return lookupErr(err, "user")
	}
	user.EmailVerified = true

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tokens.MarkAccountTokenUsed(txCtx, stored.ID, s.now()); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrInvalidToken
			}
			return fmt.Errorf("failed to consume token: %w", err)
		}
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
}

func (s *authService) useAccountToken(ctx context.Context, kind, raw string) (*model.AccountToken, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	stored, err := s.tokens.FindAccountToken(ctx, kind, raw)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to fetch token: %w", err)
	}
	if stored.UsedAt != nil || s.now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	return stored, nil
}

func (s *authService) newAccountToken(ctx context.Context, user *model.User, kind string, ttl time.Duration) (string, error) {
	raw, err := token.Opaque()
	if err != nil {
		return "", err
	}
	if err := s.tokens.CreateAccountToken(ctx, &model.AccountToken{
		UserID:    user.ID,
		Kind:      kind,
		Token:     raw,
		ExpiresAt: s.now().Add(ttl),
	}); err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", kind, err)
	}
	return raw, nil
}

// send logs delivery failures; the account change has already happened.
func (s *authService) send(ctx context.Context, msg mailer.Message) {
	if err := s.mail.Send(ctx, msg); err != nil {
		logging.Logger.WithError(err).WithField("to", msg.To).Error("failed to send email")
	}
}

func (s *authService) Me(ctx context.Context, actor permission.Principal) (*MeResponse, error) {
	userID, err := parseID(actor.UserID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "user")
	}
	return &MeResponse{
		User:        *mapToResponse(user),
		Permissions: actor.Permissions(),
		Navigation:  guard.Navigation(actor),
	}, nil
}

// UpdateSettings lets a member edit their own profile.
func (s *authService) UpdateSettings(ctx context.Context, actor permission.Principal, req UpdateMemberRequest) (*UserResponse, error) {
	userID, err := parseID(actor.UserID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "user")
	}
	applyProfile(user, req)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return mapToResponse(user), nil
}

func (s *authService) ChangePassword(ctx context.Context, actor permission.Principal, req ChangePasswordRequest) error {
	userID, err := parseID(actor.UserID, "user")
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return lookupErr(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SeedAdmin creates an active, verified admin. Used by the seed-admin command.
func (s *authService) SeedAdmin(ctx context.Context, username, email, password string) (*UserResponse, error) {
	user, err := s.createUser(ctx, SignupRequest{Username: username, Email: email, Password: password}, permission.RoleAdmin, model.UserStatusActive)
	if err != nil {
		return nil, err
	}
	user.EmailVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to verify admin: %w", err)
	}
	return mapToResponse(user), nil
}
