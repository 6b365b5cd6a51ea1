package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account lifecycle states. New sign-ups wait in pending until a member approval.
const (
	UserStatusPending   = "pending"
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// User is both the login account and the team member record
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username      string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email         string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone         string         `gorm:"type:varchar(20)" json:"phone"`
	Password      string         `gorm:"type:varchar(255);not null" json:"-"`
	Role          string         `gorm:"type:varchar(50);not null;index" json:"role"`
	Status        string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	EmailVerified bool           `gorm:"default:false" json:"email_verified"`
	FullName      string         `gorm:"type:varchar(255)" json:"full_name"`
	Department    string         `gorm:"type:varchar(100)" json:"department"`
	Position      string         `gorm:"type:varchar(100)" json:"position"`
	Skills        []string       `gorm:"serializer:json;type:jsonb" json:"skills"`
	AvatarURL     string         `gorm:"type:text" json:"avatar_url"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName prefers the full name over the login handle
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Snapshot copies the fields a task keeps about its assignees
func (u User) Snapshot() MemberSnapshot {
	return MemberSnapshot{
		ID:        u.ID.String(),
		Name:      u.DisplayName(),
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

const (
	TokenKindPasswordReset     = "password_reset"
	TokenKindEmailVerification = "email_verification"
)

// AccountToken is a single-use token mailed to the user (password reset, email verification)
type AccountToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      string     `gorm:"type:varchar(30);not null;index" json:"kind"`
	Token     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
