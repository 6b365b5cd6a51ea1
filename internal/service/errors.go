package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"amarms/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrForbidden            = errors.New("access denied")
	ErrConflict             = repository.ErrVersionConflict
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountPending       = errors.New("account is awaiting approval")
	ErrAccountSuspended     = errors.New("account is suspended")
	ErrWeakPassword         = errors.New("password must be at least 8 characters and contain a letter and a digit")
	ErrEmailTaken           = errors.New("email already exists")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidToken         = errors.New("token is invalid or expired")
	ErrQuantityMismatch     = errors.New("available, in use and maintenance must be non-negative and add up to total")
	ErrConfirmationRequired = errors.New("confirmation required")
)

const dateLayout = "2006-01-02"

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// lookupErr turns a repository miss into ErrNotFound and wraps everything else.
func lookupErr(err error, what string) error {
	if repository.IsNotFound(err) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("invalid %s id", what)
	}
	return id, nil
}

func parseOptionalID(raw *string, what string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(*raw, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDate reads YYYY-MM-DD. The empty string yields nil.
func parseDate(raw, field string) (*datatypes.Date, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalid("%s must be YYYY-MM-DD", field)
	}
	d := datatypes.Date(t)
	return &d, nil
}

func formatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format(dateLayout)
	return &s
}

// checkRange rejects an end date before the start date. Open ranges pass.
func checkRange(start, end *datatypes.Date) error {
	if start != nil && end != nil && time.Time(*end).Before(time.Time(*start)) {
		return invalid("end date is before start date")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
