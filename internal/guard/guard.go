// Package guard decides whether a session may open a page. The HTTP middleware and the
// page-check endpoint both go through Decide.
package guard

import (
	"net/url"
	"strings"

	"amarms/internal/permission"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	DefaultLanding   = "/dashboard"
)

// Outcome is what the caller should do with the request.
type Outcome string

const (
	Wait                 Outcome = "wait"
	RedirectLogin        Outcome = "redirect_login"
	RedirectUnauthorized Outcome = "redirect_unauthorized"
	Render               Outcome = "render"
)

// Session is the caller's auth state. Principal is nil when nobody is signed in.
// LoggedOut is set when the session ended through an explicit logout.
type Session struct {
	Principal *permission.Principal
	Loading   bool
	LoggedOut bool
}

// Decision carries the outcome and, for redirects, where to go.
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	Location   string  `json:"location,omitempty"`
	From       string  `json:"from,omitempty"`
	ShowNotice bool    `json:"show_notice"`
}

// Decide gates path behind authentication and, when required is non-empty, one permission.
func Decide(s Session, path string, required permission.Permission) Decision {
	switch {
	case s.Loading:
		return Decision{Outcome: Wait}
	case s.Principal == nil:
		return Decision{
			Outcome:    RedirectLogin,
			Location:   LoginPath + "?from=" + url.QueryEscape(path),
			From:       path,
			ShowNotice: !s.LoggedOut,
		}
	case required != "" && !s.Principal.Can(required):
		return Decision{Outcome: RedirectUnauthorized, Location: UnauthorizedPath}
	default:
		return Decision{Outcome: Render}
	}
}

// SafeReturnPath returns from when it is a local absolute path, otherwise the default
// landing page. It keeps post-login navigation on this site.
func SafeReturnPath(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return DefaultLanding
	}
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultLanding
	}
	if from == LoginPath || strings.HasPrefix(from, LoginPath+"?") {
		return DefaultLanding
	}
	return from
}
