package middleware

import (
	"net/http"
	"strings"
	"time"

	"amarms/internal/guard"
	"amarms/internal/permission"
	"amarms/internal/token"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

// Cookie and context keys shared with the handlers.
const (
	AccessCookie    = "access_token"
	RefreshCookie   = "refresh_token"
	LoggedOutCookie = "logged_out"

	principalKey = "principal"
	userIDKey    = "userID"
	userRoleKey  = "userRole"
)

// Auth resolves the caller's principal from an access token and gates routes on it.
type Auth struct {
	tokens     *token.Manager
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuth builds the middleware. secure marks cookies Secure with SameSite=None for
// cross-origin production deployments.
func NewAuth(tokens *token.Manager, secure bool, accessTTL, refreshTTL time.Duration) *Auth {
	return &Auth{tokens: tokens, secure: secure, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// bearer reads the access token from the cookie first and the Authorization header second.
func bearer(c *gin.Context) string {
	if tok, err := c.Cookie(AccessCookie); err == nil && tok != "" {
		return tok
	}
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// Authenticate attaches the principal when a valid token is present. It never aborts;
// an absent or invalid token leaves the request anonymous.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearer(c); raw != "" {
			if claims, err := a.tokens.Parse(raw); err == nil {
				p := permission.NewPrincipal(claims.Subject, permission.Role(claims.Role))
				c.Set(principalKey, p)
				c.Set(userIDKey, p.UserID)
				c.Set(userRoleKey, string(p.Role))
			}
		}
		c.Next()
	}
}

// Session reports the request's auth state in the form the guard expects.
func Session(c *gin.Context) guard.Session {
	s := guard.Session{}
	if p, ok := PrincipalFrom(c); ok {
		s.Principal = &p
	}
	if v, err := c.Cookie(LoggedOutCookie); err == nil && v == "1" {
		s.LoggedOut = true
	}
	return s
}

// PrincipalFrom returns the principal set by Authenticate.
func PrincipalFrom(c *gin.Context) (permission.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return permission.Principal{}, false
	}
	p, ok := v.(permission.Principal)
	return p, ok
}

// Require lets the request through only when the caller is signed in and, if perm is
// not empty, holds perm. Refusals carry the page the client should open instead.
func (a *Auth) Require(perm permission.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := guard.Decide(Session(c), c.Request.URL.Path, perm)
		switch d.Outcome {
		case guard.RedirectLogin:
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Redirect(http.StatusUnauthorized, "Authentication required", d.Location))
		case guard.RedirectUnauthorized:
			c.AbortWithStatusJSON(http.StatusForbidden, response.Redirect(http.StatusForbidden, "Access denied: missing permission '"+string(perm)+"'", d.Location))
		default:
			c.Next()
		}
	}
}

func (a *Auth) sameSite() http.SameSite {
	if a.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies and clears the
// logout marker.
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(AccessCookie, accessToken, int(a.accessTTL.Seconds()), "/", "", a.secure, true)
	c.SetCookie(RefreshCookie, refreshToken, int(a.refreshTTL.Seconds()), "/", "", a.secure, true)
	c.SetCookie(LoggedOutCookie, "", -1, "/", "", a.secure, true)
}

// ClearTokenCookies removes both token cookies and marks the session as explicitly
// ended so the next guarded page skips the "please sign in" notice.
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(AccessCookie, "", -1, "/", "", a.secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", a.secure, true)
	c.SetCookie(LoggedOutCookie, "1", int(a.refreshTTL.Seconds()), "/", "", a.secure, true)
}
