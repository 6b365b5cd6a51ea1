package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"amarms/internal/middleware"
	"amarms/internal/permission"
	"amarms/internal/service"
	"amarms/internal/token"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type testServer struct {
	router *gin.Engine
	tokens *token.Manager
	auth   *middleware.Auth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := token.NewManager("handler-test-secret", time.Hour)
	auth := middleware.NewAuth(tokens, false, time.Hour, 24*time.Hour)
	r := gin.New()
	r.Use(auth.Authenticate())
	return &testServer{router: r, tokens: tokens, auth: auth}
}

func (s *testServer) mount(h registrar) {
	h.RegisterRoutes(s.router.Group("/api"))
}

// do sends the request, signed as role unless role is empty.
func (s *testServer) do(t *testing.T, role permission.Role, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		access, _, err := s.tokens.Issue("user-"+string(role), string(role))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+access)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var res response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("task %w", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: title is required", service.ErrValidation), http.StatusBadRequest},
		{service.ErrWeakPassword, http.StatusBadRequest},
		{service.ErrConfirmationRequired, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrAccountPending, http.StatusForbidden},
		{service.ErrAccountSuspended, http.StatusForbidden},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrUsernameTaken, http.StatusConflict},
		{service.ErrQuantityMismatch, http.StatusUnprocessableEntity},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/tasks/1", nil)

	respondError(c, fmt.Errorf("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w).Error)
}

func TestCheckPageAnonymousGoesToLogin(t *testing.T) {
	s := newTestServer(t)
	s.mount(NewPermissionHandler(s.auth))

	w := s.do(t, "", http.MethodGet, "/api/pages/check?path=/reports", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	res := decode(t, w)
	assert.Equal(t, "/login?from=%2Freports", res.Redirect)
	assert.Equal(t, "Please sign in to continue", res.Error)
}

func TestCheckPageAfterLogoutSkipsNotice(t *testing.T) {
	s := newTestServer(t)
	s.mount(NewPermissionHandler(s.auth))

	req := httptest.NewRequest(http.MethodGet, "/api/pages/check?path=/projects/42", nil)
	req.AddCookie(&http.Cookie{Name: middleware.LoggedOutCookie, Value: "1"})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	res := decode(t, w)
	assert.Equal(t, "/login?from=%2Fprojects%2F42", res.Redirect)
	assert.Equal(t, "Signed out", res.Error)
}

func TestCheckPageWithoutPermission(t *testing.T) {
	s := newTestServer(t)
	s.mount(NewPermissionHandler(s.auth))

	w := s.do(t, permission.RoleCommunityMember, http.MethodGet, "/api/pages/check?path=/reports", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/unauthorized", decode(t, w).Redirect)
}

func TestCheckPageRenders(t *testing.T) {
	s := newTestServer(t)
	s.mount(NewPermissionHandler(s.auth))

	w := s.do(t, permission.RoleClient, http.MethodGet, "/api/pages/check?path=/reports", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"render"`)

	// unlisted pages only need a session
	w = s.do(t, permission.RoleCommunityMember, http.MethodGet, "/api/pages/check?path=/help", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, permission.RoleClient, http.MethodGet, "/api/pages/check?path=reports", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNavigationFollowsRole(t *testing.T) {
	s := newTestServer(t)
	s.mount(NewPermissionHandler(s.auth))

	w := s.do(t, permission.RoleCommunityMember, http.MethodGet, "/api/navigation", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []struct {
			Path string `json:"path"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	paths := make([]string, 0, len(body.Data))
	for _, p := range body.Data {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"/dashboard", "/calendar", "/settings"}, paths)
}

func TestPermissionMatrixIsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	s.mount(NewPermissionHandler(s.auth))

	w := s.do(t, permission.RoleSupervisor, http.MethodGet, "/api/permissions/matrix", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, permission.RoleAdmin, http.MethodGet, "/api/permissions/matrix", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tasks.clearTrash"`)
}

func TestParseCalendarDate(t *testing.T) {
	d, err := parseCalendarDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = parseCalendarDate("2026-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = parseCalendarDate("01/03/2026")
	assert.Error(t, err)
}

func jsonBody(v string) io.Reader {
	return strings.NewReader(v)
}
