package guard

import (
	"testing"

	"amarms/internal/permission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func principal(role permission.Role) *permission.Principal {
	p := permission.NewPrincipal("u-1", role)
	return &p
}

func TestDecideWhileLoading(t *testing.T) {
	d := Decide(Session{Loading: true}, "/reports", permission.ReportsView)
	assert.Equal(t, Decision{Outcome: Wait}, d)
}

func TestDecideUnauthenticated(t *testing.T) {
	d := Decide(Session{}, "/reports", permission.ReportsView)
	assert.Equal(t, RedirectLogin, d.Outcome)
	assert.Equal(t, "/login?from=%2Freports", d.Location)
	assert.Equal(t, "/reports", d.From)
	assert.True(t, d.ShowNotice)
}

func TestDecideAfterLogoutHidesNotice(t *testing.T) {
	d := Decide(Session{LoggedOut: true}, "/projects", "")
	assert.Equal(t, RedirectLogin, d.Outcome)
	assert.False(t, d.ShowNotice)
}

func TestDecideMissingPermission(t *testing.T) {
	d := Decide(Session{Principal: principal(permission.RoleClient)}, "/marketing", permission.MarketingView)
	assert.Equal(t, Decision{Outcome: RedirectUnauthorized, Location: UnauthorizedPath}, d)
}

func TestDecideRender(t *testing.T) {
	s := Session{Principal: principal(permission.RoleClient)}
	assert.Equal(t, Render, Decide(s, "/reports", permission.ReportsView).Outcome)
	assert.Equal(t, Render, Decide(s, "/anything", "").Outcome)
}

func TestDecideUnknownRoleFailsClosed(t *testing.T) {
	d := Decide(Session{Principal: principal("intern")}, "/dashboard", permission.DashboardView)
	assert.Equal(t, RedirectUnauthorized, d.Outcome)
}

func TestSafeReturnPath(t *testing.T) {
	cases := map[string]string{
		"":                      DefaultLanding,
		"/reports":              "/reports",
		"/projects/42?tab=spec": "/projects/42?tab=spec",
		"https://evil.example":  DefaultLanding,
		"//evil.example/x":      DefaultLanding,
		`/\evil.example`:        DefaultLanding,
		"reports":               DefaultLanding,
		"/login":                DefaultLanding,
		"/login?from=/x":        DefaultLanding,
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeReturnPath(in), "from=%q", in)
	}
}

func TestPageFor(t *testing.T) {
	p, ok := PageFor("/projects/123/board")
	require.True(t, ok)
	assert.Equal(t, permission.ProjectsView, p.Permission)

	p, ok = PageFor("/member-approvals/")
	require.True(t, ok)
	assert.Equal(t, permission.AdminApproveMembers, p.Permission)

	_, ok = PageFor("/projectsx")
	assert.False(t, ok)
}

func TestNavigation(t *testing.T) {
	nav := Navigation(permission.NewPrincipal("u", permission.RoleCommunityMember))
	paths := make([]string, 0, len(nav))
	for _, p := range nav {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"/dashboard", "/calendar", "/settings"}, paths)
	assert.Len(t, Navigation(permission.NewPrincipal("u", permission.RoleAdmin)), len(Pages()))
	assert.Empty(t, Navigation(permission.Principal{}))
}
