package guard

import (
	"strings"

	"amarms/internal/permission"
)

// Page is a routed dashboard page and the permission that opens it.
type Page struct {
	Path       string                `json:"path"`
	Title      string                `json:"title"`
	Permission permission.Permission `json:"permission"`
}

var pages = []Page{
	{"/dashboard", "Dashboard", permission.DashboardView},
	{"/projects", "Projects", permission.ProjectsView},
	{"/tasks", "Tasks", permission.TasksView},
	{"/team", "Team", permission.TeamView},
	{"/resources", "Resources", permission.ResourcesView},
	{"/reports", "Reports", permission.ReportsView},
	{"/marketing", "Marketing", permission.MarketingView},
	{"/pr", "Public Relations", permission.PRView},
	{"/graphics", "Graphics", permission.GraphicsView},
	{"/calendar", "Calendar", permission.CalendarView},
	{"/settings", "Settings", permission.SettingsView},
	{"/member-approvals", "Member Approvals", permission.AdminApproveMembers},
	{"/permissions", "Permissions", permission.AdminManagePermissions},
}

// Pages returns every routed page.
func Pages() []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}

// PageFor finds the page that owns path, matching sub-paths such as /projects/42.
func PageFor(path string) (Page, bool) {
	path = strings.TrimSuffix(path, "/")
	for _, p := range pages {
		if path == p.Path || strings.HasPrefix(path, p.Path+"/") {
			return p, true
		}
	}
	return Page{}, false
}

// Navigation lists the pages the principal may open, in menu order.
func Navigation(p permission.Principal) []Page {
	out := make([]Page, 0, len(pages))
	for _, page := range pages {
		if p.Can(page.Permission) {
			out = append(out, page)
		}
	}
	return out
}
