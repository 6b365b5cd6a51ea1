package permission

const (
	RoleAdmin           Role = "admin"
	RoleSupervisor      Role = "supervisor"
	RoleHOD             Role = "hod"
	RoleLeader          Role = "leader"
	RoleDeveloper       Role = "developer"
	RoleResourceManager Role = "resource_manager"
	RolePR              Role = "pr"
	RoleMarketing       Role = "marketing"
	RoleGraphics        Role = "graphics"
	RoleProjectMember   Role = "project_member"
	RoleCommunityMember Role = "community_member"
	RoleClient          Role = "client"
)

const (
	DashboardView Permission = "dashboard.view"

	ProjectsView   Permission = "projects.view"
	ProjectsCreate Permission = "projects.create"
	ProjectsEdit   Permission = "projects.edit"
	ProjectsDelete Permission = "projects.delete"

	TasksView       Permission = "tasks.view"
	TasksCreate     Permission = "tasks.create"
	TasksEdit       Permission = "tasks.edit"
	TasksMove       Permission = "tasks.move"
	TasksReview     Permission = "tasks.review"
	TasksClearTrash Permission = "tasks.clearTrash"

	MilestonesView   Permission = "milestones.view"
	MilestonesManage Permission = "milestones.manage"

	ResourcesView   Permission = "resources.view"
	ResourcesManage Permission = "resources.manage"

	TeamView   Permission = "team.view"
	TeamManage Permission = "team.manage"

	ReportsView Permission = "reports.view"

	MarketingView   Permission = "marketing.view"
	MarketingManage Permission = "marketing.manage"
	PRView          Permission = "pr.view"
	PRManage        Permission = "pr.manage"
	GraphicsView    Permission = "graphics.view"
	GraphicsManage  Permission = "graphics.manage"

	CalendarView Permission = "calendar.view"
	SettingsView Permission = "settings.view"

	CommentsCreate Permission = "comments.create"
	CommentsDelete Permission = "comments.delete"

	AdminApproveMembers    Permission = "admin.approveMembers"
	AdminManagePermissions Permission = "admin.managePermissions"
	AdminViewAudit         Permission = "admin.viewAudit"
)

// Definition describes a permission for the permissions page.
type Definition struct {
	Code  Permission `json:"code"`
	Name  string     `json:"name"`
	Group string     `json:"group"`
}

var catalog = []Definition{
	{DashboardView, "View dashboard", "dashboard"},
	{ProjectsView, "View projects", "projects"},
	{ProjectsCreate, "Create projects", "projects"},
	{ProjectsEdit, "Edit projects", "projects"},
	{ProjectsDelete, "Delete projects", "projects"},
	{TasksView, "View task board", "tasks"},
	{TasksCreate, "Create tasks", "tasks"},
	{TasksEdit, "Edit tasks", "tasks"},
	{TasksMove, "Move tasks between columns", "tasks"},
	{TasksReview, "Approve or reject reviews", "tasks"},
	{TasksClearTrash, "Permanently clear trash", "tasks"},
	{MilestonesView, "View milestones", "milestones"},
	{MilestonesManage, "Manage milestones", "milestones"},
	{ResourcesView, "View resources", "resources"},
	{ResourcesManage, "Manage resources", "resources"},
	{TeamView, "View team", "team"},
	{TeamManage, "Manage team records", "team"},
	{ReportsView, "View reports", "reports"},
	{MarketingView, "View marketing campaigns", "marketing"},
	{MarketingManage, "Manage marketing campaigns", "marketing"},
	{PRView, "View PR campaigns", "pr"},
	{PRManage, "Manage PR campaigns", "pr"},
	{GraphicsView, "View graphics requests", "graphics"},
	{GraphicsManage, "Manage graphics requests", "graphics"},
	{CalendarView, "View calendar", "calendar"},
	{SettingsView, "View settings", "settings"},
	{CommentsCreate, "Post comments", "comments"},
	{CommentsDelete, "Delete any comment", "comments"},
	{AdminApproveMembers, "Approve new members", "admin"},
	{AdminManagePermissions, "Manage roles and permissions", "admin"},
	{AdminViewAudit, "View audit history", "admin"},
}

var roleOrder = []Role{
	RoleAdmin, RoleSupervisor, RoleHOD, RoleLeader, RoleDeveloper, RoleResourceManager,
	RolePR, RoleMarketing, RoleGraphics, RoleProjectMember, RoleCommunityMember, RoleClient,
}

var roleTable = map[Role][]Permission{
	RoleAdmin: allPermissions(),
	RoleSupervisor: {
		DashboardView,
		ProjectsView, ProjectsCreate, ProjectsEdit, ProjectsDelete,
		TasksView, TasksCreate, TasksEdit, TasksMove, TasksReview, TasksClearTrash,
		MilestonesView, MilestonesManage,
		ResourcesView, ResourcesManage,
		TeamView, TeamManage,
		ReportsView,
		MarketingView, PRView, GraphicsView,
		CalendarView, SettingsView,
		CommentsCreate, CommentsDelete,
		AdminApproveMembers, AdminViewAudit,
	},
	RoleHOD: {
		DashboardView,
		ProjectsView, ProjectsCreate, ProjectsEdit,
		TasksView, TasksCreate, TasksEdit, TasksMove, TasksReview, TasksClearTrash,
		MilestonesView, MilestonesManage,
		ResourcesView,
		TeamView, TeamManage,
		ReportsView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RoleLeader: {
		DashboardView,
		ProjectsView, ProjectsEdit,
		TasksView, TasksCreate, TasksEdit, TasksMove, TasksReview, TasksClearTrash,
		MilestonesView, MilestonesManage,
		ResourcesView,
		TeamView,
		ReportsView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RoleDeveloper: {
		DashboardView,
		ProjectsView,
		TasksView, TasksCreate, TasksEdit, TasksMove,
		MilestonesView,
		ResourcesView,
		TeamView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RoleResourceManager: {
		DashboardView,
		ProjectsView,
		ResourcesView, ResourcesManage,
		ReportsView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RolePR: {
		DashboardView,
		PRView, PRManage, MarketingView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RoleMarketing: {
		DashboardView,
		MarketingView, MarketingManage, PRView, GraphicsView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RoleGraphics: {
		DashboardView,
		GraphicsView, GraphicsManage, MarketingView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RoleProjectMember: {
		DashboardView,
		ProjectsView,
		TasksView, TasksMove,
		MilestonesView,
		CalendarView, SettingsView,
		CommentsCreate,
	},
	RoleCommunityMember: {
		DashboardView,
		CalendarView, SettingsView,
	},
	RoleClient: {
		ProjectsView,
		MilestonesView,
		ReportsView,
		SettingsView,
	},
}

func allPermissions() []Permission {
	out := make([]Permission, 0, len(catalog))
	for _, d := range catalog {
		out = append(out, d.Code)
	}
	return out
}

// Matrix returns role -> sorted permission codes for every known role.
func Matrix() map[Role][]string {
	out := make(map[Role][]string, len(roleTable))
	for role := range roleTable {
		out[role] = PermissionsForRole(role).Sorted()
	}
	return out
}
