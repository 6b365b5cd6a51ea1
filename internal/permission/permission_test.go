package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownRolesHoldNothing(t *testing.T) {
	for _, role := range []Role{"", "root", "Admin", "superuser", "admin "} {
		assert.Empty(t, PermissionsForRole(role), "role %q", role)
		for _, d := range Catalog() {
			assert.False(t, HasPermission(role, d.Code), "role %q should not hold %s", role, d.Code)
		}
	}
}

func TestHasPermissionMatchesTable(t *testing.T) {
	for role, granted := range roleTable {
		listed := NewSet(granted...)
		for _, d := range Catalog() {
			assert.Equal(t, listed.Has(d.Code), HasPermission(role, d.Code), "%s / %s", role, d.Code)
		}
		assert.False(t, HasPermission(role, "projects.*"))
		assert.False(t, HasPermission(role, "projects"))
	}
}

func TestAdminHoldsWholeCatalog(t *testing.T) {
	perms := PermissionsForRole(RoleAdmin)
	require.Len(t, perms, len(Catalog()))
}

func TestTableOnlyUsesCatalogCodes(t *testing.T) {
	known := NewSet(allPermissions()...)
	for role, granted := range roleTable {
		for _, p := range granted {
			assert.True(t, known.Has(p), "%s grants uncatalogued %s", role, p)
		}
	}
	assert.Len(t, Roles(), len(roleTable))
}

func TestPermissionsForRoleReturnsCopy(t *testing.T) {
	perms := PermissionsForRole(RoleDeveloper)
	perms[AdminManagePermissions] = struct{}{}
	assert.False(t, HasPermission(RoleDeveloper, AdminManagePermissions))
	assert.False(t, PermissionsForRole(RoleDeveloper).Has(AdminManagePermissions))
}

func TestPrincipal(t *testing.T) {
	p := NewPrincipal("u-1", RoleLeader)
	assert.True(t, p.Can(TasksReview))
	assert.False(t, p.Can(ProjectsDelete))
	assert.Contains(t, p.Permissions(), string(TasksReview))

	var zero Principal
	assert.False(t, zero.Can(DashboardView))
	assert.Empty(t, zero.Permissions())
}

func TestPermissionDomain(t *testing.T) {
	assert.Equal(t, "admin", AdminApproveMembers.Domain())
	assert.Equal(t, "plain", Permission("plain").Domain())
}
