package rbac

// roleDefaults holds the most a company role can reach on a plan that
// enables everything. Every entry embeds basePermissions.
var roleDefaults = map[Role]PermissionSet{
	RoleAdminEmpresa: withBase(allFeaturePermissions()),
	RoleManager: withBase(NewPermissionSet(
		"inventory.view", "inventory.create", "inventory.edit", "inventory.transfer",
		"products.view", "products.create", "products.edit",
		"categories.view", "categories.create", "categories.edit",
		"warehouses.view", "warehouses.edit",
		"accounting.view",
		"hrm.view",
		"crm.view", "crm.create", "crm.edit",
		"projects.view", "projects.create", "projects.edit",
		"reports.view", "reports.export",
		"analytics.view",
		"integrations.view",
	)),
	RoleEmployee: withBase(NewPermissionSet(
		"inventory.view", "inventory.create", "inventory.edit",
		"products.view",
		"categories.view",
		"warehouses.view",
		"crm.view", "crm.create",
		"projects.view", "projects.edit",
		"reports.view",
	)),
	RoleViewer: withBase(NewPermissionSet(
		"inventory.view",
		"products.view",
		"categories.view",
		"warehouses.view",
		"accounting.view",
		"hrm.view",
		"crm.view",
		"projects.view",
		"reports.view",
	)),
}

func withBase(perms PermissionSet) PermissionSet {
	return basePermissions.Union(perms)
}

func allFeaturePermissions() PermissionSet {
	out := make(PermissionSet)
	for _, perms := range featurePermissions {
		for p := range perms {
			out[p] = struct{}{}
		}
	}
	return out
}

// DefaultPermissionsFor returns a copy of the role's default permissions.
// Roles outside the company scope have none: super_admin bypasses checks.
func DefaultPermissionsFor(role Role) PermissionSet {
	perms, ok := roleDefaults[role]
	if !ok {
		return NewPermissionSet()
	}
	return perms.Clone()
}
