package role

import "github.com/GoAssetDesk/GoAssetDesk/internal/auth"

// fullGrid resolves every id in the permission catalog, so the Administrator
// role stays complete as the catalog grows.
func fullGrid() []string {
	entries := auth.Catalog()
	ids := make([]string, 0, len(entries))

	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	return ids
}

// Builtin returns the compiled-in predefined roles. They double as the
// fallback listing when the database cannot serve roles and as the seed
// source at startup. Ids are zero because these entries do not come from
// the database.
func Builtin() []Role {
	return []Role{
		{
			Name:        "Administrator",
			Description: "Every permission in the catalog, including user and role administration.",
			IsSystem:    true,
			Permissions: fullGrid(),
		},
		{
			Name:        "Asset Manager",
			Description: "Full control over assets, components and licenses.",
			IsSystem:    true,
			Permissions: []string{
				"dashboard.view",
				"assets.view", "assets.add", "assets.edit", "assets.delete",
				"assets.checkout", "assets.checkin",
				"components.view", "components.edit",
				"licenses.view", "licenses.edit",
			},
		},
		{
			Name:        "Infrastructure Manager",
			Description: "Manages virtual machine and IAM account lifecycles.",
			IsSystem:    true,
			Permissions: []string{
				"dashboard.view",
				"vms.view", "vms.edit",
				"iam.view", "iam.edit",
			},
		},
		{
			Name:        "User Manager",
			Description: "Manages console users and role assignments.",
			IsSystem:    true,
			Permissions: []string{
				"dashboard.view",
				"admin.view", "admin.edit",
			},
		},
		{
			Name:        "Read-Only",
			Description: "Read access to the inventory, nothing else.",
			IsSystem:    true,
			Permissions: []string{
				"dashboard.view",
				"assets.view", "components.view", "licenses.view",
				"vms.view", "iam.view",
			},
		},
	}
}
