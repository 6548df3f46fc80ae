package auth

// Resource identifies a protected resource family of the console.
type Resource string

// Action identifies an operation on a resource.
type Action string

// Resources understood by the permission grid. Unknown resource strings
// arriving from the backend are dropped at the boundary (see ParseGrid).
const (
	ResourceDashboard  Resource = "dashboard"
	ResourceAssets     Resource = "assets"
	ResourceComponents Resource = "components"
	ResourceLicenses   Resource = "licenses"
	ResourceVMs        Resource = "vms"
	ResourceIAM        Resource = "iam"
	ResourceBitlocker  Resource = "bitlocker"
	ResourceAdmin      Resource = "admin"
)

// Actions understood by the permission grid.
const (
	ActionView     Action = "view"
	ActionEdit     Action = "edit"
	ActionAdd      Action = "add"
	ActionDelete   Action = "delete"
	ActionCheckout Action = "checkout"
	ActionCheckin  Action = "checkin"
)

// CatalogEntry is one entry of the immutable permission catalog: a stable
// string id in resource.action form plus display metadata. The catalog is
// defined once here and seeded into the database; it is not user-editable.
type CatalogEntry struct {
	ID          string
	Resource    Resource
	Action      Action
	Name        string
	Description string
	Category    string
}

// catalog is the full permission catalog, grouped by category for display.
var catalog = []CatalogEntry{
	{"dashboard.view", ResourceDashboard, ActionView, "View dashboard", "See the overview dashboard and alerts.", "General"},

	{"assets.view", ResourceAssets, ActionView, "View assets", "List and inspect inventory assets.", "Assets"},
	{"assets.add", ResourceAssets, ActionAdd, "Add assets", "Create new asset records.", "Assets"},
	{"assets.edit", ResourceAssets, ActionEdit, "Edit assets", "Modify asset records.", "Assets"},
	{"assets.delete", ResourceAssets, ActionDelete, "Delete assets", "Remove asset records.", "Assets"},
	{"assets.checkout", ResourceAssets, ActionCheckout, "Check out assets", "Hand assets to users.", "Assets"},
	{"assets.checkin", ResourceAssets, ActionCheckin, "Check in assets", "Return assets to stock.", "Assets"},

	{"components.view", ResourceComponents, ActionView, "View components", "List hardware components.", "Assets"},
	{"components.edit", ResourceComponents, ActionEdit, "Edit components", "Modify component records.", "Assets"},

	{"licenses.view", ResourceLicenses, ActionView, "View licenses", "List software licenses.", "Licenses"},
	{"licenses.edit", ResourceLicenses, ActionEdit, "Edit licenses", "Modify license records.", "Licenses"},

	{"vms.view", ResourceVMs, ActionView, "View virtual machines", "List VM lifecycle records.", "Infrastructure"},
	{"vms.edit", ResourceVMs, ActionEdit, "Edit virtual machines", "Modify VM records, decommission, acknowledge overdue.", "Infrastructure"},

	{"iam.view", ResourceIAM, ActionView, "View IAM accounts", "List IAM access grants.", "Infrastructure"},
	{"iam.edit", ResourceIAM, ActionEdit, "Edit IAM accounts", "Modify, suspend and revoke IAM grants.", "Infrastructure"},

	{"bitlocker.view", ResourceBitlocker, ActionView, "View BitLocker keys", "Read disk recovery keys.", "Security"},

	{"admin.view", ResourceAdmin, ActionView, "View admin area", "Access the admin dashboards.", "Administration"},
	{"admin.edit", ResourceAdmin, ActionEdit, "Manage users and roles", "Create users, assign roles, toggle admin.", "Administration"},
}

// Catalog returns the permission catalog. The returned slice is shared;
// callers must not modify it.
func Catalog() []CatalogEntry {
	return catalog
}

// CatalogByCategory groups the catalog by category, preserving the catalog
// order within each group and the order of first appearance across groups.
func CatalogByCategory() (categories []string, grouped map[string][]CatalogEntry) {
	grouped = make(map[string][]CatalogEntry)

	for _, e := range catalog {
		if _, ok := grouped[e.Category]; !ok {
			categories = append(categories, e.Category)
		}

		grouped[e.Category] = append(grouped[e.Category], e)
	}

	return categories, grouped
}

// InCatalog reports whether the given permission id exists in the catalog.
func InCatalog(id string) bool {
	for _, e := range catalog {
		if e.ID == id {
			return true
		}
	}

	return false
}
