package auth

import "strings"

// Role is the storefront role carried by users and tokens
type Role string

const (
	// RoleCustomer browses, buys and tracks orders
	RoleCustomer Role = "customer"
	// RoleSeller manages own products and sales
	RoleSeller Role = "seller"
	// RoleAdmin manages products, orders and users
	RoleAdmin Role = "admin"
	// RoleSuperAdmin manages admins
	RoleSuperAdmin Role = "superAdmin"
)

// DashboardPrefix is the path every role dashboard lives under
const DashboardPrefix = "/dashboard"

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (r Role) String() string {
	return string(r)
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleCustomer:   0,
		RoleSeller:     1,
		RoleAdmin:      2,
		RoleSuperAdmin: 3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// CanCreateUsers reports whether the role may call the create-user endpoint.
// The backend enforces this, the check only hides the option in clients.
func (r Role) CanCreateUsers() bool {
	return r.IsAtLeast(RoleAdmin)
}

// DashboardPath is the landing page after login for the role.
// Unknown roles land on the customer dashboard.
func (r Role) DashboardPath() string {
	if !r.IsValid() {
		return DashboardPrefix + "/" + string(RoleCustomer)
	}
	return DashboardPrefix + "/" + string(r)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleCustomer,
		RoleSeller,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// RoleNames returns the role set as plain strings
func RoleNames() []string {
	roles := GetAllRoles()
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// ParseRole safely parses a string into a Role type.
// Matching is exact: "superAdmin" is a role, "superadmin" is not.
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.TrimSpace(roleStr))
	return role, role.IsValid()
}

// ResolveRole is ParseRole for user input, naming the rejected value
func ResolveRole(roleStr string) (Role, error) {
	role, ok := ParseRole(roleStr)
	if !ok {
		return "", withMetadata(ErrUnknownRole, nil, map[string]any{
			"role":    roleStr,
			"allowed": RoleNames(),
		})
	}
	return role, nil
}

// MenuItem is a dashboard navigation entry
type MenuItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

var dashboardMenus = map[Role][]MenuItem{
	RoleSuperAdmin: {
		{Name: "Overview", Path: "/dashboard"},
		{Name: "Manage Admins", Path: "/dashboard/admin"},
		{Name: "All Users", Path: "/dashboard/users"},
		{Name: "Create A User", Path: "/createAUser"},
	},
	RoleAdmin: {
		{Name: "Overview", Path: "/dashboard"},
		{Name: "Products", Path: "/dashboard/products"},
		{Name: "Orders", Path: "/dashboard/orders"},
		{Name: "Create A User", Path: "/createAUser"},
		{Name: "Reports", Path: "/dashboard/reports"},
	},
	RoleSeller: {
		{Name: "Overview", Path: "/dashboard"},
		{Name: "My Products", Path: "/dashboard/products"},
		{Name: "Sales", Path: "/dashboard/sales"},
	},
	RoleCustomer: {
		{Name: "My Dashboard", Path: "/dashboard"},
		{Name: "My Orders", Path: "/dashboard/orders"},
		{Name: "My Reviews", Path: "/dashboard/reviews"},
	},
}

// DashboardMenu returns the sidebar entries for a role, falling back to
// the customer menu for unknown roles.
func DashboardMenu(r Role) []MenuItem {
	items, ok := dashboardMenus[r]
	if !ok {
		items = dashboardMenus[RoleCustomer]
	}
	out := make([]MenuItem, len(items))
	copy(out, items)
	return out
}
