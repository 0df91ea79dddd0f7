package gate

import "exptrack/internal/core"

// NavItem is one sidebar entry.
type NavItem struct {
	Name string
	Path string
}

var userNavigation = []NavItem{
	{Name: "Dashboard", Path: "/app/dashboard"},
	{Name: "Transactions", Path: "/app/transactions"},
	{Name: "Recurring", Path: "/app/recurring-transactions"},
	{Name: "Categories", Path: "/app/categories"},
	{Name: "Accounts", Path: "/app/accounts"},
	{Name: "Budgets", Path: "/app/budgets"},
	{Name: "Reports", Path: "/app/reports"},
	{Name: "Profile", Path: "/app/profile"},
}

// Navigation builds the sidebar for id. Group members without an elevated
// role do not manage budgets or recurring transactions themselves. Owners
// and admins get their dashboard first.
func Navigation(id core.Identity) []NavItem {
	items := make([]NavItem, 0, len(userNavigation)+1)
	switch {
	case id.Role.AtLeast(core.RoleOwner):
		items = append(items, NavItem{Name: "Owner Dashboard", Path: "/app/owner"})
	case id.Role.AtLeast(core.RoleAdmin):
		items = append(items, NavItem{Name: "Admin Dashboard", Path: "/app/admin"})
	}
	for _, item := range userNavigation {
		if !id.CanManageGroupFeatures() && (item.Name == "Budgets" || item.Name == "Recurring") {
			continue
		}
		items = append(items, item)
	}
	return items
}
