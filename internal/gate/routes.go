package gate

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRoute = errors.New("unknown route")

// Route is one entry of the route table. IndexOf, when set, makes the route
// a pure redirect once authorized.
type Route struct {
	Path    string
	Name    string
	Tier    Tier
	IndexOf string
}

var routes = []Route{
	{Path: "/", Name: "Welcome", Tier: TierOpen},
	{Path: "/login", Name: "Login", Tier: TierPublicOnly},
	{Path: "/register", Name: "Register", Tier: TierPublicOnly},
	{Path: "/forgot-password", Name: "Forgot Password", Tier: TierPublicOnly},
	{Path: "/reset-password", Name: "Reset Password", Tier: TierPublicOnly},
	{Path: "/app", Name: "App", Tier: TierProtected, IndexOf: LandingPath},
	{Path: "/app/dashboard", Name: "Dashboard", Tier: TierProtected},
	{Path: "/app/transactions", Name: "Transactions", Tier: TierProtected},
	{Path: "/app/recurring-transactions", Name: "Recurring", Tier: TierProtected},
	{Path: "/app/categories", Name: "Categories", Tier: TierProtected},
	{Path: "/app/accounts", Name: "Accounts", Tier: TierProtected},
	{Path: "/app/budgets", Name: "Budgets", Tier: TierProtected},
	{Path: "/app/reports", Name: "Reports", Tier: TierProtected},
	{Path: "/app/profile", Name: "Profile", Tier: TierProtected},
	{Path: "/app/admin", Name: "Admin Dashboard", Tier: TierAdmin},
	{Path: "/app/owner", Name: "Owner Dashboard", Tier: TierOwner},
}

var routeIndex = func() map[string]Route {
	m := make(map[string]Route, len(routes))
	for _, r := range routes {
		m[r.Path] = r
	}
	return m
}()

// Routes returns a copy of the route table.
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Lookup resolves path, ignoring any query string and trailing slash.
func Lookup(path string) (Route, error) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if r, ok := routeIndex[path]; ok {
		return r, nil
	}
	return Route{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
}
