package api

import (
	"context"
	"net/http"

	"exptrack/internal/core"
)

// Admin groups the ADMIN and OWNER endpoints. The backend enforces the
// role; these calls simply fail with 403 for lesser identities.
type Admin struct{ c *Client }

func (c *Client) Admin() Admin { return Admin{c} }

// Stats are free-form counters; the backend adds fields over time.
type Stats map[string]any

func (a Admin) Users(ctx context.Context) ([]core.AdminUser, error) {
	return get[[]core.AdminUser](ctx, a.c, "/admin/users", nil)
}

// UsersWithGroups lists users together with their group and group admin.
func (a Admin) UsersWithGroups(ctx context.Context) ([]core.AdminUser, error) {
	return get[[]core.AdminUser](ctx, a.c, "/admin/users-with-groups", nil)
}

func (a Admin) User(ctx context.Context, id core.ID) (core.AdminUser, error) {
	return get[core.AdminUser](ctx, a.c, idPath("/admin/users/%s", id), nil)
}

func (a Admin) CreateUser(ctx context.Context, u core.NewUser) (core.AdminUser, error) {
	return send[core.AdminUser](ctx, a.c, http.MethodPost, "/admin/users", u)
}

func (a Admin) CreateAdmin(ctx context.Context, u core.NewUser) (core.AdminUser, error) {
	return send[core.AdminUser](ctx, a.c, http.MethodPost, "/admin/create-admin", u)
}

func (a Admin) DeleteUser(ctx context.Context, id core.ID) error {
	return a.c.do(ctx, http.MethodDelete, idPath("/admin/users/%s", id), nil, nil, nil)
}

func (a Admin) ChangeRole(ctx context.Context, id core.ID, role core.Role) error {
	body := map[string]string{"role": role.String()}
	return a.c.do(ctx, http.MethodPut, idPath("/admin/users/%s/change-role", id), nil, body, nil)
}

func (a Admin) Promote(ctx context.Context, id core.ID) error {
	return a.c.do(ctx, http.MethodPost, idPath("/admin/users/%s/promote", id), nil, nil, nil)
}

func (a Admin) Block(ctx context.Context, id core.ID) error {
	return a.c.do(ctx, http.MethodPost, idPath("/admin/users/%s/block", id), nil, nil, nil)
}

func (a Admin) Unblock(ctx context.Context, id core.ID) error {
	return a.c.do(ctx, http.MethodPost, idPath("/admin/users/%s/unblock", id), nil, nil, nil)
}

func (a Admin) UserStats(ctx context.Context) (Stats, error) {
	return get[Stats](ctx, a.c, "/admin/users/stats", nil)
}

func (a Admin) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return get[[]core.Transaction](ctx, a.c, "/admin/transactions", nil)
}

func (a Admin) TransactionStats(ctx context.Context) (Stats, error) {
	return get[Stats](ctx, a.c, "/admin/transactions/stats", nil)
}

func (a Admin) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	defer a.c.categories.Invalidate()
	return send[core.Category](ctx, a.c, http.MethodPost, "/admin/categories", cat)
}

func (a Admin) UpdateCategory(ctx context.Context, id core.ID, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	defer a.c.categories.Invalidate()
	return send[core.Category](ctx, a.c, http.MethodPut, idPath("/admin/categories/%s", id), cat)
}

func (a Admin) DeleteCategory(ctx context.Context, id core.ID) error {
	defer a.c.categories.Invalidate()
	return a.c.do(ctx, http.MethodDelete, idPath("/admin/categories/%s", id), nil, nil, nil)
}

func (a Admin) Groups(ctx context.Context) ([]core.UserGroup, error) {
	return get[[]core.UserGroup](ctx, a.c, "/admin/user-groups", nil)
}

func (a Admin) CreateGroup(ctx context.Context, g core.UserGroup) (core.UserGroup, error) {
	if err := g.Validate(); err != nil {
		return core.UserGroup{}, err
	}
	return send[core.UserGroup](ctx, a.c, http.MethodPost, "/admin/user-groups", g)
}

func (a Admin) AssignToGroup(ctx context.Context, userID, groupID core.ID) error {
	return a.c.do(ctx, http.MethodPut, idPath("/admin/users/%s/group/%s", userID, groupID), nil, nil, nil)
}

func (a Admin) GroupUsers(ctx context.Context, groupID core.ID) ([]core.AdminUser, error) {
	return get[[]core.AdminUser](ctx, a.c, idPath("/admin/user-groups/%s/users", groupID), nil)
}

func (a Admin) UserAccounts(ctx context.Context, userID core.ID) ([]core.Account, error) {
	return get[[]core.Account](ctx, a.c, idPath("/admin/users/%s/accounts", userID), nil)
}

func (a Admin) SystemStats(ctx context.Context) (core.SystemStats, error) {
	return get[core.SystemStats](ctx, a.c, "/admin/dashboard/stats", nil)
}

// SendEmail broadcasts a message to the selected users and reports how many
// addresses the backend accepted.
func (a Admin) SendEmail(ctx context.Context, msg core.EmailBroadcast) (core.EmailBroadcastResult, error) {
	if err := msg.Validate(); err != nil {
		return core.EmailBroadcastResult{}, err
	}
	return send[core.EmailBroadcastResult](ctx, a.c, http.MethodPost, "/admin/send-email", msg)
}
