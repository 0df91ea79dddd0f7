package api

import (
	"context"
	"net/http"

	"exptrack/internal/core"
)

const listKey = "all"

type Categories struct{ c *Client }

func (c *Client) Categories() Categories { return Categories{c} }

// List serves from cache while the entry is fresh.
func (cs Categories) List(ctx context.Context) ([]core.Category, error) {
	cached, version, ok := cs.c.categories.Lookup(listKey)
	if ok {
		return cached, nil
	}
	list, err := get[[]core.Category](ctx, cs.c, "/categories", nil)
	if err != nil {
		return nil, err
	}
	cs.c.categories.Store(listKey, version, list)
	return list, nil
}

func (cs Categories) Get(ctx context.Context, id core.ID) (core.Category, error) {
	return get[core.Category](ctx, cs.c, idPath("/categories/%s", id), nil)
}

func (cs Categories) Create(ctx context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	defer cs.c.categories.Invalidate()
	return send[core.Category](ctx, cs.c, http.MethodPost, "/categories", cat)
}

func (cs Categories) Update(ctx context.Context, id core.ID, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	defer cs.c.categories.Invalidate()
	return send[core.Category](ctx, cs.c, http.MethodPut, idPath("/categories/%s", id), cat)
}

func (cs Categories) Delete(ctx context.Context, id core.ID) error {
	defer cs.c.categories.Invalidate()
	return cs.c.do(ctx, http.MethodDelete, idPath("/categories/%s", id), nil, nil, nil)
}

type Accounts struct{ c *Client }

func (c *Client) Accounts() Accounts { return Accounts{c} }

func (as Accounts) List(ctx context.Context) ([]core.Account, error) {
	cached, version, ok := as.c.accounts.Lookup(listKey)
	if ok {
		return cached, nil
	}
	list, err := get[[]core.Account](ctx, as.c, "/accounts", nil)
	if err != nil {
		return nil, err
	}
	as.c.accounts.Store(listKey, version, list)
	return list, nil
}

func (as Accounts) Get(ctx context.Context, id core.ID) (core.Account, error) {
	return get[core.Account](ctx, as.c, idPath("/accounts/%s", id), nil)
}

func (as Accounts) Create(ctx context.Context, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	defer as.c.accounts.Invalidate()
	return send[core.Account](ctx, as.c, http.MethodPost, "/accounts", acc)
}

func (as Accounts) Update(ctx context.Context, id core.ID, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	defer as.c.accounts.Invalidate()
	return send[core.Account](ctx, as.c, http.MethodPut, idPath("/accounts/%s", id), acc)
}

func (as Accounts) Delete(ctx context.Context, id core.ID) error {
	defer as.c.accounts.Invalidate()
	return as.c.do(ctx, http.MethodDelete, idPath("/accounts/%s", id), nil, nil, nil)
}

type Budgets struct{ c *Client }

func (c *Client) Budgets() Budgets { return Budgets{c} }

func (bs Budgets) List(ctx context.Context) ([]core.Budget, error) {
	return get[[]core.Budget](ctx, bs.c, "/budgets", nil)
}

func (bs Budgets) Get(ctx context.Context, id core.ID) (core.Budget, error) {
	return get[core.Budget](ctx, bs.c, idPath("/budgets/%s", id), nil)
}

func (bs Budgets) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return send[core.Budget](ctx, bs.c, http.MethodPost, "/budgets", b)
}

func (bs Budgets) Update(ctx context.Context, id core.ID, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return send[core.Budget](ctx, bs.c, http.MethodPut, idPath("/budgets/%s", id), b)
}

func (bs Budgets) Delete(ctx context.Context, id core.ID) error {
	return bs.c.do(ctx, http.MethodDelete, idPath("/budgets/%s", id), nil, nil, nil)
}
