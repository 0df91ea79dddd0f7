package api

import (
	"context"
	"net/http"

	"exptrack/internal/core"
)

type Recurring struct{ c *Client }

func (c *Client) Recurring() Recurring { return Recurring{c} }

func (r Recurring) List(ctx context.Context) ([]core.RecurringTransaction, error) {
	return get[[]core.RecurringTransaction](ctx, r.c, "/recurring-transactions", nil)
}

// Active lists only the schedules that are currently enabled.
func (r Recurring) Active(ctx context.Context) ([]core.RecurringTransaction, error) {
	return get[[]core.RecurringTransaction](ctx, r.c, "/recurring-transactions/active", nil)
}

func (r Recurring) Get(ctx context.Context, id core.ID) (core.RecurringTransaction, error) {
	return get[core.RecurringTransaction](ctx, r.c, idPath("/recurring-transactions/%s", id), nil)
}

func (r Recurring) Create(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	return send[core.RecurringTransaction](ctx, r.c, http.MethodPost, "/recurring-transactions", rt)
}

func (r Recurring) Update(ctx context.Context, id core.ID, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	return send[core.RecurringTransaction](ctx, r.c, http.MethodPut, idPath("/recurring-transactions/%s", id), rt)
}

func (r Recurring) Delete(ctx context.Context, id core.ID) error {
	return r.c.do(ctx, http.MethodDelete, idPath("/recurring-transactions/%s", id), nil, nil, nil)
}

// Toggle flips the schedule between active and paused.
func (r Recurring) Toggle(ctx context.Context, id core.ID) (core.RecurringTransaction, error) {
	return send[core.RecurringTransaction](ctx, r.c, http.MethodPost, idPath("/recurring-transactions/%s/toggle", id), nil)
}

// Execute creates the schedule's transaction now. The backend returns the
// created transaction.
func (r Recurring) Execute(ctx context.Context, id core.ID) (core.Transaction, error) {
	return send[core.Transaction](ctx, r.c, http.MethodPost, idPath("/recurring-transactions/%s/execute", id), nil)
}
