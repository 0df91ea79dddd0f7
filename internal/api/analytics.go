package api

import (
	"context"
	"net/url"

	"exptrack/internal/core"
)

type Analytics struct{ c *Client }

func (c *Client) Analytics() Analytics { return Analytics{c} }

func rangeQuery(r core.DateRange) (url.Values, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	for k, v := range r.Params() {
		q.Set(k, v)
	}
	return q, nil
}

func (a Analytics) Dashboard(ctx context.Context, r core.DateRange) (core.DashboardSummary, error) {
	q, err := rangeQuery(r)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	return get[core.DashboardSummary](ctx, a.c, "/analytics/dashboard", q)
}

func (a Analytics) CategorySpending(ctx context.Context, r core.DateRange) ([]core.NamedAmount, error) {
	q, err := rangeQuery(r)
	if err != nil {
		return nil, err
	}
	return get[[]core.NamedAmount](ctx, a.c, "/analytics/category-spending", q)
}

func (a Analytics) MonthlyTrend(ctx context.Context, r core.DateRange) ([]core.NamedAmount, error) {
	q, err := rangeQuery(r)
	if err != nil {
		return nil, err
	}
	return get[[]core.NamedAmount](ctx, a.c, "/analytics/monthly-trend", q)
}

func (a Analytics) BudgetStatus(ctx context.Context) ([]core.BudgetStatus, error) {
	return get[[]core.BudgetStatus](ctx, a.c, "/analytics/budget-status", nil)
}
