package api

import (
	"context"
	"net/http"
	"net/url"

	"exptrack/internal/core"
)

// TransactionQuery filters the transaction list. Zero fields are omitted.
type TransactionQuery struct {
	Type       core.TransactionType
	CategoryID core.ID
	AccountID  core.ID
	Range      *core.DateRange
}

func (q TransactionQuery) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.CategoryID != "" {
		v.Set("categoryId", q.CategoryID.String())
	}
	if q.AccountID != "" {
		v.Set("accountId", q.AccountID.String())
	}
	if q.Range != nil {
		for k, val := range q.Range.Params() {
			v.Set(k, val)
		}
	}
	return v
}

type Transactions struct{ c *Client }

func (c *Client) Transactions() Transactions { return Transactions{c} }

func (t Transactions) List(ctx context.Context, q TransactionQuery) ([]core.Transaction, error) {
	return get[[]core.Transaction](ctx, t.c, "/transactions", q.values())
}

func (t Transactions) Get(ctx context.Context, id core.ID) (core.Transaction, error) {
	return get[core.Transaction](ctx, t.c, idPath("/transactions/%s", id), nil)
}

func (t Transactions) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return send[core.Transaction](ctx, t.c, http.MethodPost, "/transactions", tx)
}

func (t Transactions) Update(ctx context.Context, id core.ID, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return send[core.Transaction](ctx, t.c, http.MethodPut, idPath("/transactions/%s", id), tx)
}

func (t Transactions) Delete(ctx context.Context, id core.ID) error {
	return t.c.do(ctx, http.MethodDelete, idPath("/transactions/%s", id), nil, nil, nil)
}

// Search returns the transactions dated within r.
func (t Transactions) Search(ctx context.Context, r core.DateRange) ([]core.Transaction, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	for k, v := range r.Params() {
		q.Set(k, v)
	}
	return get[[]core.Transaction](ctx, t.c, "/transactions/search", q)
}
