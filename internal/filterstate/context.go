// Package filterstate keeps the product filter selected by each session.
package filterstate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// ErrNoSession indicates an empty session id.
var ErrNoSession = fmt.Errorf("%w: session id required", shared.ErrValidation)

// Store persists one filter per session.
type Store interface {
	Load(ctx context.Context, sessionID string) (products.Filter, bool, error)
	Save(ctx context.Context, sessionID string, filter products.Filter) error
}

// Patch carries a partial filter update. Nil fields keep their current value.
type Patch struct {
	SearchText *string             `json:"searchText"`
	MinPrice   *decimal.Decimal    `json:"minPrice"`
	MaxPrice   *decimal.Decimal    `json:"maxPrice"`
	MinStock   *int                `json:"minStock"`
	MaxStock   *int                `json:"maxStock"`
	SortBy     *products.SortField `json:"sortBy"`
	SortOrder  *products.SortOrder `json:"sortOrder"`
}

// apply returns f with every supplied field of p replaced.
func (p Patch) apply(f products.Filter) products.Filter {
	if p.SearchText != nil {
		f.SearchText = *p.SearchText
	}
	if p.MinPrice != nil {
		f.MinPrice = p.MinPrice
	}
	if p.MaxPrice != nil {
		f.MaxPrice = p.MaxPrice
	}
	if p.MinStock != nil {
		f.MinStock = p.MinStock
	}
	if p.MaxStock != nil {
		f.MaxStock = p.MaxStock
	}
	if p.SortBy != nil {
		f.SortBy = *p.SortBy
	}
	if p.SortOrder != nil {
		f.SortOrder = *p.SortOrder
	}
	return f
}

// Context reads and writes the current filter of a session.
type Context struct {
	store       Store
	defaultSort products.SortField
}

// NewContext constructs a Context backed by store.
func NewContext(store Store, defaultSort products.SortField) *Context {
	if defaultSort == "" {
		defaultSort = products.SortByCreatedAt
	}
	return &Context{store: store, defaultSort: defaultSort}
}

// Defaults returns the filter of a session that never set one.
func (c *Context) Defaults() products.Filter {
	return products.Filter{SortBy: c.defaultSort, SortOrder: products.Descending}
}

// Get returns the session's current filter.
func (c *Context) Get(ctx context.Context, sessionID string) (products.Filter, error) {
	if sessionID == "" {
		return products.Filter{}, ErrNoSession
	}
	f, ok, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return products.Filter{}, shared.WrapStorage("filterstate: load", err, false)
	}
	if !ok {
		return c.Defaults(), nil
	}
	return f, nil
}

// Set replaces the session's filter.
func (c *Context) Set(ctx context.Context, sessionID string, f products.Filter) (products.Filter, error) {
	if sessionID == "" {
		return products.Filter{}, ErrNoSession
	}
	f, err := f.Normalize(c.defaultSort)
	if err != nil {
		return products.Filter{}, err
	}
	if err := c.store.Save(ctx, sessionID, f); err != nil {
		return products.Filter{}, shared.WrapStorage("filterstate: save", err, false)
	}
	return f, nil
}

// Merge applies a partial update to the session's filter.
func (c *Context) Merge(ctx context.Context, sessionID string, p Patch) (products.Filter, error) {
	current, err := c.Get(ctx, sessionID)
	if err != nil {
		return products.Filter{}, err
	}
	return c.Set(ctx, sessionID, p.apply(current))
}
