package products

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/shared"
)

// Product is a stocked item for sale.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	SalePrice decimal.Decimal `json:"salePrice"`
	Quantity  int             `json:"quantity"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

// ProductInput carries the mutable fields of a product.
type ProductInput struct {
	Name      string
	SalePrice decimal.Decimal
	Quantity  int
}

// SortField names a sortable product attribute.
type SortField string

// Sortable product attributes.
const (
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByQuantity  SortField = "quantity"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
)

// SortOrder is the direction of a product listing.
type SortOrder string

// Sort directions.
const (
	Ascending  SortOrder = "ASC"
	Descending SortOrder = "DESC"
)

var sortColumns = map[SortField]string{
	SortByName:      "name",
	SortByPrice:     "sale_price_cents",
	SortByQuantity:  "quantity",
	SortByCreatedAt: "created_at",
	SortByUpdatedAt: "updated_at",
}

// ParseSortField resolves a sort key case-insensitively.
func ParseSortField(raw string) (SortField, error) {
	for field := range sortColumns {
		if strings.EqualFold(string(field), strings.TrimSpace(raw)) {
			return field, nil
		}
	}
	return "", shared.Validationf("unknown sort field %q", raw)
}

// ParseSortOrder resolves a sort direction case-insensitively.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(Ascending):
		return Ascending, nil
	case string(Descending):
		return Descending, nil
	}
	return "", shared.Validationf("unknown sort order %q", raw)
}

// Filter narrows and orders a product listing. Nil bounds are not applied.
type Filter struct {
	SearchText string           `json:"searchText,omitempty"`
	MinPrice   *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice   *decimal.Decimal `json:"maxPrice,omitempty"`
	MinStock   *int             `json:"minStock,omitempty"`
	MaxStock   *int             `json:"maxStock,omitempty"`
	SortBy     SortField        `json:"sortBy,omitempty"`
	SortOrder  SortOrder        `json:"sortOrder,omitempty"`
}

// Normalize fills defaults and rejects unknown sort keys or inverted ranges.
func (f Filter) Normalize(defaultSort SortField) (Filter, error) {
	if f.SortBy == "" {
		f.SortBy = defaultSort
	}
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
	}
	field, err := ParseSortField(string(f.SortBy))
	if err != nil {
		return Filter{}, err
	}
	f.SortBy = field

	if f.SortOrder == "" {
		f.SortOrder = Descending
	}
	order, err := ParseSortOrder(string(f.SortOrder))
	if err != nil {
		return Filter{}, err
	}
	f.SortOrder = order

	f.SearchText = strings.TrimSpace(f.SearchText)
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return Filter{}, shared.Validationf("minPrice %s exceeds maxPrice %s", f.MinPrice, f.MaxPrice)
	}
	if f.MinStock != nil && f.MaxStock != nil && *f.MinStock > *f.MaxStock {
		return Filter{}, shared.Validationf("minStock %d exceeds maxStock %d", *f.MinStock, *f.MaxStock)
	}
	return f, nil
}

func (in ProductInput) normalize() (ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ProductInput{}, shared.Validationf("product name is required")
	}
	if in.SalePrice.IsNegative() {
		return ProductInput{}, shared.Validationf("sale price must not be negative")
	}
	if _, err := shared.ToCents(in.SalePrice); err != nil {
		return ProductInput{}, err
	}
	if in.Quantity < 0 {
		return ProductInput{}, shared.Validationf("quantity must not be negative")
	}
	return in, nil
}
