package products

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hisab/hisab-ledger/internal/shared"
)

type memRepo struct {
	rows       map[int64]Product
	nextID     int64
	lastFilter Filter
	failWith   error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]Product)}
}

func (m *memRepo) Insert(ctx context.Context, p Product) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.nextID++
	p.ID = m.nextID
	m.rows[p.ID] = p
	return p.ID, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, in ProductInput, updatedAt int64) error {
	p, ok := m.rows[id]
	if !ok {
		return nil
	}
	p.Name, p.SalePrice, p.Quantity, p.UpdatedAt = in.Name, in.SalePrice, in.Quantity, updatedAt
	m.rows[id] = p
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := m.rows[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, nil
}

func (m *memRepo) List(ctx context.Context, filter Filter) ([]Product, error) {
	m.lastFilter = filter
	var out []Product
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func newTestService(repo RepositoryPort) *Service {
	svc := NewService(repo, ServiceConfig{}, nil)
	clock := int64(1000)
	svc.now = func() int64 {
		clock++
		return clock
	}
	return svc
}

func TestAddProductValidates(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, ProductInput{Name: "  ", SalePrice: decimal.NewFromInt(1), Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddProduct(ctx, ProductInput{Name: "Soap", SalePrice: decimal.NewFromInt(-1), Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddProduct(ctx, ProductInput{Name: "Soap", SalePrice: decimal.RequireFromString("1.005"), Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddProduct(ctx, ProductInput{Name: "Soap", SalePrice: decimal.NewFromInt(1), Quantity: -3})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddAndUpdateProductTimestamps(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	id, err := svc.AddProduct(ctx, ProductInput{Name: " Soap ", SalePrice: decimal.RequireFromString("2.50"), Quantity: 10})
	require.NoError(t, err)

	created, err := svc.GetProductByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Soap", created.Name)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	require.NoError(t, svc.UpdateProduct(ctx, id, ProductInput{Name: "Soap XL", SalePrice: decimal.NewFromInt(3), Quantity: 8}))
	updated, err := svc.GetProductByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Greater(t, updated.UpdatedAt, created.UpdatedAt)
	assert.Equal(t, 8, updated.Quantity)
}

func TestMissingProductSemantics(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	require.NoError(t, svc.UpdateProduct(ctx, 42, ProductInput{Name: "Ghost", Quantity: 1}))
	require.NoError(t, svc.DeleteProduct(ctx, 42))

	_, err := svc.GetProductByID(ctx, 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListProductsDefaults(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.ListProducts(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, SortByCreatedAt, repo.lastFilter.SortBy)
	assert.Equal(t, Descending, repo.lastFilter.SortOrder)

	svc = NewService(repo, ServiceConfig{DefaultSortBy: SortByName}, nil)
	_, err = svc.ListProducts(context.Background(), Filter{SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, SortByName, repo.lastFilter.SortBy)
	assert.Equal(t, Ascending, repo.lastFilter.SortOrder)
}

func TestListProductsRejectsBadFilters(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()
	lo, hi := decimal.NewFromInt(10), decimal.NewFromInt(5)
	minStock, maxStock := 9, 2

	cases := map[string]Filter{
		"unknown sort":   {SortBy: "colour"},
		"unknown order":  {SortOrder: "sideways"},
		"price inverted": {MinPrice: &lo, MaxPrice: &hi},
		"stock inverted": {MinStock: &minStock, MaxStock: &maxStock},
	}
	for name, filter := range cases {
		_, err := svc.ListProducts(ctx, filter)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}
}

func TestStorageFailuresAreWrapped(t *testing.T) {
	repo := newMemRepo()
	repo.failWith = errors.New("connection refused")
	svc := newTestService(repo)

	_, err := svc.AddProduct(context.Background(), ProductInput{Name: "Soap", Quantity: 1})
	require.ErrorIs(t, err, shared.ErrStorage)
	assert.True(t, shared.NothingChanged(err))
}
