package filterstate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/shared"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestContextDefaultsAndMerge(t *testing.T) {
	store, mr := newRedisStore(t)
	c := NewContext(store, "")
	ctx := context.Background()

	f, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, products.SortByCreatedAt, f.SortBy)
	assert.Equal(t, products.Descending, f.SortOrder)

	minPrice := decimal.NewFromInt(10)
	_, err = c.Set(ctx, "s1", products.Filter{SearchText: "soap", MinPrice: &minPrice})
	require.NoError(t, err)
	assert.True(t, mr.Exists("hisab:filters:s1"))
	assert.Equal(t, time.Hour, mr.TTL("hisab:filters:s1"))

	sortBy := products.SortByPrice
	f, err = c.Merge(ctx, "s1", Patch{SortBy: &sortBy})
	require.NoError(t, err)
	assert.Equal(t, "soap", f.SearchText)
	require.NotNil(t, f.MinPrice)
	assert.True(t, f.MinPrice.Equal(minPrice))
	assert.Equal(t, products.SortByPrice, f.SortBy)

	other, err := c.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other.SearchText)
}

func TestContextRejectsInvalidFilters(t *testing.T) {
	c := NewContext(NewMemoryStore(), products.SortByName)
	ctx := context.Background()

	bad := products.SortField("colour")
	_, err := c.Merge(ctx, "s1", Patch{SortBy: &bad})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = c.Get(ctx, "")
	require.ErrorIs(t, err, ErrNoSession)

	f, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, products.SortByName, f.SortBy)
}

func TestRedisStoreFailureIsStorageError(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	_, err := NewContext(store, "").Get(context.Background(), "s1")
	require.ErrorIs(t, err, shared.ErrStorage)
}

func TestHandlerIssuesSession(t *testing.T) {
	h := NewHandler(nil, NewContext(NewMemoryStore(), ""))
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/session/filters", strings.NewReader(`{"searchText":"rice","sortOrder":"asc"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, session)

	req := httptest.NewRequest(http.MethodPatch, "/session/filters", strings.NewReader(`{"sortBy":"quantity"}`))
	req.Header.Set(SessionHeader, session)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session, rec.Header().Get(SessionHeader))
	assert.Contains(t, rec.Body.String(), `"searchText":"rice"`)
	assert.Contains(t, rec.Body.String(), `"sortOrder":"ASC"`)

	req = httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set(SessionHeader, session)
	f, err := h.ProductFilter(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, products.SortByQuantity, f.SortBy)
}
