package sales

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/shared"
)

type repoLookup struct{ repo *memRepo }

func (l repoLookup) GetProductByID(ctx context.Context, id int64) (products.Product, error) {
	p, ok := l.repo.state.products[id]
	if !ok {
		return products.Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, nil
}

func TestHandlerSaleRoutes(t *testing.T) {
	repo := newMemRepo()
	seedProduct(repo, 1, "Soap", "2.50", 3)
	r := chi.NewRouter()
	NewHandler(nil, newTestService(repo, ServiceConfig{}, nil), repoLookup{repo}).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"lines":[{"productId":1,"quantity":4}]}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"lines":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"lines":[{"productId":1,"quantity":2}],"isCreditSale":true,"customerName":"Bob"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customerName":"Bob"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sales/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sales/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
