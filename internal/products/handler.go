package products

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/platform/httpx"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// FilterSource resolves the product filter stored for the caller's session.
type FilterSource interface {
	ProductFilter(w http.ResponseWriter, r *http.Request) (Filter, error)
}

// Handler exposes product endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	filters FilterSource
}

// NewHandler builds Handler. filters may be nil when no session store is
// configured.
func NewHandler(logger *slog.Logger, service *Service, filters FilterSource) *Handler {
	return &Handler{logger: logger, service: service, filters: filters}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.list)
	r.Post("/products", h.create)
	r.Get("/products/{id}", h.show)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
}

type productRequest struct {
	Name      string          `json:"name" validate:"required"`
	SalePrice decimal.Decimal `json:"salePrice"`
	Quantity  *int            `json:"quantity" validate:"required,gte=0"`
}

func (req productRequest) input() ProductInput {
	return ProductInput{Name: req.Name, SalePrice: req.SalePrice, Quantity: *req.Quantity}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		filter Filter
		err    error
	)
	if r.URL.Query().Get("source") == "session" && h.filters != nil {
		filter, err = h.filters.ProductFilter(w, r)
	} else {
		filter, err = FilterFromQuery(r)
	}
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []Product{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := h.service.AddProduct(r.Context(), req.input())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.UpdateProduct(r.Context(), id, req.input()); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FilterFromQuery reads a Filter from URL query parameters named after the
// JSON fields of Filter.
func FilterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		SearchText: q.Get("searchText"),
		SortBy:     SortField(q.Get("sortBy")),
		SortOrder:  SortOrder(q.Get("sortOrder")),
	}
	var err error
	if f.MinPrice, err = decimalParam(q.Get("minPrice"), "minPrice"); err != nil {
		return Filter{}, err
	}
	if f.MaxPrice, err = decimalParam(q.Get("maxPrice"), "maxPrice"); err != nil {
		return Filter{}, err
	}
	if f.MinStock, err = intParam(q.Get("minStock"), "minStock"); err != nil {
		return Filter{}, err
	}
	if f.MaxStock, err = intParam(q.Get("maxStock"), "maxStock"); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func decimalParam(raw, name string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, shared.Validationf("invalid %s %q", name, raw)
	}
	return &d, nil
}

func intParam(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, shared.Validationf("invalid %s %q", name, raw)
	}
	return &n, nil
}
