package sales

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hisab/hisab-ledger/internal/platform/httpx"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// ProductLookup resolves the products a sale request refers to.
type ProductLookup interface {
	GetProductByID(ctx context.Context, id int64) (products.Product, error)
}

// Handler exposes sale endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	products ProductLookup
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, lookup ProductLookup) *Handler {
	return &Handler{logger: logger, service: service, products: lookup}
}

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}/items", h.items)
		r.Delete("/{id}", h.delete)
	})
}

type saleRequest struct {
	Lines []struct {
		ProductID int64 `json:"productId" validate:"required,gt=0"`
		Quantity  int   `json:"quantity" validate:"required"`
	} `json:"lines" validate:"required,min=1,dive"`
	IsCreditSale  bool   `json:"isCreditSale"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	cart := NewCart()
	for _, l := range req.Lines {
		p, err := h.products.GetProductByID(r.Context(), l.ProductID)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		if err := cart.Add(p, l.Quantity); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
	}
	id, err := h.service.Checkout(r.Context(), cart, CheckoutOptions{
		IsCreditSale:  req.IsCreditSale,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.Validationf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	list, err := h.service.ListTransactions(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) items(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	items, err := h.service.ListTransactionItems(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []TransactionItem{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
