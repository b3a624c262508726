package customers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hisab/hisab-ledger/internal/platform/httpx"
)

// Handler exposes customer ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listAll)
		r.Get("/outstanding", h.listOutstanding)
		r.Post("/", h.upsert)
		r.Get("/{id}", h.show)
		r.Post("/{id}/adjustments", h.adjust)
		r.Post("/{id}/payments", h.pay)
	})
}

type upsertRequest struct {
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phoneNumber"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAllCustomers(r.Context())
	h.respondList(w, list, err)
}

func (h *Handler) listOutstanding(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCustomersWithBalance(r.Context())
	h.respondList(w, list, err)
}

func (h *Handler) respondList(w http.ResponseWriter, list []Customer, err error) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []Customer{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := h.service.UpsertCustomer(r.Context(), req.Name, req.PhoneNumber)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.amountRequest(w, r)
	if !ok {
		return
	}
	c, err := h.service.AdjustBalance(r.Context(), id, req.Amount)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.amountRequest(w, r)
	if !ok {
		return
	}
	res, err := h.service.RecordPayment(r.Context(), id, req.Amount)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) amountRequest(w http.ResponseWriter, r *http.Request) (int64, amountRequest, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return 0, amountRequest{}, false
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return 0, amountRequest{}, false
	}
	return id, req, true
}
