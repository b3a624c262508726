package filterstate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hisab/hisab-ledger/internal/platform/httpx"
	"github.com/hisab/hisab-ledger/internal/products"
)

// SessionHeader carries the session id on requests and responses.
const SessionHeader = "X-Hisab-Session"

// Handler exposes the session filter endpoints.
type Handler struct {
	logger *slog.Logger
	ctx    *Context
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, c *Context) *Handler {
	return &Handler{logger: logger, ctx: c}
}

// MountRoutes registers session filter routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/session/filters", h.get)
	r.Put("/session/filters", h.set)
	r.Patch("/session/filters", h.merge)
}

// ProductFilter returns the caller's stored filter, issuing a session id
// when the request carries none.
func (h *Handler) ProductFilter(w http.ResponseWriter, r *http.Request) (products.Filter, error) {
	return h.ctx.Get(r.Context(), sessionID(w, r))
}

func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	f, err := h.ProductFilter(w, r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	var f products.Filter
	if err := httpx.DecodeJSON(r, &f); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	f, err := h.ctx.Set(r.Context(), id, f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *Handler) merge(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	var p Patch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	f, err := h.ctx.Merge(r.Context(), id, p)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}
