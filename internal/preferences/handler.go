package preferences

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hisab/hisab-ledger/internal/platform/httpx"
)

// Handler exposes the settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings/preferences", h.get)
	r.Patch("/settings/preferences", h.patch)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Load(r.Context()))
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	prefs, err := h.service.Save(r.Context(), p)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prefs)
}
