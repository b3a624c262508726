package backup

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hisab/hisab-ledger/internal/platform/httpx"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// ClearConfirmation must be sent verbatim to clear the ledger over HTTP.
const ClearConfirmation = "DELETE EVERYTHING"

const maxImportBytes = 64 << 20

// Enqueuer schedules an asynchronous backup run.
type Enqueuer interface {
	EnqueueBackup(ctx context.Context, force bool) (string, error)
}

// Handler exposes backup endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer Enqueuer
}

// NewHandler builds Handler. enqueuer may be nil when no job queue is
// configured.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

// MountRoutes registers backup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/backup", func(r chi.Router) {
		r.Get("/export", h.export)
		r.Post("/import", h.importAll)
		r.Post("/clear", h.clear)
		r.Post("/jobs", h.enqueue)
	})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ExportAll(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+FileName(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) importAll(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.Validationf("read document: %v", err))
		return
	}
	summary, err := h.service.ImportAll(r.Context(), body)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type clearRequest struct {
	Confirm string `json:"confirm" validate:"required"`
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if req.Confirm != ClearConfirmation {
		httpx.RespondError(w, h.logger, shared.Validationf("confirm must be %q", ClearConfirmation))
		return
	}
	if err := h.service.ClearAll(r.Context()); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Disabled", "no job queue configured")
		return
	}
	id, err := h.enqueuer.EnqueueBackup(r.Context(), true)
	if err != nil {
		h.logger.Error("enqueue backup", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Enqueue Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": id})
}

// FileName names a backup file written at t.
func FileName(t time.Time) string {
	return "hisab-backup-" + t.UTC().Format("20060102T150405Z") + ".json"
}
