package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hisab/hisab-ledger/internal/backup"
	"github.com/hisab/hisab-ledger/internal/customers"
	"github.com/hisab/hisab-ledger/internal/filterstate"
	"github.com/hisab/hisab-ledger/internal/observability"
	"github.com/hisab/hisab-ledger/internal/platform/httpx"
	"github.com/hisab/hisab-ledger/internal/preferences"
	"github.com/hisab/hisab-ledger/internal/products"
	"github.com/hisab/hisab-ledger/internal/sales"
	"github.com/hisab/hisab-ledger/jobs"
)

// Pinger reports store reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Store              Pinger
	ProductsHandler    *products.Handler
	CustomersHandler   *customers.Handler
	SalesHandler       *sales.Handler
	BackupHandler      *backup.Handler
	FiltersHandler     *filterstate.Handler
	PreferencesHandler *preferences.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with ledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Store != nil {
			if err := params.Store.Ping(r.Context()); err != nil {
				params.Logger.Warn("healthz: store unreachable", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	if params.ProductsHandler != nil {
		params.ProductsHandler.MountRoutes(r)
	}
	if params.FiltersHandler != nil {
		params.FiltersHandler.MountRoutes(r)
	}
	if params.CustomersHandler != nil {
		params.CustomersHandler.MountRoutes(r)
	}
	if params.SalesHandler != nil {
		params.SalesHandler.MountRoutes(r)
	}
	if params.BackupHandler != nil {
		params.BackupHandler.MountRoutes(r)
	}
	if params.PreferencesHandler != nil {
		params.PreferencesHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	return r
}
