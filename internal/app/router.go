package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerline/ledgerline/internal/billing"
	"github.com/ledgerline/ledgerline/internal/clients"
	"github.com/ledgerline/ledgerline/internal/history"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/projects"
	reporthttp "github.com/ledgerline/ledgerline/internal/reports/http"
	"github.com/ledgerline/ledgerline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	BillingHandler  *billing.Handler
	ClientsHandler  *clients.Handler
	ProjectsHandler *projects.Handler
	HistoryHandler  *history.Handler
	ReportHandler   *reporthttp.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with default wiring.
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
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(api)
		}
		if params.ClientsHandler != nil {
			params.ClientsHandler.MountRoutes(api)
		}
		if params.ProjectsHandler != nil {
			params.ProjectsHandler.MountRoutes(api)
		}
		if params.HistoryHandler != nil {
			params.HistoryHandler.MountRoutes(api)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(api)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", func(jr chi.Router) {
				params.JobHandler.MountRoutes(jr)
			})
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
