package reporthttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/reports"
)

const requestTimeout = 5 * time.Second

// ReportService defines the report data contract used by the handler.
type ReportService interface {
	Aging(ctx context.Context) (reports.AgingReport, error)
	Revenue(ctx context.Context) ([]reports.RevenuePoint, error)
	Timeliness(ctx context.Context, limit int) ([]reports.TimelinessEntry, error)
	TimelinessTop(ctx context.Context, n int) ([]reports.TimelinessEntry, error)
	TopClients(ctx context.Context) ([]reports.TopClient, error)
}

// Handler coordinates HTTP requests for the report views.
type Handler struct {
	logger  *slog.Logger
	service ReportService
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/aging", h.aging)
	r.Get("/reports/revenue-monthly", h.revenue)
	r.Get("/reports/payment-timeliness", h.timeliness)
	r.Get("/reports/payment-timeliness/top", h.timelinessTop)
	r.Get("/reports/top-clients", h.topClients)
	r.Get("/reports/dashboard", h.dashboard)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	report, err := h.service.Aging(ctx)
	if err != nil {
		h.fail(w, r, "aging report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	series, err := h.service.Revenue(ctx)
	if err != nil {
		h.fail(w, r, "revenue series", err)
		return
	}
	httpx.JSON(w, http.StatusOK, series)
}

func (h *Handler) timeliness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	entries, err := h.service.Timeliness(ctx, 0)
	if err != nil {
		h.fail(w, r, "timeliness summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) timelinessTop(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "n must be a positive integer")
			return
		}
		n = parsed
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	entries, err := h.service.TimelinessTop(ctx, n)
	if err != nil {
		h.fail(w, r, "timeliness top", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) topClients(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	ranking, err := h.service.TopClients(ctx)
	if err != nil {
		h.fail(w, r, "top clients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ranking)
}

// Dashboard aggregates the four views in one response. The reads are
// independent and run concurrently.
type dashboardPayload struct {
	Aging      reports.AgingReport       `json:"aging"`
	Revenue    []reports.RevenuePoint    `json:"revenue"`
	Timeliness []reports.TimelinessEntry `json:"timeliness"`
	TopClients []reports.TopClient       `json:"top_clients"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var payload dashboardPayload
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payload.Aging, err = h.service.Aging(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		payload.Revenue, err = h.service.Revenue(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		payload.Timeliness, err = h.service.TimelinessTop(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		payload.TopClients, err = h.service.TopClients(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
