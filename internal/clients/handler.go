package clients

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// ClientResponse serializes one client.
type ClientResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
	Active  bool   `json:"active"`
}

func toResponse(c Client) ClientResponse {
	return ClientResponse{
		ID: c.ID, Name: c.Name, Email: c.Email, TaxID: c.TaxID,
		Phone: c.Phone, Address: c.Address, Notes: c.Notes, Active: c.Active,
	}
}

// Handler exposes the clients JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountRoutes registers client routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/clients", h.create)
	r.Get("/clients", h.list)
	r.Get("/clients/search", h.search)
	r.Get("/clients/{id}", h.get)
	r.Put("/clients/{id}", h.update)
	r.Post("/clients/{id}/deactivate", h.deactivate)
	r.Post("/clients/{id}/activate", h.activate)
	r.Delete("/clients/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	client, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create client", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(client))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		ActiveOnly: q.Get("active") == "true",
		Query:      q.Get("q"),
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "q is required")
		return
	}
	list, err := h.service.List(r.Context(), ListFilter{Query: q, Limit: SearchLimit})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "search clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(client))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	client, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "update client", slog.Int64("client_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(client))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.service.Deactivate)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.service.Activate)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (ClientInput, bool) {
	var input ClientInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return ClientInput{}, false
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return ClientInput{}, false
	}
	return input, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
