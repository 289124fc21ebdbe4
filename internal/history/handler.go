package history

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// EntryResponse serializes one timeline entry.
type EntryResponse struct {
	ID          int64  `json:"id"`
	ClientID    int64  `json:"client_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// Handler exposes the timeline JSON API.
type Handler struct {
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers timeline routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/history", h.global)
	r.Get("/clients/{id}/history", h.forClient)
}

func (h *Handler) global(w http.ResponseWriter, r *http.Request) {
	var types []EntryType
	for _, raw := range r.URL.Query()["type"] {
		types = append(types, EntryType(raw))
	}
	entries, err := h.service.Global(r.Context(), types)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponses(entries))
}

func (h *Handler) forClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "id must be a positive integer")
		return
	}
	entries, err := h.service.ForClient(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponses(entries))
}

func toResponses(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			ID:          e.ID,
			ClientID:    e.ClientID,
			Type:        string(e.Type),
			Description: e.Description,
			CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}
