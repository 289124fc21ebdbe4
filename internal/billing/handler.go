package billing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// InvoiceSender renders and emails an invoice document.
type InvoiceSender interface {
	SendInvoice(ctx context.Context, invoiceID int64) error
}

// Handler exposes the billing JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	sender   InvoiceSender
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sender InvoiceSender) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sender:   sender,
	}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.createInvoice)
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{id}", h.getInvoice)
	r.Put("/invoices/{id}/items", h.replaceItems)
	r.Post("/invoices/{id}/void", h.voidInvoice)
	r.Post("/invoices/{id}/send", h.sendInvoice)
	r.Delete("/invoices/{id}", h.deleteInvoice)
	r.Post("/payments", h.recordPayment)
	r.Get("/payments", h.listPayments)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	// Dispatch failures are logged only; the invoice is already committed.
	if h.sender != nil && r.URL.Query().Get("send_email") == "1" {
		go func(id int64) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.sender.SendInvoice(ctx, id); err != nil {
				h.logger.Error("dispatch invoice after create", slog.Int64("invoice_id", id), slog.Any("error", err))
			}
		}(inv.ID)
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	clientID, ok := queryInt64(w, r, "client_id")
	if !ok {
		return
	}
	projectID, ok := queryInt64(w, r, "project_id")
	if !ok {
		return
	}
	filter := InvoiceFilter{
		ClientID:  clientID,
		ProjectID: projectID,
		Status:    InvoiceStatus(r.URL.Query().Get("status")),
	}
	invoices, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	det, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDetailResponse(det))
}

func (h *Handler) replaceItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReplaceItemsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.ReplaceItems(r.Context(), id, req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "replace items", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.VoidInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if h.sender == nil {
		httpx.Problem(w, http.StatusNotImplemented, "Not Available", "document dispatch is not configured")
		return
	}
	if err := h.sender.SendInvoice(r.Context(), id); err != nil {
		h.logger.ErrorContext(r.Context(), "send invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payment, inv, err := h.service.RecordPayment(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "record payment", slog.Int64("invoice_id", req.InvoiceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"payment":        toPaymentResponse(payment),
		"invoice_status": string(inv.Status),
	})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := queryInt64(w, r, "invoice_id")
	if !ok {
		return
	}
	clientID, ok := queryInt64(w, r, "client_id")
	if !ok {
		return
	}
	filter := PaymentFilter{
		InvoiceID: invoiceID,
		ClientID:  clientID,
	}
	payments, err := h.service.ListPayments(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt64(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", key+" must be a positive integer")
		return 0, false
	}
	return v, true
}
