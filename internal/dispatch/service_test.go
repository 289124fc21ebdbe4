package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/billing"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/jobs"
)

type stubSource struct {
	det billing.InvoiceWithDetails
	err error
}

func (s stubSource) GetInvoice(ctx context.Context, id int64) (billing.InvoiceWithDetails, error) {
	return s.det, s.err
}

type stubRenderer struct {
	html string
	err  error
}

func (s *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-stub"), nil
}

type stubQueue struct {
	payloads []jobs.SendInvoiceEmailPayload
	err      error
}

func (s *stubQueue) EnqueueSendInvoiceEmail(ctx context.Context, payload jobs.SendInvoiceEmailPayload) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.payloads = append(s.payloads, payload)
	return &asynq.TaskInfo{}, nil
}

func testDetails() billing.InvoiceWithDetails {
	due := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	return billing.InvoiceWithDetails{
		Invoice: billing.Invoice{
			ID:        7,
			ClientID:  1,
			Number:    "INV-0007",
			IssueDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			DueDate:   &due,
			Status:    billing.StatusOpen,
			Total:     decimal.RequireFromString("1260.00"),
			Currency:  "ARS",
		},
		ClientName:  "Acme SA",
		ClientEmail: "billing@acme.test",
		Items: []billing.LineItem{
			{Description: "Consulting", Quantity: decimal.RequireFromString("10"), UnitPrice: decimal.RequireFromString("100")},
		},
		PaidAmount: decimal.Zero,
		Balance:    decimal.RequireFromString("1260.00"),
	}
}

func newTestService(src InvoiceSource, r Renderer, q Queue) *Service {
	return NewService(src, r, q, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSendInvoiceQueuesEmail(t *testing.T) {
	renderer := &stubRenderer{}
	queue := &stubQueue{}
	svc := newTestService(stubSource{det: testDetails()}, renderer, queue)

	require.NoError(t, svc.SendInvoice(context.Background(), 7))
	require.Len(t, queue.payloads, 1)

	payload := queue.payloads[0]
	require.Equal(t, "billing@acme.test", payload.To)
	require.Equal(t, "Invoice INV-0007", payload.Subject)
	require.Equal(t, "INV-0007", payload.InvoiceNumber)
	require.NotEmpty(t, payload.MessageID)
	require.Equal(t, []byte("%PDF-stub"), payload.PDF)

	require.True(t, strings.Contains(renderer.html, "INV-0007"))
	require.True(t, strings.Contains(renderer.html, "Acme SA"))
	require.True(t, strings.Contains(renderer.html, "Consulting"))
}

func TestSendInvoiceUniqueMessageIDs(t *testing.T) {
	queue := &stubQueue{}
	svc := newTestService(stubSource{det: testDetails()}, &stubRenderer{}, queue)

	require.NoError(t, svc.SendInvoice(context.Background(), 7))
	require.NoError(t, svc.SendInvoice(context.Background(), 7))
	require.NotEqual(t, queue.payloads[0].MessageID, queue.payloads[1].MessageID)
}

func TestSendInvoiceNoClientEmail(t *testing.T) {
	det := testDetails()
	det.ClientEmail = ""
	svc := newTestService(stubSource{det: det}, &stubRenderer{}, &stubQueue{})

	err := svc.SendInvoice(context.Background(), 7)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSendInvoiceRenderFailure(t *testing.T) {
	renderer := &stubRenderer{err: errors.New("gotenberg down")}
	svc := newTestService(stubSource{det: testDetails()}, renderer, &stubQueue{})

	err := svc.SendInvoice(context.Background(), 7)
	require.ErrorIs(t, err, shared.ErrDeliveryFailure)
}

func TestSendInvoiceEnqueueFailure(t *testing.T) {
	queue := &stubQueue{err: errors.New("redis down")}
	svc := newTestService(stubSource{det: testDetails()}, &stubRenderer{}, queue)

	err := svc.SendInvoice(context.Background(), 7)
	require.ErrorIs(t, err, shared.ErrDeliveryFailure)
}

func TestSendInvoiceUnknownInvoice(t *testing.T) {
	svc := newTestService(stubSource{err: shared.ErrNotFound}, &stubRenderer{}, &stubQueue{})

	err := svc.SendInvoice(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
