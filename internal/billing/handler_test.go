package billing

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := newTestService(newMemoryBillingRepo(), nil)
	h := NewHandler(logger, svc, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestListInvoicesRejectsMalformedFilter(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{
		"/invoices?client_id=abc",
		"/invoices?project_id=-1",
		"/payments?invoice_id=abc",
		"/payments?client_id=0",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equalf(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestListInvoicesAcceptsValidFilter(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices?client_id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
