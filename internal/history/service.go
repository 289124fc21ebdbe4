package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerline/ledgerline/internal/billing"
	"github.com/ledgerline/ledgerline/internal/shared"
)

const (
	// ClientTimelineLimit caps per-client timeline reads.
	ClientTimelineLimit = 100
	// GlobalTimelineLimit caps the global feed.
	GlobalTimelineLimit = 50
)

// RepositoryPort describes data access used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	ForClient(ctx context.Context, clientID int64, limit int) ([]Entry, error)
	Global(ctx context.Context, types []EntryType, limit int) ([]Entry, error)
}

// Service records and serves the client activity timeline. Recording is a
// side channel: failures are logged and never propagate to the caller.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) record(ctx context.Context, clientID int64, typ EntryType, description string) {
	_, err := s.repo.Insert(ctx, Entry{ClientID: clientID, Type: typ, Description: description})
	if err != nil {
		s.logger.ErrorContext(ctx, "record history entry",
			slog.Int64("client_id", clientID),
			slog.String("type", string(typ)),
			slog.Any("error", err))
	}
}

// ForClient returns the newest timeline entries for one client.
func (s *Service) ForClient(ctx context.Context, clientID int64) ([]Entry, error) {
	return s.repo.ForClient(ctx, clientID, ClientTimelineLimit)
}

// Global returns the newest entries across all clients, optionally filtered
// by entry type.
func (s *Service) Global(ctx context.Context, types []EntryType) ([]Entry, error) {
	for _, t := range types {
		if !t.Valid() {
			return nil, shared.Invalid("type", "unknown history type")
		}
	}
	return s.repo.Global(ctx, types, GlobalTimelineLimit)
}

// HandleClientCreated implements clients.Recorder.
func (s *Service) HandleClientCreated(ctx context.Context, clientID int64, name string) {
	s.record(ctx, clientID, TypeClientCreated, fmt.Sprintf("client %q registered", name))
}

// HandleClientUpdated implements clients.Recorder.
func (s *Service) HandleClientUpdated(ctx context.Context, clientID int64, name string) {
	s.record(ctx, clientID, TypeClientUpdated, fmt.Sprintf("client %q updated", name))
}

// HandleClientDeactivated implements clients.Recorder.
func (s *Service) HandleClientDeactivated(ctx context.Context, clientID int64, name string) {
	s.record(ctx, clientID, TypeClientDeactivated, fmt.Sprintf("client %q deactivated", name))
}

// HandleClientActivated implements clients.Recorder.
func (s *Service) HandleClientActivated(ctx context.Context, clientID int64, name string) {
	s.record(ctx, clientID, TypeClientActivated, fmt.Sprintf("client %q reactivated", name))
}

// HandleInvoiceCreated implements billing.HistoryRecorder.
func (s *Service) HandleInvoiceCreated(ctx context.Context, evt billing.InvoiceCreatedEvent) {
	s.record(ctx, evt.ClientID, TypeInvoiceCreated,
		fmt.Sprintf("invoice %s issued for %s", evt.Number, evt.Total.StringFixed(2)))
}

// HandlePaymentRecorded implements billing.HistoryRecorder.
func (s *Service) HandlePaymentRecorded(ctx context.Context, evt billing.PaymentRecordedEvent) {
	s.record(ctx, evt.ClientID, TypePaymentRecorded,
		fmt.Sprintf("payment of %s against invoice %s, status %s", evt.Amount.StringFixed(2), evt.Number, evt.NewStatus))
}
