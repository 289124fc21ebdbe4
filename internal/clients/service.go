package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// SearchLimit caps name search results.
const SearchLimit = 50

// ClientInput carries create and update payload fields.
type ClientInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	TaxID   string `json:"tax_id,omitempty" validate:"omitempty,max=32"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address string `json:"address,omitempty" validate:"omitempty,max=512"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ListFilter narrows client listings.
type ListFilter struct {
	ActiveOnly bool
	Query      string
	Limit      int
}

// RepositoryPort describes data access used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, c Client) (Client, error)
	Update(ctx context.Context, c Client) (Client, error)
	Get(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context, filter ListFilter) ([]Client, error)
	SetActive(ctx context.Context, id int64, active bool) error
	HasDependents(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service handles client lifecycle.
type Service struct {
	repo     RepositoryPort
	recorder Recorder
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, recorder Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// Create registers a new active client.
func (s *Service) Create(ctx context.Context, input ClientInput) (Client, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Client{}, shared.Invalid("name", "must not be blank")
	}
	created, err := s.repo.Create(ctx, Client{
		Name:    strings.TrimSpace(input.Name),
		Email:   input.Email,
		TaxID:   input.TaxID,
		Phone:   input.Phone,
		Address: input.Address,
		Notes:   input.Notes,
		Active:  true,
	})
	if err != nil {
		return Client{}, err
	}
	s.recorder.HandleClientCreated(ctx, created.ID, created.Name)
	return created, nil
}

// Update rewrites the editable fields of an existing client.
func (s *Service) Update(ctx context.Context, id int64, input ClientInput) (Client, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Client{}, shared.Invalid("name", "must not be blank")
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	current.Name = strings.TrimSpace(input.Name)
	current.Email = input.Email
	current.TaxID = input.TaxID
	current.Phone = input.Phone
	current.Address = input.Address
	current.Notes = input.Notes
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Client{}, err
	}
	s.recorder.HandleClientUpdated(ctx, updated.ID, updated.Name)
	return updated, nil
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns clients matching the filter. Query searches by name and is
// capped at SearchLimit rows.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Client, error) {
	if filter.Query != "" && (filter.Limit == 0 || filter.Limit > SearchLimit) {
		filter.Limit = SearchLimit
	}
	return s.repo.List(ctx, filter)
}

// Deactivate hides the client from active listings. Existing invoices and
// payments stay untouched.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	client, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !client.Active {
		return nil
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.recorder.HandleClientDeactivated(ctx, id, client.Name)
	return nil
}

// Activate restores a deactivated client.
func (s *Service) Activate(ctx context.Context, id int64) error {
	client, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if client.Active {
		return nil
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.recorder.HandleClientActivated(ctx, id, client.Name)
	return nil
}

// Delete removes a client without invoices or projects. Clients with
// dependent rows are kept; deactivation is the supported retirement path.
func (s *Service) Delete(ctx context.Context, id int64) error {
	has, err := s.repo.HasDependents(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("clients: client %d has invoices or projects: %w", id, shared.ErrReferentialConflict)
	}
	return s.repo.Delete(ctx, id)
}

// ClientExists reports whether the client id is known. Billing uses this to
// validate invoice references.
func (s *Service) ClientExists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}
