package projects

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/ledgerline/internal/shared"
)

const dateLayout = "2006-01-02"

// ProjectInput carries create and update payload fields.
type ProjectInput struct {
	ClientID    int64   `json:"client_id" validate:"required,gt=0"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      string  `json:"status,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
}

// ListFilter narrows project listings.
type ListFilter struct {
	ClientID int64
	Status   Status
}

// RepositoryPort describes data access used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, p Project) (Project, error)
	Update(ctx context.Context, p Project) (Project, error)
	Get(ctx context.Context, id int64) (Project, error)
	List(ctx context.Context, filter ListFilter) ([]Project, error)
	HasInvoices(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// ClientPort validates client references.
type ClientPort interface {
	ClientExists(ctx context.Context, id int64) (bool, error)
}

// Service handles project lifecycle.
type Service struct {
	repo    RepositoryPort
	clients ClientPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, clients ClientPort) *Service {
	return &Service{repo: repo, clients: clients}
}

// Create registers a new project under a client.
func (s *Service) Create(ctx context.Context, input ProjectInput) (Project, error) {
	p, err := s.buildProject(ctx, input)
	if err != nil {
		return Project{}, err
	}
	return s.repo.Create(ctx, p)
}

// Update rewrites a project. The owning client never changes.
func (s *Service) Update(ctx context.Context, id int64, input ProjectInput) (Project, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	input.ClientID = current.ClientID
	p, err := s.buildProject(ctx, input)
	if err != nil {
		return Project{}, err
	}
	p.ID = id
	p.CreatedAt = current.CreatedAt
	return s.repo.Update(ctx, p)
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	return s.repo.Get(ctx, id)
}

// List returns projects matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Project, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Invalid("status", "unknown project status")
	}
	return s.repo.List(ctx, filter)
}

// Delete removes a project with no invoices attached.
func (s *Service) Delete(ctx context.Context, id int64) error {
	has, err := s.repo.HasInvoices(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("projects: project %d has invoices: %w", id, shared.ErrReferentialConflict)
	}
	return s.repo.Delete(ctx, id)
}

// ProjectClient resolves the owning client. Billing uses this to check that
// an invoice's project belongs to the invoice's client.
func (s *Service) ProjectClient(ctx context.Context, projectID int64) (int64, error) {
	p, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return p.ClientID, nil
}

func (s *Service) buildProject(ctx context.Context, input ProjectInput) (Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Project{}, shared.Invalid("name", "must not be blank")
	}
	exists, err := s.clients.ClientExists(ctx, input.ClientID)
	if err != nil {
		return Project{}, fmt.Errorf("projects: check client: %w", err)
	}
	if !exists {
		return Project{}, shared.Invalid("client_id", "client does not exist")
	}
	status := Status(input.Status)
	if status == "" {
		status = StatusInProgress
	}
	if !status.Valid() {
		return Project{}, shared.Invalid("status", "unknown project status")
	}
	p := Project{
		ClientID:    input.ClientID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Status:      status,
	}
	if input.StartDate != nil {
		start, err := time.Parse(dateLayout, *input.StartDate)
		if err != nil {
			return Project{}, shared.Invalid("start_date", "must be formatted YYYY-MM-DD")
		}
		p.StartDate = &start
	}
	if input.EndDate != nil {
		end, err := time.Parse(dateLayout, *input.EndDate)
		if err != nil {
			return Project{}, shared.Invalid("end_date", "must be formatted YYYY-MM-DD")
		}
		if p.StartDate != nil && end.Before(*p.StartDate) {
			return Project{}, shared.Invalid("end_date", "must not precede start date")
		}
		p.EndDate = &end
	}
	return p, nil
}
