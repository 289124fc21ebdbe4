package projects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryProjectRepo struct {
	projects map[int64]Project
	invoiced map[int64]bool
	nextID   int64
}

func newMemoryProjectRepo() *memoryProjectRepo {
	return &memoryProjectRepo{projects: make(map[int64]Project), invoiced: make(map[int64]bool)}
}

func (r *memoryProjectRepo) Create(ctx context.Context, p Project) (Project, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.projects[p.ID] = p
	return p, nil
}

func (r *memoryProjectRepo) Update(ctx context.Context, p Project) (Project, error) {
	if _, ok := r.projects[p.ID]; !ok {
		return Project{}, shared.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	r.projects[p.ID] = p
	return p, nil
}

func (r *memoryProjectRepo) Get(ctx context.Context, id int64) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryProjectRepo) List(ctx context.Context, filter ListFilter) ([]Project, error) {
	var out []Project
	for _, p := range r.projects {
		if filter.ClientID != 0 && p.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryProjectRepo) HasInvoices(ctx context.Context, id int64) (bool, error) {
	return r.invoiced[id], nil
}

func (r *memoryProjectRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.projects[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

type stubClients struct {
	known map[int64]bool
}

func (s stubClients) ClientExists(ctx context.Context, id int64) (bool, error) {
	return s.known[id], nil
}

func newTestService(repo *memoryProjectRepo) *Service {
	return NewService(repo, stubClients{known: map[int64]bool{1: true, 2: true}})
}

func TestCreateProjectDefaults(t *testing.T) {
	svc := newTestService(newMemoryProjectRepo())

	p, err := svc.Create(context.Background(), ProjectInput{ClientID: 1, Name: "Website Redesign"})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, p.Status)
}

func TestCreateProjectUnknownClient(t *testing.T) {
	svc := newTestService(newMemoryProjectRepo())

	_, err := svc.Create(context.Background(), ProjectInput{ClientID: 99, Name: "X"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateProjectBadStatus(t *testing.T) {
	svc := newTestService(newMemoryProjectRepo())

	_, err := svc.Create(context.Background(), ProjectInput{ClientID: 1, Name: "X", Status: "DONE"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateProjectEndBeforeStart(t *testing.T) {
	svc := newTestService(newMemoryProjectRepo())
	start := "2026-03-01"
	end := "2026-02-01"

	_, err := svc.Create(context.Background(), ProjectInput{
		ClientID: 1, Name: "X", StartDate: &start, EndDate: &end,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateKeepsOwningClient(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := newTestService(repo)
	p, err := svc.Create(context.Background(), ProjectInput{ClientID: 1, Name: "Original"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), p.ID, ProjectInput{
		ClientID: 2, // ignored
		Name:     "Renamed",
		Status:   string(StatusPaused),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), updated.ClientID)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, StatusPaused, updated.Status)
}

func TestListByClient(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := newTestService(repo)
	_, err := svc.Create(context.Background(), ProjectInput{ClientID: 1, Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), ProjectInput{ClientID: 2, Name: "B"})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), ListFilter{ClientID: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "B", list[0].Name)
}

func TestDeleteProjectWithInvoices(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := newTestService(repo)
	p, err := svc.Create(context.Background(), ProjectInput{ClientID: 1, Name: "X"})
	require.NoError(t, err)
	repo.invoiced[p.ID] = true

	err = svc.Delete(context.Background(), p.ID)
	require.ErrorIs(t, err, shared.ErrReferentialConflict)
}

func TestProjectClient(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := newTestService(repo)
	p, err := svc.Create(context.Background(), ProjectInput{ClientID: 2, Name: "X"})
	require.NoError(t, err)

	owner, err := svc.ProjectClient(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), owner)

	_, err = svc.ProjectClient(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
