package clients

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryClientRepo struct {
	clients    map[int64]Client
	dependents map[int64]bool
	nextID     int64
}

func newMemoryClientRepo() *memoryClientRepo {
	return &memoryClientRepo{clients: make(map[int64]Client), dependents: make(map[int64]bool)}
}

func (r *memoryClientRepo) Create(ctx context.Context, c Client) (Client, error) {
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.clients[c.ID] = c
	return c, nil
}

func (r *memoryClientRepo) Update(ctx context.Context, c Client) (Client, error) {
	if _, ok := r.clients[c.ID]; !ok {
		return Client{}, shared.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	r.clients[c.ID] = c
	return c, nil
}

func (r *memoryClientRepo) Get(ctx context.Context, id int64) (Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return Client{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryClientRepo) List(ctx context.Context, filter ListFilter) ([]Client, error) {
	var out []Client
	for _, c := range r.clients {
		if filter.ActiveOnly && !c.Active {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *memoryClientRepo) SetActive(ctx context.Context, id int64, active bool) error {
	c, ok := r.clients[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Active = active
	r.clients[id] = c
	return nil
}

func (r *memoryClientRepo) HasDependents(ctx context.Context, id int64) (bool, error) {
	return r.dependents[id], nil
}

func (r *memoryClientRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.clients[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *memoryClientRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.clients[id]
	return ok, nil
}

type timelineStub struct {
	entries []string
}

func (s *timelineStub) HandleClientCreated(ctx context.Context, id int64, name string) {
	s.entries = append(s.entries, "created")
}

func (s *timelineStub) HandleClientUpdated(ctx context.Context, id int64, name string) {
	s.entries = append(s.entries, "updated")
}

func (s *timelineStub) HandleClientDeactivated(ctx context.Context, id int64, name string) {
	s.entries = append(s.entries, "deactivated")
}

func (s *timelineStub) HandleClientActivated(ctx context.Context, id int64, name string) {
	s.entries = append(s.entries, "activated")
}

func newTestService(repo *memoryClientRepo, rec Recorder) *Service {
	return NewService(repo, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateClient(t *testing.T) {
	repo := newMemoryClientRepo()
	rec := &timelineStub{}
	svc := newTestService(repo, rec)

	client, err := svc.Create(context.Background(), ClientInput{Name: "  Acme SA  ", Email: "billing@acme.test"})
	require.NoError(t, err)
	require.Equal(t, "Acme SA", client.Name)
	require.True(t, client.Active)
	require.Equal(t, []string{"created"}, rec.entries)
}

func TestCreateClientBlankName(t *testing.T) {
	svc := newTestService(newMemoryClientRepo(), nil)
	_, err := svc.Create(context.Background(), ClientInput{Name: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateClient(t *testing.T) {
	repo := newMemoryClientRepo()
	rec := &timelineStub{}
	svc := newTestService(repo, rec)
	client, err := svc.Create(context.Background(), ClientInput{Name: "Acme"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), client.ID, ClientInput{Name: "Acme Holdings", Phone: "555-0100"})
	require.NoError(t, err)
	require.Equal(t, "Acme Holdings", updated.Name)
	require.Equal(t, "555-0100", updated.Phone)
	require.Equal(t, []string{"created", "updated"}, rec.entries)
}

func TestUpdateUnknownClient(t *testing.T) {
	svc := newTestService(newMemoryClientRepo(), nil)
	_, err := svc.Update(context.Background(), 404, ClientInput{Name: "X"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateActivateCycle(t *testing.T) {
	repo := newMemoryClientRepo()
	rec := &timelineStub{}
	svc := newTestService(repo, rec)
	client, err := svc.Create(context.Background(), ClientInput{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), client.ID))
	got, err := svc.Get(context.Background(), client.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	// Already inactive: no second event.
	require.NoError(t, svc.Deactivate(context.Background(), client.ID))

	require.NoError(t, svc.Activate(context.Background(), client.ID))
	got, err = svc.Get(context.Background(), client.ID)
	require.NoError(t, err)
	require.True(t, got.Active)

	require.Equal(t, []string{"created", "deactivated", "activated"}, rec.entries)
}

func TestListActiveOnly(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := newTestService(repo, nil)
	a, err := svc.Create(context.Background(), ClientInput{Name: "Active Co"})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), ClientInput{Name: "Gone Co"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), b.ID))

	list, err := svc.List(context.Background(), ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, a.ID, list[0].ID)
}

func TestSearchCapsLimit(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := newTestService(repo, nil)

	_, err := svc.List(context.Background(), ListFilter{Query: "acme", Limit: 500})
	require.NoError(t, err)
	// The repo fake honors Limit; verify the cap through a populated run.
	for i := 0; i < SearchLimit+10; i++ {
		_, err := svc.Create(context.Background(), ClientInput{Name: "Acme Branch"})
		require.NoError(t, err)
	}
	list, err := svc.List(context.Background(), ListFilter{Query: "acme"})
	require.NoError(t, err)
	require.Len(t, list, SearchLimit)
}

func TestDeleteClientWithDependents(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := newTestService(repo, nil)
	client, err := svc.Create(context.Background(), ClientInput{Name: "Acme"})
	require.NoError(t, err)
	repo.dependents[client.ID] = true

	err = svc.Delete(context.Background(), client.ID)
	require.ErrorIs(t, err, shared.ErrReferentialConflict)

	_, err = svc.Get(context.Background(), client.ID)
	require.NoError(t, err)
}

func TestDeleteClientClean(t *testing.T) {
	repo := newMemoryClientRepo()
	svc := newTestService(repo, nil)
	client, err := svc.Create(context.Background(), ClientInput{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), client.ID))
	_, err = svc.Get(context.Background(), client.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
