package request

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/room"
	"todoshi/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore backs both the request repository and the project lookups so the
// collaborator set can be observed after accepts
type memStore struct {
	mu            sync.Mutex
	requests      map[string]domain.Request
	project       domain.Project
	collaborators map[string]int
	// stalePending makes ExistsPending miss, as a concurrent Send would
	stalePending bool
}

func newMemStore() *memStore {
	return &memStore{
		requests:      make(map[string]domain.Request),
		project:       domain.Project{Model: domain.Model{ID: "p1"}, Title: "Project", CreatedBy: "owner"},
		collaborators: make(map[string]int),
	}
}

// Create mirrors the partial unique index on pending triples
func (m *memStore) Create(_ context.Context, r *domain.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Status == domain.RequestPending && m.pendingLocked(r.ProjectID, r.SenderID, r.ReceiverID) {
		return fmt.Errorf("gorm: create request for %s: %w", r.ProjectID, gorm.ErrDuplicatedKey)
	}
	r.ID = uuid.NewString()
	m.requests[r.ID] = *r
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	p := m.project
	r.Project = &p
	return &r, nil
}

func (m *memStore) ExistsPending(_ context.Context, projectID, senderID, receiverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stalePending {
		return false, nil
	}
	return m.pendingLocked(projectID, senderID, receiverID), nil
}

func (m *memStore) pendingLocked(projectID, senderID, receiverID string) bool {
	for _, r := range m.requests {
		if r.ProjectID == projectID && r.SenderID == senderID && r.ReceiverID == receiverID && r.Status == domain.RequestPending {
			return true
		}
	}
	return false
}

func (m *memStore) transition(id, status string) error {
	r, ok := m.requests[id]
	if !ok || r.Status != domain.RequestPending {
		return ErrNotPending
	}
	r.Status = status
	m.requests[id] = r
	return nil
}

func (m *memStore) Accept(_ context.Context, r *domain.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transition(r.ID, domain.RequestAccepted); err != nil {
		return err
	}
	if m.collaborators[r.ReceiverID] == 0 {
		m.collaborators[r.ReceiverID]++
	}
	return nil
}

func (m *memStore) Reject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition(id, domain.RequestRejected)
}

func (m *memStore) ListReceived(_ context.Context, receiverID string) ([]domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Request{}
	for _, r := range m.requests {
		if r.ReceiverID == receiverID && r.Status == domain.RequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListForProject(_ context.Context, projectID string) ([]domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Request{}
	for _, r := range m.requests {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Authorize lets the creator and any accepted collaborator in
func (m *memStore) Authorize(_ context.Context, projectID, userID string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if projectID != m.project.ID {
		return nil, errors.NotFound("Project not found", nil)
	}
	p := m.project
	for id := range m.collaborators {
		p.Collaborators = append(p.Collaborators, domain.User{Model: domain.Model{ID: id}})
	}
	if !p.HasMember(userID) {
		return nil, errors.Forbidden("You are not a member of this project", nil)
	}
	return &p, nil
}

type users map[string]bool

func (u users) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if !u[id] {
		return nil, errors.NotFound("User not found", nil)
	}
	return &domain.User{Model: domain.Model{ID: id}, Username: "name-" + id}, nil
}

func newTestService() (Service, *memStore, *testutil.Recorder) {
	store := newMemStore()
	rooms := &testutil.Recorder{}
	known := users{"owner": true, "alice": true, "bob": true}
	return NewService(store, store, known, nil, rooms), store, rooms
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	apiErr, ok := errors.As(err)
	require.True(t, ok, "expected *APIError, got %v", err)
	return apiErr.Status
}

func TestSend(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	request, err := svc.Send(ctx, "p1", "owner", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, request.Status)

	_, err = svc.Send(ctx, "p1", "owner", "alice")
	assert.Equal(t, http.StatusConflict, statusOf(t, err), "duplicate pending triple")
}

func TestSend_DuplicateCaughtByUniqueIndex(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Send(ctx, "p1", "owner", "alice")
	require.NoError(t, err)

	// the pre-insert lookup misses, the insert must still fail
	store.stalePending = true
	_, err = svc.Send(ctx, "p1", "owner", "alice")

	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	assert.Len(t, store.requests, 1)
}

func TestSend_ConcurrentDuplicates(t *testing.T) {
	svc, store, _ := newTestService()
	store.stalePending = true

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Send(context.Background(), "p1", "owner", "alice")
		}(i)
	}
	wg.Wait()

	sent := 0
	for _, err := range errs {
		if err == nil {
			sent++
			continue
		}
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	}
	assert.Equal(t, 1, sent)
	assert.Len(t, store.requests, 1)
}

func TestSend_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		receiver string
		status   int
	}{
		{"non member sender", "alice", "bob", http.StatusForbidden},
		{"self invite", "owner", "owner", http.StatusUnprocessableEntity},
		{"unknown receiver", "owner", "ghost", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService()

			_, err := svc.Send(context.Background(), "p1", tt.sender, tt.receiver)

			assert.Equal(t, tt.status, statusOf(t, err))
			assert.Empty(t, store.requests)
		})
	}
}

func TestSend_CollaboratorCannotInvite(t *testing.T) {
	svc, store, _ := newTestService()
	store.collaborators["alice"] = 1

	_, err := svc.Send(context.Background(), "p1", "alice", "bob")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = svc.Send(context.Background(), "p1", "owner", "alice")
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
}

func TestAccept_AddsCollaboratorAndBroadcasts(t *testing.T) {
	svc, store, rooms := newTestService()
	ctx := context.Background()
	request, err := svc.Send(ctx, "p1", "owner", "alice")
	require.NoError(t, err)

	_, err = svc.Accept(ctx, request.ID, "owner")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err), "only the receiver may answer")

	accepted, err := svc.Accept(ctx, request.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestAccepted, accepted.Status)
	assert.Equal(t, 1, store.collaborators["alice"])

	events := rooms.Named(room.EventCollaboratorJoined)
	require.Len(t, events, 1)
	assert.Equal(t, room.Key("Project", "p1"), events[0].Room)
	assert.Equal(t, "name-alice", events[0].Payload.(CollaboratorJoined).User.Username)
}

func TestAccept_TwoRequestsSameReceiverAddsOnce(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	// two pending requests naming alice on p1, created before either is answered;
	// the second one was sent by a previous owner of the project
	first := domain.Request{ProjectID: "p1", SenderID: "owner", ReceiverID: "alice", Status: domain.RequestPending}
	second := first
	second.SenderID = "previous-owner"
	require.NoError(t, store.Create(ctx, &first))
	require.NoError(t, store.Create(ctx, &second))

	_, err := svc.Accept(ctx, first.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Accept(ctx, second.ID, "alice")
	require.NoError(t, err)

	assert.Len(t, store.collaborators, 1)
	assert.Equal(t, 1, store.collaborators["alice"])
}

func TestTerminalStatesAreFinal(t *testing.T) {
	for _, answer := range []string{domain.RequestAccepted, domain.RequestRejected} {
		t.Run(answer, func(t *testing.T) {
			svc, store, rooms := newTestService()
			ctx := context.Background()
			request, err := svc.Send(ctx, "p1", "owner", "alice")
			require.NoError(t, err)

			if answer == domain.RequestAccepted {
				_, err = svc.Accept(ctx, request.ID, "alice")
			} else {
				_, err = svc.Reject(ctx, request.ID, "alice")
			}
			require.NoError(t, err)
			broadcasts := len(rooms.Events())

			_, err = svc.Accept(ctx, request.ID, "alice")
			assert.Equal(t, http.StatusConflict, statusOf(t, err))
			_, err = svc.Reject(ctx, request.ID, "alice")
			assert.Equal(t, http.StatusConflict, statusOf(t, err))

			assert.Equal(t, answer, store.requests[request.ID].Status)
			assert.Len(t, rooms.Events(), broadcasts)
		})
	}
}

func TestListForProject_CreatorOnly(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Send(ctx, "p1", "owner", "alice")
	require.NoError(t, err)
	store.collaborators["bob"] = 1

	requests, err := svc.ListForProject(ctx, "p1", "owner")
	require.NoError(t, err)
	assert.Len(t, requests, 1)

	_, err = svc.ListForProject(ctx, "p1", "bob")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	received, err := svc.ListReceived(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, received, 1)
}
