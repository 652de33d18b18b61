package group

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/mixi/pkg/middleware"
)

type stubStore struct {
	groups  map[uuid.UUID]*Group
	members map[uuid.UUID][]*GroupMember
	open    map[uuid.UUID]bool
}

func newStubStore() *stubStore {
	return &stubStore{
		groups:  map[uuid.UUID]*Group{},
		members: map[uuid.UUID][]*GroupMember{},
		open:    map[uuid.UUID]bool{},
	}
}

func (s *stubStore) CreateWithOwner(ctx context.Context, creatorID uuid.UUID, req *CreateGroupRequest) (*Group, error) {
	g := &Group{ID: uuid.New(), Name: req.Name, Description: req.Description, CurrencyCode: req.CurrencyCode, CreatedBy: creatorID, CreatedAt: time.Now()}
	s.groups[g.ID] = g
	s.members[g.ID] = []*GroupMember{{ID: uuid.New(), GroupID: g.ID, UserID: creatorID, Status: MemberStatusJoined, Role: MemberRoleAdmin}}
	return g, nil
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	return s.groups[id], nil
}

func (s *stubStore) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Group, int, error) {
	var out []*Group
	for id, members := range s.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, s.groups[id])
			}
		}
	}
	return out, len(out), nil
}

func (s *stubStore) Update(ctx context.Context, id uuid.UUID, req *UpdateGroupRequest) (*Group, error) {
	g := s.groups[id]
	if g != nil && req.Name != nil {
		g.Name = *req.Name
	}
	return g, nil
}

func (s *stubStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.groups[id]; !ok {
		return ErrGroupNotFound
	}
	delete(s.groups, id)
	delete(s.members, id)
	return nil
}

func (s *stubStore) AddMember(ctx context.Context, groupID uuid.UUID, req *AddMemberRequest) (*GroupMember, error) {
	m := &GroupMember{ID: uuid.New(), GroupID: groupID, UserID: req.UserID, Status: MemberStatusInvited, Role: req.Role}
	s.members[groupID] = append(s.members[groupID], m)
	return m, nil
}

func (s *stubStore) GetMembers(ctx context.Context, groupID uuid.UUID) ([]*GroupMember, error) {
	return s.members[groupID], nil
}

func (s *stubStore) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*GroupMember, error) {
	for _, m := range s.members[groupID] {
		if m.UserID == userID {
			return m, nil
		}
	}
	return nil, nil
}

func (s *stubStore) UpdateMember(ctx context.Context, groupID, userID uuid.UUID, req *UpdateMemberRequest) (*GroupMember, error) {
	m, _ := s.GetMember(ctx, groupID, userID)
	if m == nil {
		return nil, nil
	}
	if req.Status != nil {
		m.Status = *req.Status
	}
	if req.Role != nil {
		m.Role = *req.Role
	}
	return m, nil
}

func (s *stubStore) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	members := s.members[groupID]
	for i, m := range members {
		if m.UserID == userID {
			s.members[groupID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return ErrMemberNotFound
}

func (s *stubStore) HasOpenSplits(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	return s.open[userID], nil
}

type recordingNotifier struct {
	invited []uuid.UUID
}

func (n *recordingNotifier) NotifyGroupInvite(ctx context.Context, recipientID uuid.UUID, groupName string, groupID uuid.UUID) {
	n.invited = append(n.invited, recipientID)
}

func TestCreateUsesDefaultCurrency(t *testing.T) {
	svc := NewService(newStubStore(), nil, "sar")
	owner := uuid.New()

	g, err := svc.Create(context.Background(), owner, &CreateGroupRequest{Name: "  Riyadh trip "})
	require.NoError(t, err)
	assert.Equal(t, "Riyadh trip", g.Name)
	assert.Equal(t, "SAR", g.CurrencyCode)

	g, err = svc.Create(context.Background(), owner, &CreateGroupRequest{Name: "Flat", CurrencyCode: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "USD", g.CurrencyCode)

	_, err = svc.Create(context.Background(), owner, &CreateGroupRequest{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Create(context.Background(), owner, &CreateGroupRequest{Name: "x", CurrencyCode: "riyal"})
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestMembershipLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, "SAR")

	owner, omar, noura, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	g, err := svc.Create(ctx, owner, &CreateGroupRequest{Name: "Trip"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, g.ID, stranger, &AddMemberRequest{UserID: omar})
	assert.ErrorIs(t, err, ErrNotMember)

	m, err := svc.AddMember(ctx, g.ID, owner, &AddMemberRequest{UserID: omar})
	require.NoError(t, err)
	assert.Equal(t, MemberRoleMember, m.Role)
	assert.Equal(t, MemberStatusInvited, m.Status)
	assert.Equal(t, []uuid.UUID{omar}, notifier.invited)

	_, err = svc.AddMember(ctx, g.ID, owner, &AddMemberRequest{UserID: omar})
	assert.ErrorIs(t, err, ErrMemberAlreadyExists)

	// invited members cannot invite until they join
	_, err = svc.AddMember(ctx, g.ID, omar, &AddMemberRequest{UserID: noura})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	m, err = svc.AcceptInvitation(ctx, g.ID, omar)
	require.NoError(t, err)
	assert.True(t, m.HasJoined())

	_, err = svc.AddMember(ctx, g.ID, omar, &AddMemberRequest{UserID: noura, Role: MemberRoleAdmin})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.AddMember(ctx, g.ID, omar, &AddMemberRequest{UserID: noura})
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.Update(ctx, g.ID, omar, &UpdateGroupRequest{Name: &name})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	updated, err := svc.Update(ctx, g.ID, owner, &UpdateGroupRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	_, members, err := svc.GetByIDWithMembers(ctx, g.ID, noura)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	_, _, err = svc.GetByIDWithMembers(ctx, g.ID, stranger)
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = svc.AcceptInvitation(ctx, g.ID, stranger)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := NewService(store, nil, "SAR")

	owner, omar, noura := uuid.New(), uuid.New(), uuid.New()
	g, err := svc.Create(ctx, owner, &CreateGroupRequest{Name: "Flat"})
	require.NoError(t, err)
	for _, id := range []uuid.UUID{omar, noura} {
		_, err := svc.AddMember(ctx, g.ID, owner, &AddMemberRequest{UserID: id})
		require.NoError(t, err)
	}

	assert.ErrorIs(t, svc.RemoveMember(ctx, g.ID, omar, noura), ErrNotAuthorized)

	store.open[omar] = true
	assert.ErrorIs(t, svc.RemoveMember(ctx, g.ID, omar, omar), ErrOpenBalance)
	assert.ErrorIs(t, svc.RemoveMember(ctx, g.ID, owner, omar), ErrOpenBalance)

	store.open[omar] = false
	require.NoError(t, svc.RemoveMember(ctx, g.ID, omar, omar))
	require.NoError(t, svc.RemoveMember(ctx, g.ID, owner, noura))

	members, err := svc.GetMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	assert.ErrorIs(t, svc.Delete(ctx, g.ID, omar), ErrNotMember)
	require.NoError(t, svc.Delete(ctx, g.ID, owner))
	_, err = svc.GetByID(ctx, g.ID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestHandlerStatusCodes(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := NewService(store, nil, "SAR")
	owner, stranger := uuid.New(), uuid.New()
	g, err := svc.Create(ctx, owner, &CreateGroupRequest{Name: "Trip"})
	require.NoError(t, err)

	router := middleware.TestUserMiddleware(NewHandler(svc).Routes())

	do := func(method, path, user, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if user != "" {
			req.Header.Set(middleware.TestUserHeader, user)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		want   int
	}{
		{"anonymous", http.MethodGet, "/" + g.ID.String(), "", "", http.StatusUnauthorized},
		{"bad id", http.MethodGet, "/42", owner.String(), "", http.StatusBadRequest},
		{"member", http.MethodGet, "/" + g.ID.String(), owner.String(), "", http.StatusOK},
		{"stranger", http.MethodGet, "/" + g.ID.String(), stranger.String(), "", http.StatusForbidden},
		{"missing", http.MethodGet, "/" + uuid.NewString(), owner.String(), "", http.StatusNotFound},
		{"create", http.MethodPost, "/", owner.String(), `{"name":"Flat"}`, http.StatusCreated},
		{"create invalid", http.MethodPost, "/", owner.String(), `{"name":""}`, http.StatusBadRequest},
		{"add stranger", http.MethodPost, "/" + g.ID.String() + "/members", owner.String(), `{"user_id":"` + stranger.String() + `"}`, http.StatusCreated},
		{"add twice", http.MethodPost, "/" + g.ID.String() + "/members", owner.String(), `{"user_id":"` + stranger.String() + `"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(tt.method, tt.path, tt.user, tt.body))
		})
	}
}
