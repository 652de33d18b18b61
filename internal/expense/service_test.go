package expense

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

	"github.com/fkhayef/mixi/internal/expense/split"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/pkg/middleware"
)

var (
	alice = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	bob   = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	carol = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	dave  = uuid.MustParse("00000000-0000-0000-0000-00000000000d")
)

func ptr(v float64) *float64 { return &v }

type stubStore struct {
	expenses map[uuid.UUID]*Expense
}

func newStubStore() *stubStore {
	return &stubStore{expenses: map[uuid.UUID]*Expense{}}
}

func (s *stubStore) Create(ctx context.Context, e *Expense) error {
	s.expenses[e.ID] = e
	return nil
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*Expense, error) {
	return s.expenses[id], nil
}

func (s *stubStore) ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Expense, int, error) {
	all, _ := s.ListAllByGroup(ctx, groupID)
	return all, len(all), nil
}

func (s *stubStore) ListAllByGroup(ctx context.Context, groupID uuid.UUID) ([]*Expense, error) {
	var out []*Expense
	for _, e := range s.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubStore) MarkSplitPaid(ctx context.Context, expenseID, userID uuid.UUID, at time.Time) (*Expense, error) {
	e, ok := s.expenses[expenseID]
	if !ok {
		return nil, ErrExpenseNotFound
	}
	if !e.MarkPaid(userID, at) {
		return nil, ErrAlreadyPaid
	}
	return e, nil
}

func (s *stubStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.expenses[id]; !ok {
		return ErrExpenseNotFound
	}
	delete(s.expenses, id)
	return nil
}

type stubGroups struct {
	group   *group.Group
	members []*group.GroupMember
}

func newStubGroups(ids ...uuid.UUID) *stubGroups {
	g := &group.Group{ID: uuid.New(), Name: "Trip", CurrencyCode: "SAR"}
	names := map[uuid.UUID]string{alice: "alice", bob: "bob", carol: "carol", dave: "dave"}
	sg := &stubGroups{group: g}
	for _, id := range ids {
		sg.members = append(sg.members, &group.GroupMember{GroupID: g.ID, UserID: id, Username: names[id], Status: group.MemberStatusJoined})
	}
	return sg
}

func (s *stubGroups) GetByID(ctx context.Context, id uuid.UUID) (*group.Group, error) {
	if id != s.group.ID {
		return nil, group.ErrGroupNotFound
	}
	return s.group, nil
}

func (s *stubGroups) GetMembers(ctx context.Context, groupID uuid.UUID) ([]*group.GroupMember, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.members, nil
}

func (s *stubGroups) RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*group.GroupMember, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	for _, m := range s.members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return nil, group.ErrNotMember
}

type notice struct {
	recipient uuid.UUID
	amount    float64
}

type recordingNotifier struct {
	added []notice
	paid  []notice
}

func (n *recordingNotifier) NotifyExpenseAdded(ctx context.Context, recipientID uuid.UUID, payerName, description string, owed float64, currency string, expenseID uuid.UUID) {
	n.added = append(n.added, notice{recipientID, owed})
}

func (n *recordingNotifier) NotifySplitPaid(ctx context.Context, recipientID uuid.UUID, borrowerName, description string, amount float64, currency string, expenseID uuid.UUID) {
	n.paid = append(n.paid, notice{recipientID, amount})
}

func newTestService() (*Service, *stubStore, *stubGroups, *recordingNotifier) {
	store := newStubStore()
	groups := newStubGroups(alice, bob, carol)
	notifier := &recordingNotifier{}
	return NewService(store, groups, notifier, nil, split.NewSplitStrategyFactory()), store, groups, notifier
}

func TestCreateExactExpense(t *testing.T) {
	svc, _, groups, notifier := newTestService()

	e, err := svc.CreateExpense(context.Background(), alice, &CreateExpenseRequest{
		GroupID:     groups.group.ID,
		Description: "Dinner",
		Amount:      90,
		SplitType:   split.SplitTypeExact,
		Participants: []split.SplitInput{
			{UserID: alice, Amount: ptr(30)},
			{UserID: bob, Amount: ptr(30)},
			{UserID: carol, Amount: ptr(30)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 90.0, e.Amount)
	assert.Equal(t, "SAR", e.CurrencyCode)
	assert.Equal(t, ExpenseTypeShared, e.Type)
	assert.False(t, e.Settled)
	require.Len(t, e.Splits, 3)
	assert.True(t, e.SplitFor(alice).Paid)
	assert.False(t, e.SplitFor(bob).Paid)
	assert.Equal(t, "bob", e.SplitFor(bob).Username)

	assert.ElementsMatch(t, []notice{{bob, 30}, {carol, 30}}, notifier.added)
}

func TestCreateInfersExactTotal(t *testing.T) {
	svc, _, groups, _ := newTestService()

	e, err := svc.CreateExpense(context.Background(), alice, &CreateExpenseRequest{
		GroupID:     groups.group.ID,
		Description: "Groceries",
		SplitType:   split.SplitTypeExact,
		Participants: []split.SplitInput{
			{UserID: bob, Amount: ptr(12.5)},
			{UserID: carol, Amount: ptr(7.25)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 19.75, e.Amount)
}

func TestCreatePersonalExpense(t *testing.T) {
	svc, _, groups, notifier := newTestService()

	e, err := svc.CreateExpense(context.Background(), bob, &CreateExpenseRequest{
		GroupID:      groups.group.ID,
		Description:  "Souvenir",
		Amount:       45,
		Type:         ExpenseTypePersonal,
		Participants: []split.SplitInput{{UserID: carol}},
	})
	require.NoError(t, err)
	require.Len(t, e.Splits, 1)
	assert.Equal(t, bob, e.Splits[0].UserID)
	assert.Equal(t, 45.0, e.Splits[0].ExactAmount)
	assert.True(t, e.Settled)
	assert.Empty(t, notifier.added)
}

func TestCreateRejects(t *testing.T) {
	svc, _, groups, _ := newTestService()
	gid := groups.group.ID

	tests := []struct {
		name    string
		creator uuid.UUID
		req     CreateExpenseRequest
		wantErr error
	}{
		{"missing group", alice, CreateExpenseRequest{Description: "x", Amount: 1}, ErrMissingGroupID},
		{"blank description", alice, CreateExpenseRequest{GroupID: gid, Description: "  ", Amount: 1}, ErrInvalidDescription},
		{"zero equal amount", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Participants: []split.SplitInput{{UserID: bob}}}, ErrInvalidAmount},
		{"bad type", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 1, Type: "GIFT"}, ErrInvalidType},
		{"currency mismatch", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 1, CurrencyCode: "usd", Participants: []split.SplitInput{{UserID: bob}}}, ErrCurrencyMismatch},
		{"unknown group", alice, CreateExpenseRequest{GroupID: uuid.New(), Description: "x", Amount: 1}, group.ErrGroupNotFound},
		{"creator not member", dave, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 1, Participants: []split.SplitInput{{UserID: bob}}}, group.ErrNotMember},
		{"participant not member", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 10, Participants: []split.SplitInput{{UserID: bob}, {UserID: dave}}}, ErrParticipantNotMember},
		{"no participants", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 10}, split.ErrInvalidSplitInput},
		{"zero shares", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 10, SplitType: split.SplitTypeShares, Participants: []split.SplitInput{{UserID: bob, Share: ptr(0)}}}, split.ErrInvalidSplitInput},
		{"percent off", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 10, SplitType: split.SplitTypePercent, Participants: []split.SplitInput{{UserID: bob, Percent: ptr(60)}, {UserID: carol, Percent: ptr(30)}}}, split.ErrInvalidSplitInput},
		{"unknown split type", alice, CreateExpenseRequest{GroupID: gid, Description: "x", Amount: 10, SplitType: "RANDOM", Participants: []split.SplitInput{{UserID: bob}}}, split.ErrInvalidSplitInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.CreateExpense(context.Background(), tt.creator, &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMarkSplitAsPaid(t *testing.T) {
	ctx := context.Background()
	svc, _, groups, notifier := newTestService()

	e, err := svc.CreateExpense(ctx, alice, &CreateExpenseRequest{
		GroupID:      groups.group.ID,
		Description:  "Taxi",
		Amount:       100,
		Participants: []split.SplitInput{{UserID: alice}, {UserID: bob}, {UserID: carol}},
	})
	require.NoError(t, err)

	_, err = svc.MarkSplitAsPaid(ctx, e.ID, bob, carol)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.MarkSplitAsPaid(ctx, e.ID, dave, alice)
	assert.ErrorIs(t, err, ErrSplitNotFound)

	_, err = svc.MarkSplitAsPaid(ctx, e.ID, alice, alice)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	updated, err := svc.MarkSplitAsPaid(ctx, e.ID, bob, bob)
	require.NoError(t, err)
	assert.False(t, updated.Settled)
	require.Len(t, notifier.paid, 1)
	assert.Equal(t, alice, notifier.paid[0].recipient)

	updated, err = svc.MarkSplitAsPaid(ctx, e.ID, carol, alice)
	require.NoError(t, err)
	assert.True(t, updated.Settled)
	assert.Len(t, notifier.paid, 1)

	_, err = svc.MarkSplitAsPaid(ctx, uuid.New(), bob, bob)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()
	svc, store, groups, _ := newTestService()

	create := func() *Expense {
		e, err := svc.CreateExpense(ctx, alice, &CreateExpenseRequest{
			GroupID:      groups.group.ID,
			Description:  "Fuel",
			Amount:       60,
			Participants: []split.SplitInput{{UserID: alice}, {UserID: bob}},
		})
		require.NoError(t, err)
		return e
	}

	e := create()
	assert.ErrorIs(t, svc.DeleteExpense(ctx, e.ID, bob), ErrNotCreator)
	require.NoError(t, svc.DeleteExpense(ctx, e.ID, alice))
	assert.Empty(t, store.expenses)

	e = create()
	_, err := svc.MarkSplitAsPaid(ctx, e.ID, bob, bob)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteExpense(ctx, e.ID, alice), ErrCannotDeleteExpense)
}

func TestListRequiresMembership(t *testing.T) {
	ctx := context.Background()
	svc, _, groups, _ := newTestService()

	_, _, err := svc.ListExpensesByGroupID(ctx, groups.group.ID, dave, 1, 20)
	assert.ErrorIs(t, err, group.ErrNotMember)

	_, total, err := svc.ListExpensesByGroupID(ctx, groups.group.ID, bob, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestHandlerErrors(t *testing.T) {
	svc, _, groups, _ := newTestService()
	router := middleware.TestUserMiddleware(NewHandler(svc).Routes())

	post := func(user uuid.UUID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(middleware.TestUserHeader, user.String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	gid := groups.group.ID.String()

	rec := post(alice, `{"group_id":"`+gid+`","description":"Lunch","amount":30,"participants":[{"user_id":"`+bob.String()+`"}]}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = post(alice, `{"group_id":"`+gid+`","description":"Lunch","amount":30,"split_type":"SHARES","participants":[{"user_id":"`+bob.String()+`","share":0}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SPLIT_INPUT")

	rec = post(dave, `{"group_id":"`+gid+`","description":"Lunch","amount":30,"participants":[{"user_id":"`+bob.String()+`"}]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
