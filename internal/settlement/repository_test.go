package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/mixi/internal/database"
	"github.com/fkhayef/mixi/internal/expense"
	"github.com/fkhayef/mixi/internal/expense/split"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/internal/notification"
	"github.com/fkhayef/mixi/internal/user"
)

// openTestDB connects to TEST_DATABASE_URL and skips the test when it is unset
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgresConnection(url, database.PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func TestPostgresSettlementRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	users := user.NewService(user.NewRepository(db))
	notifications := notification.NewService(notification.NewRepository(db), nil)
	groups := group.NewService(group.NewRepository(db), notifications, "SAR")
	expenseRepo := expense.NewRepository(db)
	expenses := expense.NewService(expenseRepo, groups, notifications, nil, split.NewSplitStrategyFactory())
	svc := NewService(NewRepository(db, expenseRepo), expenses, groups, notifications, nil)

	run := uuid.NewString()[:8]
	ids := make([]uuid.UUID, 3)
	for i, name := range []string{"sara", "omar", "lina"} {
		u, err := users.Create(ctx, &user.CreateUserRequest{
			Username: name,
			Email:    fmt.Sprintf("%s-%s@example.com", name, run),
		})
		require.NoError(t, err)
		ids[i] = u.ID
	}
	sara, omar, lina := ids[0], ids[1], ids[2]

	g, err := groups.Create(ctx, sara, &group.CreateGroupRequest{Name: "Trip " + run})
	require.NoError(t, err)
	t.Cleanup(func() { _ = groups.Delete(context.Background(), g.ID, sara) })

	for _, id := range []uuid.UUID{omar, lina} {
		_, err := groups.AddMember(ctx, g.ID, sara, &group.AddMemberRequest{UserID: id})
		require.NoError(t, err)
		_, err = groups.AcceptInvitation(ctx, g.ID, id)
		require.NoError(t, err)
	}

	amount := func(v float64) *float64 { return &v }
	e, err := expenses.CreateExpense(ctx, sara, &expense.CreateExpenseRequest{
		GroupID:     g.ID,
		Description: "Dinner",
		Amount:      90,
		SplitType:   split.SplitTypeExact,
		Participants: []split.SplitInput{
			{UserID: sara, Amount: amount(30)},
			{UserID: omar, Amount: amount(30)},
			{UserID: lina, Amount: amount(30)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "SAR", e.CurrencyCode)

	batch, replayed, err := svc.SettleWith(ctx, g.ID, omar, &SettlePairRequest{OtherUserID: sara, IdempotencyKey: "pg-" + run})
	require.NoError(t, err)
	assert.False(t, replayed)
	require.Len(t, batch.Settlements, 1)
	assert.Equal(t, 30.0, batch.Settlements[0].Amount)

	again, replayed, err := svc.SettleWith(ctx, g.ID, omar, &SettlePairRequest{OtherUserID: sara, IdempotencyKey: "pg-" + run})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, batch.ID, again.ID)
	require.Len(t, again.Settlements, 1)
	assert.Equal(t, "omar", again.Settlements[0].PayerUsername)
	require.NotNil(t, again.CounterpartyID)
	assert.Equal(t, sara, *again.CounterpartyID)

	_, _, err = svc.SettleAll(ctx, g.ID, omar, &SettleAllRequest{IdempotencyKey: "pg-" + run})
	assert.ErrorIs(t, err, ErrKeyReused)

	stored, err := expenses.GetExpenseByID(ctx, e.ID, sara)
	require.NoError(t, err)
	assert.True(t, stored.SplitFor(omar).Paid)
	assert.False(t, stored.SplitFor(lina).Paid)
	assert.False(t, stored.Settled)

	_, _, err = svc.SettleAll(ctx, g.ID, lina, &SettleAllRequest{IdempotencyKey: "pg-all-" + run})
	require.NoError(t, err)

	stored, err = expenses.GetExpenseByID(ctx, e.ID, sara)
	require.NoError(t, err)
	assert.True(t, stored.Settled)

	history, total, err := svc.History(ctx, g.ID, sara, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, history, 2)
}
