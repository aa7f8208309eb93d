package ledger

import (
	"context"
	"testing"

	"casino-settlement-go/internal/database/dbtest"
	"casino-settlement-go/internal/events"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMirrorsBalance(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.User(t, db, "open@example.com", decimal.Zero, decimal.NewFromInt(40))
	svc := NewService(db, nil)

	session, err := svc.Open(context.Background(), user, models.GameBlackjack, decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, models.ResultPending, session.Result)
	assert.True(t, session.BalanceBefore.Equal(decimal.NewFromInt(40)))
	assert.True(t, session.BalanceAfter.Equal(session.BalanceBefore))
	assert.False(t, session.Settled)
}

func TestSettleOncePublishesOnce(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.User(t, db, "settle@example.com", decimal.Zero, decimal.NewFromInt(100))
	rec := &events.RecordingPublisher{}
	svc := NewService(db, rec)
	ctx := context.Background()

	session, err := svc.Open(ctx, user, models.GameBlackjack, decimal.NewFromInt(50))
	require.NoError(t, err)

	params := store.SettleSessionParams{
		SessionId:  session.Id,
		Result:     models.ResultLoss,
		Adjustment: models.BalanceAdjustment{Kind: models.AdjustDeduct, Amount: decimal.NewFromInt(50)},
	}
	settled, updated, err := svc.Settle(ctx, params)
	require.NoError(t, err)
	assert.True(t, settled.Settled)
	assert.True(t, updated.BalanceCrypto.Equal(decimal.NewFromInt(50)))

	_, _, err = svc.Settle(ctx, params)
	assert.ErrorIs(t, err, store.ErrSessionAlreadySettled)

	assert.Equal(t, 1, rec.Count(events.RoutingGameSessionSettled))

	history, err := svc.History(ctx, user.Id, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ResultLoss, history[0].Result)
}

func TestVoidOpenOnlyTouchesGameType(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.User(t, db, "void@example.com", decimal.Zero, decimal.NewFromInt(100))
	svc := NewService(db, nil)
	ctx := context.Background()

	leftover, err := svc.Open(ctx, user, models.GameRoulette, decimal.NewFromInt(5))
	require.NoError(t, err)
	live, err := svc.Open(ctx, user, models.GameBlackjack, decimal.NewFromInt(10))
	require.NoError(t, err)

	voided, err := svc.VoidOpen(ctx, user.Id, models.GameRoulette, "void: test")
	require.NoError(t, err)
	assert.Equal(t, 1, voided)

	got, err := db.GetGameSession(ctx, leftover.Id)
	require.NoError(t, err)
	assert.True(t, got.Settled)
	assert.Equal(t, models.ResultVoid, got.Result)

	got, err = db.GetGameSession(ctx, live.Id)
	require.NoError(t, err)
	assert.False(t, got.Settled)

	after, err := db.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, after.Total().Equal(decimal.NewFromInt(100)))

	voided, err = svc.VoidOpen(ctx, user.Id, models.GameRoulette, "void: test")
	require.NoError(t, err)
	assert.Zero(t, voided)
}
