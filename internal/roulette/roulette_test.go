package roulette

import (
	"context"
	"testing"

	"casino-settlement-go/internal/database"
	"casino-settlement-go/internal/database/dbtest"
	"casino-settlement-go/internal/ledger"
	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		n      int
		color  Color
		dozen  int
		column int
		low    bool
		even   bool
	}{
		{0, Green, 0, 0, false, false},
		{1, Red, 1, 1, true, false},
		{2, Black, 1, 2, true, true},
		{3, Red, 1, 3, true, false},
		{17, Black, 2, 2, true, false},
		{18, Red, 2, 3, true, true},
		{19, Red, 2, 1, false, false},
		{36, Red, 3, 3, false, true},
	}

	for _, tt := range tests {
		p := Classify(tt.n)
		assert.Equal(t, tt.color, p.Color, "color of %d", tt.n)
		assert.Equal(t, tt.dozen, p.Dozen, "dozen of %d", tt.n)
		assert.Equal(t, tt.column, p.Column, "column of %d", tt.n)
		if tt.n != 0 {
			assert.Equal(t, tt.low, p.Low, "low of %d", tt.n)
			assert.Equal(t, tt.even, p.Even, "even of %d", tt.n)
		}
	}
}

func TestRedAndBlackSetsHaveEighteenNumbers(t *testing.T) {
	red, black := 0, 0
	for n := 1; n <= MaxNumber; n++ {
		switch Classify(n).Color {
		case Red:
			red++
		case Black:
			black++
		}
	}
	assert.Equal(t, 18, red)
	assert.Equal(t, 18, black)
}

func TestZeroLosesOutsideBets(t *testing.T) {
	zero := Classify(0)
	for _, bt := range []BetType{RedBet, BlackBet, EvenBet, OddBet, LowBet, HighBet, Dozen1, Column3} {
		assert.False(t, Bet{Type: bt, Amount: dec(1)}.Wins(zero), "%s should lose on zero", bt)
	}
	assert.True(t, Straight(0, dec(1)).Wins(zero))
}

func TestEvaluatePayouts(t *testing.T) {
	bets := []Bet{
		Straight(17, dec(10)),
		{Type: BlackBet, Amount: dec(5)},
		{Type: Dozen1, Amount: dec(5)},
	}
	ev := Evaluate(bets, Classify(17))

	// 10×36 + 5×2, dozen 1 loses
	assert.True(t, ev.Payout.Equal(dec(370)), "payout %s", ev.Payout)
	assert.True(t, ev.TotalBet.Equal(dec(20)))
	assert.True(t, ev.Net.Equal(dec(350)))
	assert.Len(t, ev.Winning, 2)
}

func TestBetValidate(t *testing.T) {
	assert.NoError(t, Bet{Type: Column2, Amount: dec(1)}.Validate())
	assert.Error(t, Straight(37, dec(1)).Validate())
	assert.Error(t, Bet{Type: StraightUp, Amount: dec(1)}.Validate())
	assert.NoError(t, Straight(0, dec(1)).Validate())
	assert.False(t, Bet{Type: StraightUp, Amount: dec(1)}.Wins(Classify(0)))
	assert.Error(t, Bet{Type: RedBet, Amount: dec(0)}.Validate())
	assert.Error(t, Bet{Type: "corner", Amount: dec(1)}.Validate())
}

func newEngine(t *testing.T, number int) (*Engine, *database.Service) {
	db := dbtest.New(t)
	cfg := models.RouletteConfig{Enabled: true, MinBet: dec(1), MaxBet: dec(1000)}
	e := NewEngine(db, ledger.NewService(db, nil), nil, cfg, WithSpinner(func() int { return number }))
	return e, db
}

func TestStraightUpWinCreditsCryptoOnly(t *testing.T) {
	e, db := newEngine(t, 17)
	user := dbtest.User(t, db, "winner@example.com", dec(20), dec(20))

	res, err := e.PlaceBets(context.Background(), user.Id, []Bet{Straight(17, dec(10))})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	assert.Equal(t, models.ResultWin, res.Result)
	assert.True(t, res.Evaluation.Payout.Equal(dec(360)))
	assert.True(t, res.WinAmount.Equal(dec(350)))
	assert.True(t, res.Balance.BalanceCrypto.Equal(dec(370)), "crypto %s", res.Balance.BalanceCrypto)
	assert.True(t, res.Balance.BalanceFiat.Equal(dec(20)))

	session, err := db.GetGameSession(context.Background(), res.SessionId)
	require.NoError(t, err)
	assert.True(t, session.Settled)
	assert.True(t, session.BetAmount.Equal(dec(10)))
	assert.True(t, session.BalanceBefore.Equal(dec(40)))
	assert.True(t, session.BalanceAfter.Equal(dec(390)))
}

func TestNetLossDeductsCryptoFirst(t *testing.T) {
	e, db := newEngine(t, 2)
	user := dbtest.User(t, db, "loser@example.com", dec(20), dec(5))

	res, err := e.PlaceBets(context.Background(), user.Id, []Bet{
		{Type: RedBet, Amount: dec(6)},
		{Type: Dozen1, Amount: dec(2)},
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	// Black 2 in dozen 1: red loses 6, dozen pays 6 on a stake of 2. Net -2.
	assert.Equal(t, models.ResultLoss, res.Result)
	assert.True(t, res.Evaluation.Net.Equal(dec(-2)))
	assert.True(t, res.Balance.BalanceCrypto.Equal(dec(3)))
	assert.True(t, res.Balance.BalanceFiat.Equal(dec(20)))
}

func TestBreakEvenIsDraw(t *testing.T) {
	e, db := newEngine(t, 1)
	user := dbtest.User(t, db, "even@example.com", dec(0), dec(10))

	res, err := e.PlaceBets(context.Background(), user.Id, []Bet{
		{Type: RedBet, Amount: dec(2)},
		{Type: BlackBet, Amount: dec(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResultDraw, res.Result)
	assert.True(t, res.Balance.TotalBalance.Equal(dec(10)))
}

func TestPlaceBetsValidation(t *testing.T) {
	e, db := newEngine(t, 5)
	user := dbtest.User(t, db, "limits@example.com", dec(0), dec(50))
	ctx := context.Background()

	tests := []struct {
		name string
		bets []Bet
		want string
	}{
		{"no bets", nil, "no bets placed"},
		{"over max", []Bet{{Type: RedBet, Amount: dec(1001)}}, "total bet must be at most 1000"},
		{"insufficient", []Bet{{Type: RedBet, Amount: dec(60)}}, "insufficient balance"},
		{"bad number", []Bet{Straight(40, dec(1))}, "straight-up number 40 is off the wheel"},
		{"missing number", []Bet{{Type: StraightUp, Amount: dec(1)}}, "straight-up bet needs a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.PlaceBets(ctx, user.Id, tt.bets)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
		})
	}

	sessions, err := db.GetUserGameSessions(ctx, user.Id, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDisabledRoulette(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db, ledger.NewService(db, nil), nil, models.RouletteConfig{Enabled: false})

	res, err := e.PlaceBets(context.Background(), "anyone", []Bet{{Type: RedBet, Amount: dec(1)}})
	require.NoError(t, err)
	assert.Equal(t, "roulette is currently disabled", res.Error)
}

func TestSpinVoidsLeftoverSession(t *testing.T) {
	e, db := newEngine(t, 2)
	ctx := context.Background()
	user := dbtest.User(t, db, "leftover@example.com", dec(0), dec(50))

	leftover, err := ledger.NewService(db, nil).Open(ctx, user, models.GameRoulette, dec(20))
	require.NoError(t, err)

	res, err := e.PlaceBets(ctx, user.Id, []Bet{{Type: RedBet, Amount: dec(10)}})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Balance.TotalBalance.Equal(dec(40)), "total %s", res.Balance.TotalBalance)

	got, err := db.GetGameSession(ctx, leftover.Id)
	require.NoError(t, err)
	assert.True(t, got.Settled)
	assert.Equal(t, models.ResultVoid, got.Result)
}
