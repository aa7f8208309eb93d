package blackjack

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"casino-settlement-go/internal/cards"
	"casino-settlement-go/internal/database"
	"casino-settlement-go/internal/database/dbtest"
	"casino-settlement-go/internal/ledger"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapRoundStore is a RoundStore that copies through JSON like the real backends.
type mapRoundStore struct {
	mu     sync.Mutex
	rounds map[string][]byte
}

func newMapRoundStore() *mapRoundStore {
	return &mapRoundStore{rounds: make(map[string][]byte)}
}

func (m *mapRoundStore) Get(ctx context.Context, userId string) (*Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.rounds[userId]
	if !ok {
		return nil, ErrRoundNotFound
	}
	var r Round
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *mapRoundStore) Save(ctx context.Context, round *Round, ttl time.Duration) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[round.UserId] = data
	return nil
}

func (m *mapRoundStore) Delete(ctx context.Context, userId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rounds, userId)
	return nil
}

func card(r cards.Rank) cards.Card {
	return cards.Card{Suit: cards.Spades, Rank: r}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

type fixture struct {
	engine *Engine
	db     *database.Service
	rounds *mapRoundStore
	next   []cards.Card
}

func testConfig() models.BlackjackConfig {
	return models.BlackjackConfig{
		Enabled:     true,
		MinBet:      dec(1),
		MaxBet:      dec(500),
		AllowedBets: []decimal.Decimal{dec(10), dec(20), dec(50), dec(100)},
		DeckCount:   1,
		RoundTTL:    time.Minute,
	}
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{db: dbtest.New(t), rounds: newMapRoundStore()}
	f.engine = NewEngine(f.db, ledger.NewService(f.db, nil), f.rounds, nil, testConfig(),
		WithShoeFactory(func(deckCount int) *cards.Shoe {
			return cards.StackedShoe(deckCount, f.next...)
		}))
	return f
}

// deal stacks the shoe for the next round. Deal order is player, dealer, player, dealer.
func (f *fixture) deal(c ...cards.Card) {
	f.next = c
}

func (f *fixture) user(t *testing.T, fiat, crypto int64) *models.User {
	return dbtest.User(t, f.db, t.Name()+"@example.com", dec(fiat), dec(crypto))
}

func (f *fixture) reload(t *testing.T, userId string) *models.User {
	u, err := f.db.GetUserById(context.Background(), userId)
	require.NoError(t, err)
	return u
}

func TestPlayerWonCreditsBetSplitEvenly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(10), card(10), card(9), card(7))
	res, err := f.engine.StartNewGame(ctx, user.Id, dec(50))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, StatusActive, res.Round.Status)

	res, err = f.engine.Stand(ctx, user.Id)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, StatusPlayerWon, res.Round.Status)
	assert.True(t, res.Round.WinAmount.Equal(dec(50)))

	u := f.reload(t, user.Id)
	assert.True(t, u.BalanceFiat.Equal(dec(25)), "fiat %s", u.BalanceFiat)
	assert.True(t, u.BalanceCrypto.Equal(dec(125)), "crypto %s", u.BalanceCrypto)

	_, err = f.rounds.Get(ctx, user.Id)
	assert.ErrorIs(t, err, ErrRoundNotFound)
}

func TestDealerWonDeductsCryptoFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 30, 40)

	f.deal(card(10), card(10), card(7), card(9))
	_, err := f.engine.StartNewGame(ctx, user.Id, dec(50))
	require.NoError(t, err)

	res, err := f.engine.Stand(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusDealerWon, res.Round.Status)

	u := f.reload(t, user.Id)
	assert.True(t, u.BalanceCrypto.IsZero(), "crypto %s", u.BalanceCrypto)
	assert.True(t, u.BalanceFiat.Equal(dec(20)), "fiat %s", u.BalanceFiat)
}

func TestDoubleDownBustDeductsDoubledBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(10), card(10), card(6), card(7), card(cards.King))
	_, err := f.engine.StartNewGame(ctx, user.Id, dec(20))
	require.NoError(t, err)

	res, err := f.engine.DoubleDown(ctx, user.Id)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, StatusPlayerBusted, res.Round.Status)
	assert.True(t, res.Round.BetAmount.Equal(dec(40)))

	u := f.reload(t, user.Id)
	assert.True(t, u.Total().Equal(dec(60)), "total %s", u.Total())
}

func TestNaturalBlackjackSettlesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(cards.Ace), card(9), card(cards.King), card(7))
	res, err := f.engine.StartNewGame(ctx, user.Id, dec(20))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, StatusBlackjack, res.Round.Status)
	assert.True(t, res.Round.WinAmount.Equal(dec(30)))

	u := f.reload(t, user.Id)
	assert.True(t, u.BalanceFiat.Equal(dec(15)))
	assert.True(t, u.BalanceCrypto.Equal(dec(115)))

	_, err = f.rounds.Get(ctx, user.Id)
	assert.ErrorIs(t, err, ErrRoundNotFound)

	sessions, err := f.db.GetUserGameSessions(ctx, user.Id, 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.ResultWin, sessions[0].Result)
	assert.True(t, sessions[0].Settled)
}

func TestNaturalAgainstDealerBlackjackIsDraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(cards.Ace), card(cards.Ace), card(cards.King), card(cards.Queen))
	res, err := f.engine.StartNewGame(ctx, user.Id, dec(20))
	require.NoError(t, err)
	assert.Equal(t, StatusDraw, res.Round.Status)
	assert.True(t, f.reload(t, user.Id).Total().Equal(dec(100)))
}

func TestSplitWithOneNaturalSettlesBothHands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(cards.Ace), card(10), card(cards.Ace), card(7), card(cards.King), card(5), card(4))
	_, err := f.engine.StartNewGame(ctx, user.Id, dec(10))
	require.NoError(t, err)

	res, err := f.engine.Split(ctx, user.Id)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Round.IsSplit)
	assert.True(t, res.Round.IsSplitActive, "first hand blackjack must advance to the split hand")
	assert.True(t, res.Round.BetAmount.Equal(dec(20)))

	res, err = f.engine.Hit(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, res.Round.Status)
	assert.Equal(t, 20, res.Round.SplitValue)

	res, err = f.engine.Stand(ctx, user.Id)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []Status{StatusBlackjack, StatusPlayerWon}, res.Round.HandOutcomes)
	assert.Equal(t, StatusPlayerWon, res.Round.Status)
	assert.True(t, res.Round.WinAmount.Equal(dec(25)), "win %s", res.Round.WinAmount)

	u := f.reload(t, user.Id)
	assert.True(t, u.Total().Equal(dec(125)), "total %s", u.Total())

	sessions, err := f.db.GetUserGameSessions(ctx, user.Id, 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].WinAmount.Equal(dec(25)))
}

func TestSplitBothHandsBustSkipsDealer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(8), card(10), card(8), card(6), card(5), card(6), card(10), card(10))
	_, err := f.engine.StartNewGame(ctx, user.Id, dec(10))
	require.NoError(t, err)

	_, err = f.engine.Split(ctx, user.Id)
	require.NoError(t, err)

	// 8+5+10 busts the first hand and moves to the split hand
	res, err := f.engine.Hit(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, res.Round.Status)
	assert.True(t, res.Round.IsSplitActive)

	// 8+6+10 busts the second hand
	res, err = f.engine.Hit(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusPlayerBusted, res.Round.Status)
	assert.Len(t, res.Round.DealerHand, 2)

	assert.True(t, f.reload(t, user.Id).Total().Equal(dec(80)))
}

func TestSurrenderDeductsHalf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(10), card(10), card(6), card(cards.Ace))
	_, err := f.engine.StartNewGame(ctx, user.Id, dec(50))
	require.NoError(t, err)

	res, err := f.engine.Surrender(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusSurrendered, res.Round.Status)
	assert.True(t, f.reload(t, user.Id).Total().Equal(dec(75)))
}

func TestValidationFailuresLeaveRoundUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 30)

	res, err := f.engine.StartNewGame(ctx, user.Id, dec(15))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not an allowed amount")

	res, err = f.engine.StartNewGame(ctx, user.Id, dec(50))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient balance", res.Error)

	res, err = f.engine.Hit(ctx, user.Id)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "no active game", res.Error)

	f.deal(card(10), card(10), card(6), card(7), card(2))
	_, err = f.engine.StartNewGame(ctx, user.Id, dec(20))
	require.NoError(t, err)

	// 30 does not cover a doubled 20 bet
	res, err = f.engine.DoubleDown(ctx, user.Id)
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = f.engine.Split(ctx, user.Id)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "hand cannot be split", res.Error)

	_, err = f.engine.Hit(ctx, user.Id)
	require.NoError(t, err)
	res, err = f.engine.Surrender(ctx, user.Id)
	require.NoError(t, err)
	assert.False(t, res.Success)

	stored, err := f.rounds.Get(ctx, user.Id)
	require.NoError(t, err)
	assert.Len(t, stored.PlayerHand, 3)
	assert.True(t, stored.BetAmount.Equal(dec(20)))
	assert.True(t, f.reload(t, user.Id).Total().Equal(dec(30)))
}

func TestDisabledGameRejectsStart(t *testing.T) {
	f := newFixture(t)
	f.engine.cfg.Enabled = false
	user := f.user(t, 0, 100)

	res, err := f.engine.StartNewGame(context.Background(), user.Id, dec(10))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "blackjack is currently disabled", res.Error)
}

func TestAbandonedRoundSettledAsLossOnNewGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(10), card(10), card(6), card(7))
	first, err := f.engine.StartNewGame(ctx, user.Id, dec(20))
	require.NoError(t, err)

	f.deal(card(10), card(10), card(7), card(8))
	second, err := f.engine.StartNewGame(ctx, user.Id, dec(50))
	require.NoError(t, err)
	require.True(t, second.Success, second.Error)
	assert.NotEqual(t, first.Round.GameId, second.Round.GameId)
	assert.True(t, second.Balance.TotalBalance.Equal(dec(80)))

	abandoned, err := f.db.GetGameSession(ctx, first.Round.SessionId)
	require.NoError(t, err)
	assert.True(t, abandoned.Settled)
	assert.Equal(t, models.ResultLoss, abandoned.Result)

	stored, err := f.rounds.Get(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, second.Round.GameId, stored.GameId)
}

func TestRejectedStartKeepsActiveRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 30)

	f.deal(card(10), card(10), card(6), card(7))
	first, err := f.engine.StartNewGame(ctx, user.Id, dec(20))
	require.NoError(t, err)
	require.True(t, first.Success, first.Error)

	tests := []struct {
		name string
		bet  int64
	}{
		{"bet above total", 50},
		{"bet above total after forfeit", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.deal(card(10), card(10), card(7), card(8))
			res, err := f.engine.StartNewGame(ctx, user.Id, dec(tt.bet))
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, "insufficient balance", res.Error)

			stored, err := f.rounds.Get(ctx, user.Id)
			require.NoError(t, err)
			assert.Equal(t, first.Round.GameId, stored.GameId)
			assert.Equal(t, StatusActive, stored.Status)

			session, err := f.db.GetGameSession(ctx, first.Round.SessionId)
			require.NoError(t, err)
			assert.False(t, session.Settled)
			assert.True(t, f.reload(t, user.Id).Total().Equal(dec(30)))
		})
	}
}

func TestHandleGameEndSettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(10), card(10), card(6), card(7))
	_, err := f.engine.StartNewGame(ctx, user.Id, dec(20))
	require.NoError(t, err)

	round, err := f.rounds.Get(ctx, user.Id)
	require.NoError(t, err)
	round.Status = StatusDealerWon

	_, _, err = f.engine.HandleGameEnd(ctx, round)
	require.NoError(t, err)

	_, _, err = f.engine.HandleGameEnd(ctx, round)
	assert.ErrorIs(t, err, store.ErrSessionAlreadySettled)

	assert.True(t, f.reload(t, user.Id).Total().Equal(dec(80)))
}

func TestActiveViewHidesDealerHoleCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(10), card(cards.Ace), card(6), card(9))
	res, err := f.engine.StartNewGame(ctx, user.Id, dec(10))
	require.NoError(t, err)

	require.Len(t, res.Round.DealerHand, 1)
	assert.Equal(t, 11, res.Round.DealerValue)

	state, err := f.engine.GetState(ctx, user.Id)
	require.NoError(t, err)
	assert.Len(t, state.Round.DealerHand, 1)
}

func TestConcurrentHitsAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, 0, 100)

	f.deal(card(2), card(10), card(2), card(7), card(2), card(2), card(2), card(2))
	_, err := f.engine.StartNewGame(ctx, user.Id, dec(10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.Hit(ctx, user.Id)
		}()
	}
	wg.Wait()

	stored, err := f.rounds.Get(ctx, user.Id)
	require.NoError(t, err)
	assert.Len(t, stored.PlayerHand, 6)
}
