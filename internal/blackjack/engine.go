package blackjack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/cards"
	"casino-settlement-go/internal/ledger"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"
	"casino-settlement-go/internal/userlock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultRoundTTL = 30 * time.Minute

const genericFailure = "the game could not be updated, please try again"

// Engine runs blackjack rounds. A round's stake is virtual until settlement:
// the only balance change happens once, in HandleGameEnd.
type Engine struct {
	store   store.Store
	ledger  *ledger.Service
	rounds  RoundStore
	locks   *userlock.Locker
	cfg     models.BlackjackConfig
	newShoe func(deckCount int) *cards.Shoe
}

type Option func(*Engine)

// WithShoeFactory replaces the shuffled shoe used for new rounds.
func WithShoeFactory(f func(deckCount int) *cards.Shoe) Option {
	return func(e *Engine) {
		e.newShoe = f
	}
}

func NewEngine(s store.Store, l *ledger.Service, rounds RoundStore, locks *userlock.Locker, cfg models.BlackjackConfig, opts ...Option) *Engine {
	if cfg.RoundTTL <= 0 {
		cfg.RoundTTL = DefaultRoundTTL
	}
	if cfg.DeckCount <= 0 {
		cfg.DeckCount = 6
	}
	if locks == nil {
		locks = userlock.New()
	}

	e := &Engine{
		store:   s,
		ledger:  l,
		rounds:  rounds,
		locks:   locks,
		cfg:     cfg,
		newShoe: cards.NewShoe,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func failure(reason string, round *Round) *Result {
	r := &Result{Success: false, Error: reason}
	if round != nil {
		r.Round = NewView(round)
	}
	return r
}

func (e *Engine) validateBet(bet decimal.Decimal) string {
	if !e.cfg.Enabled {
		return "blackjack is currently disabled"
	}
	if !bet.IsPositive() {
		return "bet must be positive"
	}
	if len(e.cfg.AllowedBets) > 0 {
		allowed := false
		for _, a := range e.cfg.AllowedBets {
			if a.Equal(bet) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Sprintf("bet %s is not an allowed amount", bet.String())
		}
	}
	if bet.LessThan(e.cfg.MinBet) {
		return fmt.Sprintf("bet must be at least %s", e.cfg.MinBet.String())
	}
	if e.cfg.MaxBet.IsPositive() && bet.GreaterThan(e.cfg.MaxBet) {
		return fmt.Sprintf("bet must be at most %s", e.cfg.MaxBet.String())
	}
	return ""
}

// StartNewGame deals a new round. An Active round left over for the user is
// settled as lost first.
func (e *Engine) StartNewGame(ctx context.Context, userId string, bet decimal.Decimal) (*Result, error) {
	unlock := e.locks.Lock(userId)
	defer unlock()

	if reason := e.validateBet(bet); reason != "" {
		return failure(reason, nil), nil
	}

	user, err := e.store.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return failure("user not found", nil), nil
		}
		return failure(genericFailure, nil), err
	}

	if user.Total().LessThan(bet) {
		return failure("insufficient balance", nil), nil
	}

	existing, err := e.rounds.Get(ctx, userId)
	if err != nil && !errors.Is(err, ErrRoundNotFound) {
		return failure(genericFailure, nil), fmt.Errorf("failed to load round: %w", err)
	}
	if existing != nil && existing.Status == StatusActive {
		// the forfeited bet must leave enough to cover the new one
		forfeited := *existing
		forfeit(&forfeited)
		if user.Total().Sub(forfeited.Settlement().Deduct).LessThan(bet) {
			return failure("insufficient balance", nil), nil
		}
	}
	if existing != nil {
		if existing.Status == StatusActive {
			zap.L().Info("Settling abandoned blackjack round",
				zap.String("user_id", userId),
				zap.String("game_id", existing.GameId))
			forfeit(existing)
			if _, _, err := e.HandleGameEnd(ctx, existing); err != nil && !errors.Is(err, store.ErrSessionAlreadySettled) {
				return failure(genericFailure, nil), fmt.Errorf("failed to settle abandoned round: %w", err)
			}
		} else if err := e.rounds.Delete(ctx, userId); err != nil {
			return failure(genericFailure, nil), fmt.Errorf("failed to clear finished round: %w", err)
		}

		if user, err = e.store.GetUserById(ctx, userId); err != nil {
			return failure(genericFailure, nil), err
		}
	}

	session, err := e.ledger.Open(ctx, user, models.GameBlackjack, bet)
	if err != nil {
		return failure(genericFailure, nil), err
	}

	round := &Round{
		GameId:    uuid.New().String(),
		UserId:    userId,
		SessionId: session.Id,
		BetAmount: bet,
		Status:    StatusActive,
		Shoe:      e.newShoe(e.cfg.DeckCount),
		CreatedAt: time.Now().UTC(),
	}
	round.PlayerHand = append(round.PlayerHand, round.Shoe.Draw())
	round.DealerHand = append(round.DealerHand, round.Shoe.Draw())
	round.PlayerHand = append(round.PlayerHand, round.Shoe.Draw())
	round.DealerHand = append(round.DealerHand, round.Shoe.Draw())

	zap.L().Info("Blackjack round started",
		zap.String("user_id", userId),
		zap.String("game_id", round.GameId),
		zap.String("session_id", session.Id),
		zap.String("bet", bet.String()))

	if cards.IsBlackjack(round.PlayerHand) {
		round.Status = StatusBlackjack
		if cards.IsBlackjack(round.DealerHand) {
			round.Status = StatusDraw
		}
		return e.finish(ctx, round)
	}

	if err := e.rounds.Save(ctx, round, e.cfg.RoundTTL); err != nil {
		return failure(genericFailure, nil), fmt.Errorf("failed to save round: %w", err)
	}
	return &Result{Success: true, Round: NewView(round), Balance: balanceOf(user)}, nil
}

// act loads the user's round and user, applies move and then either
// persists the round or settles it when move ended it. A non-empty reason
// from move is a validation failure and leaves the stored round untouched.
func (e *Engine) act(ctx context.Context, userId, action string, move func(r *Round, u *models.User) string) (*Result, error) {
	unlock := e.locks.Lock(userId)
	defer unlock()

	round, err := e.rounds.Get(ctx, userId)
	if err != nil {
		if errors.Is(err, ErrRoundNotFound) {
			return failure("no active game", nil), nil
		}
		return failure(genericFailure, nil), fmt.Errorf("failed to load round: %w", err)
	}
	if round.Status != StatusActive {
		return failure("game is already over", round), nil
	}

	user, err := e.store.GetUserById(ctx, userId)
	if err != nil {
		return failure(genericFailure, round), err
	}

	if reason := move(round, user); reason != "" {
		return failure(reason, round), nil
	}

	zap.L().Debug("Blackjack action",
		zap.String("user_id", userId),
		zap.String("game_id", round.GameId),
		zap.String("action", action),
		zap.String("status", string(round.Status)))

	if round.Status.Terminal() {
		return e.finish(ctx, round)
	}

	if err := e.rounds.Save(ctx, round, e.cfg.RoundTTL); err != nil {
		return failure(genericFailure, nil), fmt.Errorf("failed to save round: %w", err)
	}
	return &Result{Success: true, Round: NewView(round), Balance: balanceOf(user)}, nil
}

func (e *Engine) Hit(ctx context.Context, userId string) (*Result, error) {
	return e.act(ctx, userId, "hit", func(r *Round, _ *models.User) string {
		r.drawToActiveHand()
		if cards.IsBust(r.ActiveHand()) {
			e.handBusted(r)
		}
		return ""
	})
}

func (e *Engine) Stand(ctx context.Context, userId string) (*Result, error) {
	return e.act(ctx, userId, "stand", func(r *Round, _ *models.User) string {
		if r.IsSplit && !r.IsSplitActive {
			e.advanceToSplitHand(r)
			return ""
		}
		e.playDealerAndResolve(r)
		return ""
	})
}

func (e *Engine) DoubleDown(ctx context.Context, userId string) (*Result, error) {
	return e.act(ctx, userId, "double", func(r *Round, u *models.User) string {
		if r.IsSplit {
			return "cannot double down after a split"
		}
		if len(r.PlayerHand) != 2 {
			return "can only double down on the first two cards"
		}
		if u.Total().LessThan(r.BetAmount.Mul(decimal.NewFromInt(2))) {
			return "insufficient balance to double down"
		}

		r.BetAmount = r.BetAmount.Mul(decimal.NewFromInt(2))
		r.drawToActiveHand()
		if cards.IsBust(r.PlayerHand) {
			r.Status = StatusPlayerBusted
			return ""
		}
		e.playDealerAndResolve(r)
		return ""
	})
}

func (e *Engine) Split(ctx context.Context, userId string) (*Result, error) {
	return e.act(ctx, userId, "split", func(r *Round, u *models.User) string {
		if r.IsSplit {
			return "hand is already split"
		}
		if !cards.CanSplit(r.PlayerHand) {
			return "hand cannot be split"
		}
		if u.Total().LessThan(r.BetAmount.Mul(decimal.NewFromInt(2))) {
			return "insufficient balance to split"
		}

		r.BetAmount = r.BetAmount.Mul(decimal.NewFromInt(2))
		r.IsSplit = true
		r.IsSplitActive = false
		r.SplitHand = []cards.Card{r.PlayerHand[1]}
		r.PlayerHand = []cards.Card{r.PlayerHand[0]}
		r.PlayerHand = append(r.PlayerHand, r.Shoe.Draw())
		r.SplitHand = append(r.SplitHand, r.Shoe.Draw())

		firstBJ, secondBJ := cards.IsBlackjack(r.PlayerHand), cards.IsBlackjack(r.SplitHand)
		switch {
		case firstBJ && secondBJ:
			r.HandOutcomes = []Status{StatusBlackjack, StatusBlackjack}
			r.Status = StatusPlayerWon
		case firstBJ:
			r.IsSplitActive = true
		}
		return ""
	})
}

func (e *Engine) Surrender(ctx context.Context, userId string) (*Result, error) {
	return e.act(ctx, userId, "surrender", func(r *Round, _ *models.User) string {
		if r.IsSplit {
			return "cannot surrender after a split"
		}
		if len(r.PlayerHand) != 2 {
			return "can only surrender on the first two cards"
		}
		r.Status = StatusSurrendered
		return ""
	})
}

// GetState returns the user's active round, if any.
func (e *Engine) GetState(ctx context.Context, userId string) (*Result, error) {
	round, err := e.rounds.Get(ctx, userId)
	if err != nil {
		if errors.Is(err, ErrRoundNotFound) {
			return failure("no active game", nil), nil
		}
		return failure(genericFailure, nil), fmt.Errorf("failed to load round: %w", err)
	}
	return &Result{Success: true, Round: NewView(round)}, nil
}

// forfeit marks an abandoned round as lost on every hand.
func forfeit(r *Round) {
	r.Status = StatusDealerWon
	r.HandOutcomes = nil
	if r.IsSplit {
		r.HandOutcomes = []Status{StatusDealerWon, StatusDealerWon}
	}
}

// handBusted handles a bust on the active hand. Busting the first split hand
// moves play to the second; the dealer only plays while a hand is standing.
func (e *Engine) handBusted(r *Round) {
	if !r.IsSplit {
		r.Status = StatusPlayerBusted
		return
	}
	if !r.IsSplitActive {
		e.advanceToSplitHand(r)
		return
	}
	e.playDealerAndResolve(r)
}

func (e *Engine) advanceToSplitHand(r *Round) {
	r.IsSplitActive = true
	if cards.IsBlackjack(r.SplitHand) {
		e.playDealerAndResolve(r)
	}
}

// playDealerAndResolve draws the dealer to 17 or more, standing on all 17s,
// and decides the round. A split round where both hands busted is decided
// without dealer play.
func (e *Engine) playDealerAndResolve(r *Round) {
	if r.IsSplit && cards.IsBust(r.PlayerHand) && cards.IsBust(r.SplitHand) {
		r.HandOutcomes = []Status{StatusPlayerBusted, StatusPlayerBusted}
		r.Status = StatusPlayerBusted
		return
	}

	for cards.HandValue(r.DealerHand) < cards.DealerStandsAt {
		r.DealerHand = append(r.DealerHand, r.Shoe.Draw())
	}

	if !r.IsSplit {
		r.Status = compareHands(r.PlayerHand, r.DealerHand)
		return
	}

	r.HandOutcomes = []Status{
		splitHandOutcome(r.PlayerHand, r.DealerHand),
		splitHandOutcome(r.SplitHand, r.DealerHand),
	}
	r.Status = aggregateStatus(r.HandOutcomes, r.HandBet())
}

// finish settles a round that just ended and shapes the response.
func (e *Engine) finish(ctx context.Context, round *Round) (*Result, error) {
	session, user, err := e.HandleGameEnd(ctx, round)
	if err != nil {
		if errors.Is(err, store.ErrSessionAlreadySettled) {
			return failure("game is already settled", round), nil
		}
		return failure(genericFailure, nil), err
	}

	view := NewView(round)
	view.WinAmount = session.WinAmount
	return &Result{Success: true, Round: view, Balance: balanceOf(user)}, nil
}

// HandleGameEnd settles a terminal round: one net balance adjustment and the
// session update in a single store transaction, then the round is dropped.
// A round whose session is already settled yields store.ErrSessionAlreadySettled
// and changes no balance.
func (e *Engine) HandleGameEnd(ctx context.Context, round *Round) (*models.GameSession, *models.User, error) {
	if !round.Status.Terminal() {
		return nil, nil, fmt.Errorf("round %s is still active", round.GameId)
	}

	settlement := round.Settlement()
	session, user, err := e.ledger.Settle(ctx, store.SettleSessionParams{
		SessionId:  round.SessionId,
		Result:     round.GameResult(),
		WinAmount:  decimal.Max(settlement.Net(), decimal.Zero),
		Details:    round.Details(),
		Adjustment: settlement.Adjustment(),
	})
	if err != nil {
		if errors.Is(err, store.ErrSessionAlreadySettled) {
			e.dropRound(ctx, round)
		}
		return nil, nil, err
	}

	e.dropRound(ctx, round)

	zap.L().Info("Blackjack round settled",
		zap.String("user_id", round.UserId),
		zap.String("game_id", round.GameId),
		zap.String("status", string(round.Status)),
		zap.String("net", settlement.Net().String()),
		zap.String("balance_after", user.Total().String()))

	return session, user, nil
}

// dropRound removes the stored round if it is still the one just settled.
func (e *Engine) dropRound(ctx context.Context, round *Round) {
	stored, err := e.rounds.Get(ctx, round.UserId)
	if err != nil {
		if !errors.Is(err, ErrRoundNotFound) {
			zap.L().Warn("Failed to load round for removal", zap.String("user_id", round.UserId), zap.Error(err))
		}
		return
	}
	if stored.GameId != round.GameId {
		return
	}
	if err := e.rounds.Delete(ctx, round.UserId); err != nil {
		// A leftover entry is settled already and is rejected on its next action.
		zap.L().Warn("Failed to remove settled round", zap.String("user_id", round.UserId), zap.Error(err))
	}
}
